package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/arneor/vault-api/utils"
)

// RetryPolicy retries transient spreadsheet failures. Attempt i (0-based)
// waits BaseDelay*(i+1) before the next try, doubled when the remote
// answered 429.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	// Sleep is replaced in tests. It must honour ctx.
	Sleep func(ctx context.Context, d time.Duration) error
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, BaseDelay: time.Second, Sleep: sleepContext}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do runs fn until it succeeds, fails permanently or runs out of attempts.
// The last error is returned unchanged.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !retryable(err) || i == attempts-1 {
			return err
		}

		delay := p.BaseDelay * time.Duration(i+1)
		if statusOf(err) == http.StatusTooManyRequests {
			delay *= 2
		}
		utils.SafeWarn("sheets %s attempt %d/%d failed, retrying in %s: %v", op, i+1, attempts, delay, err)
		if serr := sleep(ctx, delay); serr != nil {
			return err
		}
	}
	return err
}

// retryable excludes authorization, validation, referential and context
// errors. Everything else, including unclassified failures, is retried.
func retryable(err error) bool {
	if IsAuthError(err) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return false
	}
	switch statusOf(err) {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return false
	}
	return true
}

func statusOf(err error) int {
	var rerr *RemoteError
	if errors.As(err, &rerr) {
		return rerr.Status
	}
	return 0
}
