package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when an operation references a partner,
	// transaction, budget or setting that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a natural key is already taken.
	ErrConflict = errors.New("already exists")

	// ErrUnauthorized means no usable Google token is available.
	ErrUnauthorized = errors.New("authentication required")
	// ErrTokenExpired means the cached Google token has expired.
	ErrTokenExpired = errors.New("token expired")
	// ErrForbidden covers the allow-list and missing spreadsheet permission.
	ErrForbidden = errors.New("access denied")
)

// ValidationError collects per-field messages. It is produced before any
// call reaches the spreadsheet.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// IsAuthError reports whether err should force the client back to the
// unauthenticated state.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrTokenExpired) || errors.Is(err, ErrForbidden)
}

// RemoteError is a spreadsheet failure that survived the retry policy.
type RemoteError struct {
	Op     string
	Status int
	Err    error
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("sheets %s failed (%d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("sheets %s failed: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }
