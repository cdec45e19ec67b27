package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arneor/vault-api/models"
	"github.com/arneor/vault-api/utils"
)

// Refresher re-reads every collection on a fixed interval so that edits
// made directly in the spreadsheet reach connected clients.
type Refresher struct {
	ledger   *LedgerService
	interval time.Duration
	onSync   func(ChangeEvent)
}

func NewRefresher(ledger *LedgerService, interval time.Duration, onSync func(ChangeEvent)) *Refresher {
	return &Refresher{ledger: ledger, interval: interval, onSync: onSync}
}

// Interval resolves the refresh period: the explicit interval when set,
// else the Auto_Refresh_Interval setting in seconds.
func (r *Refresher) Interval(ctx context.Context) time.Duration {
	if r.interval > 0 {
		return r.interval
	}
	// sheet cells may be edited by hand, so fractions are honoured
	secs, err := r.ledger.DecimalSetting(ctx, models.SettingAutoRefreshInterval)
	if err != nil || !secs.IsPositive() {
		secs = parseDecimal(DefaultSettings[models.SettingAutoRefreshInterval])
	}
	return time.Duration(secs.Mul(decimal.NewFromInt(int64(time.Second))).IntPart())
}

// Run blocks until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	interval := r.Interval(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	utils.SafeInfo("🔄 Background refresh every %s", interval)

	for {
		select {
		case <-ctx.Done():
			utils.SafeInfo("🛑 Background refresh stopped")
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick performs one refresh. Authorization failures are expected while
// nobody is logged in and are not logged as errors.
func (r *Refresher) Tick(ctx context.Context) {
	snap, err := r.ledger.FetchAll(ctx)
	if err != nil {
		if IsAuthError(err) {
			return
		}
		utils.SafeWarn("Background refresh failed: %v", err)
		return
	}
	if r.onSync != nil {
		r.onSync(ChangeEvent{Type: "sync", Entity: "all", At: snap.LastSync})
	}
}
