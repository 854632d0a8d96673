package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/account-service/internal/domain/repository"
	"github.com/oksasatya/account-service/pkg/metrics"
)

// Housekeeping periodically removes expired verification tokens and
// soft-deleted accounts older than the retention period.
type Housekeeping struct {
	Store     repository.Store
	Tokens    *VerificationTokens
	Logger    *logrus.Logger
	Metrics   *metrics.Metrics
	Interval  time.Duration
	Retention time.Duration
	Now       func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeeping defaults a non-positive interval to one hour. A
// non-positive retention disables the account purge.
func NewHousekeeping(store repository.Store, tokens *VerificationTokens, logger *logrus.Logger, m *metrics.Metrics, interval, retention time.Duration) *Housekeeping {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Housekeeping{
		Store:     store,
		Tokens:    tokens,
		Logger:    logger,
		Metrics:   m,
		Interval:  interval,
		Retention: retention,
		Now:       time.Now,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start runs one pass immediately and then every Interval until Stop.
func (h *Housekeeping) Start() {
	go h.run()
	h.Logger.WithField("interval", h.Interval.String()).Info("housekeeping started")
}

// Stop waits for an in-progress pass to finish.
func (h *Housekeeping) Stop() {
	close(h.stopCh)
	<-h.doneCh
	h.Logger.Info("housekeeping stopped")
}

func (h *Housekeeping) run() {
	defer close(h.doneCh)

	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()

	h.RunOnce(context.Background())
	for {
		select {
		case <-ticker.C:
			h.RunOnce(context.Background())
		case <-h.stopCh:
			return
		}
	}
}

// RunOnce performs a single pass. Each step runs even if the other failed.
func (h *Housekeeping) RunOnce(ctx context.Context) {
	if n, err := h.Tokens.SweepExpired(ctx); err != nil {
		h.Logger.WithError(err).Error("sweep expired verification tokens failed")
	} else {
		h.Metrics.AddTokensSwept(n)
		h.Logger.WithField("deleted", n).Debug("swept expired verification tokens")
	}

	if h.Retention <= 0 {
		return
	}
	before := h.Now().UTC().Add(-h.Retention)
	if n, err := h.Store.Accounts().PurgeDeleted(ctx, before); err != nil {
		h.Logger.WithError(err).Error("purge deleted accounts failed")
	} else {
		h.Metrics.AddAccountsPurged(n)
		if n > 0 {
			h.Logger.WithFields(logrus.Fields{"purged": n, "before": before.Format(time.RFC3339)}).Info("purged deleted accounts")
		}
	}
}
