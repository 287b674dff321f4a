package service

import (
	"context"
	"time"
)

const DefaultWorkerInterval = 10 * time.Minute

// RunWorkers runs the periodic jobs until ctx is cancelled: auto-approval of
// stale applications and draining the override retry queue. A non-positive
// interval means DefaultWorkerInterval.
func (l *Ledger) RunWorkers(ctx context.Context, interval time.Duration, batch int) {
	if interval <= 0 {
		l.log.Warn("invalid worker interval, using default", "interval", interval, "default", DefaultWorkerInterval)
		interval = DefaultWorkerInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.runWorkersOnce(ctx, batch)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.runWorkersOnce(ctx, batch)
		}
	}
}

func (l *Ledger) runWorkersOnce(ctx context.Context, batch int) {
	if _, err := l.AutoApprove(ctx); err != nil {
		l.log.Error("auto-approve run failed", "error", err)
	}
	n, err := l.DrainOverrideRetries(ctx, batch)
	if err != nil {
		l.log.Error("override retry run failed", "error", err)
	}
	if n > 0 {
		l.log.Info("override retries processed", "count", n)
	}
}
