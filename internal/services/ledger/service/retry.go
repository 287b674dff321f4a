package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"affiliate-ledger/internal/services/ledger/repository"
)

const maxBackoff = 2 * time.Second

// conflict converts the repository's stale-version error into
// ErrPersistenceConflict so withRetry recognizes it.
func conflict(err error) error {
	if errors.Is(err, repository.ErrVersionConflict) {
		return fmt.Errorf("%w: %v", ErrPersistenceConflict, err)
	}
	return err
}

// backoff returns base*2^(attempt-1) capped at maxBackoff, with up to 50%
// random jitter added.
func backoff(base time.Duration, attempt int) time.Duration {
	d := base << (attempt - 1)
	if d <= 0 || d > maxBackoff {
		d = maxBackoff
	}
	return d + time.Duration(rand.Int63n(int64(d)/2+1))
}

// withRetry runs fn until it returns something other than
// ErrPersistenceConflict or the attempt budget is spent.
func (l *Ledger) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		err = fn()
		if !errors.Is(err, ErrPersistenceConflict) {
			return err
		}
		if attempt == l.maxAttempts {
			break
		}

		delay := backoff(l.baseDelay, attempt)
		l.log.Warn("ledger write conflict, retrying",
			"op", op, "attempt", attempt, "delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("%s gave up after %d attempts: %w", op, l.maxAttempts, err)
}
