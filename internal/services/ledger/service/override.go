package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"affiliate-ledger/internal/database/models"
	"affiliate-ledger/internal/services/ledger/repository"
	"affiliate-ledger/internal/services/ledger/rules"
)

// propagateOverride credits the direct parent of child with the override
// share of childCommission. Only child.ParentAffiliateID is consulted; the
// parent's own upline is never read. A nil result means there is nothing
// to credit.
func (l *Ledger) propagateOverride(ctx context.Context, child *models.Affiliate, orderID string, childCommission decimal.Decimal, currency string) (*OverrideResult, error) {
	if child.ParentAffiliateID == nil || *child.ParentAffiliateID == "" || *child.ParentAffiliateID == child.ID {
		return nil, nil
	}
	parentID := *child.ParentAffiliateID

	amount := rules.Commission(childCommission, l.rules.OverrideRate)
	if !amount.IsPositive() {
		return nil, nil
	}

	var out *OverrideResult
	err := l.withRetry(ctx, "override "+orderID, func() error {
		out = nil
		return l.repo.Transaction(ctx, func(tx *repository.Repository) error {
			parent, err := tx.LockAffiliate(ctx, parentID)
			if errors.Is(err, repository.ErrNotFound) {
				l.log.Warn("parent affiliate missing, no override",
					"child_affiliate_id", child.ID, "parent_affiliate_id", parentID)
				return nil
			}
			if err != nil {
				return fmt.Errorf("load parent: %w", err)
			}
			if parent.Status != models.StatusApproved {
				return nil
			}

			inserted, err := tx.InsertOverride(ctx, &models.OverrideCredit{
				ID:                uuid.NewString(),
				ParentAffiliateID: parent.ID,
				ChildAffiliateID:  child.ID,
				OrderID:           orderID,
				ChildCommission:   childCommission,
				OverrideRate:      l.rules.OverrideRate,
				OverrideAmount:    amount,
				Currency:          currency,
				CreatedAt:         l.now(),
			})
			if err != nil {
				return fmt.Errorf("insert override credit: %w", err)
			}
			out = &OverrideResult{ParentAffiliateID: parent.ID, Amount: amount, Credited: inserted}
			if !inserted {
				return nil
			}

			parent.Balance = parent.Balance.Add(amount)
			return conflict(tx.SaveAffiliate(ctx, parent))
		})
	})
	if err != nil {
		return nil, err
	}

	if out != nil && out.Credited {
		l.cache.Invalidate(ctx, parentID)
		l.log.Info("override credited",
			"parent_affiliate_id", parentID,
			"child_affiliate_id", child.ID,
			"order_id", orderID,
			"amount", amount.StringFixed(2))
		l.notify(ctx, parentID, "Downline Sale Bonus",
			fmt.Sprintf("You earned a %s %s override from a downline sale.", currency, amount.StringFixed(2)))
	}
	return out, nil
}

// propagateAndQueue runs propagateOverride and, if it fails, hands the job
// to the retry queue. The downline credit is already committed and is never
// rolled back.
func (l *Ledger) propagateAndQueue(ctx context.Context, child *models.Affiliate, orderID string, childCommission decimal.Decimal, currency string) *OverrideResult {
	out, err := l.propagateOverride(ctx, child, orderID, childCommission, currency)
	if err == nil {
		return out
	}

	err = fmt.Errorf("%w: %v", ErrOverridePropagationFailed, err)
	l.log.Error("override propagation failed, queueing retry",
		"child_affiliate_id", child.ID, "order_id", orderID, "error", err)

	job := OverrideJob{
		ChildAffiliateID: child.ID,
		OrderID:          orderID,
		LastError:        err.Error(),
		EnqueuedAt:       l.now(),
	}
	if qerr := l.queue.Push(ctx, job); qerr != nil {
		l.log.Error("failed to queue override retry",
			"child_affiliate_id", child.ID, "order_id", orderID, "error", qerr)
	}

	parentID := ""
	if child.ParentAffiliateID != nil {
		parentID = *child.ParentAffiliateID
	}
	return &OverrideResult{ParentAffiliateID: parentID, Err: err}
}

// RetryOverride re-runs propagation for a queued job. The commission is
// taken from the order receipt so the amount matches the original credit.
func (l *Ledger) RetryOverride(ctx context.Context, job OverrideJob) (*OverrideResult, error) {
	receipt, err := l.repo.ReceiptByOrder(ctx, job.OrderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: no receipt for order %s", ErrOverridePropagationFailed, job.OrderID)
	}
	if err != nil {
		return nil, err
	}
	if receipt.AffiliateID != job.ChildAffiliateID {
		return nil, fmt.Errorf("%w: order %s belongs to affiliate %s", ErrOrderConflict, job.OrderID, receipt.AffiliateID)
	}

	child, err := l.repo.AffiliateByID(ctx, job.ChildAffiliateID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAffiliateNotFound
	}
	if err != nil {
		return nil, err
	}
	return l.propagateOverride(ctx, child, job.OrderID, receipt.TotalCommission, receipt.Currency)
}

// DrainOverrideRetries processes up to limit queued override jobs. Jobs that
// fail again are requeued until they have been tried maxAttempts times and
// then moved to the dead-letter list.
func (l *Ledger) DrainOverrideRetries(ctx context.Context, limit int) (int, error) {
	processed := 0
	for processed < limit {
		job, err := l.queue.Pop(ctx)
		if err != nil {
			return processed, fmt.Errorf("pop override job: %w", err)
		}
		if job == nil {
			return processed, nil
		}
		processed++

		_, rerr := l.RetryOverride(ctx, *job)
		if rerr == nil {
			continue
		}

		job.Attempts++
		job.LastError = rerr.Error()
		job.EnqueuedAt = l.now()
		if job.Attempts >= l.maxAttempts || errors.Is(rerr, ErrOrderConflict) {
			l.log.Error("override retry exhausted, dead-lettering",
				"child_affiliate_id", job.ChildAffiliateID, "order_id", job.OrderID,
				"attempts", job.Attempts, "error", rerr)
			if derr := l.queue.DeadLetter(ctx, *job); derr != nil {
				return processed, derr
			}
			continue
		}
		if perr := l.queue.Push(ctx, *job); perr != nil {
			return processed, perr
		}
	}
	return processed, nil
}

type OverrideJob struct {
	ChildAffiliateID string    `json:"child_affiliate_id"`
	OrderID          string    `json:"order_id"`
	Attempts         int       `json:"attempts"`
	LastError        string    `json:"last_error,omitempty"`
	EnqueuedAt       time.Time `json:"enqueued_at"`
}
