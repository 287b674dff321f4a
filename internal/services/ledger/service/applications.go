package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"affiliate-ledger/internal/database/models"
	"affiliate-ledger/internal/services/ledger/repository"
)

const maxCodeAttempts = 5

// Apply files a partnership application for userID, optionally naming the
// referral code of the affiliate who recruited them. Rejected applicants
// may apply again; pending and approved ones may not.
func (l *Ledger) Apply(ctx context.Context, userID, parentCode string) (*AffiliateSummary, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidTransition)
	}

	var parentID *string
	if code := strings.TrimSpace(parentCode); code != "" {
		parent, err := l.repo.AffiliateByCode(ctx, code)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: referral code %s", ErrAffiliateNotFound, code)
		}
		if err != nil {
			return nil, err
		}
		if parent.Status != models.StatusApproved {
			return nil, fmt.Errorf("%w: referring affiliate %s is %s", ErrAffiliateNotEligible, parent.ID, parent.Status)
		}
		parentID = &parent.ID
	}

	var aff *models.Affiliate
	err := l.withRetry(ctx, "apply "+userID, func() error {
		return l.repo.Transaction(ctx, func(tx *repository.Repository) error {
			now := l.now()
			existing, err := tx.AffiliateByUser(ctx, userID)
			if errors.Is(err, repository.ErrNotFound) {
				aff = &models.Affiliate{
					ID:                uuid.NewString(),
					UserID:            userID,
					Status:            models.StatusPending,
					CommissionRate:    decimal.Zero,
					Balance:           decimal.Zero,
					TotalSalesValue:   decimal.Zero,
					ParentAffiliateID: parentID,
					Week:              models.WeeklyMilestones{SalesValue: decimal.Zero},
					AppliedAt:         &now,
				}
				return tx.CreateAffiliate(ctx, aff)
			}
			if err != nil {
				return err
			}

			switch existing.Status {
			case models.StatusNone, models.StatusRejected:
			default:
				return fmt.Errorf("%w: user %s already has a %s application", ErrInvalidTransition, userID, existing.Status)
			}
			existing.Status = models.StatusPending
			existing.AppliedAt = &now
			existing.AdminNote = nil
			if parentID != nil && *parentID != existing.ID {
				existing.ParentAffiliateID = parentID
			}
			aff = existing
			return conflict(tx.SaveAffiliate(ctx, existing))
		})
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("affiliate application received", "affiliate_id", aff.ID, "user_id", userID)
	l.notify(ctx, aff.ID, "Application Received", "Your partnership application is under review.")
	return summarize(aff), nil
}

// Review approves or rejects a pending application. Approval assigns a
// referral code if the affiliate has none and initializes the commission
// rate to the baseline tier.
func (l *Ledger) Review(ctx context.Context, affiliateID string, approve bool, note string) (*AffiliateSummary, error) {
	var aff *models.Affiliate
	err := l.withRetry(ctx, "review "+affiliateID, func() error {
		return l.repo.Transaction(ctx, func(tx *repository.Repository) error {
			var err error
			aff, err = tx.LockAffiliate(ctx, affiliateID)
			if errors.Is(err, repository.ErrNotFound) {
				return ErrAffiliateNotFound
			}
			if err != nil {
				return err
			}
			if aff.Status != models.StatusPending {
				return fmt.Errorf("%w: affiliate %s is %s, not pending", ErrInvalidTransition, aff.ID, aff.Status)
			}

			if note = strings.TrimSpace(note); note != "" {
				aff.AdminNote = &note
			}
			if !approve {
				aff.Status = models.StatusRejected
				return conflict(tx.SaveAffiliate(ctx, aff))
			}

			if aff.ReferralCode == nil {
				code, err := l.uniqueReferralCode(ctx, tx)
				if err != nil {
					return err
				}
				aff.ReferralCode = &code
			}
			now := l.now()
			aff.Status = models.StatusApproved
			aff.ApprovedAt = &now
			aff.CommissionRate = l.rules.Tiers.Resolve(aff.TotalSalesCount, aff.CommissionRate)
			return conflict(tx.SaveAffiliate(ctx, aff))
		})
	})
	if err != nil {
		return nil, err
	}

	l.cache.Invalidate(ctx, aff.ID)
	if approve {
		l.log.Info("affiliate approved", "affiliate_id", aff.ID, "referral_code", *aff.ReferralCode)
		l.notify(ctx, aff.ID, "Partnership Approved!",
			fmt.Sprintf("Welcome aboard. Your referral code is %s.", *aff.ReferralCode))
	} else {
		l.log.Info("affiliate rejected", "affiliate_id", aff.ID)
		l.notify(ctx, aff.ID, "Partnership Application Update",
			"Your partnership application was not approved this time.")
	}
	return summarize(aff), nil
}

func (l *Ledger) uniqueReferralCode(ctx context.Context, tx *repository.Repository) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := l.newCode()
		if err != nil {
			return "", fmt.Errorf("generate referral code: %w", err)
		}
		_, err = tx.AffiliateByCode(ctx, code)
		if errors.Is(err, repository.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no free referral code after %d attempts", maxCodeAttempts)
}

// AutoApprove approves every application that has been pending longer than
// the configured grace period. It returns how many were approved.
func (l *Ledger) AutoApprove(ctx context.Context) (int, error) {
	cutoff := l.now().Add(-l.autoApproveAfter)
	pending, err := l.repo.PendingAppliedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	approved := 0
	for _, a := range pending {
		if _, err := l.Review(ctx, a.ID, true, "auto-approved"); err != nil {
			if errors.Is(err, ErrInvalidTransition) {
				continue
			}
			return approved, fmt.Errorf("auto-approve %s: %w", a.ID, err)
		}
		approved++
	}
	if approved > 0 {
		l.log.Info("auto-approved applications", "count", approved, "older_than", l.autoApproveAfter.String())
	}
	return approved, nil
}

// AssignParent links child to its direct upline. Only one hop is stored.
func (l *Ledger) AssignParent(ctx context.Context, childID, parentID string) (*AffiliateSummary, error) {
	if childID == parentID {
		return nil, fmt.Errorf("%w: an affiliate cannot be its own parent", ErrInvalidTransition)
	}

	parent, err := l.repo.AffiliateByID(ctx, parentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: parent %s", ErrAffiliateNotFound, parentID)
	}
	if err != nil {
		return nil, err
	}
	if parent.ParentAffiliateID != nil && *parent.ParentAffiliateID == childID {
		return nil, fmt.Errorf("%w: %s is already the parent of %s", ErrInvalidTransition, childID, parentID)
	}

	var child *models.Affiliate
	err = l.withRetry(ctx, "assign parent "+childID, func() error {
		return l.repo.Transaction(ctx, func(tx *repository.Repository) error {
			var err error
			child, err = tx.LockAffiliate(ctx, childID)
			if errors.Is(err, repository.ErrNotFound) {
				return ErrAffiliateNotFound
			}
			if err != nil {
				return err
			}
			child.ParentAffiliateID = &parent.ID
			return conflict(tx.SaveAffiliate(ctx, child))
		})
	})
	if err != nil {
		return nil, err
	}

	l.cache.Invalidate(ctx, childID)
	l.log.Info("parent assigned", "affiliate_id", childID, "parent_affiliate_id", parentID)
	return summarize(child), nil
}

// RaiseTier sets an affiliate's standard rate by hand. Lowering it is
// refused so a tier is never regressed.
func (l *Ledger) RaiseTier(ctx context.Context, affiliateID string, rate decimal.Decimal) (*AffiliateSummary, error) {
	if !rate.IsPositive() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("%w: rate %s out of range", ErrInvalidTransition, rate)
	}

	var aff *models.Affiliate
	err := l.withRetry(ctx, "raise tier "+affiliateID, func() error {
		return l.repo.Transaction(ctx, func(tx *repository.Repository) error {
			var err error
			aff, err = tx.LockAffiliate(ctx, affiliateID)
			if errors.Is(err, repository.ErrNotFound) {
				return ErrAffiliateNotFound
			}
			if err != nil {
				return err
			}
			if rate.LessThan(aff.CommissionRate) {
				return fmt.Errorf("%w: rate %s is below current %s", ErrInvalidTransition, rate, aff.CommissionRate)
			}
			aff.CommissionRate = rate
			return conflict(tx.SaveAffiliate(ctx, aff))
		})
	})
	if err != nil {
		return nil, err
	}

	l.cache.Invalidate(ctx, affiliateID)
	l.log.Info("tier raised", "affiliate_id", affiliateID, "rate", rate.String())
	l.notify(ctx, affiliateID, "Commission Tier Upgraded",
		fmt.Sprintf("Your commission rate is now %s%%.", rate.String()))
	return summarize(aff), nil
}
