package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"affiliate-ledger/internal/database/models"
	"affiliate-ledger/internal/services/ledger/repository"
	"affiliate-ledger/internal/services/ledger/rules"
)

// credit applies an order to the affiliate aggregate, appends its
// commission records and awards any weekly milestone the order completes,
// all in one transaction, retrying on write conflicts.
//
// The returned affiliate is set whenever the referral code resolved, so
// callers can log and continue with the override step. On
// ErrDuplicateOrder the result is rebuilt from the stored records.
func (l *Ledger) credit(ctx context.Context, order rules.OrderAttribution) (*Result, *models.Affiliate, error) {
	var (
		res *Result
		aff *models.Affiliate
	)

	err := l.withRetry(ctx, "credit order "+order.OrderID, func() error {
		res, aff = nil, nil
		return l.repo.Transaction(ctx, func(tx *repository.Repository) error {
			var err error
			aff, err = tx.LockAffiliateByCode(ctx, order.ReferralCode)
			if errors.Is(err, repository.ErrNotFound) {
				aff = nil
				return ErrAffiliateNotFound
			}
			if err != nil {
				return fmt.Errorf("load affiliate: %w", err)
			}
			if aff.Status != models.StatusApproved {
				return ErrAffiliateNotEligible
			}

			prior, err := l.priorCredit(ctx, tx, aff, order)
			if err != nil {
				return err
			}
			if prior != nil {
				res = prior
				return ErrDuplicateOrder
			}

			res, err = l.applyCredit(ctx, tx, aff, order)
			return err
		})
	})
	return res, aff, err
}

// priorCredit returns the stored result when the order was already credited
// to aff, or ErrOrderConflict when it was credited to someone else.
func (l *Ledger) priorCredit(ctx context.Context, tx *repository.Repository, aff *models.Affiliate, order rules.OrderAttribution) (*Result, error) {
	receipt, err := tx.ReceiptByOrder(ctx, order.OrderID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		receipt = nil
	case err != nil:
		return nil, fmt.Errorf("load receipt: %w", err)
	case receipt.AffiliateID != aff.ID:
		return nil, fmt.Errorf("%w: order %s belongs to affiliate %s", ErrOrderConflict, order.OrderID, receipt.AffiliateID)
	}

	recs, err := tx.RecordsForOrder(ctx, aff.ID, order.OrderID)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	if receipt == nil && len(recs) == 0 {
		return nil, nil
	}
	return resultFromRecords(order.OrderID, aff.ID, receipt, recs), nil
}

func (l *Ledger) applyCredit(ctx context.Context, tx *repository.Repository, aff *models.Affiliate, order rules.OrderAttribution) (*Result, error) {
	now := l.now()
	rate := l.rules.Tiers.Resolve(aff.TotalSalesCount, aff.CommissionRate)
	split := rules.SplitOrder(order, rate, l.rules.ClearanceRate)
	total := split.TotalCommission()

	inserted, err := tx.InsertReceipt(ctx, &models.OrderReceipt{
		OrderID:         order.OrderID,
		AffiliateID:     aff.ID,
		ReferralCode:    order.ReferralCode,
		Currency:        order.Currency,
		GrossValue:      split.GrossValue,
		TotalCommission: total,
		CreatedAt:       now,
	})
	if err != nil {
		return nil, fmt.Errorf("insert receipt: %w", err)
	}
	if !inserted {
		// Another delivery committed between our check and insert. The
		// retry will see its receipt and report a duplicate.
		return nil, fmt.Errorf("%w: receipt for order %s already exists", ErrPersistenceConflict, order.OrderID)
	}

	recs := make([]models.CommissionRecord, 0, len(split.Items))
	for _, item := range split.Items {
		recs = append(recs, models.CommissionRecord{
			ID:               uuid.NewString(),
			AffiliateID:      aff.ID,
			OrderID:          order.OrderID,
			ItemID:           item.ItemID,
			ItemType:         item.ItemType,
			UnitPrice:        item.UnitPrice,
			Quantity:         item.Quantity,
			BasePrice:        item.BasePrice,
			AppliedRate:      item.AppliedRate,
			CommissionAmount: item.Amount,
			Membership:       item.Membership,
			Currency:         order.Currency,
			CreatedAt:        now,
		})
	}
	n, err := tx.InsertRecords(ctx, recs)
	if err != nil {
		return nil, fmt.Errorf("insert commission records: %w", err)
	}
	if n != int64(len(recs)) {
		return nil, fmt.Errorf("%w: %d of %d records for order %s already exist", ErrPersistenceConflict, int64(len(recs))-n, len(recs), order.OrderID)
	}

	if aff.TotalSalesCount > math.MaxInt64-split.Units {
		return nil, fmt.Errorf("%w: unit count overflows affiliate %s total", ErrInvalidOrder, aff.ID)
	}
	aff.TotalSalesCount += split.Units
	aff.TotalSalesValue = aff.TotalSalesValue.Add(split.GrossValue)
	aff.Balance = aff.Balance.Add(total)
	aff.CommissionRate = l.rules.Tiers.Resolve(aff.TotalSalesCount, rate)

	week := rules.AdvanceWeek(weekCounters(aff), now, split)
	setWeekCounters(aff, week)

	awards, err := l.awardMilestones(ctx, tx, aff, week, order.OrderID, order.Currency, now)
	if err != nil {
		return nil, err
	}

	if err := tx.SaveAffiliate(ctx, aff); err != nil {
		return nil, conflict(err)
	}

	return &Result{
		OrderID:             order.OrderID,
		AffiliateID:         aff.ID,
		Currency:            order.Currency,
		Rate:                rate,
		Items:               split.Items,
		StandardCommission:  split.StandardCommission,
		ClearanceCommission: split.ClearanceCommission,
		TotalCommission:     total,
		GrossValue:          split.GrossValue,
		Balance:             aff.Balance,
		Milestones:          awards,
	}, nil
}

func resultFromRecords(orderID, affiliateID string, receipt *models.OrderReceipt, recs []models.CommissionRecord) *Result {
	res := &Result{
		OrderID:             orderID,
		AffiliateID:         affiliateID,
		StandardCommission:  decimal.Zero,
		ClearanceCommission: decimal.Zero,
		GrossValue:          decimal.Zero,
		Items:               make([]rules.ItemCommission, 0, len(recs)),
	}
	for _, rec := range recs {
		res.Items = append(res.Items, rules.ItemCommission{
			ItemID:      rec.ItemID,
			ItemType:    rec.ItemType,
			UnitPrice:   rec.UnitPrice,
			Quantity:    rec.Quantity,
			BasePrice:   rec.BasePrice,
			AppliedRate: rec.AppliedRate,
			Amount:      rec.CommissionAmount,
			Membership:  rec.Membership,
		})
		if rec.ItemType == models.ItemVault {
			res.ClearanceCommission = res.ClearanceCommission.Add(rec.CommissionAmount)
		} else {
			res.StandardCommission = res.StandardCommission.Add(rec.CommissionAmount)
			res.Rate = rec.AppliedRate
		}
		res.GrossValue = res.GrossValue.Add(rec.BasePrice)
		res.Currency = rec.Currency
	}
	res.TotalCommission = res.StandardCommission.Add(res.ClearanceCommission)

	if receipt != nil {
		res.Currency = receipt.Currency
		res.GrossValue = receipt.GrossValue
		res.TotalCommission = receipt.TotalCommission
	}
	return res
}

func weekCounters(a *models.Affiliate) rules.WeekCounters {
	c := rules.WeekCounters{
		SalesValue:      a.Week.SalesValue,
		MembershipsSold: a.Week.MembershipsSold,
		VaultItemsSold:  a.Week.VaultItemsSold,
	}
	if a.Week.StartDate != nil {
		c.Start = a.Week.StartDate.UTC()
	}
	return c
}

func setWeekCounters(a *models.Affiliate, c rules.WeekCounters) {
	start := c.Start
	a.Week = models.WeeklyMilestones{
		SalesValue:      c.SalesValue,
		MembershipsSold: c.MembershipsSold,
		VaultItemsSold:  c.VaultItemsSold,
		StartDate:       &start,
	}
}
