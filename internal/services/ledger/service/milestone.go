package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"affiliate-ledger/internal/database/models"
	"affiliate-ledger/internal/services/ledger/repository"
	"affiliate-ledger/internal/services/ledger/rules"
)

// awardMilestones inserts an award for every weekly milestone the counters
// satisfy and that has not been awarded for that week yet, adding each bonus
// to aff.Balance. It runs inside the credit transaction, so the counters and
// the awards they earn commit or roll back together. The caller saves aff.
func (l *Ledger) awardMilestones(ctx context.Context, tx *repository.Repository, aff *models.Affiliate, week rules.WeekCounters, orderID, currency string, now time.Time) ([]models.MilestoneAward, error) {
	var awarded []models.MilestoneAward
	for _, m := range l.rules.Milestones.Crossed(week) {
		award := models.MilestoneAward{
			ID:            uuid.NewString(),
			AffiliateID:   aff.ID,
			Type:          m.Type,
			WeekStartDate: week.Start,
			BonusAmount:   m.Bonus.Round(2),
			Currency:      currency,
			OrderID:       orderID,
			CreatedAt:     now,
		}
		inserted, err := tx.InsertAward(ctx, &award)
		if err != nil {
			return nil, fmt.Errorf("insert %s award: %w", m.Type, err)
		}
		if !inserted {
			continue
		}
		aff.Balance = aff.Balance.Add(award.BonusAmount)
		awarded = append(awarded, award)
	}
	return awarded, nil
}

// announceMilestones logs and notifies committed awards.
func (l *Ledger) announceMilestones(ctx context.Context, affiliateID string, awards []models.MilestoneAward) {
	for _, a := range awards {
		l.log.Info("milestone awarded",
			"affiliate_id", affiliateID,
			"type", a.Type,
			"week_start", a.WeekStartDate.Format("2006-01-02"),
			"bonus", a.BonusAmount.StringFixed(2))
		l.notify(ctx, affiliateID, "Weekly Milestone Reached!",
			fmt.Sprintf("You earned a %s %s %s bonus for the week of %s.",
				a.Currency, a.BonusAmount.StringFixed(2), a.Type, a.WeekStartDate.Format("2 Jan 2006")))
	}
}
