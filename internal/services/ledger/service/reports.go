package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"affiliate-ledger/internal/database/models"
	"affiliate-ledger/internal/services/ledger/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type WeekSummary struct {
	StartDate       *time.Time      `json:"start_date,omitempty"`
	SalesValue      decimal.Decimal `json:"sales_value"`
	MembershipsSold int64           `json:"memberships_sold"`
	VaultItemsSold  int64           `json:"vault_items_sold"`
}

// AffiliateSummary is the read model served to the gateway and cached in
// Redis.
type AffiliateSummary struct {
	ID                string                 `json:"id"`
	UserID            string                 `json:"user_id"`
	ReferralCode      string                 `json:"referral_code,omitempty"`
	Status            models.AffiliateStatus `json:"status"`
	CommissionRate    decimal.Decimal        `json:"commission_rate"`
	Balance           decimal.Decimal        `json:"balance"`
	TotalSalesCount   int64                  `json:"total_sales_count"`
	TotalSalesValue   decimal.Decimal        `json:"total_sales_value"`
	ParentAffiliateID string                 `json:"parent_affiliate_id,omitempty"`
	Week              WeekSummary            `json:"week"`
	AppliedAt         *time.Time             `json:"applied_at,omitempty"`
	ApprovedAt        *time.Time             `json:"approved_at,omitempty"`
	Version           int64                  `json:"version"`
}

func summarize(a *models.Affiliate) *AffiliateSummary {
	s := &AffiliateSummary{
		ID:              a.ID,
		UserID:          a.UserID,
		Status:          a.Status,
		CommissionRate:  a.CommissionRate,
		Balance:         a.Balance,
		TotalSalesCount: a.TotalSalesCount,
		TotalSalesValue: a.TotalSalesValue,
		Week: WeekSummary{
			StartDate:       a.Week.StartDate,
			SalesValue:      a.Week.SalesValue,
			MembershipsSold: a.Week.MembershipsSold,
			VaultItemsSold:  a.Week.VaultItemsSold,
		},
		AppliedAt:  a.AppliedAt,
		ApprovedAt: a.ApprovedAt,
		Version:    a.Version,
	}
	if a.ReferralCode != nil {
		s.ReferralCode = *a.ReferralCode
	}
	if a.ParentAffiliateID != nil {
		s.ParentAffiliateID = *a.ParentAffiliateID
	}
	return s
}

func (l *Ledger) GetAffiliate(ctx context.Context, affiliateID string) (*AffiliateSummary, error) {
	if s, ok := l.cache.Get(ctx, affiliateID); ok {
		return s, nil
	}

	a, err := l.repo.AffiliateByID(ctx, affiliateID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAffiliateNotFound
	}
	if err != nil {
		return nil, err
	}

	s := summarize(a)
	l.cache.Set(ctx, s)
	return s, nil
}

func (l *Ledger) GetAffiliateByCode(ctx context.Context, code string) (*AffiliateSummary, error) {
	a, err := l.repo.AffiliateByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAffiliateNotFound
	}
	if err != nil {
		return nil, err
	}
	return summarize(a), nil
}

type RecordPage struct {
	Records  []models.CommissionRecord
	Total    int64
	Page     int
	PageSize int
}

// ListRecords pages through an affiliate's commission records, newest
// first.
func (l *Ledger) ListRecords(ctx context.Context, affiliateID string, page, pageSize int) (*RecordPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	if _, err := l.repo.AffiliateByID(ctx, affiliateID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAffiliateNotFound
		}
		return nil, err
	}

	recs, total, err := l.repo.ListRecords(ctx, affiliateID, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &RecordPage{Records: recs, Total: total, Page: page, PageSize: pageSize}, nil
}

// BalanceAudit compares the stored balance with the balance rebuilt from
// the append-only tables.
type BalanceAudit struct {
	AffiliateID      string
	Commissions      decimal.Decimal
	OverridesEarned  decimal.Decimal
	MilestoneBonuses decimal.Decimal
	Expected         decimal.Decimal
	Stored           decimal.Decimal
	Drift            decimal.Decimal
}

func (a BalanceAudit) Consistent() bool { return a.Drift.IsZero() }

func (l *Ledger) AuditBalance(ctx context.Context, affiliateID string) (*BalanceAudit, error) {
	a, err := l.repo.AffiliateByID(ctx, affiliateID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAffiliateNotFound
	}
	if err != nil {
		return nil, err
	}

	recs, err := l.repo.AllRecords(ctx, affiliateID)
	if err != nil {
		return nil, err
	}
	overrides, err := l.repo.OverridesReceived(ctx, affiliateID)
	if err != nil {
		return nil, err
	}
	awards, err := l.repo.AwardsForAffiliate(ctx, affiliateID)
	if err != nil {
		return nil, err
	}

	audit := &BalanceAudit{
		AffiliateID: affiliateID,
		Commissions: repository.Sum(recs, func(r models.CommissionRecord) decimal.Decimal { return r.CommissionAmount }),
		OverridesEarned: repository.Sum(overrides, func(o models.OverrideCredit) decimal.Decimal {
			return o.OverrideAmount
		}),
		MilestoneBonuses: repository.Sum(awards, func(m models.MilestoneAward) decimal.Decimal { return m.BonusAmount }),
		Stored:           a.Balance,
	}
	audit.Expected = audit.Commissions.Add(audit.OverridesEarned).Add(audit.MilestoneBonuses)
	audit.Drift = audit.Stored.Sub(audit.Expected)

	if !audit.Consistent() {
		l.log.Warn("balance drift detected",
			"affiliate_id", affiliateID,
			"stored", audit.Stored.StringFixed(2),
			"expected", audit.Expected.StringFixed(2))
	}
	return audit, nil
}

func (l *Ledger) Leaderboard(ctx context.Context, limit int) ([]*AffiliateSummary, error) {
	if limit < 1 || limit > maxPageSize {
		limit = 10
	}
	top, err := l.repo.TopAffiliates(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*AffiliateSummary, 0, len(top))
	for i := range top {
		out = append(out, summarize(&top[i]))
	}
	return out, nil
}
