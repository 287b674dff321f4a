// Package repository is the gorm persistence layer for the ledger tables.
// Every method runs on whatever *gorm.DB the Repository wraps, so the same
// code serves plain reads and calls inside Transaction.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"affiliate-ledger/internal/database/models"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("affiliate was modified concurrently")
)

type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Transaction runs fn inside a database transaction. fn receives a
// Repository bound to the transaction.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// --- Affiliates ---

func (r *Repository) AffiliateByID(ctx context.Context, id string) (*models.Affiliate, error) {
	var a models.Affiliate
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *Repository) AffiliateByCode(ctx context.Context, code string) (*models.Affiliate, error) {
	var a models.Affiliate
	if err := r.db.WithContext(ctx).Where("referral_code = ?", code).First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *Repository) AffiliateByUser(ctx context.Context, userID string) (*models.Affiliate, error) {
	var a models.Affiliate
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// LockAffiliate reads an affiliate with SELECT ... FOR UPDATE. SQLite has no
// row locks and the clause is dropped there.
func (r *Repository) LockAffiliate(ctx context.Context, id string) (*models.Affiliate, error) {
	var a models.Affiliate
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&a).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *Repository) LockAffiliateByCode(ctx context.Context, code string) (*models.Affiliate, error) {
	var a models.Affiliate
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("referral_code = ?", code).
		First(&a).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *Repository) CreateAffiliate(ctx context.Context, a *models.Affiliate) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// SaveAffiliate writes every mutable column of a, guarded by the version a
// was read at. On success a.Version is advanced; if another writer got there
// first nothing is written and ErrVersionConflict is returned.
func (r *Repository) SaveAffiliate(ctx context.Context, a *models.Affiliate) error {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"referral_code":         a.ReferralCode,
		"status":                a.Status,
		"commission_rate":       a.CommissionRate,
		"balance":               a.Balance,
		"total_sales_count":     a.TotalSalesCount,
		"total_sales_value":     a.TotalSalesValue,
		"parent_affiliate_id":   a.ParentAffiliateID,
		"week_sales_value":      a.Week.SalesValue,
		"week_memberships_sold": a.Week.MembershipsSold,
		"week_vault_items_sold": a.Week.VaultItemsSold,
		"week_start_date":       a.Week.StartDate,
		"admin_note":            a.AdminNote,
		"applied_at":            a.AppliedAt,
		"approved_at":           a.ApprovedAt,
		"version":               gorm.Expr("version + 1"),
		"updated_at":            now,
	}

	res := r.db.WithContext(ctx).
		Model(&models.Affiliate{}).
		Where("id = ? AND version = ?", a.ID, a.Version).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	a.Version++
	a.UpdatedAt = &now
	return nil
}

func (r *Repository) PendingAppliedBefore(ctx context.Context, cutoff time.Time) ([]models.Affiliate, error) {
	var out []models.Affiliate
	err := r.db.WithContext(ctx).
		Where("status = ? AND applied_at <= ?", models.StatusPending, cutoff).
		Order("applied_at asc").
		Find(&out).Error
	return out, err
}

func (r *Repository) TopAffiliates(ctx context.Context, limit int) ([]models.Affiliate, error) {
	var out []models.Affiliate
	err := r.db.WithContext(ctx).
		Where("status = ?", models.StatusApproved).
		Order("total_sales_value desc").
		Order("total_sales_count desc").
		Order("id asc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// --- Commission records ---

func (r *Repository) RecordsForOrder(ctx context.Context, affiliateID, orderID string) ([]models.CommissionRecord, error) {
	var out []models.CommissionRecord
	err := r.db.WithContext(ctx).
		Where("affiliate_id = ? AND order_id = ?", affiliateID, orderID).
		Order("item_id asc").
		Find(&out).Error
	return out, err
}

// InsertRecords appends records, skipping any whose idempotency key already
// exists. It reports how many rows were actually written.
func (r *Repository) InsertRecords(ctx context.Context, recs []models.CommissionRecord) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&recs)
	return res.RowsAffected, res.Error
}

func (r *Repository) ListRecords(ctx context.Context, affiliateID string, page, pageSize int) ([]models.CommissionRecord, int64, error) {
	var (
		out   []models.CommissionRecord
		total int64
	)
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.CommissionRecord{}).Where("affiliate_id = ?", affiliateID)
	}
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := base().Order("created_at desc").Order("order_id asc").Order("item_id asc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&out).Error
	return out, total, err
}

func (r *Repository) AllRecords(ctx context.Context, affiliateID string) ([]models.CommissionRecord, error) {
	var out []models.CommissionRecord
	err := r.db.WithContext(ctx).Where("affiliate_id = ?", affiliateID).Find(&out).Error
	return out, err
}

// --- Receipts ---

func (r *Repository) ReceiptByOrder(ctx context.Context, orderID string) (*models.OrderReceipt, error) {
	var rec models.OrderReceipt
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&rec).Error; err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

func (r *Repository) InsertReceipt(ctx context.Context, rec *models.OrderReceipt) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
	return res.RowsAffected == 1, res.Error
}

// --- Overrides ---

func (r *Repository) InsertOverride(ctx context.Context, oc *models.OverrideCredit) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(oc)
	return res.RowsAffected == 1, res.Error
}

func (r *Repository) OverrideForChildOrder(ctx context.Context, childID, orderID string) (*models.OverrideCredit, error) {
	var oc models.OverrideCredit
	err := r.db.WithContext(ctx).
		Where("child_affiliate_id = ? AND order_id = ?", childID, orderID).
		First(&oc).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &oc, nil
}

func (r *Repository) OverridesReceived(ctx context.Context, parentID string) ([]models.OverrideCredit, error) {
	var out []models.OverrideCredit
	err := r.db.WithContext(ctx).Where("parent_affiliate_id = ?", parentID).Find(&out).Error
	return out, err
}

// --- Milestone awards ---

func (r *Repository) InsertAward(ctx context.Context, a *models.MilestoneAward) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(a)
	return res.RowsAffected == 1, res.Error
}

func (r *Repository) AwardsForAffiliate(ctx context.Context, affiliateID string) ([]models.MilestoneAward, error) {
	var out []models.MilestoneAward
	err := r.db.WithContext(ctx).
		Where("affiliate_id = ?", affiliateID).
		Order("week_start_date asc").
		Order("type asc").
		Find(&out).Error
	return out, err
}

// Sum adds up amounts with decimal arithmetic rather than SQL SUM so SQLite
// and PostgreSQL agree to the cent.
func Sum[T any](rows []T, amount func(T) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(amount(row))
	}
	return total
}
