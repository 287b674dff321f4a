package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type WeeklyMilestones struct {
	SalesValue      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	MembershipsSold int64           `gorm:"not null;default:0"`
	VaultItemsSold  int64           `gorm:"not null;default:0"`
	StartDate       *time.Time
}

// Affiliate is the aggregate row the ledger credits. Version is bumped on
// every write and checked by the repository to detect lost updates.
type Affiliate struct {
	ID                string           `gorm:"primaryKey;type:varchar(36)"`
	UserID            string           `gorm:"type:varchar(64);uniqueIndex;not null"`
	ReferralCode      *string          `gorm:"type:varchar(32);uniqueIndex"`
	Status            AffiliateStatus  `gorm:"type:varchar(16);index;not null"`
	CommissionRate    decimal.Decimal  `gorm:"type:decimal(7,4);not null;default:0"`
	Balance           decimal.Decimal  `gorm:"type:decimal(20,4);not null;default:0"`
	TotalSalesCount   int64            `gorm:"not null;default:0"`
	TotalSalesValue   decimal.Decimal  `gorm:"type:decimal(20,4);not null;default:0"`
	ParentAffiliateID *string          `gorm:"type:varchar(36);index"`
	Week              WeeklyMilestones `gorm:"embedded;embeddedPrefix:week_"`
	AdminNote         *string          `gorm:"type:text"`
	AppliedAt         *time.Time       `gorm:"index"`
	ApprovedAt        *time.Time
	Version           int64      `gorm:"not null;default:0"`
	CreatedAt         *time.Time `gorm:"autoCreateTime"`
	UpdatedAt         *time.Time `gorm:"autoUpdateTime"`
}

// CommissionRecord is append-only. One row per (affiliate, order, item).
type CommissionRecord struct {
	ID               string          `gorm:"primaryKey;type:varchar(36)"`
	AffiliateID      string          `gorm:"type:varchar(36);not null;index:idx_commission_record_key,unique,priority:1"`
	OrderID          string          `gorm:"type:varchar(64);not null;index:idx_commission_record_key,unique,priority:2"`
	ItemID           string          `gorm:"type:varchar(64);not null;index:idx_commission_record_key,unique,priority:3"`
	ItemType         ItemType        `gorm:"type:varchar(16);not null"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Quantity         int64           `gorm:"not null"`
	BasePrice        decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	AppliedRate      decimal.Decimal `gorm:"type:decimal(7,4);not null"`
	CommissionAmount decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Membership       bool            `gorm:"not null;default:false"`
	Currency         string          `gorm:"type:varchar(3);not null"`
	CreatedAt        time.Time       `gorm:"autoCreateTime;index"`
}

// OrderReceipt pins an order id to the affiliate it was credited to.
type OrderReceipt struct {
	OrderID         string          `gorm:"primaryKey;type:varchar(64)"`
	AffiliateID     string          `gorm:"type:varchar(36);not null;index"`
	ReferralCode    string          `gorm:"type:varchar(32);not null"`
	Currency        string          `gorm:"type:varchar(3);not null"`
	GrossValue      decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	TotalCommission decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	CreatedAt       time.Time       `gorm:"autoCreateTime"`
}

type OverrideCredit struct {
	ID                string          `gorm:"primaryKey;type:varchar(36)"`
	ParentAffiliateID string          `gorm:"type:varchar(36);not null;index:idx_override_credit_key,unique,priority:1"`
	OrderID           string          `gorm:"type:varchar(64);not null;index:idx_override_credit_key,unique,priority:2;index:idx_override_child_order,unique,priority:2"`
	ChildAffiliateID  string          `gorm:"type:varchar(36);not null;index:idx_override_child_order,unique,priority:1"`
	ChildCommission   decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	OverrideRate      decimal.Decimal `gorm:"type:decimal(7,4);not null"`
	OverrideAmount    decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Currency          string          `gorm:"type:varchar(3);not null"`
	CreatedAt         time.Time       `gorm:"autoCreateTime"`
}

type MilestoneAward struct {
	ID            string          `gorm:"primaryKey;type:varchar(36)"`
	AffiliateID   string          `gorm:"type:varchar(36);not null;index:idx_milestone_award_key,unique,priority:1"`
	Type          MilestoneType   `gorm:"type:varchar(32);not null;index:idx_milestone_award_key,unique,priority:2"`
	WeekStartDate time.Time       `gorm:"not null;index:idx_milestone_award_key,unique,priority:3"`
	BonusAmount   decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Currency      string          `gorm:"type:varchar(3);not null"`
	OrderID       string          `gorm:"type:varchar(64);not null"`
	CreatedAt     time.Time       `gorm:"autoCreateTime"`
}
