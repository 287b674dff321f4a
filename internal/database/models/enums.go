package models

import (
	"database/sql/driver"
	"fmt"
)

// AffiliateStatus is the closed set of partnership states.
type AffiliateStatus string

const (
	StatusNone     AffiliateStatus = "none"
	StatusPending  AffiliateStatus = "pending"
	StatusApproved AffiliateStatus = "approved"
	StatusRejected AffiliateStatus = "rejected"
)

func (s AffiliateStatus) Valid() bool {
	switch s {
	case StatusNone, StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

func ParseAffiliateStatus(v string) (AffiliateStatus, error) {
	s := AffiliateStatus(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown affiliate status %q", v)
	}
	return s, nil
}

func (s AffiliateStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("unknown affiliate status %q", string(s))
	}
	return string(s), nil
}

func (s *AffiliateStatus) Scan(value interface{}) error {
	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case nil:
		*s = StatusNone
		return nil
	default:
		return fmt.Errorf("failed to scan AffiliateStatus: %v", value)
	}
	parsed, err := ParseAffiliateStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ItemType classifies a commissioned line item.
type ItemType string

const (
	ItemStandard ItemType = "standard"
	ItemVault    ItemType = "vault"
)

// MilestoneType names a weekly bonus.
type MilestoneType string

const (
	MilestoneWeeklyVolume MilestoneType = "weekly-volume-bonus"
	MilestoneWeeklyCount  MilestoneType = "weekly-count-bonus"
)
