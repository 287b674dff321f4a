package rules

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Config bundles every tunable the ledger applies.
type Config struct {
	Tiers         TierTable
	ClearanceRate decimal.Decimal
	OverrideRate  decimal.Decimal
	Milestones    MilestoneRules
}

func DefaultConfig() Config {
	return Config{
		Tiers: TierTable{
			{MinUnits: 0, Rate: decimal.NewFromInt(10)},
			{MinUnits: 50, Rate: decimal.NewFromInt(11)},
			{MinUnits: 100, Rate: decimal.NewFromInt(15)},
			{MinUnits: 500, Rate: decimal.NewFromInt(20)},
		},
		ClearanceRate: decimal.NewFromInt(1),
		OverrideRate:  decimal.NewFromInt(1),
		Milestones: MilestoneRules{
			CountThreshold:  5,
			CountBonus:      decimal.NewFromInt(50),
			VolumeThreshold: decimal.NewFromInt(5000),
			VolumeBonus:     decimal.NewFromInt(100),
		},
	}
}

func (c Config) Validate() error {
	if _, err := NewTierTable(c.Tiers); err != nil {
		return err
	}
	if c.ClearanceRate.IsNegative() || c.ClearanceRate.GreaterThan(hundred) {
		return fmt.Errorf("clearance rate %s out of range", c.ClearanceRate)
	}
	if c.OverrideRate.IsNegative() || c.OverrideRate.GreaterThan(hundred) {
		return fmt.Errorf("override rate %s out of range", c.OverrideRate)
	}
	if c.Milestones.CountThreshold < 0 || c.Milestones.VolumeThreshold.IsNegative() {
		return fmt.Errorf("milestone thresholds must not be negative")
	}
	if c.Milestones.CountBonus.IsNegative() || c.Milestones.VolumeBonus.IsNegative() {
		return fmt.Errorf("milestone bonuses must not be negative")
	}
	return nil
}
