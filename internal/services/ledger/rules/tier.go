// Package rules holds the pure commission arithmetic: tier resolution, the
// per-item split and the weekly milestone counters. Nothing in here touches
// storage.
package rules

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Tier is one band of the commission table. Rate is a percentage.
type Tier struct {
	MinUnits int64
	Rate     decimal.Decimal
}

// TierTable is ordered by MinUnits ascending and keyed on cumulative units sold.
type TierTable []Tier

func NewTierTable(tiers []Tier) (TierTable, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("tier table is empty")
	}
	if tiers[0].MinUnits != 0 {
		return nil, fmt.Errorf("first tier must start at 0 units, got %d", tiers[0].MinUnits)
	}
	for i, t := range tiers {
		if !t.Rate.IsPositive() {
			return nil, fmt.Errorf("tier %d: rate must be positive", i)
		}
		if i == 0 {
			continue
		}
		prev := tiers[i-1]
		if t.MinUnits <= prev.MinUnits {
			return nil, fmt.Errorf("tier %d: thresholds must be strictly ascending", i)
		}
		if t.Rate.LessThan(prev.Rate) {
			return nil, fmt.Errorf("tier %d: rate %s is below previous tier %s", i, t.Rate, prev.Rate)
		}
	}
	out := make(TierTable, len(tiers))
	copy(out, tiers)
	return out, nil
}

// RateFor looks up the band for a unit count without regard to history.
func (t TierTable) RateFor(units int64) decimal.Decimal {
	rate := decimal.Zero
	for _, tier := range t {
		if units < tier.MinUnits {
			break
		}
		rate = tier.Rate
	}
	return rate
}

// Resolve returns the rate an affiliate should hold after reaching units.
// A non-zero current rate is never lowered; zero means first initialization.
func (t TierTable) Resolve(units int64, current decimal.Decimal) decimal.Decimal {
	rate := t.RateFor(units)
	if !current.IsZero() && current.GreaterThan(rate) {
		return current
	}
	return rate
}

func (t TierTable) Baseline() decimal.Decimal {
	if len(t) == 0 {
		return decimal.Zero
	}
	return t[0].Rate
}

func (t TierTable) Max() decimal.Decimal {
	if len(t) == 0 {
		return decimal.Zero
	}
	return t[len(t)-1].Rate
}
