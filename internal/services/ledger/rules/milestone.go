package rules

import (
	"time"

	"github.com/shopspring/decimal"

	"affiliate-ledger/internal/database/models"
)

// WeekStart returns Monday 00:00 UTC of the week containing t.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -offset)
}

type WeekCounters struct {
	Start           time.Time
	SalesValue      decimal.Decimal
	MembershipsSold int64
	VaultItemsSold  int64
}

// AdvanceWeek adds an order's contribution to the counters, rolling them
// over first if now falls in a later week than the stored one.
func AdvanceWeek(c WeekCounters, now time.Time, s Split) WeekCounters {
	ws := WeekStart(now)
	if c.Start.IsZero() || ws.After(c.Start) {
		c = WeekCounters{Start: ws, SalesValue: decimal.Zero}
	}
	c.SalesValue = c.SalesValue.Add(s.GrossValue)
	c.MembershipsSold += s.MembershipUnits
	c.VaultItemsSold += s.ClearanceUnits
	return c
}

type MilestoneRules struct {
	CountThreshold  int64
	CountBonus      decimal.Decimal
	VolumeThreshold decimal.Decimal
	VolumeBonus     decimal.Decimal
}

type Milestone struct {
	Type  models.MilestoneType
	Bonus decimal.Decimal
}

// Crossed lists the milestones the counters currently satisfy. A zero
// threshold disables that milestone.
func (m MilestoneRules) Crossed(c WeekCounters) []Milestone {
	var out []Milestone
	if m.CountThreshold > 0 && c.VaultItemsSold+c.MembershipsSold >= m.CountThreshold {
		out = append(out, Milestone{Type: models.MilestoneWeeklyCount, Bonus: m.CountBonus})
	}
	if m.VolumeThreshold.IsPositive() && c.SalesValue.GreaterThanOrEqual(m.VolumeThreshold) {
		out = append(out, Milestone{Type: models.MilestoneWeeklyVolume, Bonus: m.VolumeBonus})
	}
	return out
}
