package rules

import (
	"github.com/shopspring/decimal"

	"affiliate-ledger/internal/database/models"
)

var hundred = decimal.NewFromInt(100)

type LineItem struct {
	ItemID     string          `json:"item_id" validate:"required,max=64"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int64           `json:"quantity" validate:"min=1,max=1000000"`
	Clearance  bool            `json:"clearance"`
	Membership bool            `json:"membership"`
}

// OrderAttribution is a paid order handed over by the order source.
type OrderAttribution struct {
	OrderID      string     `json:"order_id" validate:"required,max=64"`
	ReferralCode string     `json:"referral_code" validate:"required,max=32"`
	Currency     string     `json:"currency" validate:"required,len=3,alpha"`
	Items        []LineItem `json:"items" validate:"required,min=1,max=500,dive"`
}

type ItemCommission struct {
	ItemID      string
	ItemType    models.ItemType
	UnitPrice   decimal.Decimal
	Quantity    int64
	BasePrice   decimal.Decimal
	AppliedRate decimal.Decimal
	Amount      decimal.Decimal
	Membership  bool
}

type Split struct {
	Items               []ItemCommission
	StandardCommission  decimal.Decimal
	ClearanceCommission decimal.Decimal
	GrossValue          decimal.Decimal
	Units               int64
	ClearanceUnits      int64
	MembershipUnits     int64
}

func (s Split) TotalCommission() decimal.Decimal {
	return s.StandardCommission.Add(s.ClearanceCommission)
}

// Commission applies a percentage to a base amount, rounded to cents.
func Commission(base, ratePct decimal.Decimal) decimal.Decimal {
	return base.Mul(ratePct).Div(hundred).Round(2)
}

// SplitOrder computes per-item commission. Clearance lines always use
// clearanceRate; every other line uses standardRate.
func SplitOrder(order OrderAttribution, standardRate, clearanceRate decimal.Decimal) Split {
	s := Split{
		Items:               make([]ItemCommission, 0, len(order.Items)),
		StandardCommission:  decimal.Zero,
		ClearanceCommission: decimal.Zero,
		GrossValue:          decimal.Zero,
	}

	for _, item := range order.Items {
		base := item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity))
		ic := ItemCommission{
			ItemID:     item.ItemID,
			ItemType:   models.ItemStandard,
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
			BasePrice:  base,
			Membership: item.Membership,
		}

		if item.Clearance {
			ic.ItemType = models.ItemVault
			ic.AppliedRate = clearanceRate
			ic.Amount = Commission(base, clearanceRate)
			s.ClearanceCommission = s.ClearanceCommission.Add(ic.Amount)
			s.ClearanceUnits += item.Quantity
		} else {
			ic.AppliedRate = standardRate
			ic.Amount = Commission(base, standardRate)
			s.StandardCommission = s.StandardCommission.Add(ic.Amount)
		}
		if item.Membership {
			s.MembershipUnits += item.Quantity
		}

		s.GrossValue = s.GrossValue.Add(base)
		s.Units += item.Quantity
		s.Items = append(s.Items, ic)
	}

	return s
}
