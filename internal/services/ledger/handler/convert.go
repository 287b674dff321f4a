package handler

import (
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"affiliate-ledger/internal/database/models"
	"affiliate-ledger/internal/services/ledger/rules"
	"affiliate-ledger/internal/services/ledger/service"
	proto "affiliate-ledger/proto/ledgerpb"
)

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func parseDecimal(field, v string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "%s must be a decimal, got %q", field, v)
	}
	return d, nil
}

func orderFromProto(req *proto.SubmitOrderRequest) (rules.OrderAttribution, error) {
	order := rules.OrderAttribution{
		OrderID:      req.OrderID,
		ReferralCode: req.ReferralCode,
		Currency:     req.Currency,
		Items:        make([]rules.LineItem, 0, len(req.Items)),
	}
	for _, it := range req.Items {
		if it == nil {
			continue
		}
		price, err := parseDecimal("unit_price", it.UnitPrice)
		if err != nil {
			return order, err
		}
		order.Items = append(order.Items, rules.LineItem{
			ItemID:     it.ItemID,
			UnitPrice:  price,
			Quantity:   it.Quantity,
			Clearance:  it.Clearance,
			Membership: it.Membership,
		})
	}
	return order, nil
}

func resultToProto(res *service.Result) *proto.SubmitOrderResponse {
	out := &proto.SubmitOrderResponse{
		Outcome:     string(res.Outcome),
		OrderID:     res.OrderID,
		AffiliateID: res.AffiliateID,
		Currency:    res.Currency,
	}
	if res.Outcome != service.OutcomeCredited && res.Outcome != service.OutcomeDuplicate {
		return out
	}

	out.Rate = res.Rate.String()
	out.StandardCommission = money(res.StandardCommission)
	out.ClearanceCommission = money(res.ClearanceCommission)
	out.TotalCommission = money(res.TotalCommission)
	out.GrossValue = money(res.GrossValue)
	out.Balance = money(res.Balance)
	for _, it := range res.Items {
		out.Items = append(out.Items, &proto.ItemCommission{
			ItemID:           it.ItemID,
			ItemType:         string(it.ItemType),
			UnitPrice:        money(it.UnitPrice),
			Quantity:         it.Quantity,
			BasePrice:        money(it.BasePrice),
			AppliedRate:      it.AppliedRate.String(),
			CommissionAmount: money(it.Amount),
			Membership:       it.Membership,
		})
	}
	if o := res.Override; o != nil {
		out.Override = &proto.OverrideCredit{
			ParentAffiliateID: o.ParentAffiliateID,
			Credited:          o.Credited,
		}
		if !o.Amount.IsZero() {
			out.Override.Amount = money(o.Amount)
		}
		if o.Err != nil {
			out.Override.Error = o.Err.Error()
		}
	}
	for _, m := range res.Milestones {
		out.Milestones = append(out.Milestones, awardToProto(m))
	}
	return out
}

func awardToProto(m models.MilestoneAward) *proto.MilestoneAward {
	return &proto.MilestoneAward{
		Type:          string(m.Type),
		WeekStartDate: formatTime(&m.WeekStartDate),
		BonusAmount:   money(m.BonusAmount),
		Currency:      m.Currency,
		OrderID:       m.OrderID,
	}
}

func summaryToProto(s *service.AffiliateSummary) *proto.Affiliate {
	return &proto.Affiliate{
		ID:                  s.ID,
		UserID:              s.UserID,
		ReferralCode:        s.ReferralCode,
		Status:              string(s.Status),
		CommissionRate:      s.CommissionRate.String(),
		Balance:             money(s.Balance),
		TotalSalesCount:     s.TotalSalesCount,
		TotalSalesValue:     money(s.TotalSalesValue),
		ParentAffiliateID:   s.ParentAffiliateID,
		WeekStartDate:       formatTime(s.Week.StartDate),
		WeekSalesValue:      money(s.Week.SalesValue),
		WeekMembershipsSold: s.Week.MembershipsSold,
		WeekVaultItemsSold:  s.Week.VaultItemsSold,
		AppliedAt:           formatTime(s.AppliedAt),
		ApprovedAt:          formatTime(s.ApprovedAt),
		Version:             s.Version,
	}
}

func recordToProto(r models.CommissionRecord) *proto.CommissionRecord {
	return &proto.CommissionRecord{
		ID:               r.ID,
		AffiliateID:      r.AffiliateID,
		OrderID:          r.OrderID,
		ItemID:           r.ItemID,
		ItemType:         string(r.ItemType),
		UnitPrice:        money(r.UnitPrice),
		Quantity:         r.Quantity,
		BasePrice:        money(r.BasePrice),
		AppliedRate:      r.AppliedRate.String(),
		CommissionAmount: money(r.CommissionAmount),
		Currency:         r.Currency,
		CreatedAt:        formatTime(&r.CreatedAt),
	}
}

func auditToProto(a *service.BalanceAudit) *proto.AuditBalanceResponse {
	return &proto.AuditBalanceResponse{
		AffiliateID:      a.AffiliateID,
		Commissions:      money(a.Commissions),
		OverridesEarned:  money(a.OverridesEarned),
		MilestoneBonuses: money(a.MilestoneBonuses),
		Expected:         money(a.Expected),
		Stored:           money(a.Stored),
		Drift:            money(a.Drift),
		Consistent:       a.Consistent(),
	}
}
