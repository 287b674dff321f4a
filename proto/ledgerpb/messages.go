package ledgerpb

// Money and rates travel as decimal strings ("50.00", "15") so no precision
// is lost between services. Timestamps are RFC 3339 strings.

type LineItem struct {
	ItemID     string `json:"item_id"`
	UnitPrice  string `json:"unit_price"`
	Quantity   int64  `json:"quantity"`
	Clearance  bool   `json:"clearance,omitempty"`
	Membership bool   `json:"membership,omitempty"`
}

type SubmitOrderRequest struct {
	OrderID      string      `json:"order_id"`
	ReferralCode string      `json:"referral_code"`
	Currency     string      `json:"currency"`
	Items        []*LineItem `json:"items"`
}

type ItemCommission struct {
	ItemID           string `json:"item_id"`
	ItemType         string `json:"item_type"`
	UnitPrice        string `json:"unit_price"`
	Quantity         int64  `json:"quantity"`
	BasePrice        string `json:"base_price"`
	AppliedRate      string `json:"applied_rate"`
	CommissionAmount string `json:"commission_amount"`
	Membership       bool   `json:"membership,omitempty"`
}

type OverrideCredit struct {
	ParentAffiliateID string `json:"parent_affiliate_id"`
	Amount            string `json:"amount,omitempty"`
	Credited          bool   `json:"credited"`
	Error             string `json:"error,omitempty"`
}

type MilestoneAward struct {
	Type          string `json:"type"`
	WeekStartDate string `json:"week_start_date"`
	BonusAmount   string `json:"bonus_amount"`
	Currency      string `json:"currency"`
	OrderID       string `json:"order_id"`
}

type SubmitOrderResponse struct {
	Outcome             string            `json:"outcome"`
	OrderID             string            `json:"order_id"`
	AffiliateID         string            `json:"affiliate_id,omitempty"`
	Currency            string            `json:"currency"`
	Rate                string            `json:"rate,omitempty"`
	StandardCommission  string            `json:"standard_commission,omitempty"`
	ClearanceCommission string            `json:"clearance_commission,omitempty"`
	TotalCommission     string            `json:"total_commission,omitempty"`
	GrossValue          string            `json:"gross_value,omitempty"`
	Balance             string            `json:"balance,omitempty"`
	Items               []*ItemCommission `json:"items,omitempty"`
	Override            *OverrideCredit   `json:"override,omitempty"`
	Milestones          []*MilestoneAward `json:"milestones,omitempty"`
}

type Affiliate struct {
	ID                  string `json:"id"`
	UserID              string `json:"user_id"`
	ReferralCode        string `json:"referral_code,omitempty"`
	Status              string `json:"status"`
	CommissionRate      string `json:"commission_rate"`
	Balance             string `json:"balance"`
	TotalSalesCount     int64  `json:"total_sales_count"`
	TotalSalesValue     string `json:"total_sales_value"`
	ParentAffiliateID   string `json:"parent_affiliate_id,omitempty"`
	WeekStartDate       string `json:"week_start_date,omitempty"`
	WeekSalesValue      string `json:"week_sales_value"`
	WeekMembershipsSold int64  `json:"week_memberships_sold"`
	WeekVaultItemsSold  int64  `json:"week_vault_items_sold"`
	AppliedAt           string `json:"applied_at,omitempty"`
	ApprovedAt          string `json:"approved_at,omitempty"`
	Version             int64  `json:"version"`
}

type AffiliateResponse struct {
	Affiliate *Affiliate `json:"affiliate"`
}

// GetAffiliateRequest looks up by ID, or by ReferralCode when ID is empty.
type GetAffiliateRequest struct {
	ID           string `json:"id,omitempty"`
	ReferralCode string `json:"referral_code,omitempty"`
}

type CommissionRecord struct {
	ID               string `json:"id"`
	AffiliateID      string `json:"affiliate_id"`
	OrderID          string `json:"order_id"`
	ItemID           string `json:"item_id"`
	ItemType         string `json:"item_type"`
	UnitPrice        string `json:"unit_price"`
	Quantity         int64  `json:"quantity"`
	BasePrice        string `json:"base_price"`
	AppliedRate      string `json:"applied_rate"`
	CommissionAmount string `json:"commission_amount"`
	Currency         string `json:"currency"`
	CreatedAt        string `json:"created_at"`
}

type ListCommissionRecordsRequest struct {
	AffiliateID string `json:"affiliate_id"`
	Page        int32  `json:"page"`
	PageSize    int32  `json:"page_size"`
}

type ListCommissionRecordsResponse struct {
	Records  []*CommissionRecord `json:"records"`
	Total    int64               `json:"total"`
	Page     int32               `json:"page"`
	PageSize int32               `json:"page_size"`
}

type ApplyAffiliateRequest struct {
	UserID             string `json:"user_id"`
	ParentReferralCode string `json:"parent_referral_code,omitempty"`
}

type ReviewApplicationRequest struct {
	AffiliateID string `json:"affiliate_id"`
	Approve     bool   `json:"approve"`
	Note        string `json:"note,omitempty"`
}

type AssignParentRequest struct {
	AffiliateID       string `json:"affiliate_id"`
	ParentAffiliateID string `json:"parent_affiliate_id"`
}

type RaiseTierRequest struct {
	AffiliateID string `json:"affiliate_id"`
	Rate        string `json:"rate"`
}

type AuditBalanceRequest struct {
	AffiliateID string `json:"affiliate_id"`
}

type AuditBalanceResponse struct {
	AffiliateID      string `json:"affiliate_id"`
	Commissions      string `json:"commissions"`
	OverridesEarned  string `json:"overrides_earned"`
	MilestoneBonuses string `json:"milestone_bonuses"`
	Expected         string `json:"expected"`
	Stored           string `json:"stored"`
	Drift            string `json:"drift"`
	Consistent       bool   `json:"consistent"`
}

type LeaderboardRequest struct {
	Limit int32 `json:"limit"`
}

type LeaderboardResponse struct {
	Affiliates []*Affiliate `json:"affiliates"`
}
