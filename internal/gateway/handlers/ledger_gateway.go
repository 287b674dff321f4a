package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"affiliate-ledger/internal/gateway/middleware"
	proto "affiliate-ledger/proto/ledgerpb"
)

type LedgerHTTPHandler struct {
	ledgerClient proto.LedgerServiceClient
}

func NewLedgerHTTPHandler(ledgerClient proto.LedgerServiceClient) *LedgerHTTPHandler {
	return &LedgerHTTPHandler{
		ledgerClient: ledgerClient,
	}
}

type OrderItemRequest struct {
	ItemID     string `json:"item_id" binding:"required"`
	UnitPrice  string `json:"unit_price" binding:"required,numeric"`
	Quantity   int64  `json:"quantity" binding:"required,min=1"`
	Clearance  bool   `json:"clearance"`
	Membership bool   `json:"membership"`
}

type SubmitOrderRequest struct {
	OrderID      string             `json:"order_id" binding:"required"`
	ReferralCode string             `json:"referral_code" binding:"required"`
	Currency     string             `json:"currency" binding:"required,len=3"`
	Items        []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

type ApplyRequest struct {
	ParentReferralCode string `json:"parent_referral_code"`
}

type ReviewRequest struct {
	Approve *bool  `json:"approve" binding:"required"`
	Note    string `json:"note"`
}

type AssignParentRequest struct {
	ParentAffiliateID string `json:"parent_affiliate_id" binding:"required"`
}

type RaiseTierRequest struct {
	Rate string `json:"rate" binding:"required,numeric"`
}

type ListRecordsQuery struct {
	Page     int32 `form:"page,default=1"`
	PageSize int32 `form:"page_size,default=20"`
}

type LeaderboardQuery struct {
	Limit int32 `form:"limit,default=10"`
}

// --- Orders ---

func (h *LedgerHTTPHandler) SubmitOrder(c *gin.Context) {
	var req SubmitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	items := make([]*proto.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, &proto.LineItem{
			ItemID:     it.ItemID,
			UnitPrice:  it.UnitPrice,
			Quantity:   it.Quantity,
			Clearance:  it.Clearance,
			Membership: it.Membership,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	resp, err := h.ledgerClient.SubmitOrder(ctx, &proto.SubmitOrderRequest{
		OrderID:      req.OrderID,
		ReferralCode: req.ReferralCode,
		Currency:     req.Currency,
		Items:        items,
	})
	if err != nil {
		handleGRPCError(c, err)
		return
	}

	switch resp.Outcome {
	case "credited":
		c.JSON(http.StatusCreated, successResponse("Commission credited", resp))
	case "duplicate":
		c.JSON(http.StatusOK, successResponse("Order already credited", resp))
	default:
		c.JSON(http.StatusOK, successResponse("Order not commissionable: "+resp.Outcome, resp))
	}
}

// --- Affiliates ---

// authorize lets admins through and otherwise requires the caller to own
// the affiliate. It writes the error response itself.
func (h *LedgerHTTPHandler) authorize(c *gin.Context, ctx context.Context, affiliateID string) (*proto.Affiliate, bool) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("Missing bearer token"))
		return nil, false
	}

	resp, err := h.ledgerClient.GetAffiliate(ctx, &proto.GetAffiliateRequest{ID: affiliateID})
	if err != nil {
		handleGRPCError(c, err)
		return nil, false
	}
	if !claims.IsAdmin() && resp.Affiliate.UserID != claims.UserID {
		c.JSON(http.StatusForbidden, errorResponse("Not your affiliate account"))
		return nil, false
	}
	return resp.Affiliate, true
}

func (h *LedgerHTTPHandler) GetAffiliate(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	aff, ok := h.authorize(c, ctx, c.Param("id"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, successResponse("Affiliate retrieved successfully", aff))
}

// GetAffiliateByCode resolves a referral code. Only the public part of the
// profile is returned to non-admins.
func (h *LedgerHTTPHandler) GetAffiliateByCode(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, errorResponse("code query parameter is required"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := h.ledgerClient.GetAffiliate(ctx, &proto.GetAffiliateRequest{ReferralCode: code})
	if err != nil {
		handleGRPCError(c, err)
		return
	}

	aff := resp.Affiliate
	if claims, ok := middleware.ClaimsFrom(c); !ok || (!claims.IsAdmin() && claims.UserID != aff.UserID) {
		aff = &proto.Affiliate{
			ID:           aff.ID,
			ReferralCode: aff.ReferralCode,
			Status:       aff.Status,
		}
	}
	c.JSON(http.StatusOK, successResponse("Affiliate retrieved successfully", aff))
}

func (h *LedgerHTTPHandler) ListRecords(c *gin.Context) {
	var query ListRecordsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id := c.Param("id")
	if _, ok := h.authorize(c, ctx, id); !ok {
		return
	}

	resp, err := h.ledgerClient.ListCommissionRecords(ctx, &proto.ListCommissionRecordsRequest{
		AffiliateID: id,
		Page:        query.Page,
		PageSize:    query.PageSize,
	})
	if err != nil {
		handleGRPCError(c, err)
		return
	}

	meta := PaginationMeta{Page: resp.Page, PageSize: resp.PageSize, Total: resp.Total}
	c.JSON(http.StatusOK, successWithMetaResponse("Commission records retrieved successfully", resp.Records, meta))
}

// Apply files a partnership application for the calling user.
func (h *LedgerHTTPHandler) Apply(c *gin.Context) {
	var req ApplyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
			return
		}
	}
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("Missing bearer token"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := h.ledgerClient.ApplyAffiliate(ctx, &proto.ApplyAffiliateRequest{
		UserID:             claims.UserID,
		ParentReferralCode: req.ParentReferralCode,
	})
	if err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Application received", resp.Affiliate))
}

func (h *LedgerHTTPHandler) Review(c *gin.Context) {
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := h.ledgerClient.ReviewApplication(ctx, &proto.ReviewApplicationRequest{
		AffiliateID: c.Param("id"),
		Approve:     *req.Approve,
		Note:        req.Note,
	})
	if err != nil {
		handleGRPCError(c, err)
		return
	}

	message := "Application rejected"
	if *req.Approve {
		message = "Application approved"
	}
	c.JSON(http.StatusOK, successResponse(message, resp.Affiliate))
}

func (h *LedgerHTTPHandler) AssignParent(c *gin.Context) {
	var req AssignParentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := h.ledgerClient.AssignParent(ctx, &proto.AssignParentRequest{
		AffiliateID:       c.Param("id"),
		ParentAffiliateID: req.ParentAffiliateID,
	})
	if err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Parent assigned", resp.Affiliate))
}

func (h *LedgerHTTPHandler) RaiseTier(c *gin.Context) {
	var req RaiseTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := h.ledgerClient.RaiseTier(ctx, &proto.RaiseTierRequest{
		AffiliateID: c.Param("id"),
		Rate:        req.Rate,
	})
	if err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Commission tier updated", resp.Affiliate))
}

func (h *LedgerHTTPHandler) AuditBalance(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := h.ledgerClient.AuditBalance(ctx, &proto.AuditBalanceRequest{AffiliateID: c.Param("id")})
	if err != nil {
		handleGRPCError(c, err)
		return
	}

	message := "Balance is consistent"
	if !resp.Consistent {
		message = "Balance drift detected"
	}
	c.JSON(http.StatusOK, successResponse(message, resp))
}

func (h *LedgerHTTPHandler) Leaderboard(c *gin.Context) {
	var query LeaderboardQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := h.ledgerClient.Leaderboard(ctx, &proto.LeaderboardRequest{Limit: query.Limit})
	if err != nil {
		handleGRPCError(c, err)
		return
	}

	board := make([]gin.H, 0, len(resp.Affiliates))
	for i, a := range resp.Affiliates {
		board = append(board, gin.H{
			"rank":              i + 1,
			"referral_code":     a.ReferralCode,
			"total_sales_count": a.TotalSalesCount,
			"total_sales_value": a.TotalSalesValue,
		})
	}
	c.JSON(http.StatusOK, successResponse("Leaderboard retrieved successfully", board))
}
