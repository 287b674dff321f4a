package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"affiliate-ledger/internal/gateway/middleware"
	"affiliate-ledger/internal/utils"
	proto "affiliate-ledger/proto/ledgerpb"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeLedger implements the client methods the tests exercise; the
// embedded interface panics on anything else.
type fakeLedger struct {
	proto.LedgerServiceClient

	submitted  *proto.SubmitOrderRequest
	submitResp *proto.SubmitOrderResponse
	submitErr  error

	affiliates map[string]*proto.Affiliate
	applied    *proto.ApplyAffiliateRequest
	listed     *proto.ListCommissionRecordsRequest
}

func (f *fakeLedger) SubmitOrder(_ context.Context, in *proto.SubmitOrderRequest, _ ...grpc.CallOption) (*proto.SubmitOrderResponse, error) {
	f.submitted = in
	return f.submitResp, f.submitErr
}

func (f *fakeLedger) GetAffiliate(_ context.Context, in *proto.GetAffiliateRequest, _ ...grpc.CallOption) (*proto.AffiliateResponse, error) {
	for _, a := range f.affiliates {
		if a.ID == in.ID || (in.ReferralCode != "" && a.ReferralCode == in.ReferralCode) {
			return &proto.AffiliateResponse{Affiliate: a}, nil
		}
	}
	return nil, status.Errorf(codes.NotFound, "affiliate not found")
}

func (f *fakeLedger) ApplyAffiliate(_ context.Context, in *proto.ApplyAffiliateRequest, _ ...grpc.CallOption) (*proto.AffiliateResponse, error) {
	f.applied = in
	return &proto.AffiliateResponse{Affiliate: &proto.Affiliate{ID: "new", UserID: in.UserID, Status: "pending"}}, nil
}

func (f *fakeLedger) ListCommissionRecords(_ context.Context, in *proto.ListCommissionRecordsRequest, _ ...grpc.CallOption) (*proto.ListCommissionRecordsResponse, error) {
	f.listed = in
	return &proto.ListCommissionRecordsResponse{
		Records:  []*proto.CommissionRecord{{ID: "r1", AffiliateID: in.AffiliateID}},
		Total:    41,
		Page:     in.Page,
		PageSize: in.PageSize,
	}, nil
}

func newRouter(f *fakeLedger, claims *utils.Claims) *gin.Engine {
	h := NewLedgerHTTPHandler(f)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if claims != nil {
			middleware.SetClaims(c, claims)
		}
		c.Next()
	})
	r.POST("/orders", h.SubmitOrder)
	r.POST("/affiliates", h.Apply)
	r.GET("/affiliates", h.GetAffiliateByCode)
	r.GET("/affiliates/:id", h.GetAffiliate)
	r.GET("/affiliates/:id/records", h.ListRecords)
	return r
}

func do(r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, APIResponse) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp APIResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

const orderBody = `{
	"order_id": "o-1",
	"referral_code": "VIP-AAAAAA",
	"currency": "USD",
	"items": [{"item_id": "tv", "unit_price": "500.00", "quantity": 1, "clearance": false}]
}`

func TestSubmitOrder(t *testing.T) {
	f := &fakeLedger{submitResp: &proto.SubmitOrderResponse{Outcome: "credited", TotalCommission: "50.00"}}
	r := newRouter(f, &utils.Claims{UserID: "checkout", Role: utils.RoleOrderSource})

	w, resp := do(r, http.MethodPost, "/orders", orderBody)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, resp.Success)
	require.NotNil(t, f.submitted)
	assert.Equal(t, "o-1", f.submitted.OrderID)
	require.Len(t, f.submitted.Items, 1)
	assert.Equal(t, "500.00", f.submitted.Items[0].UnitPrice)

	f.submitResp = &proto.SubmitOrderResponse{Outcome: "duplicate"}
	w, resp = do(r, http.MethodPost, "/orders", orderBody)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Order already credited", resp.Message)

	f.submitResp = &proto.SubmitOrderResponse{Outcome: "skipped_not_found"}
	w, resp = do(r, http.MethodPost, "/orders", orderBody)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, resp.Message, "skipped_not_found")
}

func TestSubmitOrderRejectsBadBodies(t *testing.T) {
	f := &fakeLedger{}
	r := newRouter(f, nil)

	w, resp := do(r, http.MethodPost, "/orders", `{"order_id": "o-1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)

	w, _ = do(r, http.MethodPost, "/orders", strings.Replace(orderBody, `"500.00"`, `"five"`, 1))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(r, http.MethodPost, "/orders", strings.Replace(orderBody, `"quantity": 1`, `"quantity": 0`, 1))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, f.submitted, "invalid bodies never reach the ledger")
}

func TestSubmitOrderMapsGRPCErrors(t *testing.T) {
	cases := map[codes.Code]int{
		codes.InvalidArgument:    http.StatusBadRequest,
		codes.AlreadyExists:      http.StatusConflict,
		codes.Aborted:            http.StatusConflict,
		codes.FailedPrecondition: http.StatusBadRequest,
		codes.Unavailable:        http.StatusServiceUnavailable,
		codes.Internal:           http.StatusInternalServerError,
	}
	for code, want := range cases {
		f := &fakeLedger{submitErr: status.Error(code, "nope")}
		w, resp := do(newRouter(f, nil), http.MethodPost, "/orders", orderBody)
		assert.Equal(t, want, w.Code, code.String())
		assert.False(t, resp.Success)
	}
}

func TestGetAffiliateOwnership(t *testing.T) {
	f := &fakeLedger{affiliates: map[string]*proto.Affiliate{
		"a1": {ID: "a1", UserID: "u1", ReferralCode: "VIP-AAAAAA", Balance: "12.00"},
	}}

	w, _ := do(newRouter(f, &utils.Claims{UserID: "u1", Role: utils.RoleAffiliate}), http.MethodGet, "/affiliates/a1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(newRouter(f, &utils.Claims{UserID: "u2", Role: utils.RoleAffiliate}), http.MethodGet, "/affiliates/a1", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = do(newRouter(f, &utils.Claims{UserID: "root", Role: utils.RoleAdmin}), http.MethodGet, "/affiliates/a1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(newRouter(f, &utils.Claims{UserID: "root", Role: utils.RoleAdmin}), http.MethodGet, "/affiliates/zz", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(newRouter(f, nil), http.MethodGet, "/affiliates/a1", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetAffiliateByCodeHidesPrivateFields(t *testing.T) {
	f := &fakeLedger{affiliates: map[string]*proto.Affiliate{
		"a1": {ID: "a1", UserID: "u1", ReferralCode: "VIP-AAAAAA", Balance: "12.00", Status: "approved"},
	}}

	w, resp := do(newRouter(f, &utils.Claims{UserID: "u2", Role: utils.RoleAffiliate}), http.MethodGet, "/affiliates?code=VIP-AAAAAA", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "approved", data["status"])
	assert.Equal(t, "", data["user_id"])
	assert.Equal(t, "", data["balance"])

	w, _ = do(newRouter(f, nil), http.MethodGet, "/affiliates", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApplyUsesCallerIdentity(t *testing.T) {
	f := &fakeLedger{}
	r := newRouter(f, &utils.Claims{UserID: "u9", Role: utils.RoleAffiliate})

	w, resp := do(r, http.MethodPost, "/affiliates", `{"parent_referral_code": "VIP-PARENT"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, resp.Success)
	require.NotNil(t, f.applied)
	assert.Equal(t, "u9", f.applied.UserID)
	assert.Equal(t, "VIP-PARENT", f.applied.ParentReferralCode)

	w, _ = do(r, http.MethodPost, "/affiliates", "")
	assert.Equal(t, http.StatusCreated, w.Code, "a body is optional")
}

func TestListRecordsPaginationMeta(t *testing.T) {
	f := &fakeLedger{affiliates: map[string]*proto.Affiliate{"a1": {ID: "a1", UserID: "u1"}}}
	r := newRouter(f, &utils.Claims{UserID: "u1", Role: utils.RoleAffiliate})

	w, resp := do(r, http.MethodGet, "/affiliates/a1/records?page=3&page_size=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, f.listed)
	assert.Equal(t, int32(3), f.listed.Page)
	assert.Equal(t, int32(10), f.listed.PageSize)

	meta := resp.Meta.(map[string]interface{})
	assert.Equal(t, float64(41), meta["total"])
	assert.Equal(t, float64(3), meta["page"])
}
