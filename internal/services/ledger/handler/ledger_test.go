package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"affiliate-ledger/internal/services/ledger/rules"
	"affiliate-ledger/internal/services/ledger/service"
	"affiliate-ledger/internal/testutil"
	proto "affiliate-ledger/proto/ledgerpb"
)

func newClient(t *testing.T) proto.LedgerServiceClient {
	t.Helper()
	db := testutil.NewTestDB(t)
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	ledger := service.New(db, rules.DefaultConfig(),
		service.WithLogger(discard),
		service.WithRetry(5, time.Millisecond))

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(grpc.UnaryInterceptor(UnaryLogger(discard)))
	proto.RegisterLedgerServiceServer(s, NewLedgerHandler(ledger))
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return proto.NewLedgerServiceClient(conn)
}

func approvedAffiliate(t *testing.T, ctx context.Context, client proto.LedgerServiceClient, userID string) *proto.Affiliate {
	t.Helper()
	applied, err := client.ApplyAffiliate(ctx, &proto.ApplyAffiliateRequest{UserID: userID})
	require.NoError(t, err)
	assert.Equal(t, "pending", applied.Affiliate.Status)

	approved, err := client.ReviewApplication(ctx, &proto.ReviewApplicationRequest{
		AffiliateID: applied.Affiliate.ID,
		Approve:     true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, approved.Affiliate.ReferralCode)
	return approved.Affiliate
}

func TestLedgerHandlerOrderFlow(t *testing.T) {
	client := newClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	aff := approvedAffiliate(t, ctx, client, "user-1")
	assert.Equal(t, "approved", aff.Status)
	assert.Equal(t, "10", aff.CommissionRate)

	req := &proto.SubmitOrderRequest{
		OrderID:      "order-1",
		ReferralCode: aff.ReferralCode,
		Currency:     "usd",
		Items: []*proto.LineItem{
			{ItemID: "tv", UnitPrice: "500", Quantity: 1},
			{ItemID: "cable", UnitPrice: "100", Quantity: 1, Clearance: true},
		},
	}
	res, err := client.SubmitOrder(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, string(service.OutcomeCredited), res.Outcome)
	assert.Equal(t, "USD", res.Currency)
	assert.Equal(t, "50.00", res.StandardCommission)
	assert.Equal(t, "1.00", res.ClearanceCommission)
	assert.Equal(t, "51.00", res.TotalCommission)
	assert.Equal(t, "51.00", res.Balance)
	require.Len(t, res.Items, 2)

	again, err := client.SubmitOrder(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, string(service.OutcomeDuplicate), again.Outcome)
	assert.Equal(t, "51.00", again.Balance)

	got, err := client.GetAffiliate(ctx, &proto.GetAffiliateRequest{ReferralCode: aff.ReferralCode})
	require.NoError(t, err)
	assert.Equal(t, aff.ID, got.Affiliate.ID)
	assert.Equal(t, int64(2), got.Affiliate.TotalSalesCount)

	recs, err := client.ListCommissionRecords(ctx, &proto.ListCommissionRecordsRequest{AffiliateID: aff.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), recs.Total)
	assert.Len(t, recs.Records, 2)

	audit, err := client.AuditBalance(ctx, &proto.AuditBalanceRequest{AffiliateID: aff.ID})
	require.NoError(t, err)
	assert.True(t, audit.Consistent)
	assert.Equal(t, "51.00", audit.Expected)

	top, err := client.Leaderboard(ctx, &proto.LeaderboardRequest{Limit: 5})
	require.NoError(t, err)
	require.Len(t, top.Affiliates, 1)
	assert.Equal(t, aff.ID, top.Affiliates[0].ID)
}

func TestLedgerHandlerSkipsUnknownCode(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()

	res, err := client.SubmitOrder(ctx, &proto.SubmitOrderRequest{
		OrderID:      "order-1",
		ReferralCode: "VIP-NOBODY",
		Currency:     "USD",
		Items:        []*proto.LineItem{{ItemID: "a", UnitPrice: "10", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, string(service.OutcomeSkippedNotFound), res.Outcome)
	assert.Empty(t, res.TotalCommission)
}

func TestLedgerHandlerErrorCodes(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()
	aff := approvedAffiliate(t, ctx, client, "user-1")

	_, err := client.GetAffiliate(ctx, &proto.GetAffiliateRequest{ID: "missing"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.GetAffiliate(ctx, &proto.GetAffiliateRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.SubmitOrder(ctx, &proto.SubmitOrderRequest{
		OrderID:      "order-1",
		ReferralCode: aff.ReferralCode,
		Currency:     "USD",
		Items:        []*proto.LineItem{{ItemID: "a", UnitPrice: "ten", Quantity: 1}},
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.SubmitOrder(ctx, &proto.SubmitOrderRequest{
		OrderID:      "order-1",
		ReferralCode: aff.ReferralCode,
		Currency:     "USD",
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err), "orders need at least one item")

	_, err = client.ReviewApplication(ctx, &proto.ReviewApplicationRequest{AffiliateID: aff.ID, Approve: true})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err), "already approved")

	_, err = client.RaiseTier(ctx, &proto.RaiseTierRequest{AffiliateID: aff.ID, Rate: "abc"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	raised, err := client.RaiseTier(ctx, &proto.RaiseTierRequest{AffiliateID: aff.ID, Rate: "25"})
	require.NoError(t, err)
	assert.Equal(t, "25", raised.Affiliate.CommissionRate)

	_, err = client.AssignParent(ctx, &proto.AssignParentRequest{AffiliateID: aff.ID, ParentAffiliateID: aff.ID})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestToStatus(t *testing.T) {
	cases := []struct {
		err  error
		code codes.Code
	}{
		{fmt.Errorf("lookup: %w", service.ErrAffiliateNotFound), codes.NotFound},
		{fmt.Errorf("%w: bad price", service.ErrInvalidOrder), codes.InvalidArgument},
		{service.ErrAffiliateNotEligible, codes.FailedPrecondition},
		{service.ErrInvalidTransition, codes.FailedPrecondition},
		{service.ErrOrderConflict, codes.AlreadyExists},
		{service.ErrPersistenceConflict, codes.Aborted},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{fmt.Errorf("boom"), codes.Internal},
		{status.Error(codes.Unavailable, "down"), codes.Unavailable},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, status.Code(toStatus(tc.err)), tc.err.Error())
	}
}
