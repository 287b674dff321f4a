package ledgerpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "ledger.LedgerService"

type LedgerServiceServer interface {
	SubmitOrder(context.Context, *SubmitOrderRequest) (*SubmitOrderResponse, error)
	GetAffiliate(context.Context, *GetAffiliateRequest) (*AffiliateResponse, error)
	ListCommissionRecords(context.Context, *ListCommissionRecordsRequest) (*ListCommissionRecordsResponse, error)
	ApplyAffiliate(context.Context, *ApplyAffiliateRequest) (*AffiliateResponse, error)
	ReviewApplication(context.Context, *ReviewApplicationRequest) (*AffiliateResponse, error)
	AssignParent(context.Context, *AssignParentRequest) (*AffiliateResponse, error)
	RaiseTier(context.Context, *RaiseTierRequest) (*AffiliateResponse, error)
	AuditBalance(context.Context, *AuditBalanceRequest) (*AuditBalanceResponse, error)
	Leaderboard(context.Context, *LeaderboardRequest) (*LeaderboardResponse, error)
}

// UnimplementedLedgerServiceServer can be embedded to satisfy
// LedgerServiceServer while only some methods are implemented.
type UnimplementedLedgerServiceServer struct{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedLedgerServiceServer) SubmitOrder(context.Context, *SubmitOrderRequest) (*SubmitOrderResponse, error) {
	return nil, unimplemented("SubmitOrder")
}
func (UnimplementedLedgerServiceServer) GetAffiliate(context.Context, *GetAffiliateRequest) (*AffiliateResponse, error) {
	return nil, unimplemented("GetAffiliate")
}
func (UnimplementedLedgerServiceServer) ListCommissionRecords(context.Context, *ListCommissionRecordsRequest) (*ListCommissionRecordsResponse, error) {
	return nil, unimplemented("ListCommissionRecords")
}
func (UnimplementedLedgerServiceServer) ApplyAffiliate(context.Context, *ApplyAffiliateRequest) (*AffiliateResponse, error) {
	return nil, unimplemented("ApplyAffiliate")
}
func (UnimplementedLedgerServiceServer) ReviewApplication(context.Context, *ReviewApplicationRequest) (*AffiliateResponse, error) {
	return nil, unimplemented("ReviewApplication")
}
func (UnimplementedLedgerServiceServer) AssignParent(context.Context, *AssignParentRequest) (*AffiliateResponse, error) {
	return nil, unimplemented("AssignParent")
}
func (UnimplementedLedgerServiceServer) RaiseTier(context.Context, *RaiseTierRequest) (*AffiliateResponse, error) {
	return nil, unimplemented("RaiseTier")
}
func (UnimplementedLedgerServiceServer) AuditBalance(context.Context, *AuditBalanceRequest) (*AuditBalanceResponse, error) {
	return nil, unimplemented("AuditBalance")
}
func (UnimplementedLedgerServiceServer) Leaderboard(context.Context, *LeaderboardRequest) (*LeaderboardResponse, error) {
	return nil, unimplemented("Leaderboard")
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unaryHandler adapts a typed server method to grpc.MethodHandler.
func unaryHandler[Req, Resp any](method string, call func(LedgerServiceServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LedgerServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(LedgerServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var LedgerService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitOrder", Handler: unaryHandler("SubmitOrder", LedgerServiceServer.SubmitOrder)},
		{MethodName: "GetAffiliate", Handler: unaryHandler("GetAffiliate", LedgerServiceServer.GetAffiliate)},
		{MethodName: "ListCommissionRecords", Handler: unaryHandler("ListCommissionRecords", LedgerServiceServer.ListCommissionRecords)},
		{MethodName: "ApplyAffiliate", Handler: unaryHandler("ApplyAffiliate", LedgerServiceServer.ApplyAffiliate)},
		{MethodName: "ReviewApplication", Handler: unaryHandler("ReviewApplication", LedgerServiceServer.ReviewApplication)},
		{MethodName: "AssignParent", Handler: unaryHandler("AssignParent", LedgerServiceServer.AssignParent)},
		{MethodName: "RaiseTier", Handler: unaryHandler("RaiseTier", LedgerServiceServer.RaiseTier)},
		{MethodName: "AuditBalance", Handler: unaryHandler("AuditBalance", LedgerServiceServer.AuditBalance)},
		{MethodName: "Leaderboard", Handler: unaryHandler("Leaderboard", LedgerServiceServer.Leaderboard)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ledger.proto",
}

func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&LedgerService_ServiceDesc, srv)
}

type LedgerServiceClient interface {
	SubmitOrder(ctx context.Context, in *SubmitOrderRequest, opts ...grpc.CallOption) (*SubmitOrderResponse, error)
	GetAffiliate(ctx context.Context, in *GetAffiliateRequest, opts ...grpc.CallOption) (*AffiliateResponse, error)
	ListCommissionRecords(ctx context.Context, in *ListCommissionRecordsRequest, opts ...grpc.CallOption) (*ListCommissionRecordsResponse, error)
	ApplyAffiliate(ctx context.Context, in *ApplyAffiliateRequest, opts ...grpc.CallOption) (*AffiliateResponse, error)
	ReviewApplication(ctx context.Context, in *ReviewApplicationRequest, opts ...grpc.CallOption) (*AffiliateResponse, error)
	AssignParent(ctx context.Context, in *AssignParentRequest, opts ...grpc.CallOption) (*AffiliateResponse, error)
	RaiseTier(ctx context.Context, in *RaiseTierRequest, opts ...grpc.CallOption) (*AffiliateResponse, error)
	AuditBalance(ctx context.Context, in *AuditBalanceRequest, opts ...grpc.CallOption) (*AuditBalanceResponse, error)
	Leaderboard(ctx context.Context, in *LeaderboardRequest, opts ...grpc.CallOption) (*LeaderboardResponse, error)
}

type ledgerServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewLedgerServiceClient(cc grpc.ClientConnInterface) LedgerServiceClient {
	return &ledgerServiceClient{cc: cc}
}

// invoke makes a unary call with the JSON content-subtype.
func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerServiceClient) SubmitOrder(ctx context.Context, in *SubmitOrderRequest, opts ...grpc.CallOption) (*SubmitOrderResponse, error) {
	return invoke[SubmitOrderResponse](ctx, c.cc, "SubmitOrder", in, opts)
}
func (c *ledgerServiceClient) GetAffiliate(ctx context.Context, in *GetAffiliateRequest, opts ...grpc.CallOption) (*AffiliateResponse, error) {
	return invoke[AffiliateResponse](ctx, c.cc, "GetAffiliate", in, opts)
}
func (c *ledgerServiceClient) ListCommissionRecords(ctx context.Context, in *ListCommissionRecordsRequest, opts ...grpc.CallOption) (*ListCommissionRecordsResponse, error) {
	return invoke[ListCommissionRecordsResponse](ctx, c.cc, "ListCommissionRecords", in, opts)
}
func (c *ledgerServiceClient) ApplyAffiliate(ctx context.Context, in *ApplyAffiliateRequest, opts ...grpc.CallOption) (*AffiliateResponse, error) {
	return invoke[AffiliateResponse](ctx, c.cc, "ApplyAffiliate", in, opts)
}
func (c *ledgerServiceClient) ReviewApplication(ctx context.Context, in *ReviewApplicationRequest, opts ...grpc.CallOption) (*AffiliateResponse, error) {
	return invoke[AffiliateResponse](ctx, c.cc, "ReviewApplication", in, opts)
}
func (c *ledgerServiceClient) AssignParent(ctx context.Context, in *AssignParentRequest, opts ...grpc.CallOption) (*AffiliateResponse, error) {
	return invoke[AffiliateResponse](ctx, c.cc, "AssignParent", in, opts)
}
func (c *ledgerServiceClient) RaiseTier(ctx context.Context, in *RaiseTierRequest, opts ...grpc.CallOption) (*AffiliateResponse, error) {
	return invoke[AffiliateResponse](ctx, c.cc, "RaiseTier", in, opts)
}
func (c *ledgerServiceClient) AuditBalance(ctx context.Context, in *AuditBalanceRequest, opts ...grpc.CallOption) (*AuditBalanceResponse, error) {
	return invoke[AuditBalanceResponse](ctx, c.cc, "AuditBalance", in, opts)
}
func (c *ledgerServiceClient) Leaderboard(ctx context.Context, in *LeaderboardRequest, opts ...grpc.CallOption) (*LeaderboardResponse, error) {
	return invoke[LeaderboardResponse](ctx, c.cc, "Leaderboard", in, opts)
}
