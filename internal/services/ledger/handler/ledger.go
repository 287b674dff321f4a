// Package handler exposes the ledger service over gRPC.
package handler

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"affiliate-ledger/internal/services/ledger/service"
	proto "affiliate-ledger/proto/ledgerpb"
)

type LedgerHandler struct {
	proto.UnimplementedLedgerServiceServer
	ledger *service.Ledger
}

func NewLedgerHandler(ledger *service.Ledger) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// toStatus maps ledger errors onto gRPC codes. Errors that already carry a
// status pass through unchanged.
func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, service.ErrAffiliateNotFound):
		return status.Errorf(codes.NotFound, "%v", err)
	case errors.Is(err, service.ErrInvalidOrder):
		return status.Errorf(codes.InvalidArgument, "%v", err)
	case errors.Is(err, service.ErrAffiliateNotEligible), errors.Is(err, service.ErrInvalidTransition):
		return status.Errorf(codes.FailedPrecondition, "%v", err)
	case errors.Is(err, service.ErrOrderConflict):
		return status.Errorf(codes.AlreadyExists, "%v", err)
	case errors.Is(err, service.ErrPersistenceConflict):
		return status.Errorf(codes.Aborted, "%v", err)
	case errors.Is(err, context.DeadlineExceeded):
		return status.Errorf(codes.DeadlineExceeded, "%v", err)
	case errors.Is(err, context.Canceled):
		return status.Errorf(codes.Canceled, "%v", err)
	}
	return status.Errorf(codes.Internal, "Ledger error: %v", err)
}

func required(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return status.Errorf(codes.InvalidArgument, "%s is required", field)
	}
	return nil
}

func (h *LedgerHandler) SubmitOrder(ctx context.Context, req *proto.SubmitOrderRequest) (*proto.SubmitOrderResponse, error) {
	order, err := orderFromProto(req)
	if err != nil {
		return nil, err
	}
	res, err := h.ledger.SubmitOrderForCommission(ctx, order)
	if err != nil {
		return nil, toStatus(err)
	}
	return resultToProto(res), nil
}

func (h *LedgerHandler) GetAffiliate(ctx context.Context, req *proto.GetAffiliateRequest) (*proto.AffiliateResponse, error) {
	var (
		s   *service.AffiliateSummary
		err error
	)
	switch {
	case req.ID != "":
		s, err = h.ledger.GetAffiliate(ctx, req.ID)
	case req.ReferralCode != "":
		s, err = h.ledger.GetAffiliateByCode(ctx, req.ReferralCode)
	default:
		return nil, status.Errorf(codes.InvalidArgument, "id or referral_code is required")
	}
	if err != nil {
		return nil, toStatus(err)
	}
	return &proto.AffiliateResponse{Affiliate: summaryToProto(s)}, nil
}

func (h *LedgerHandler) ListCommissionRecords(ctx context.Context, req *proto.ListCommissionRecordsRequest) (*proto.ListCommissionRecordsResponse, error) {
	if err := required("affiliate_id", req.AffiliateID); err != nil {
		return nil, err
	}
	page, err := h.ledger.ListRecords(ctx, req.AffiliateID, int(req.Page), int(req.PageSize))
	if err != nil {
		return nil, toStatus(err)
	}

	out := &proto.ListCommissionRecordsResponse{
		Records:  make([]*proto.CommissionRecord, 0, len(page.Records)),
		Total:    page.Total,
		Page:     int32(page.Page),
		PageSize: int32(page.PageSize),
	}
	for _, r := range page.Records {
		out.Records = append(out.Records, recordToProto(r))
	}
	return out, nil
}

func (h *LedgerHandler) ApplyAffiliate(ctx context.Context, req *proto.ApplyAffiliateRequest) (*proto.AffiliateResponse, error) {
	if err := required("user_id", req.UserID); err != nil {
		return nil, err
	}
	s, err := h.ledger.Apply(ctx, req.UserID, req.ParentReferralCode)
	if err != nil {
		return nil, toStatus(err)
	}
	return &proto.AffiliateResponse{Affiliate: summaryToProto(s)}, nil
}

func (h *LedgerHandler) ReviewApplication(ctx context.Context, req *proto.ReviewApplicationRequest) (*proto.AffiliateResponse, error) {
	if err := required("affiliate_id", req.AffiliateID); err != nil {
		return nil, err
	}
	s, err := h.ledger.Review(ctx, req.AffiliateID, req.Approve, req.Note)
	if err != nil {
		return nil, toStatus(err)
	}
	return &proto.AffiliateResponse{Affiliate: summaryToProto(s)}, nil
}

func (h *LedgerHandler) AssignParent(ctx context.Context, req *proto.AssignParentRequest) (*proto.AffiliateResponse, error) {
	if err := required("affiliate_id", req.AffiliateID); err != nil {
		return nil, err
	}
	if err := required("parent_affiliate_id", req.ParentAffiliateID); err != nil {
		return nil, err
	}
	s, err := h.ledger.AssignParent(ctx, req.AffiliateID, req.ParentAffiliateID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &proto.AffiliateResponse{Affiliate: summaryToProto(s)}, nil
}

func (h *LedgerHandler) RaiseTier(ctx context.Context, req *proto.RaiseTierRequest) (*proto.AffiliateResponse, error) {
	if err := required("affiliate_id", req.AffiliateID); err != nil {
		return nil, err
	}
	rate, err := parseDecimal("rate", req.Rate)
	if err != nil {
		return nil, err
	}
	s, err := h.ledger.RaiseTier(ctx, req.AffiliateID, rate)
	if err != nil {
		return nil, toStatus(err)
	}
	return &proto.AffiliateResponse{Affiliate: summaryToProto(s)}, nil
}

func (h *LedgerHandler) AuditBalance(ctx context.Context, req *proto.AuditBalanceRequest) (*proto.AuditBalanceResponse, error) {
	if err := required("affiliate_id", req.AffiliateID); err != nil {
		return nil, err
	}
	audit, err := h.ledger.AuditBalance(ctx, req.AffiliateID)
	if err != nil {
		return nil, toStatus(err)
	}
	return auditToProto(audit), nil
}

func (h *LedgerHandler) Leaderboard(ctx context.Context, req *proto.LeaderboardRequest) (*proto.LeaderboardResponse, error) {
	top, err := h.ledger.Leaderboard(ctx, int(req.Limit))
	if err != nil {
		return nil, toStatus(err)
	}
	out := &proto.LeaderboardResponse{Affiliates: make([]*proto.Affiliate, 0, len(top))}
	for _, s := range top {
		out.Affiliates = append(out.Affiliates, summaryToProto(s))
	}
	return out, nil
}
