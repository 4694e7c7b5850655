package billing

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/gateway"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Processor is what the billing server reads from the payment processor.
type Processor interface {
	LookupIntent(ctx context.Context, id string) (*gateway.Intent, error)
	LookupSession(ctx context.Context, id string) (*gateway.Session, error)
	CancelSubscription(ctx context.Context, id string) error
}

// Server answers confirmation and cancellation calls by asking the processor.
// It never writes the ledger; callers apply the result.
type Server struct {
	processor Processor
	log       *slog.Logger
}

func NewServer(p Processor, log *slog.Logger) *Server {
	return &Server{processor: p, log: log}
}

// NewGRPCServer builds a grpc.Server with tracing and request logging and
// registers srv on it.
func NewGRPCServer(srv BillingServer, log *slog.Logger) *grpc.Server {
	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(loggingInterceptor(log)),
	)
	RegisterBillingServer(s, srv)
	return s
}

func (s *Server) Confirm(ctx context.Context, req *ConfirmRequest) (*ConfirmResponse, error) {
	if req.RecordID == "" {
		return nil, status.Error(codes.InvalidArgument, "record_id is required")
	}

	switch {
	case req.SessionID != "":
		session, err := s.processor.LookupSession(ctx, req.SessionID)
		if err != nil {
			return nil, lookupError(err, "session")
		}
		if session.RecordID != "" && session.RecordID != req.RecordID {
			return nil, status.Errorf(codes.PermissionDenied, "session %s does not belong to record %s", req.SessionID, req.RecordID)
		}
		return sessionResult(req.RecordID, session), nil

	case req.PaymentIntentID != "":
		intent, err := s.processor.LookupIntent(ctx, req.PaymentIntentID)
		if err != nil {
			return nil, lookupError(err, "payment intent")
		}
		if intent.RecordID != "" && intent.RecordID != req.RecordID {
			return nil, status.Errorf(codes.PermissionDenied, "payment intent %s does not belong to record %s", req.PaymentIntentID, req.RecordID)
		}
		return intentResult(req.RecordID, intent), nil

	default:
		return nil, status.Error(codes.InvalidArgument, "session_id or payment_intent_id is required")
	}
}

func (s *Server) CancelSubscription(ctx context.Context, req *CancelSubscriptionRequest) (*CancelSubscriptionResponse, error) {
	if req.RecordID == "" || req.ProcessorRef == "" {
		return nil, status.Error(codes.InvalidArgument, "record_id and processor_ref are required")
	}

	subID := req.ProcessorRef
	if isSessionID(subID) {
		session, err := s.processor.LookupSession(ctx, subID)
		if err != nil {
			return nil, lookupError(err, "session")
		}
		if session.RecordID != "" && session.RecordID != req.RecordID {
			return nil, status.Errorf(codes.PermissionDenied, "session %s does not belong to record %s", subID, req.RecordID)
		}
		if session.SubscriptionID == "" {
			return nil, status.Errorf(codes.FailedPrecondition, "session %s has no subscription", subID)
		}
		subID = session.SubscriptionID
	}

	if err := s.processor.CancelSubscription(ctx, subID); err != nil {
		var ce *gateway.CardError
		if errors.As(err, &ce) {
			return nil, status.Error(codes.FailedPrecondition, ce.Reason)
		}
		return nil, lookupError(err, "subscription")
	}

	s.log.InfoContext(ctx, "subscription cancelled", "record_id", req.RecordID, "subscription_id", subID)
	return &CancelSubscriptionResponse{RecordID: req.RecordID, SubscriptionID: subID}, nil
}

func sessionResult(recordID string, s *gateway.Session) *ConfirmResponse {
	resp := &ConfirmResponse{RecordID: recordID, Status: domain.StatusPending, ProcessorRef: s.ID}
	switch {
	case s.Status == gateway.SessionComplete && s.Paid && s.Subscription:
		resp.Status = domain.StatusActive
		if s.SubscriptionID != "" {
			resp.ProcessorRef = s.SubscriptionID
		}
	case s.Status == gateway.SessionComplete && s.Paid:
		resp.Status = domain.StatusPaid
		if s.PaymentIntentID != "" {
			resp.ProcessorRef = s.PaymentIntentID
		}
	case s.Status == gateway.SessionExpired:
		resp.Status = domain.StatusFailed
		resp.Reason = "checkout session expired"
	}
	return resp
}

func intentResult(recordID string, in *gateway.Intent) *ConfirmResponse {
	resp := &ConfirmResponse{RecordID: recordID, Status: domain.StatusPending, ProcessorRef: in.ID}
	switch in.Status {
	case gateway.IntentSucceeded:
		resp.Status = domain.StatusPaid
	case gateway.IntentFailed:
		resp.Status = domain.StatusFailed
		resp.Reason = in.FailureReason
	}
	return resp
}

func isSessionID(ref string) bool {
	return strings.HasPrefix(ref, "cs_")
}

func lookupError(err error, what string) error {
	if errors.Is(err, gateway.ErrNotConfigured) {
		return status.Error(codes.FailedPrecondition, "payment processor is not configured")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return status.Errorf(codes.DeadlineExceeded, "%s lookup timed out", what)
	}
	return status.Errorf(codes.Unavailable, "%s lookup failed: %v", what, err)
}

func loggingInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		attrs := []any{"method", info.FullMethod, "code", status.Code(err).String(), "duration", time.Since(start)}
		if err != nil {
			log.WarnContext(ctx, "billing call failed", append(attrs, "error", err)...)
		} else {
			log.InfoContext(ctx, "billing call", attrs...)
		}
		return resp, err
	}
}
