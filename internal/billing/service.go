package billing

import (
	"context"

	"github.com/fjod/storefront/internal/domain"
	"google.golang.org/grpc"
)

const (
	serviceName              = "storefront.billing.v1.Billing"
	confirmMethod            = "/" + serviceName + "/Confirm"
	cancelSubscriptionMethod = "/" + serviceName + "/CancelSubscription"
)

// ConfirmRequest asks for the authoritative status of a record's payment.
// At most one of SessionID and PaymentIntentID is needed.
type ConfirmRequest struct {
	RecordID        string `json:"record_id"`
	SessionID       string `json:"session_id,omitempty"`
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
}

type ConfirmResponse struct {
	RecordID     string        `json:"record_id"`
	Status       domain.Status `json:"status"`
	ProcessorRef string        `json:"processor_ref,omitempty"`
	Reason       string        `json:"reason,omitempty"`
}

type CancelSubscriptionRequest struct {
	RecordID string `json:"record_id"`
	// ProcessorRef is the subscription id, or the checkout session that created it.
	ProcessorRef string `json:"processor_ref"`
}

type CancelSubscriptionResponse struct {
	RecordID       string `json:"record_id"`
	SubscriptionID string `json:"subscription_id"`
}

// BillingServer is the server API of the Billing service.
type BillingServer interface {
	Confirm(ctx context.Context, req *ConfirmRequest) (*ConfirmResponse, error)
	CancelSubscription(ctx context.Context, req *CancelSubscriptionRequest) (*CancelSubscriptionResponse, error)
}

func RegisterBillingServer(s grpc.ServiceRegistrar, srv BillingServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*BillingServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Confirm", Handler: confirmHandler},
		{MethodName: "CancelSubscription", Handler: cancelSubscriptionHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storefront/billing/v1/billing.json",
}

func confirmHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ConfirmRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BillingServer).Confirm(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: confirmMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BillingServer).Confirm(ctx, req.(*ConfirmRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func cancelSubscriptionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CancelSubscriptionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BillingServer).CancelSubscription(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: cancelSubscriptionMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BillingServer).CancelSubscription(ctx, req.(*CancelSubscriptionRequest))
	}
	return interceptor(ctx, in, info, handler)
}
