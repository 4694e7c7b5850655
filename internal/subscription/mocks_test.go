package subscription

import (
	"context"
	"errors"

	"github.com/fjod/storefront/internal/billing"
)

var errBillingDown = errors.New("billing unavailable")

type mockCanceller struct {
	err      error
	requests []*billing.CancelSubscriptionRequest
}

func (m *mockCanceller) CancelSubscription(_ context.Context, req *billing.CancelSubscriptionRequest) (*billing.CancelSubscriptionResponse, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return &billing.CancelSubscriptionResponse{RecordID: req.RecordID, SubscriptionID: req.ProcessorRef}, nil
}
