package billing

import (
	"context"
	"errors"

	"github.com/fjod/storefront/internal/gateway"
)

var errProcessorDown = errors.New("processor unavailable")

type mockProcessor struct {
	sessions  map[string]*gateway.Session
	intents   map[string]*gateway.Intent
	lookupErr error
	cancelErr error
	cancelled []string
}

func newMockProcessor() *mockProcessor {
	return &mockProcessor{
		sessions: make(map[string]*gateway.Session),
		intents:  make(map[string]*gateway.Intent),
	}
}

func (m *mockProcessor) LookupIntent(_ context.Context, id string) (*gateway.Intent, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	in, ok := m.intents[id]
	if !ok {
		return nil, errors.New("no such payment_intent")
	}
	return in, nil
}

func (m *mockProcessor) LookupSession(_ context.Context, id string) (*gateway.Session, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	s, ok := m.sessions[id]
	if !ok {
		return nil, errors.New("no such checkout session")
	}
	return s, nil
}

func (m *mockProcessor) CancelSubscription(_ context.Context, id string) error {
	if m.cancelErr != nil {
		return m.cancelErr
	}
	m.cancelled = append(m.cancelled, id)
	return nil
}
