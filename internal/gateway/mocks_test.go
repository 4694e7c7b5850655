package gateway

import (
	"context"
	"errors"
	"sync"
)

var errNetwork = errors.New("connection reset")

type fakeProcessor struct {
	mu sync.Mutex

	createIntentErr error
	confirmErr      error
	confirmStatus   IntentStatus
	confirmReason   string
	sessionErr      error
	sessionURL      string
	cancelErr       error

	intentReqs  []IntentRequest
	confirmReqs []ConfirmRequest
	sessionReqs []SessionRequest
	cancelled   []string
}

func (f *fakeProcessor) CreateIntent(_ context.Context, req IntentRequest) (*Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intentReqs = append(f.intentReqs, req)
	if f.createIntentErr != nil {
		return nil, f.createIntentErr
	}
	return &Intent{ID: "pi_" + req.RecordID, RecordID: req.RecordID, ClientSecret: "secret_" + req.RecordID, Status: IntentOpen}, nil
}

func (f *fakeProcessor) ConfirmIntent(_ context.Context, req ConfirmRequest) (*Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmReqs = append(f.confirmReqs, req)
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	status := f.confirmStatus
	if status == "" {
		status = IntentSucceeded
	}
	return &Intent{ID: req.IntentID, Status: status, FailureReason: f.confirmReason}, nil
}

func (f *fakeProcessor) GetIntent(_ context.Context, id string) (*Intent, error) {
	return &Intent{ID: id, Status: IntentSucceeded}, nil
}

func (f *fakeProcessor) CreateSession(_ context.Context, req SessionRequest) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessionReqs = append(f.sessionReqs, req)
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	url := f.sessionURL
	if url == "" {
		url = "https://pay.example.com/cs_" + req.RecordID
	}
	return &Session{ID: "cs_" + req.RecordID, URL: url, RecordID: req.RecordID, Status: SessionOpen}, nil
}

func (f *fakeProcessor) GetSession(_ context.Context, id string) (*Session, error) {
	return &Session{ID: id, Status: SessionComplete, Paid: true}, nil
}

func (f *fakeProcessor) CancelSubscription(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
	return f.cancelErr
}
