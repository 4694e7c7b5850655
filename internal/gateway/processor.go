package gateway

import (
	"context"

	"github.com/fjod/storefront/internal/domain"
)

type IntentStatus string

const (
	IntentSucceeded      IntentStatus = "succeeded"
	IntentRequiresAction IntentStatus = "requires_action"
	IntentProcessing     IntentStatus = "processing"
	IntentFailed         IntentStatus = "failed"
	// IntentOpen covers every state before confirmation.
	IntentOpen IntentStatus = "open"
)

type IntentRequest struct {
	RecordID       string
	IdempotencyKey string
	Amount         int64
	Currency       string
	Description    string
	Contact        domain.Contact
	Shipping       *domain.Address
}

type ConfirmRequest struct {
	IntentID       string
	IdempotencyKey string
	PaymentMethod  string
	ReturnURL      string
}

type Intent struct {
	ID            string
	RecordID      string
	ClientSecret  string
	Status        IntentStatus
	FailureReason string
}

type SessionStatus string

const (
	SessionOpen     SessionStatus = "open"
	SessionComplete SessionStatus = "complete"
	SessionExpired  SessionStatus = "expired"
)

type SessionRequest struct {
	RecordID       string
	IdempotencyKey string
	Email          string
	Currency       string
	SuccessURL     string
	CancelURL      string
	// Items for purchases. Donations use Amount and Description instead.
	Items       []domain.LineItem
	Amount      int64
	Description string
	Recurring   bool
	Interval    domain.Interval
}

type Session struct {
	ID              string
	URL             string
	RecordID        string
	Status          SessionStatus
	Paid            bool
	Subscription    bool
	SubscriptionID  string
	PaymentIntentID string
}

// Processor is the narrow view of the external payment processor.
type Processor interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	ConfirmIntent(ctx context.Context, req ConfirmRequest) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	CancelSubscription(ctx context.Context, id string) error
}
