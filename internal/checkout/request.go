package checkout

import (
	"context"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/gateway"
)

// Submission selects the payment path. It is either InlineSubmission or
// HostedSubmission.
type Submission interface {
	method() domain.PaymentMethod
}

// InlineSubmission pays with a card captured on the page.
type InlineSubmission struct {
	Card gateway.CardInput
}

func (InlineSubmission) method() domain.PaymentMethod { return domain.PaymentMethodInlineCard }

// HostedSubmission sends the buyer to the processor's hosted page.
type HostedSubmission struct{}

func (HostedSubmission) method() domain.PaymentMethod { return domain.PaymentMethodHostedRedirect }

type BuyerInput struct {
	Name    string          `json:"name" validate:"required,max=200"`
	Email   string          `json:"email" validate:"required,email,max=254"`
	Phone   string          `json:"phone" validate:"omitempty,max=32"`
	Address *domain.Address `json:"address" validate:"-"`
}

type DonationSelection struct {
	Amount      int64
	Recurring   bool
	Interval    domain.Interval
	Designation string
}

// Cart is what checkout needs from a cart store.
type Cart interface {
	Snapshot() domain.CartSnapshot
	Clear(ctx context.Context) domain.CartSnapshot
}

// Request is one checkout. Exactly one of Cart and Donation is set.
type Request struct {
	BuyerID    string
	Buyer      BuyerInput
	Cart       Cart
	Donation   *DonationSelection
	Submission Submission
}

type Outcome string

const (
	OutcomeSucceeded      Outcome = "succeeded"
	OutcomeRequiresAction Outcome = "requires_action"
	OutcomeProcessing     Outcome = "processing"
	OutcomeRedirect       Outcome = "redirect"
)

type Result struct {
	RecordID     string  `json:"record_id"`
	Outcome      Outcome `json:"outcome"`
	ProcessorRef string  `json:"processor_ref,omitempty"`
	ClientSecret string  `json:"client_secret,omitempty"`
	RedirectURL  string  `json:"redirect_url,omitempty"`
}
