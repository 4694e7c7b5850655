package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fjod/storefront/internal/domain"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

type StripeConfig struct {
	SecretKey string
	// APIURL points the client at another endpoint, e.g. a local mock.
	APIURL     string
	HTTPClient *http.Client
}

// StripeProcessor implements Processor on the Stripe API.
type StripeProcessor struct {
	api *client.API
}

func NewStripeProcessor(cfg StripeConfig) (*StripeProcessor, error) {
	if cfg.SecretKey == "" {
		return nil, ErrNotConfigured
	}

	var backends *stripe.Backends
	if cfg.APIURL != "" || cfg.HTTPClient != nil {
		bc := &stripe.BackendConfig{
			MaxNetworkRetries: stripe.Int64(0),
			LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
			HTTPClient:        cfg.HTTPClient,
		}
		if cfg.APIURL != "" {
			bc.URL = stripe.String(cfg.APIURL)
		}
		b := stripe.GetBackendWithConfig(stripe.APIBackend, bc)
		backends = &stripe.Backends{API: b, Connect: b, Uploads: b}
	}

	return &StripeProcessor{api: client.New(cfg.SecretKey, backends)}, nil
}

func (s *StripeProcessor) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(req.Amount),
		Currency:           stripe.String(req.Currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.Contact.Email != "" {
		params.ReceiptEmail = stripe.String(req.Contact.Email)
	}
	if req.Shipping != nil {
		params.Shipping = &stripe.ShippingDetailsParams{
			Name:    stripe.String(req.Contact.Name),
			Phone:   optional(req.Contact.Phone),
			Address: addressParams(req.Shipping),
		}
	}
	params.AddMetadata("record_id", req.RecordID)
	params.SetIdempotencyKey(req.IdempotencyKey)
	params.Context = ctx

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return nil, translate(err)
	}
	return toIntent(pi), nil
}

func (s *StripeProcessor) ConfirmIntent(ctx context.Context, req ConfirmRequest) (*Intent, error) {
	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(req.PaymentMethod),
	}
	if req.ReturnURL != "" {
		params.ReturnURL = stripe.String(req.ReturnURL)
	}
	params.SetIdempotencyKey(req.IdempotencyKey)
	params.Context = ctx

	pi, err := s.api.PaymentIntents.Confirm(req.IntentID, params)
	if err != nil {
		return nil, translate(err)
	}
	return toIntent(pi), nil
}

func (s *StripeProcessor) GetIntent(ctx context.Context, id string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, translate(err)
	}
	return toIntent(pi), nil
}

func (s *StripeProcessor) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.RecordID),
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	params.AddMetadata("record_id", req.RecordID)

	switch {
	case req.Recurring:
		params.Mode = stripe.String(string(stripe.CheckoutSessionModeSubscription))
		params.LineItems = []*stripe.CheckoutSessionLineItemParams{donationLine(req)}
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"record_id": req.RecordID},
		}
	case len(req.Items) > 0:
		params.Mode = stripe.String(string(stripe.CheckoutSessionModePayment))
		params.LineItems = itemLines(req)
		params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{"record_id": req.RecordID},
		}
	default:
		params.Mode = stripe.String(string(stripe.CheckoutSessionModePayment))
		params.LineItems = []*stripe.CheckoutSessionLineItemParams{donationLine(req)}
		params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{"record_id": req.RecordID},
		}
	}

	params.SetIdempotencyKey(req.IdempotencyKey)
	params.Context = ctx

	cs, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, translate(err)
	}
	return toSession(cs), nil
}

func (s *StripeProcessor) GetSession(ctx context.Context, id string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	cs, err := s.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, translate(err)
	}
	return toSession(cs), nil
}

func (s *StripeProcessor) CancelSubscription(ctx context.Context, id string) error {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx

	if _, err := s.api.Subscriptions.Cancel(id, params); err != nil {
		return translate(err)
	}
	return nil
}

func itemLines(req SessionRequest) []*stripe.CheckoutSessionLineItemParams {
	lines := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, it := range req.Items {
		line := &stripe.CheckoutSessionLineItemParams{Quantity: stripe.Int64(int64(it.Quantity))}
		if it.PriceRef != "" {
			line.Price = stripe.String(it.PriceRef)
		} else {
			line.PriceData = &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(req.Currency),
				UnitAmount: stripe.Int64(it.UnitPrice),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(it.Name),
				},
			}
		}
		lines = append(lines, line)
	}
	return lines
}

func donationLine(req SessionRequest) *stripe.CheckoutSessionLineItemParams {
	name := req.Description
	if name == "" {
		name = "Donation"
	}
	price := &stripe.CheckoutSessionLineItemPriceDataParams{
		Currency:   stripe.String(req.Currency),
		UnitAmount: stripe.Int64(req.Amount),
		ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(name),
		},
	}
	if req.Recurring {
		price.Recurring = &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
			Interval: stripe.String(string(req.Interval)),
		}
	}
	return &stripe.CheckoutSessionLineItemParams{
		PriceData: price,
		Quantity:  stripe.Int64(1),
	}
}

func addressParams(a *domain.Address) *stripe.AddressParams {
	return &stripe.AddressParams{
		Line1:      stripe.String(a.Line1),
		Line2:      optional(a.Line2),
		City:       stripe.String(a.City),
		State:      optional(a.State),
		PostalCode: stripe.String(a.PostalCode),
		Country:    stripe.String(a.Country),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return stripe.String(s)
}

func toIntent(pi *stripe.PaymentIntent) *Intent {
	in := &Intent{
		ID:           pi.ID,
		RecordID:     pi.Metadata["record_id"],
		ClientSecret: pi.ClientSecret,
	}
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		in.Status = IntentSucceeded
	case stripe.PaymentIntentStatusRequiresAction:
		in.Status = IntentRequiresAction
	case stripe.PaymentIntentStatusProcessing, stripe.PaymentIntentStatusRequiresCapture:
		in.Status = IntentProcessing
	case stripe.PaymentIntentStatusCanceled:
		in.Status = IntentFailed
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		// a fresh intent also sits here; only a recorded error means a failed attempt
		if pi.LastPaymentError != nil {
			in.Status = IntentFailed
		} else {
			in.Status = IntentOpen
		}
	default:
		in.Status = IntentOpen
	}
	if pi.LastPaymentError != nil {
		in.FailureReason = pi.LastPaymentError.Msg
	}
	return in
}

func toSession(cs *stripe.CheckoutSession) *Session {
	out := &Session{
		ID:           cs.ID,
		URL:          cs.URL,
		RecordID:     cs.ClientReferenceID,
		Status:       SessionStatus(cs.Status),
		Paid:         cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Subscription: cs.Mode == stripe.CheckoutSessionModeSubscription,
	}
	if cs.Subscription != nil {
		out.SubscriptionID = cs.Subscription.ID
	}
	if cs.PaymentIntent != nil {
		out.PaymentIntentID = cs.PaymentIntent.ID
	}
	return out
}

// translate turns processor rejections of the card into CardError and leaves
// everything else wrapped.
func translate(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		if se.Type == stripe.ErrorTypeCard {
			return &CardError{
				Reason:      se.Msg,
				Code:        string(se.Code),
				DeclineCode: string(se.DeclineCode),
			}
		}
		return fmt.Errorf("stripe %s (%d): %s: %w", se.Type, se.HTTPStatusCode, se.Msg, err)
	}
	return fmt.Errorf("stripe request: %w", err)
}
