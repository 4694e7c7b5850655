package gateway

import (
	"errors"
	"fmt"
)

var (
	ErrNotConfigured = errors.New("payment processor not configured")
	ErrNoRedirect    = errors.New("processor returned no redirect url")
)

// GatewayInitError means the processor client could not be built. The next
// call tries again.
type GatewayInitError struct {
	Err error
}

func (e *GatewayInitError) Error() string {
	return fmt.Sprintf("payment gateway unavailable: %v", e.Err)
}

func (e *GatewayInitError) Unwrap() error { return e.Err }

type IntentCreationError struct {
	Err error
}

func (e *IntentCreationError) Error() string {
	return fmt.Sprintf("could not create payment: %v", e.Err)
}

func (e *IntentCreationError) Unwrap() error { return e.Err }

type SessionCreationError struct {
	Err error
}

func (e *SessionCreationError) Error() string {
	return fmt.Sprintf("could not start hosted checkout: %v", e.Err)
}

func (e *SessionCreationError) Unwrap() error { return e.Err }

// CardError is a rejection by the processor. Reason is safe to show to the buyer.
type CardError struct {
	Reason      string
	Code        string
	DeclineCode string
}

func (e *CardError) Error() string {
	if e.DeclineCode != "" {
		return fmt.Sprintf("card rejected (%s): %s", e.DeclineCode, e.Reason)
	}
	return fmt.Sprintf("card rejected: %s", e.Reason)
}

// ConfirmationUnknownError means the confirm call failed in a way that leaves
// the payment outcome unknown. The record must stay pending.
type ConfirmationUnknownError struct {
	IntentID string
	Err      error
}

func (e *ConfirmationUnknownError) Error() string {
	return fmt.Sprintf("payment %s outcome unknown: %v", e.IntentID, e.Err)
}

func (e *ConfirmationUnknownError) Unwrap() error { return e.Err }

func isCardError(err error) bool {
	var ce *CardError
	return errors.As(err, &ce)
}
