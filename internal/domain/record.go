package domain

import (
	"time"
)

type Kind string

const (
	KindOrder    Kind = "order"
	KindDonation Kind = "donation"
)

type PaymentMethod string

const (
	PaymentMethodHostedRedirect PaymentMethod = "hosted-redirect"
	PaymentMethodInlineCard     PaymentMethod = "inline-card"
)

type Interval string

const (
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

type Contact struct {
	Name  string `json:"name" bson:"name"`
	Email string `json:"email" bson:"email"`
	Phone string `json:"phone,omitempty" bson:"phone,omitempty"`
}

type Address struct {
	Line1      string `json:"line1" bson:"line1" validate:"required,max=200"`
	Line2      string `json:"line2,omitempty" bson:"line2,omitempty" validate:"max=200"`
	City       string `json:"city" bson:"city" validate:"required,max=100"`
	State      string `json:"state,omitempty" bson:"state,omitempty" validate:"max=100"`
	PostalCode string `json:"postal_code" bson:"postal_code" validate:"required,max=20"`
	Country    string `json:"country" bson:"country" validate:"required,len=2"`
}

type LineItem struct {
	Key       string `json:"key" bson:"key"`
	ProductID string `json:"product_id" bson:"product_id"`
	Variant   string `json:"variant,omitempty" bson:"variant,omitempty"`
	Name      string `json:"name" bson:"name"`
	UnitPrice int64  `json:"unit_price" bson:"unit_price"`
	Quantity  int    `json:"quantity" bson:"quantity"`
	PriceRef  string `json:"price_ref,omitempty" bson:"price_ref,omitempty"`
}

// Record is a purchase or donation entry of the ledger.
// Amount is in minor units. For orders it is the sum of the line items.
type Record struct {
	ID            string        `json:"id" bson:"_id"`
	Kind          Kind          `json:"kind" bson:"kind"`
	BuyerID       string        `json:"buyer_id" bson:"buyer_id"`
	Items         []LineItem    `json:"items,omitempty" bson:"items,omitempty"`
	Amount        int64         `json:"amount" bson:"amount"`
	Currency      string        `json:"currency" bson:"currency"`
	Description   string        `json:"description,omitempty" bson:"description,omitempty"`
	Contact       Contact       `json:"contact" bson:"contact"`
	Shipping      *Address      `json:"shipping,omitempty" bson:"shipping,omitempty"`
	PaymentMethod PaymentMethod `json:"payment_method" bson:"payment_method"`
	Status        Status        `json:"status" bson:"status"`
	Recurring     bool          `json:"recurring" bson:"recurring"`
	Interval      Interval      `json:"interval,omitempty" bson:"interval,omitempty"`
	ProcessorRef  string        `json:"processor_ref,omitempty" bson:"processor_ref,omitempty"`
	CancelledAt   *time.Time    `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" bson:"updated_at"`
}

func ItemsTotal(items []LineItem) int64 {
	var total int64
	for _, it := range items {
		total += it.UnitPrice * int64(it.Quantity)
	}
	return total
}

// Event describes a status transition applied to a ledger record.
type Event struct {
	ID           string    `json:"event_id"`
	RecordID     string    `json:"record_id"`
	Kind         Kind      `json:"kind"`
	BuyerID      string    `json:"buyer_id"`
	From         Status    `json:"from"`
	To           Status    `json:"to"`
	ProcessorRef string    `json:"processor_ref,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Notification is an already verified payment result delivered out of band.
type Notification struct {
	EventID      string `json:"event_id"`
	RecordID     string `json:"record_id"`
	Status       Status `json:"status"`
	ProcessorRef string `json:"processor_ref,omitempty"`
}
