package http

import (
	"time"

	"github.com/fjod/storefront/internal/domain"
)

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Variant   string `json:"variant,omitempty"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	ImageURL  string `json:"image_url,omitempty"`
	PriceRef  string `json:"price_ref,omitempty"`
	Category  string `json:"category,omitempty"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartItemDTO struct {
	Key       string `json:"key"`
	ProductID string `json:"product_id"`
	Variant   string `json:"variant,omitempty"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	ImageURL  string `json:"image_url,omitempty"`
	Category  string `json:"category,omitempty"`
}

type CartResponseDTO struct {
	Items     []CartItemDTO `json:"items"`
	Open      bool          `json:"open"`
	ItemCount int           `json:"item_count"`
	Subtotal  string        `json:"subtotal"`
}

type AddressDTO struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type BuyerDTO struct {
	Name    string      `json:"name"`
	Email   string      `json:"email"`
	Phone   string      `json:"phone,omitempty"`
	Address *AddressDTO `json:"address,omitempty"`
}

type PaymentDTO struct {
	// Method is hosted-redirect or inline-card.
	Method          string `json:"method"`
	PaymentMethodID string `json:"payment_method_id,omitempty"`
}

type CheckoutRequestDTO struct {
	Buyer   BuyerDTO   `json:"buyer"`
	Payment PaymentDTO `json:"payment"`
}

type DonationRequestDTO struct {
	Buyer       BuyerDTO   `json:"buyer"`
	Payment     PaymentDTO `json:"payment"`
	Amount      string     `json:"amount"`
	Recurring   bool       `json:"recurring"`
	Interval    string     `json:"interval,omitempty"`
	Designation string     `json:"designation,omitempty"`
}

type LineItemDTO struct {
	Key       string `json:"key"`
	ProductID string `json:"product_id"`
	Variant   string `json:"variant,omitempty"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

type RecordDTO struct {
	ID            string        `json:"id"`
	Kind          string        `json:"kind"`
	Status        string        `json:"status"`
	Amount        string        `json:"amount"`
	Currency      string        `json:"currency"`
	Description   string        `json:"description,omitempty"`
	Items         []LineItemDTO `json:"items,omitempty"`
	PaymentMethod string        `json:"payment_method"`
	ProcessorRef  string        `json:"processor_ref,omitempty"`
	Recurring     bool          `json:"recurring"`
	Interval      string        `json:"interval,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	CancelledAt   *time.Time    `json:"cancelled_at,omitempty"`
}

type ReturnResponseDTO struct {
	Outcome string    `json:"outcome"`
	Record  RecordDTO `json:"record"`
	// Pending is set when the payment could not be confirmed yet.
	Pending bool `json:"pending,omitempty"`
}

func toCartDTO(snap domain.CartSnapshot) CartResponseDTO {
	items := make([]CartItemDTO, len(snap.Items))
	for i, it := range snap.Items {
		items[i] = CartItemDTO{
			Key:       it.Key(),
			ProductID: it.ProductID,
			Variant:   it.Variant,
			Name:      it.Name,
			UnitPrice: domain.FormatAmount(it.UnitPrice),
			Quantity:  it.Quantity,
			ImageURL:  it.ImageURL,
			Category:  it.Category,
		}
	}
	return CartResponseDTO{
		Items:     items,
		Open:      snap.Open,
		ItemCount: snap.ItemCount,
		Subtotal:  domain.FormatAmount(snap.Subtotal),
	}
}

func toRecordDTO(rec *domain.Record) RecordDTO {
	dto := RecordDTO{
		ID:            rec.ID,
		Kind:          string(rec.Kind),
		Status:        string(rec.Status),
		Amount:        domain.FormatAmount(rec.Amount),
		Currency:      rec.Currency,
		Description:   rec.Description,
		PaymentMethod: string(rec.PaymentMethod),
		ProcessorRef:  rec.ProcessorRef,
		Recurring:     rec.Recurring,
		Interval:      string(rec.Interval),
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
		CancelledAt:   rec.CancelledAt,
	}
	for _, it := range rec.Items {
		dto.Items = append(dto.Items, LineItemDTO{
			Key:       it.Key,
			ProductID: it.ProductID,
			Variant:   it.Variant,
			Name:      it.Name,
			UnitPrice: domain.FormatAmount(it.UnitPrice),
			Quantity:  it.Quantity,
		})
	}
	return dto
}

func toRecordDTOs(recs []*domain.Record) []RecordDTO {
	out := make([]RecordDTO, len(recs))
	for i, rec := range recs {
		out[i] = toRecordDTO(rec)
	}
	return out
}

func (b BuyerDTO) address() *domain.Address {
	if b.Address == nil {
		return nil
	}
	return &domain.Address{
		Line1:      b.Address.Line1,
		Line2:      b.Address.Line2,
		City:       b.Address.City,
		State:      b.Address.State,
		PostalCode: b.Address.PostalCode,
		Country:    b.Address.Country,
	}
}
