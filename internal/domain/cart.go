package domain

// CartItem is one line of a buyer cart. Prices are in minor units.
type CartItem struct {
	ProductID string `json:"product_id"`
	Variant   string `json:"variant,omitempty"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	ImageURL  string `json:"image_url,omitempty"`
	PriceRef  string `json:"price_ref,omitempty"`
	Category  string `json:"category,omitempty"`
}

// Key identifies the item inside a cart: product id plus variant.
func (i CartItem) Key() string {
	return ItemKey(i.ProductID, i.Variant)
}

func ItemKey(productID, variant string) string {
	if variant == "" {
		return productID
	}
	return productID + "-" + variant
}

func (i CartItem) LineItem() LineItem {
	return LineItem{
		Key:       i.Key(),
		ProductID: i.ProductID,
		Variant:   i.Variant,
		Name:      i.Name,
		UnitPrice: i.UnitPrice,
		Quantity:  i.Quantity,
		PriceRef:  i.PriceRef,
	}
}

// CartSnapshot is an immutable view of a cart at one point in time.
type CartSnapshot struct {
	Items     []CartItem `json:"items"`
	Open      bool       `json:"open"`
	ItemCount int        `json:"item_count"`
	Subtotal  int64      `json:"subtotal"`
}

func (s CartSnapshot) LineItems() []LineItem {
	out := make([]LineItem, len(s.Items))
	for i, it := range s.Items {
		out[i] = it.LineItem()
	}
	return out
}
