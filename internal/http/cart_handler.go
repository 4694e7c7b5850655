package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

// Carts hands out the cart of a buyer.
type Carts interface {
	Get(ctx context.Context, buyerID string) *cart.Store
}

type CartHandler struct {
	carts   Carts
	timeout time.Duration
	log     *slog.Logger
}

func NewCartHandler(carts Carts, timeout time.Duration, log *slog.Logger) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
		log:     log,
	}
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	respondJSON(w, http.StatusOK, toCartDTO(h.carts.Get(ctx, getBuyerID(ctx)).Snapshot()))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	if req.Quantity < 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}
	price, err := domain.ParseAmount(req.UnitPrice)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_price", "unit_price must be a non-negative amount with at most 2 decimals")
		return
	}

	item := domain.CartItem{
		ProductID: req.ProductID,
		Variant:   req.Variant,
		Name:      req.Name,
		UnitPrice: price,
		ImageURL:  req.ImageURL,
		PriceRef:  req.PriceRef,
		Category:  req.Category,
	}
	snap := h.carts.Get(ctx, getBuyerID(ctx)).AddItem(ctx, item, req.Quantity)

	respondJSON(w, http.StatusCreated, toCartDTO(snap))
}

// PUT /api/v1/cart/items/{key}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	key := chi.URLParam(r, "key")

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	snap := h.carts.Get(ctx, getBuyerID(ctx)).UpdateQuantity(ctx, key, req.Quantity)
	respondJSON(w, http.StatusOK, toCartDTO(snap))
}

// DELETE /api/v1/cart/items/{key}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	snap := h.carts.Get(ctx, getBuyerID(ctx)).RemoveItem(ctx, chi.URLParam(r, "key"))
	respondJSON(w, http.StatusOK, toCartDTO(snap))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	snap := h.carts.Get(ctx, getBuyerID(ctx)).Clear(ctx)
	respondJSON(w, http.StatusOK, toCartDTO(snap))
}

// POST /api/v1/cart/visibility
func (h *CartHandler) ToggleVisibility(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	snap := h.carts.Get(ctx, getBuyerID(ctx)).ToggleVisibility()
	respondJSON(w, http.StatusOK, toCartDTO(snap))
}
