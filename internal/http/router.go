package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RouterConfig holds router-wide settings. Request deadlines are set by each
// handler from its own timeout.
type RouterConfig struct {
	MaxRequestBodySize int64
}

type Handlers struct {
	Cart          *CartHandler
	Checkout      *CheckoutHandler
	Return        *ReturnHandler
	Records       *RecordsHandler
	Subscriptions *SubscriptionHandler
}

func NewRouter(cfg RouterConfig, h Handlers, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(BodyLimitMiddleware(cfg.MaxRequestBodySize))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(BuyerMiddleware)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.GetCart)
			r.Delete("/", h.Cart.ClearCart)
			r.Post("/items", h.Cart.AddItem)
			r.Put("/items/{key}", h.Cart.UpdateQuantity)
			r.Delete("/items/{key}", h.Cart.RemoveItem)
			r.Post("/visibility", h.Cart.ToggleVisibility)
		})

		r.Post("/checkout", h.Checkout.Checkout)
		r.Get("/checkout/return", h.Return.Return)
		r.Post("/donations", h.Checkout.Donate)
		r.Get("/records/{id}", h.Records.GetRecord)

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/", h.Subscriptions.List)
			r.Delete("/{id}", h.Subscriptions.Cancel)
		})
	})

	return otelhttp.NewHandler(r, "storefront",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
