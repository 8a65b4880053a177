package http

import (
	"net/http"
	"time"

	"github.com/etrshop/etr-brand/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterOptions struct {
	KeyPrefix      string
	CookieSecure   bool
	RequestTimeout time.Duration
	Metrics        http.Handler
}

func NewRouter(h *StoreHandler, log *logger.Logger, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(VisitorMiddleware(opts.KeyPrefix, opts.CookieSecure))

		r.Get("/", h.Index)
		r.Get("/checkout", h.Checkout)
		r.Route("/products/{sku}", func(r chi.Router) {
			r.Get("/", h.Product)
			r.Post("/cart", h.AddToCart)
		})
		r.Route("/cart", func(r chi.Router) {
			r.Post("/items/{index}/delete", h.RemoveItem)
			r.Post("/clear", h.ClearCart)
		})
		r.Get("/api/cart", h.GetCart)
	})

	return r
}
