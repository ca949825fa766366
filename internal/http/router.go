package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/fjod/go_cart/storefront/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	Sessions           *session.Manager
	Catalog            ProductCatalog
	Metrics            *metrics.ServerMetrics
	Logger             *slog.Logger
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

// NewRouter assembles the storefront API.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cartHandler := NewCartHandler(cfg.Sessions, cfg.Catalog, cfg.RequestTimeout, logger)
	productHandler := NewProductHandler(cfg.Sessions, cfg.Catalog, cfg.RequestTimeout, logger)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	}
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SessionMiddleware)

		r.Get("/products", productHandler.Get)
		r.Post("/products", productHandler.Add)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Get("/badge", cartHandler.GetBadge)
			r.Route("/items/{product_id}", func(r chi.Router) {
				r.Put("/", cartHandler.UpdateQuantity)
				r.Post("/", cartHandler.AddItem)
				r.Delete("/", cartHandler.RemoveItem)
				r.Post("/increment", cartHandler.Increment)
				r.Post("/decrement", cartHandler.Decrement)
			})
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}
