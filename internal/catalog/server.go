package catalog

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// DefaultDelay is the artificial latency of GET /products.
const DefaultDelay = 200 * time.Millisecond

const addProductSuccess = "Add Product Success"

// AddProductRequest is the body of POST /products.
type AddProductRequest struct {
	Product domain.Product `json:"product"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Server is the mock product API. It serves the catalog from a Repository
// with a fixed delay on reads.
type Server struct {
	repo   Repository
	delay  time.Duration
	logger *slog.Logger
}

func NewServer(repo Repository, delay time.Duration, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		repo:   repo,
		delay:  delay,
		logger: logger,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/products", s.ListProducts)
	r.Post("/products", s.AddProduct)
	return r
}

func (s *Server) ListProducts(w http.ResponseWriter, r *http.Request) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-r.Context().Done():
			return
		}
	}

	products, err := s.repo.GetAllProducts(r.Context())
	if err != nil {
		s.logger.Error("failed to list products", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to list products", Code: "internal_error"})
		return
	}

	writeJSON(w, http.StatusOK, products)
}

func (s *Server) AddProduct(w http.ResponseWriter, r *http.Request) {
	var req AddProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body", Code: "invalid_request"})
		return
	}

	product, err := s.repo.AddProduct(r.Context(), req.Product)
	switch {
	case errors.Is(err, ErrInvalidProduct):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "invalid_product"})
		return
	case errors.Is(err, ErrDuplicateProduct):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "already_exists"})
		return
	case err != nil:
		s.logger.Error("failed to add product", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to add product", Code: "internal_error"})
		return
	}

	s.logger.Info("product added", "product_id", product.ID, "name", product.Name)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(addProductSuccess))
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
