package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_cart/storefront/internal/badge"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/go-chi/chi/v5"
)

// ProductCatalog is the product source the storefront reads from.
type ProductCatalog interface {
	FetchProducts(ctx context.Context) ([]domain.Product, error)
	Product(ctx context.Context, id int64) (domain.Product, error)
	AddProduct(ctx context.Context, product domain.Product) error
}

type CartHandler struct {
	sessions *session.Manager
	catalog  ProductCatalog
	timeout  time.Duration
	logger   *slog.Logger
}

func NewCartHandler(sessions *session.Manager, catalog ProductCatalog, timeout time.Duration, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		sessions: sessions,
		catalog:  catalog,
		timeout:  timeout,
		logger:   logger,
	}
}

type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity"`
}

type CartResponse struct {
	Items         []domain.CartItem `json:"items"`
	TotalQuantity int               `json:"total_quantity"`
}

// LineItemResponse is the state of one product card after a change.
type LineItemResponse struct {
	Product    domain.Product  `json:"product"`
	Quantity   int             `json:"quantity"`
	State      cart.State      `json:"state"`
	Affordance cart.Affordance `json:"affordance"`
	Phase      cart.Phase      `json:"phase"`
	Badge      badge.View      `json:"badge"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess, err := h.sessions.Get(ctx, getSessionID(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	store := sess.Store()
	respondJSON(w, http.StatusOK, CartResponse{
		Items:         store.All(),
		TotalQuantity: store.TotalQuantity(),
	})
}

func (h *CartHandler) GetBadge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess, err := h.sessions.Get(ctx, getSessionID(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, sess.Badge().Snapshot())
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity == nil || *req.Quantity < 0 || *req.Quantity > cart.MaxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 0 and 99")
		return
	}

	h.mutate(w, r, func(c *cart.LineItemController) error {
		return c.SetQuantity(*req.Quantity)
	})
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, (*cart.LineItemController).AddToCart)
}

func (h *CartHandler) Increment(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, (*cart.LineItemController).Increment)
}

func (h *CartHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, (*cart.LineItemController).Decrement)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(c *cart.LineItemController) error {
		return c.SetQuantity(0)
	})
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess, err := h.sessions.Get(ctx, getSessionID(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if err := sess.Clear(); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, CartResponse{
		Items:         []domain.CartItem{},
		TotalQuantity: 0,
	})
}

// mutate runs change against the controller of the product in the URL.
func (h *CartHandler) mutate(w http.ResponseWriter, r *http.Request, change func(*cart.LineItemController) error) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	sess, err := h.sessions.Get(ctx, getSessionID(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	product, ok := sess.KnownProduct(productID)
	if !ok {
		product, err = h.catalog.Product(ctx, productID)
		if err != nil {
			h.logger.WarnContext(ctx, "product lookup failed",
				"product_id", productID, "request_id", getRequestID(r.Context()), "error", err)
			handleServiceError(w, err)
			return
		}
	}

	c, err := sess.Controller(product)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if err := change(c); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, LineItemResponse{
		Product:    c.Product(),
		Quantity:   c.Quantity(),
		State:      c.State(),
		Affordance: c.Affordance(),
		Phase:      c.Phase(),
		Badge:      sess.Badge().Snapshot(),
	})
}
