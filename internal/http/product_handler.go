package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/session"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var pricePrinter = message.NewPrinter(language.Korean)

// FormatPrice renders a price in won with thousands separators.
func FormatPrice(price int64) string {
	return pricePrinter.Sprintf("%d 원", price)
}

type ProductHandler struct {
	sessions *session.Manager
	catalog  ProductCatalog
	timeout  time.Duration
	logger   *slog.Logger
}

func NewProductHandler(sessions *session.Manager, catalog ProductCatalog, timeout time.Duration, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		sessions: sessions,
		catalog:  catalog,
		timeout:  timeout,
		logger:   logger,
	}
}

type ProductResponse struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Price          int64           `json:"price"`
	FormattedPrice string          `json:"formatted_price"`
	ImageURL       string          `json:"imageUrl"`
	Quantity       int             `json:"quantity"`
	State          cart.State      `json:"state"`
	Affordance     cart.Affordance `json:"affordance"`
	Phase          cart.Phase      `json:"phase"`
}

type ProductsResponse struct {
	Products []ProductResponse `json:"products"`
}

// Get lists the catalog with this session's cart state. A catalog failure
// yields an empty list.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess, err := h.sessions.Get(ctx, getSessionID(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	products, err := h.catalog.FetchProducts(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "fetch products failed", "request_id", getRequestID(r.Context()), "error", err)
		products = nil
	}

	res := ProductsResponse{Products: make([]ProductResponse, 0, len(products))}
	for _, p := range products {
		c, err := sess.Controller(p)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		res.Products = append(res.Products, ProductResponse{
			ID:             p.ID,
			Name:           p.Name,
			Price:          p.Price,
			FormattedPrice: FormatPrice(p.Price),
			ImageURL:       p.ImageURL,
			Quantity:       c.Quantity(),
			State:          c.State(),
			Affordance:     c.Affordance(),
			Phase:          c.Phase(),
		})
	}

	respondJSON(w, http.StatusOK, &res)
}

func (h *ProductHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req catalog.AddProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := catalog.Validate(req.Product); err != nil {
		handleServiceError(w, err)
		return
	}

	if err := h.catalog.AddProduct(ctx, req.Product); err != nil {
		h.logger.WarnContext(ctx, "add product failed", "request_id", getRequestID(r.Context()), "error", err)
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"status": "Add Product Success"})
}
