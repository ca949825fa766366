package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/pkg/circuitbreaker"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

// statusError is a non-200 answer from the catalog server.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("catalog responded %d: %s", e.code, e.body)
}

// Client talks to the catalog server. Calls run through a circuit breaker;
// only transport errors and 5xx answers count against it. Concurrent
// FetchProducts calls share one request.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	breaker    *gobreaker.CircuitBreaker[[]byte]
	sfg        singleflight.Group
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	opts := circuitbreaker.DefaultOptions("catalog")
	opts.Logger = logger
	opts.IsSuccessful = func(err error) bool {
		var se *statusError
		return err == nil || (errors.As(err, &se) && se.code < http.StatusInternalServerError)
	}
	return NewClientWithBreaker(baseURL, timeout, circuitbreaker.New[[]byte](opts))
}

func NewClientWithBreaker(baseURL string, timeout time.Duration, breaker *gobreaker.CircuitBreaker[[]byte]) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		timeout:    timeout,
		breaker:    breaker,
	}
}

// FetchProducts returns the whole catalog. Every failure wraps
// ErrNetworkFailure.
func (c *Client) FetchProducts(ctx context.Context) ([]domain.Product, error) {
	v, err, _ := c.sfg.Do("products", func() (interface{}, error) {
		body, err := c.do(ctx, http.MethodGet, "/products", nil)
		if err != nil {
			return nil, err
		}

		var products []domain.Product
		if err := json.Unmarshal(body, &products); err != nil {
			return nil, fmt.Errorf("%w: decode products: %w", ErrNetworkFailure, err)
		}
		return products, nil
	})
	if err != nil {
		return nil, err
	}

	shared := v.([]domain.Product)
	products := make([]domain.Product, len(shared))
	copy(products, shared)
	return products, nil
}

// Product looks id up in the catalog.
func (c *Client) Product(ctx context.Context, id int64) (domain.Product, error) {
	products, err := c.FetchProducts(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, fmt.Errorf("%w: id %d", ErrProductNotFound, id)
}

func (c *Client) AddProduct(ctx context.Context, product domain.Product) error {
	payload, err := json.Marshal(AddProductRequest{Product: product})
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}

	_, err = c.do(ctx, http.MethodPost, "/products", payload)
	var se *statusError
	if errors.As(err, &se) {
		switch se.code {
		case http.StatusBadRequest:
			return fmt.Errorf("%w: %s", ErrInvalidProduct, se.body)
		case http.StatusConflict:
			return fmt.Errorf("%w: %s", ErrDuplicateProduct, se.body)
		}
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(data))}
		}
		return data, nil
	})
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code < http.StatusInternalServerError {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s %s: %w", ErrNetworkFailure, method, path, err)
	}
	return body, nil
}
