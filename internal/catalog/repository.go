package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

//go:embed mockdata.json
var mockData []byte

// Repository is the product source behind the catalog server.
type Repository interface {
	GetAllProducts(ctx context.Context) ([]domain.Product, error)
	AddProduct(ctx context.Context, product domain.Product) (domain.Product, error)
}

// SeedProducts returns the bundled mock catalog.
func SeedProducts() ([]domain.Product, error) {
	var products []domain.Product
	if err := json.Unmarshal(mockData, &products); err != nil {
		return nil, fmt.Errorf("failed to parse mock data: %w", err)
	}
	return products, nil
}

// Validate checks the fields a catalog product must carry.
func Validate(p domain.Product) error {
	if p.ID < 0 {
		return fmt.Errorf("%w: id must not be negative", ErrInvalidProduct)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	return nil
}

// MemoryRepository holds the catalog in process memory; it resets on restart.
type MemoryRepository struct {
	mu       sync.RWMutex
	products []domain.Product
}

func NewMemoryRepository(seed []domain.Product) *MemoryRepository {
	products := make([]domain.Product, len(seed))
	copy(products, seed)
	return &MemoryRepository{products: products}
}

func (m *MemoryRepository) GetAllProducts(ctx context.Context) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Product, len(m.products))
	copy(out, m.products)
	return out, nil
}

// AddProduct appends product. A zero id is replaced by the next free id.
func (m *MemoryRepository) AddProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	if err := Validate(product); err != nil {
		return domain.Product{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var maxID int64
	for _, p := range m.products {
		if product.ID != 0 && p.ID == product.ID {
			return domain.Product{}, fmt.Errorf("%w: id %d", ErrDuplicateProduct, product.ID)
		}
		maxID = max(maxID, p.ID)
	}
	if product.ID == 0 {
		product.ID = maxID + 1
	}

	m.products = append(m.products, product)
	return product, nil
}
