// Package session ties a cart store, its badge, its product controllers and
// its persistence together for one shopper.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/badge"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

type Session struct {
	id    string
	store *cart.Store
	badge *badge.Badge

	mu          sync.Mutex
	controllers map[int64]*cart.LineItemController
	// snapshot holds the quantities read from storage at hydration; new
	// controllers start from it.
	snapshot map[int64]int

	persister   *persister // nil when the cart could not be loaded
	unsubscribe []func()
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Store() *cart.Store {
	return s.store
}

func (s *Session) Badge() *badge.Badge {
	return s.badge
}

// Controller returns the controller of product, creating it on first use.
func (s *Session) Controller(product domain.Product) (*cart.LineItemController, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.controllers[product.ID]; ok {
		return c, nil
	}

	c, err := cart.NewLineItemController(product, s.store, s.snapshot[product.ID])
	if err != nil {
		return nil, fmt.Errorf("create controller for product %d: %w", product.ID, err)
	}
	s.controllers[product.ID] = c
	return c, nil
}

// Lookup returns an existing controller without creating one.
func (s *Session) Lookup(productID int64) (*cart.LineItemController, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.controllers[productID]
	return c, ok
}

// KnownProduct finds product data for productID among the session's
// controllers and its hydrated cart.
func (s *Session) KnownProduct(productID int64) (domain.Product, bool) {
	if c, ok := s.Lookup(productID); ok {
		return c.Product(), true
	}
	if item, ok := s.store.Get(productID); ok {
		return item.Product, true
	}
	return domain.Product{}, false
}

// Clear resets every controller to zero and empties the cart.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, c := range s.controllers {
		errs = append(errs, c.SetQuantity(0))
	}
	s.store.Clear()
	clear(s.snapshot)
	return errors.Join(errs...)
}

// Persistent reports whether changes to this session reach storage.
func (s *Session) Persistent() bool {
	return s.persister != nil
}

// Save writes pending changes to storage now.
func (s *Session) Save(ctx context.Context) error {
	if s.persister == nil {
		return fmt.Errorf("session %s: %w", s.id, ErrNotPersisted)
	}
	return s.persister.flush(ctx)
}

func (s *Session) close(ctx context.Context) error {
	for _, unsubscribe := range s.unsubscribe {
		unsubscribe()
	}
	s.badge.Close()
	if s.persister == nil {
		return nil
	}
	return s.persister.close(ctx)
}
