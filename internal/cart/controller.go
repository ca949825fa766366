package cart

import (
	"fmt"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// MaxQuantity bounds a single line item.
const MaxQuantity = 99

type State string

const (
	StateIdle   State = "idle"
	StateActive State = "active"
)

// Affordance is the control a product card shows for its state.
type Affordance string

const (
	AffordanceAdd     Affordance = "add"
	AffordanceStepper Affordance = "stepper"
)

// LineItemController owns the requested quantity of one product and
// reconciles it into the shared Store on every change: zero removes the
// line, anything else upserts it.
type LineItemController struct {
	mu       sync.Mutex
	product  domain.Product
	store    *Store
	quantity int
	previous int
}

// NewLineItemController starts from initialQuantity, normally read from the
// durable cart snapshot, and reconciles it once into store. A snapshot
// quantity above MaxQuantity is kept; only user changes are bounded.
func NewLineItemController(product domain.Product, store *Store, initialQuantity int) (*LineItemController, error) {
	c := &LineItemController{
		product:  product,
		store:    store,
		quantity: max(initialQuantity, 0),
	}
	if err := c.reconcile(c.quantity); err != nil {
		return nil, err
	}
	c.previous = c.quantity
	return c, nil
}

func (c *LineItemController) Product() domain.Product {
	return c.product
}

func (c *LineItemController) Quantity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quantity
}

func (c *LineItemController) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return stateOf(c.quantity)
}

func (c *LineItemController) Affordance() Affordance {
	return AffordanceFor(c.State())
}

// Phase reports the visual phase of the stepper after the last change.
func (c *LineItemController) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return PhaseFor(c.previous, c.quantity)
}

// SetQuantity changes the requested quantity. Setting the current value
// again does not touch the store.
func (c *LineItemController) SetQuantity(quantity int) error {
	if quantity < 0 || quantity > MaxQuantity {
		return fmt.Errorf("%w: %d must be between 0 and %d", ErrInvalidQuantity, quantity, MaxQuantity)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setLocked(quantity)
}

// AddToCart moves an idle product into the cart with quantity one.
func (c *LineItemController) AddToCart() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.quantity > 0 {
		return nil
	}
	return c.setLocked(1)
}

func (c *LineItemController) Increment() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.quantity >= MaxQuantity {
		return nil
	}
	return c.setLocked(c.quantity + 1)
}

// Decrement lowers the quantity by one. Going from one to zero removes the
// line item.
func (c *LineItemController) Decrement() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.quantity == 0 {
		return nil
	}
	return c.setLocked(c.quantity - 1)
}

func (c *LineItemController) setLocked(quantity int) error {
	if quantity == c.quantity {
		return nil
	}
	if err := c.reconcile(quantity); err != nil {
		return err
	}
	c.previous, c.quantity = c.quantity, quantity
	return nil
}

func (c *LineItemController) reconcile(quantity int) error {
	if quantity == 0 {
		c.store.Remove(c.product.ID)
		return nil
	}
	return c.store.Upsert(c.product, quantity)
}

func AffordanceFor(state State) Affordance {
	if state == StateActive {
		return AffordanceStepper
	}
	return AffordanceAdd
}

func stateOf(quantity int) State {
	if quantity > 0 {
		return StateActive
	}
	return StateIdle
}
