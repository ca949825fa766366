package cart

import (
	"fmt"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type ChangeKind string

const (
	ChangeUpsert  ChangeKind = "upsert"
	ChangeRemove  ChangeKind = "remove"
	ChangeReplace ChangeKind = "replace"
	ChangeClear   ChangeKind = "clear"
)

// Change is delivered to listeners after every mutation. Items is a copy
// shared by all listeners of that mutation; treat it as read-only.
type Change struct {
	Kind          ChangeKind
	ProductID     int64 // zero for replace and clear
	Items         []domain.CartItem
	TotalQuantity int
}

type Listener func(Change)

type subscription struct {
	id int
	fn Listener
}

// Store holds the ordered cart list of one session. Product ids are unique
// and every stored quantity is >= 1.
//
// Mutations and their notifications are serialized by writeMu, so listeners
// observe changes in the order they were applied. Listeners run on the
// mutating goroutine and must not mutate the store they listen to.
type Store struct {
	writeMu sync.Mutex

	mu        sync.RWMutex
	items     []domain.CartItem
	listeners []subscription
	nextID    int
}

func NewStore() *Store {
	return &Store{}
}

// All returns a copy of the current cart list.
func (s *Store) All() []domain.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) TotalQuantity() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.TotalQuantity(s.items)
}

func (s *Store) Get(productID int64) (domain.CartItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.indexLocked(productID); idx != -1 {
		return s.items[idx], true
	}
	return domain.CartItem{}, false
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Upsert sets the quantity for product. An existing line keeps its position,
// a new line is appended.
func (s *Store) Upsert(product domain.Product, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: %d for product %d", ErrInvalidQuantity, quantity, product.ID)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if idx := s.indexLocked(product.ID); idx != -1 {
		s.items[idx].Quantity = quantity
	} else {
		s.items = append(s.items, domain.CartItem{Product: product, Quantity: quantity})
	}
	change, listeners := s.changeLocked(ChangeUpsert, product.ID)
	s.mu.Unlock()

	notify(listeners, change)
	return nil
}

// Remove deletes the line for productID. It reports false and notifies
// nobody when the product is not in the cart.
func (s *Store) Remove(productID int64) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	idx := s.indexLocked(productID)
	if idx == -1 {
		s.mu.Unlock()
		return false
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	change, listeners := s.changeLocked(ChangeRemove, productID)
	s.mu.Unlock()

	notify(listeners, change)
	return true
}

// ReplaceAll installs items as the new cart list. Duplicate product ids are
// collapsed so that the last occurrence wins, and lines with a quantity
// below one are dropped.
func (s *Store) ReplaceAll(items []domain.CartItem) {
	deduped := dedupe(items)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.items = deduped
	change, listeners := s.changeLocked(ChangeReplace, 0)
	s.mu.Unlock()

	notify(listeners, change)
}

// Clear empties the cart. Nothing is notified if the cart was already empty.
func (s *Store) Clear() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if len(s.items) == 0 {
		s.mu.Unlock()
		return
	}
	s.items = nil
	change, listeners := s.changeLocked(ChangeClear, 0)
	s.mu.Unlock()

	notify(listeners, change)
}

// Subscribe registers fn for change notifications. The returned function
// removes the subscription and is safe to call more than once.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.listeners {
			if sub.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) indexLocked(productID int64) int {
	for i, item := range s.items {
		if item.Product.ID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() []domain.CartItem {
	out := make([]domain.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) changeLocked(kind ChangeKind, productID int64) (Change, []subscription) {
	change := Change{
		Kind:          kind,
		ProductID:     productID,
		Items:         s.snapshotLocked(),
		TotalQuantity: domain.TotalQuantity(s.items),
	}
	listeners := make([]subscription, len(s.listeners))
	copy(listeners, s.listeners)
	return change, listeners
}

func notify(listeners []subscription, change Change) {
	for _, sub := range listeners {
		sub.fn(change)
	}
}

func dedupe(items []domain.CartItem) []domain.CartItem {
	last := make(map[int64]int, len(items))
	for i, item := range items {
		last[item.Product.ID] = i
	}

	out := make([]domain.CartItem, 0, len(last))
	for i, item := range items {
		if last[item.Product.ID] != i || item.Quantity <= 0 {
			continue
		}
		out = append(out, item)
	}
	return out
}
