// Package badge implements the header cart counter.
package badge

import (
	"strconv"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/cart"
)

// MaxDisplay is the largest count the badge renders.
const MaxDisplay = 99

// Badge mirrors the total quantity of a cart store. It keeps no state of its
// own beyond the totals reported by the store's notifications.
type Badge struct {
	mu          sync.RWMutex
	total       int
	previous    int
	unsubscribe func()
}

func New(store *cart.Store) *Badge {
	b := &Badge{}
	b.unsubscribe = store.Subscribe(b.onChange)

	b.mu.Lock()
	b.total = store.TotalQuantity()
	b.previous = b.total
	b.mu.Unlock()
	return b
}

func (b *Badge) onChange(change cart.Change) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.previous, b.total = b.total, change.TotalQuantity
}

func (b *Badge) Total() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.total
}

// Display is the rendered count, clamped to MaxDisplay.
func (b *Badge) Display() string {
	return Format(b.Total())
}

func (b *Badge) Visible() bool {
	return b.Total() > 0
}

func (b *Badge) Phase() cart.Phase {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return cart.PhaseFor(b.previous, b.total)
}

// Snapshot reads every derived value from one recorded total.
func (b *Badge) Snapshot() View {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return View{
		Count:   Format(b.total),
		Total:   b.total,
		Visible: b.total > 0,
		Phase:   cart.PhaseFor(b.previous, b.total),
	}
}

func (b *Badge) Close() {
	b.unsubscribe()
}

type View struct {
	Count   string     `json:"count"`
	Total   int        `json:"total"`
	Visible bool       `json:"visible"`
	Phase   cart.Phase `json:"phase"`
}

func Format(total int) string {
	return strconv.Itoa(min(max(total, 0), MaxDisplay))
}
