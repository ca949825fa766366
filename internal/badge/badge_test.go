package badge

import (
	"testing"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadge_HiddenWhenEmpty(t *testing.T) {
	store := cart.NewStore()
	b := New(store)
	defer b.Close()

	assert.False(t, b.Visible())
	assert.Equal(t, "0", b.Display())
	assert.Equal(t, cart.PhaseHidden, b.Phase())
}

func TestBadge_FollowsStore(t *testing.T) {
	store := cart.NewStore()
	b := New(store)
	defer b.Close()

	require.NoError(t, store.Upsert(domain.Product{ID: 1}, 2))
	assert.True(t, b.Visible())
	assert.Equal(t, "2", b.Display())
	assert.Equal(t, cart.PhaseEntering, b.Phase())

	require.NoError(t, store.Upsert(domain.Product{ID: 2}, 3))
	assert.Equal(t, 5, b.Total())
	assert.Equal(t, cart.PhaseVisible, b.Phase())

	store.Clear()
	assert.False(t, b.Visible())
	assert.Equal(t, cart.PhaseExiting, b.Phase())
}

func TestBadge_ClampsDisplay(t *testing.T) {
	store := cart.NewStore()
	b := New(store)
	defer b.Close()

	require.NoError(t, store.Upsert(domain.Product{ID: 1}, 99))
	require.NoError(t, store.Upsert(domain.Product{ID: 2}, 51))

	view := b.Snapshot()
	assert.Equal(t, "99", view.Count)
	assert.Equal(t, 150, view.Total)
	assert.True(t, view.Visible)
	assert.Equal(t, 150, store.TotalQuantity())
}

func TestBadge_StartsFromHydratedStore(t *testing.T) {
	store := cart.NewStore()
	store.ReplaceAll([]domain.CartItem{{Product: domain.Product{ID: 1}, Quantity: 4}})

	b := New(store)
	defer b.Close()

	assert.Equal(t, "4", b.Display())
	assert.Equal(t, cart.PhaseVisible, b.Phase())
}

func TestBadge_VisibilityUpdatesInSameNotification(t *testing.T) {
	store := cart.NewStore()
	b := New(store)
	defer b.Close()

	var visible []bool
	store.Subscribe(func(cart.Change) { visible = append(visible, b.Visible()) })

	require.NoError(t, store.Upsert(domain.Product{ID: 1}, 1))
	store.Remove(1)

	assert.Equal(t, []bool{true, false}, visible)
}

func TestBadge_CloseStopsUpdates(t *testing.T) {
	store := cart.NewStore()
	b := New(store)
	b.Close()

	require.NoError(t, store.Upsert(domain.Product{ID: 1}, 1))
	assert.Zero(t, b.Total())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "0", Format(-5))
	assert.Equal(t, "98", Format(98))
	assert.Equal(t, "99", Format(99))
	assert.Equal(t, "99", Format(150))
}
