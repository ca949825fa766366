package session

import (
	"context"
	"testing"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(t *testing.T, items ...domain.CartItem) *Session {
	t.Helper()
	ctx := context.Background()
	mem := storage.NewMemoryStorage()
	require.NoError(t, mem.Save(ctx, storage.CartKey("t"), items))

	m := NewManager(mem, nil)
	t.Cleanup(func() { _ = m.Close(context.Background()) })

	s, err := m.Get(ctx, "t")
	require.NoError(t, err)
	return s
}

func TestSession_ControllerIsReused(t *testing.T) {
	s := newSession(t)

	a, err := s.Controller(product(1))
	require.NoError(t, err)
	b, err := s.Controller(product(1))
	require.NoError(t, err)
	assert.Same(t, a, b)

	got, ok := s.Lookup(1)
	assert.True(t, ok)
	assert.Same(t, a, got)

	_, ok = s.Lookup(2)
	assert.False(t, ok)
}

func TestSession_TwoProductsScenario(t *testing.T) {
	s := newSession(t)

	a, err := s.Controller(product(1))
	require.NoError(t, err)
	b, err := s.Controller(product(2))
	require.NoError(t, err)

	require.NoError(t, a.AddToCart())
	require.NoError(t, b.SetQuantity(3))
	assert.Equal(t, "4", s.Badge().Display())
	assert.Equal(t, cart.PhaseVisible, s.Badge().Phase())

	require.NoError(t, a.Decrement())
	require.NoError(t, b.SetQuantity(0))
	assert.Equal(t, 0, s.Badge().Total())
	assert.False(t, s.Badge().Visible())
	assert.Equal(t, cart.PhaseExiting, s.Badge().Phase())
}

func TestSession_KnownProduct(t *testing.T) {
	s := newSession(t, domain.CartItem{Product: product(7), Quantity: 1})

	p, ok := s.KnownProduct(7)
	assert.True(t, ok)
	assert.Equal(t, "product-7", p.Name)

	_, err := s.Controller(product(8))
	require.NoError(t, err)
	_, ok = s.KnownProduct(8)
	assert.True(t, ok)

	_, ok = s.KnownProduct(9)
	assert.False(t, ok)
}

func TestSession_Clear(t *testing.T) {
	s := newSession(t,
		domain.CartItem{Product: product(1), Quantity: 2},
		domain.CartItem{Product: product(2), Quantity: 3},
	)

	c, err := s.Controller(product(1))
	require.NoError(t, err)
	require.Equal(t, 2, c.Quantity())

	require.NoError(t, s.Clear())
	assert.Equal(t, 0, c.Quantity())
	assert.Equal(t, 0, s.Store().Len())

	// product 2 had no controller yet; it must not come back from the snapshot
	c2, err := s.Controller(product(2))
	require.NoError(t, err)
	assert.Equal(t, 0, c2.Quantity())
	assert.Equal(t, 0, s.Store().Len())
}
