package storage

import (
	"context"
	"testing"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleItems() []domain.CartItem {
	return []domain.CartItem{
		{Product: domain.Product{ID: 1, Name: "Laptop", Price: 1299000, ImageURL: "https://example.com/laptop.jpg"}, Quantity: 2},
		{Product: domain.Product{ID: 2, Name: "Mouse", Price: 29000, ImageURL: "https://example.com/mouse.jpg"}, Quantity: 1},
	}
}

// exerciseStorage runs the behaviour every CartStorage must share.
func exerciseStorage(t *testing.T, s CartStorage) {
	t.Helper()
	ctx := context.Background()

	items, err := s.Load(ctx, CartKey("absent"))
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)

	key := CartKey("session-1")
	require.NoError(t, s.Save(ctx, key, sampleItems()))

	loaded, err := s.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, sampleItems(), loaded)

	require.NoError(t, s.Save(ctx, key, sampleItems()[1:]))
	loaded, err = s.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, sampleItems()[1:], loaded)

	require.NoError(t, s.Save(ctx, key, nil))
	loaded, err = s.Load(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestCartKey_Format(t *testing.T) {
	assert.Equal(t, "cartList:abc", CartKey("abc"))
}

func TestMemoryStorage(t *testing.T) {
	exerciseStorage(t, NewMemoryStorage())
}

func TestMemoryStorage_UnparsableContent(t *testing.T) {
	s := NewMemoryStorage()
	s.SetRaw(CartKey("broken"), []byte(`[{"product":`))

	_, err := s.Load(context.Background(), CartKey("broken"))
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorContains(t, err, "unmarshal cart list failed")
}
