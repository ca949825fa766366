// Package storage persists cart lists under string keys.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// ErrStorageUnavailable wraps every failure to reach the backing store or to
// read what it returned.
var ErrStorageUnavailable = errors.New("storage unavailable")

// CartStorage is the durable store for cart lists. Load returns an empty
// list for an absent key.
type CartStorage interface {
	Load(ctx context.Context, key string) ([]domain.CartItem, error)
	Save(ctx context.Context, key string, items []domain.CartItem) error
}

// CartKey is the storage key of a session's cart list.
func CartKey(sessionID string) string {
	return fmt.Sprintf("cartList:%s", sessionID)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}

func encodeItems(items []domain.CartItem) ([]byte, error) {
	if items == nil {
		items = []domain.CartItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal cart list failed: %w", err)
	}
	return data, nil
}

func decodeItems(data []byte) ([]domain.CartItem, error) {
	var items []domain.CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, unavailable("unmarshal cart list failed", err)
	}
	if items == nil {
		items = []domain.CartItem{}
	}
	return items, nil
}
