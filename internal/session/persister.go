package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/storage"
)

// persister writes a session's cart list to storage off the mutation path.
// Only the latest list is kept; intermediate states may be skipped.
type persister struct {
	key     string
	storage storage.CartStorage
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	pending []domain.CartItem
	dirty   bool

	saveMu sync.Mutex
	wake   chan struct{}
	stop   chan struct{}
	done   chan struct{}
}

func newPersister(key string, s storage.CartStorage, timeout time.Duration, logger *slog.Logger) *persister {
	p := &persister{
		key:     key,
		storage: s,
		timeout: timeout,
		logger:  logger,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *persister) listen(change cart.Change) {
	p.mu.Lock()
	p.pending = change.Items
	p.dirty = true
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *persister) run() {
	defer close(p.done)
	for {
		select {
		case <-p.wake:
			ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
			if err := p.flush(ctx); err != nil {
				p.logger.Warn("cart save failed", "key", p.key, "error", err)
			}
			cancel()
		case <-p.stop:
			return
		}
	}
}

// flush saves the pending list, if any. Saves are serialized and each one
// takes the newest list, so the last save always carries the latest state.
func (p *persister) flush(ctx context.Context) error {
	p.saveMu.Lock()
	defer p.saveMu.Unlock()

	p.mu.Lock()
	if !p.dirty {
		p.mu.Unlock()
		return nil
	}
	items := p.pending
	p.dirty = false
	p.mu.Unlock()

	if err := p.storage.Save(ctx, p.key, items); err != nil {
		p.mu.Lock()
		if !p.dirty {
			p.pending, p.dirty = items, true
		}
		p.mu.Unlock()
		return err
	}
	return nil
}

// close stops the background writer and makes a final save attempt.
func (p *persister) close(ctx context.Context) error {
	close(p.stop)
	<-p.done
	return p.flush(ctx)
}
