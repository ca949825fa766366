package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/badge"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/publisher"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/fjod/go_cart/storefront/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

var (
	ErrInvalidSessionID = errors.New("invalid session id")
	ErrManagerClosed    = errors.New("session manager closed")
	// ErrNotPersisted is returned by Save on a session whose cart could not
	// be loaded; its changes never reach storage.
	ErrNotPersisted = errors.New("session not persisted")
)

type Option func(*Manager)

func WithPublisher(p *publisher.Publisher) Option {
	return func(m *Manager) { m.publisher = p }
}

func WithMetrics(sm *metrics.ServerMetrics) Option {
	return func(m *Manager) { m.metrics = sm }
}

func WithStorageTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// Manager hydrates sessions from durable storage and keeps them for the
// lifetime of the process.
type Manager struct {
	storage   storage.CartStorage
	logger    *slog.Logger
	publisher *publisher.Publisher
	metrics   *metrics.ServerMetrics
	timeout   time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool
	sfg      singleflight.Group // one hydration per session id
}

func NewManager(s storage.CartStorage, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		storage:  s,
		logger:   logger,
		timeout:  5 * time.Second,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the session for id, hydrating it on first use. Hydration
// finishes before any controller of the session exists.
//
// A storage failure yields an empty session that is neither cached nor
// saved, so the stored cart is left untouched and the next Get retries.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > 128 {
		return nil, ErrInvalidSessionID
	}

	if s, ok, err := m.lookup(id); ok || err != nil {
		return s, err
	}

	v, err, _ := m.sfg.Do(id, func() (interface{}, error) {
		if s, ok, err := m.lookup(id); ok || err != nil {
			return s, err
		}

		s, err := m.hydrate(ctx, id)
		if err != nil {
			return s, nil
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.closed {
			_ = s.close(context.Background())
			return nil, ErrManagerClosed
		}
		m.sessions[id] = s
		if m.metrics != nil {
			m.metrics.Sessions.Inc()
		}
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (m *Manager) lookup(id string) (*Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, ErrManagerClosed
	}
	s, ok := m.sessions[id]
	return s, ok, nil
}

// hydrate builds the session from storage. The load is shared by every
// caller waiting on the same id, so it ignores the first caller's
// cancellation. On a load error the returned session is empty and has no
// persister.
func (m *Manager) hydrate(ctx context.Context, id string) (*Session, error) {
	key := storage.CartKey(id)

	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	items, loadErr := m.storage.Load(loadCtx, key)
	cancel()
	if loadErr != nil {
		m.logger.WarnContext(ctx, "cart load failed, serving empty cart", "session_id", id, "error", loadErr)
		items = nil
	}

	store := cart.NewStore()
	store.ReplaceAll(items)

	snapshot := make(map[int64]int)
	for _, item := range store.All() {
		snapshot[item.Product.ID] = item.Quantity
	}

	s := &Session{
		id:          id,
		store:       store,
		badge:       badge.New(store),
		controllers: make(map[int64]*cart.LineItemController),
		snapshot:    snapshot,
	}
	if loadErr != nil {
		return s, loadErr
	}

	s.persister = newPersister(key, m.storage, m.timeout, m.logger.With("session_id", id))
	s.unsubscribe = append(s.unsubscribe, store.Subscribe(s.persister.listen))
	if m.metrics != nil {
		s.unsubscribe = append(s.unsubscribe, store.Subscribe(func(change cart.Change) {
			m.metrics.CartMutations.WithLabelValues(string(change.Kind)).Inc()
		}))
	}
	if m.publisher != nil {
		s.unsubscribe = append(s.unsubscribe, store.Subscribe(m.publisher.Listener(id)))
	}

	m.logger.DebugContext(ctx, "session hydrated", "session_id", id, "items", len(snapshot))
	return s, nil
}

// Len is the number of hydrated sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close saves every session one last time. Get fails afterwards.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var errs []error
	for id, s := range sessions {
		if err := s.close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
