// ABOUTME: In-memory Store implementation for testing and no-database mode
// ABOUTME: Allows the gateway and tests to run without SQLite

package store

import (
	"context"
	"sync"

	"github.com/marketbot/haggle-gateway/internal/session"
)

// MockStore is an in-memory Store implementation. It starts with the demo
// product catalog loaded.
type MockStore struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
	products map[string]*Product
	order    []string // product listing order

	// SaveErr, when set, is returned by SaveSession. Lets tests exercise
	// the relay's persistence-failure tolerance.
	SaveErr error
}

// NewMockStore creates a MockStore seeded with DemoProducts.
func NewMockStore() *MockStore {
	m := &MockStore{
		sessions: make(map[string]*session.Session),
		products: make(map[string]*Product),
	}
	for _, p := range DemoProducts() {
		m.AddProduct(p)
	}
	return m
}

// AddProduct registers a product in the catalog.
func (m *MockStore) AddProduct(p *Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	if _, exists := m.products[cp.ID]; !exists {
		m.order = append(m.order, cp.ID)
	}
	m.products[cp.ID] = &cp
}

// SaveSession stores a snapshot of the session.
func (m *MockStore) SaveSession(ctx context.Context, sess *session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.sessions[sess.ID] = sess.Snapshot()
	return nil
}

// LoadSession returns a snapshot of a saved session, or ErrNotFound.
func (m *MockStore) LoadSession(ctx context.Context, id string) (*session.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess.Snapshot(), nil
}

// ListProducts returns the catalog in insertion order.
func (m *MockStore) ListProducts(ctx context.Context) ([]*Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	products := make([]*Product, 0, len(m.order))
	for _, id := range m.order {
		cp := *m.products[id]
		products = append(products, &cp)
	}
	return products, nil
}

// GetProduct returns one product by ID, or ErrNotFound.
func (m *MockStore) GetProduct(ctx context.Context, id string) (*Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// SavedSessionCount reports how many sessions have been saved.
func (m *MockStore) SavedSessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}
