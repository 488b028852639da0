// ABOUTME: In-memory registry of live negotiation sessions
// ABOUTME: One lock per session entry, so sessions serialize independently

package session

import (
	"errors"
	"sync"
)

// ErrNotFound is returned when a session is not in the live table.
var ErrNotFound = errors.New("session not found")

// ErrEnded is returned when an operation requires an active session.
var ErrEnded = errors.New("session already ended")

// Store holds the live sessions for this process. Each entry carries its own
// mutex: mutations of one session serialize against each other while every
// other session stays fully concurrent. There is no process-wide write lock
// on session state; the table-level mutex only guards the map itself.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	sess *Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Put registers a session in the live table. The store owns the session for
// its lifetime; callers keep only snapshots.
func (st *Store) Put(sess *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.entries[sess.ID] = &entry{sess: sess}
}

// Get returns a snapshot of the session, or ErrNotFound. The snapshot is
// consistent: it never observes a half-appended message.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	e, ok := st.entries[id]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess.Snapshot(), nil
}

// Update runs fn with exclusive access to the session. fn must not retain
// the *Session past its return; take a Snapshot for anything needed later.
func (st *Store) Update(id string, fn func(*Session) error) error {
	st.mu.RLock()
	e, ok := st.entries[id]
	st.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.sess)
}

// Evict removes a session from the live table. Subsequent lookups fail with
// ErrNotFound; an Update already holding the entry completes against the
// removed session and its result is discarded by the caller.
func (st *Store) Evict(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.entries, id)
}

// Len reports how many sessions are live.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.entries)
}
