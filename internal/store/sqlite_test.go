// ABOUTME: Tests for the SQLite store
// ABOUTME: Covers seeding, session round-trips, message ordering, and upserts

package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketbot/haggle-gateway/internal/session"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "haggle.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSQLiteStore_SeedsProductCatalog(t *testing.T) {
	st := newTestStore(t)

	products, err := st.ListProducts(t.Context())
	require.NoError(t, err)
	assert.Len(t, products, len(DemoProducts()))
}

func TestSQLiteStore_GetProduct(t *testing.T) {
	st := newTestStore(t)

	p, err := st.GetProduct(t.Context(), "prod-001")
	require.NoError(t, err)
	assert.Equal(t, "prod-001", p.ID)
	assert.NotEmpty(t, p.Title)
	assert.Positive(t, p.Price)
}

func TestSQLiteStore_GetProductNotFound(t *testing.T) {
	st := newTestStore(t)

	_, err := st.GetProduct(t.Context(), "prod-999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_SessionRoundTrip(t *testing.T) {
	st := newTestStore(t)

	sess := &session.Session{
		ID: "sess-1",
		Params: session.Params{
			ProductID:   "prod-001",
			TargetPrice: 50000,
			MaxBudget:   60000,
			Approach:    session.ApproachAssertive,
		},
		Status:    session.StatusActive,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	sess.Append(session.NewMessage("sess-1", session.SenderSeller, "hello", session.TypeHuman))
	sess.Append(session.NewMessage("sess-1", session.SenderAI, "hi there", session.TypeAI))

	require.NoError(t, st.SaveSession(t.Context(), sess))

	loaded, err := st.LoadSession(t.Context(), "sess-1")
	require.NoError(t, err)

	assert.Equal(t, sess.ID, loaded.ID)
	assert.Equal(t, sess.Params, loaded.Params)
	assert.Equal(t, session.StatusActive, loaded.Status)
	assert.Nil(t, loaded.FinalPrice)
	assert.Nil(t, loaded.EndedAt)
	require.Len(t, loaded.Messages, 2)
	assert.Equal(t, "hello", loaded.Messages[0].Content)
	assert.Equal(t, "hi there", loaded.Messages[1].Content)
}

func TestSQLiteStore_LoadSessionNotFound(t *testing.T) {
	st := newTestStore(t)

	_, err := st.LoadSession(t.Context(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_ResaveIsUpsert(t *testing.T) {
	st := newTestStore(t)

	sess := &session.Session{
		ID: "sess-1",
		Params: session.Params{
			ProductID:   "prod-002",
			TargetPrice: 100000,
			MaxBudget:   120000,
			Approach:    session.ApproachDiplomatic,
		},
		Status:    session.StatusActive,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	sess.Append(session.NewMessage("sess-1", session.SenderSeller, "interested?", session.TypeHuman))
	require.NoError(t, st.SaveSession(t.Context(), sess))

	// End the session and save again; message rows must not duplicate.
	now := time.Now().UTC().Truncate(time.Second)
	price := 110000
	sess.Status = session.StatusCompleted
	sess.FinalPrice = &price
	sess.Outcome = "success"
	sess.EndedAt = &now
	sess.Append(session.NewMessage("sess-1", session.SenderAI, "deal", session.TypeAI))
	require.NoError(t, st.SaveSession(t.Context(), sess))

	loaded, err := st.LoadSession(t.Context(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, session.StatusCompleted, loaded.Status)
	require.NotNil(t, loaded.FinalPrice)
	assert.Equal(t, 110000, *loaded.FinalPrice)
	assert.Equal(t, "success", loaded.Outcome)
	require.NotNil(t, loaded.EndedAt)
	assert.Len(t, loaded.Messages, 2)
}

func TestSQLiteStore_MessageOrderSurvivesReload(t *testing.T) {
	st := newTestStore(t)

	sess := &session.Session{
		ID:        "sess-ord",
		Params:    session.Params{ProductID: "prod-001", TargetPrice: 1, MaxBudget: 2, Approach: session.ApproachDiplomatic},
		Status:    session.StatusActive,
		CreatedAt: time.Now().UTC(),
	}
	// Same-second timestamps on purpose; the insert sequence is what orders them.
	contents := []string{"first", "second", "third", "fourth"}
	for _, c := range contents {
		sess.Append(session.NewMessage("sess-ord", session.SenderSeller, c, session.TypeHuman))
	}
	require.NoError(t, st.SaveSession(t.Context(), sess))

	loaded, err := st.LoadSession(t.Context(), "sess-ord")
	require.NoError(t, err)
	require.Len(t, loaded.Messages, len(contents))
	for i, c := range contents {
		assert.Equal(t, c, loaded.Messages[i].Content)
	}
}
