// ABOUTME: Tests for the relay engine: seller turns, overrides, failure paths
// ABOUTME: Covers fan-out shapes, append-before-deliver, and turn serialization

package negotiation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketbot/haggle-gateway/internal/llm"
	"github.com/marketbot/haggle-gateway/internal/session"
)

func TestRelay_SellerTurnFullFanOut(t *testing.T) {
	f := newFixture(t)
	id := f.start(t)
	f.attachBoth(id)

	require.NoError(t, f.svc.OnSellerMessage(t.Context(), id, "Is 65000 okay?"))

	// History holds seller then agent, in that order.
	sess, err := f.svc.Get(t.Context(), id)
	require.NoError(t, err)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, session.SenderSeller, sess.Messages[0].Sender)
	assert.Equal(t, "Is 65000 okay?", sess.Messages[0].Content)
	assert.Equal(t, session.SenderAI, sess.Messages[1].Sender)
	assert.Equal(t, "I can offer 50000.", sess.Messages[1].Content)

	// The seller sees exactly one payload: the agent reply labeled as the buyer.
	sellerGot := f.seller.received()
	require.Len(t, sellerGot, 1)
	assert.Equal(t, EventMessage, sellerGot[0].Type)
	assert.Equal(t, WireSenderBuyer, sellerGot[0].Sender)
	assert.Equal(t, "I can offer 50000.", sellerGot[0].Message.Content)

	// The user sees the seller's raw text, then the labeled agent reply.
	userGot := f.user.received()
	require.Len(t, userGot, 2)
	assert.Equal(t, EventMessage, userGot[0].Type)
	assert.Equal(t, WireSenderSeller, userGot[0].Sender)
	assert.Equal(t, "Is 65000 okay?", userGot[0].Message.Content)
	assert.Equal(t, EventAIResponse, userGot[1].Type)
	assert.Equal(t, WireSenderAI, userGot[1].Sender)
}

func TestRelay_UserOverrideBypassesGeneration(t *testing.T) {
	f := newFixture(t)
	id := f.start(t)
	f.attachBoth(id)

	var calls int
	f.gen.fn = func(ctx context.Context, req *llm.Request) (string, error) {
		calls++
		return "", nil
	}

	require.NoError(t, f.svc.OnUserMessage(t.Context(), id, "Let me take over: 52000 final."))

	assert.Equal(t, 0, calls)

	sess, err := f.svc.Get(t.Context(), id)
	require.NoError(t, err)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, session.SenderUser, sess.Messages[0].Sender)
	assert.Equal(t, session.TypeOverride, sess.Messages[0].SenderType)

	// The seller sees the override attributed to the buyer.
	sellerGot := f.seller.received()
	require.Len(t, sellerGot, 1)
	assert.Equal(t, WireSenderBuyer, sellerGot[0].Sender)
	assert.Equal(t, "Let me take over: 52000 final.", sellerGot[0].Message.Content)

	// Nothing echoes back to the user side.
	assert.Empty(t, f.user.received())
}

func TestRelay_GenerationFailureStaysInvisibleToSeller(t *testing.T) {
	f := newFixture(t)
	id := f.start(t)
	f.attachBoth(id)

	f.gen.fn = func(ctx context.Context, req *llm.Request) (string, error) {
		return "", llm.ErrUnavailable
	}

	// The failed turn is not an error; the turn completed, degraded.
	require.NoError(t, f.svc.OnSellerMessage(t.Context(), id, "still interested?"))

	// Seller hears nothing at all.
	assert.Empty(t, f.seller.received())

	// User sees the seller message, then an error notification.
	userGot := f.user.received()
	require.Len(t, userGot, 2)
	assert.Equal(t, EventMessage, userGot[0].Type)
	assert.Equal(t, EventError, userGot[1].Type)
	assert.NotEmpty(t, userGot[1].Reason)

	// The seller message alone is in history; the session stays active.
	sess, err := f.svc.Get(t.Context(), id)
	require.NoError(t, err)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, session.StatusActive, sess.Status)
}

func TestRelay_GenerationTimeoutTreatedAsFailure(t *testing.T) {
	f := newFixture(t)
	f.svc.genTimeout = 20 * time.Millisecond
	id := f.start(t)
	f.attachBoth(id)

	f.gen.fn = func(ctx context.Context, req *llm.Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}

	require.NoError(t, f.svc.OnSellerMessage(t.Context(), id, "hello?"))

	assert.Empty(t, f.seller.received())
	userGot := f.user.received()
	require.Len(t, userGot, 2)
	assert.Equal(t, EventError, userGot[1].Type)
}

func TestRelay_AbsentPeersStillAppendAndPersist(t *testing.T) {
	f := newFixture(t)
	id := f.start(t)
	// Nobody attached at all.

	require.NoError(t, f.svc.OnSellerMessage(t.Context(), id, "anyone there?"))

	sess, err := f.svc.Get(t.Context(), id)
	require.NoError(t, err)
	assert.Len(t, sess.Messages, 2)

	saved, err := f.store.LoadSession(t.Context(), id)
	require.NoError(t, err)
	assert.Len(t, saved.Messages, 2)
}

func TestRelay_UnknownSession(t *testing.T) {
	f := newFixture(t)

	err := f.svc.OnSellerMessage(t.Context(), "never-existed", "hi")
	assert.ErrorIs(t, err, session.ErrNotFound)

	err = f.svc.OnUserMessage(t.Context(), "never-existed", "hi")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestRelay_EndedSessionRejectsTurns(t *testing.T) {
	f := newFixture(t)
	id := f.start(t)
	require.NoError(t, f.svc.End(t.Context(), id, Outcome{Result: "cancelled"}))

	// Eviction removed the live session; turns report not-found.
	err := f.svc.OnSellerMessage(t.Context(), id, "wait, one more thing")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestRelay_GenerationSeesBoundedHistoryWindow(t *testing.T) {
	f := newFixture(t)
	id := f.start(t)

	var seen int
	f.gen.fn = func(ctx context.Context, req *llm.Request) (string, error) {
		seen = len(req.History)
		return "noted", nil
	}

	for i := 0; i < 8; i++ {
		require.NoError(t, f.svc.OnSellerMessage(t.Context(), id, "message"))
	}

	// Default window is 6; the request never carries more than that.
	assert.Equal(t, 6, seen)
}

func TestRelay_LateGenerationResultDiscardedAfterEnd(t *testing.T) {
	f := newFixture(t)
	id := f.start(t)
	f.attachBoth(id)

	generating := make(chan struct{})
	release := make(chan struct{})
	f.gen.fn = func(ctx context.Context, req *llm.Request) (string, error) {
		close(generating)
		<-release
		return "too late", nil
	}

	done := make(chan error, 1)
	go func() {
		done <- f.svc.OnSellerMessage(context.Background(), id, "thinking it over")
	}()

	<-generating
	require.NoError(t, f.svc.End(t.Context(), id, Outcome{Result: "cancelled"}))
	close(release)

	require.NoError(t, <-done)

	// The reply produced after End never reaches the seller or the record.
	var sawReply bool
	for _, p := range f.seller.received() {
		if p.Message != nil && p.Message.Content == "too late" {
			sawReply = true
		}
	}
	assert.False(t, sawReply)

	saved, err := f.store.LoadSession(t.Context(), id)
	require.NoError(t, err)
	for _, m := range saved.Messages {
		assert.NotEqual(t, "too late", m.Content)
	}
}

func TestRelay_SessionsProceedIndependently(t *testing.T) {
	f := newFixture(t)
	slowID := f.start(t)
	fastID := f.start(t)

	blocking := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.gen.fn = func(ctx context.Context, req *llm.Request) (string, error) {
		if len(req.History) > 0 && req.History[0].SessionID == slowID {
			once.Do(func() { close(blocking) })
			<-release
		}
		return "reply", nil
	}

	done := make(chan error, 1)
	go func() {
		done <- f.svc.OnSellerMessage(context.Background(), slowID, "slow turn")
	}()
	<-blocking

	// The other session's turn completes while the first is mid-generation.
	finished := make(chan error, 1)
	go func() {
		finished <- f.svc.OnSellerMessage(context.Background(), fastID, "fast turn")
	}()

	select {
	case err := <-finished:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("independent session was blocked by another session's generation")
	}

	close(release)
	require.NoError(t, <-done)
}

func TestRelay_SecondSellerMessageWaitsForTurn(t *testing.T) {
	f := newFixture(t)
	id := f.start(t)

	started := make(chan struct{}, 2)
	release := make(chan struct{})
	f.gen.fn = func(ctx context.Context, req *llm.Request) (string, error) {
		started <- struct{}{}
		<-release
		return "reply", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.svc.OnSellerMessage(context.Background(), id, "turn"))
		}()
	}

	// Only one generation may be in flight for a single session.
	<-started
	select {
	case <-started:
		t.Fatal("second turn entered generation while the first held the turn")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	wg.Wait()

	sess, err := f.svc.Get(t.Context(), id)
	require.NoError(t, err)
	assert.Len(t, sess.Messages, 4)
}
