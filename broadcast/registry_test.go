package broadcast

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndComplete(t *testing.T) {
	r := NewRegistry(3)
	req, err := r.Register("alice", "OAuth2 or JWT?", ModeAgents, time.Minute)
	require.NoError(t, err)

	assert.NotEmpty(t, req.ID)
	assert.Equal(t, StatusPending, req.Status)
	assert.Equal(t, time.Minute, req.TimeoutAt.Sub(req.CreatedAt))
	assert.Equal(t, 1, r.Active("alice"))

	require.NoError(t, r.MarkFannedOut(req.ID))
	got, ok := r.Get(req.ID)
	require.True(t, ok)
	assert.Equal(t, StatusFannedOut, got.Status)

	done, err := r.Complete(req.ID, StatusComplete)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, done.Status)
	assert.Equal(t, 0, r.Active("alice"))
}

func TestRegistry_CompleteIsIdempotent(t *testing.T) {
	r := NewRegistry(3)
	req, err := r.Register("alice", "q", ModeAgents, time.Second)
	require.NoError(t, err)

	_, err = r.Complete(req.ID, StatusTimedOut)
	require.NoError(t, err)
	again, err := r.Complete(req.ID, StatusComplete)
	require.NoError(t, err)

	assert.Equal(t, StatusTimedOut, again.Status, "terminal status is frozen")
	assert.Equal(t, 0, r.Active("alice"), "counter decremented once")
}

func TestRegistry_CompleteRejectsNonTerminal(t *testing.T) {
	r := NewRegistry(1)
	req, err := r.Register("alice", "q", ModeAgents, time.Second)
	require.NoError(t, err)

	_, err = r.Complete(req.ID, StatusFannedOut)
	assert.ErrorIs(t, err, ErrNotTerminal)
	assert.Equal(t, 1, r.Active("alice"))
}

func TestRegistry_UnknownRequest(t *testing.T) {
	r := NewRegistry(1)
	_, err := r.Complete("missing", StatusComplete)
	assert.ErrorIs(t, err, ErrUnknownRequest)
	assert.ErrorIs(t, r.MarkFannedOut("missing"), ErrUnknownRequest)
	_, ok := r.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_RateLimit(t *testing.T) {
	r := NewRegistry(1)
	first, err := r.Register("alice", "one", ModeAgents, time.Second)
	require.NoError(t, err)

	_, err = r.Register("alice", "two", ModeAgents, time.Second)
	require.ErrorIs(t, err, ErrRateLimitExceeded)
	assert.Equal(t, 1, r.Len(), "rejected call creates no request")

	// Other agents have their own budget.
	_, err = r.Register("bob", "three", ModeAgents, time.Second)
	require.NoError(t, err)

	_, err = r.Complete(first.ID, StatusComplete)
	require.NoError(t, err)
	_, err = r.Register("alice", "four", ModeAgents, time.Second)
	assert.NoError(t, err)
}

func TestRegistry_ConcurrentRegisterNeverExceedsLimit(t *testing.T) {
	const limit = 10
	r := NewRegistry(limit)

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Register("alice", "q", ModeAgents, time.Second); err == nil {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(limit), admitted.Load())
	assert.Equal(t, limit, r.Active("alice"))
}

func TestRegistry_DefaultLimit(t *testing.T) {
	r := NewRegistry(0)
	for range DefaultMaxPerAgent {
		_, err := r.Register("alice", "q", ModeAgents, time.Second)
		require.NoError(t, err)
	}
	_, err := r.Register("alice", "q", ModeAgents, time.Second)
	assert.ErrorIs(t, err, ErrRateLimitExceeded)
}

func TestRegistry_Reset(t *testing.T) {
	r := NewRegistry(1)
	_, err := r.Register("alice", "q", ModeAgents, time.Second)
	require.NoError(t, err)

	r.Reset()
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0, r.Active("alice"))
	_, err = r.Register("alice", "q", ModeAgents, time.Second)
	assert.NoError(t, err)
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusFannedOut.Terminal())
	assert.True(t, StatusComplete.Terminal())
	assert.True(t, StatusDeferred.Terminal())
	assert.True(t, StatusTimedOut.Terminal())
}
