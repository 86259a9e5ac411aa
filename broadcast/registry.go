package broadcast

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Registry tracks outstanding broadcasts and enforces the per-agent limit.
// One registry lives for one coordination session.
type Registry struct {
	maxPerAgent int64
	now         func() time.Time

	mu       sync.Mutex
	requests map[string]*Request

	counters sync.Map // agent id -> *atomic.Int64
}

// NewRegistry creates a registry. maxPerAgent <= 0 uses DefaultMaxPerAgent.
func NewRegistry(maxPerAgent int) *Registry {
	if maxPerAgent <= 0 {
		maxPerAgent = DefaultMaxPerAgent
	}
	return &Registry{
		maxPerAgent: int64(maxPerAgent),
		now:         time.Now,
		requests:    make(map[string]*Request),
	}
}

func (r *Registry) counter(agentID string) *atomic.Int64 {
	if c, ok := r.counters.Load(agentID); ok {
		return c.(*atomic.Int64)
	}
	c, _ := r.counters.LoadOrStore(agentID, new(atomic.Int64))
	return c.(*atomic.Int64)
}

// Register admits a new request for requesterID. It fails with
// ErrRateLimitExceeded, creating no state, when the requester already has
// maxPerAgent requests outstanding.
func (r *Registry) Register(requesterID, question string, mode Mode, timeout time.Duration) (Request, error) {
	c := r.counter(requesterID)
	for {
		n := c.Load()
		if n >= r.maxPerAgent {
			return Request{}, fmt.Errorf("%w: %s has %d outstanding broadcasts (max %d)",
				ErrRateLimitExceeded, requesterID, n, r.maxPerAgent)
		}
		if c.CompareAndSwap(n, n+1) {
			break
		}
	}

	now := r.now()
	req := &Request{
		ID:          uuid.NewString(),
		RequesterID: requesterID,
		Question:    question,
		Mode:        mode,
		CreatedAt:   now,
		TimeoutAt:   now.Add(max(timeout, 0)),
		Status:      StatusPending,
	}

	r.mu.Lock()
	r.requests[req.ID] = req
	r.mu.Unlock()
	return *req, nil
}

// MarkFannedOut moves a pending request to fanned_out. Other states are left
// untouched.
func (r *Registry) MarkFannedOut(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRequest, id)
	}
	if req.Status == StatusPending {
		req.Status = StatusFannedOut
	}
	return nil
}

// Complete moves a request to a terminal status and releases the requester's
// slot. Completing an already terminal request returns it unchanged.
func (r *Registry) Complete(id string, status Status) (Request, error) {
	if !status.Terminal() {
		return Request{}, fmt.Errorf("%w: %s", ErrNotTerminal, status)
	}

	r.mu.Lock()
	req, ok := r.requests[id]
	if !ok {
		r.mu.Unlock()
		return Request{}, fmt.Errorf("%w: %s", ErrUnknownRequest, id)
	}
	if req.Status.Terminal() {
		out := *req
		r.mu.Unlock()
		return out, nil
	}
	req.Status = status
	out := *req
	r.mu.Unlock()

	r.counter(out.RequesterID).Add(-1)
	return out, nil
}

// Get returns a copy of the request.
func (r *Registry) Get(id string) (Request, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return Request{}, false
	}
	return *req, true
}

// Active returns the number of non-terminal requests owned by agentID.
func (r *Registry) Active(agentID string) int {
	return int(r.counter(agentID).Load())
}

// Len returns the number of requests known to the registry.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

// Reset drops every request and counter. Call at session end.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.requests = make(map[string]*Request)
	r.mu.Unlock()
	r.counters.Clear()
}
