package broadcast

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// HumanQANote accompanies a deferred result.
const HumanQANote = "The human has already answered questions in this session and will not be asked again. " +
	"Use these earlier answers to guide your decision; they may not address your exact question."

// Prompt is what the human operator is shown.
type Prompt struct {
	RequestID   string
	RequesterID string
	Question    string
	Deadline    time.Time
}

// HumanReply is the operator's input. Skipped means they declined to answer.
type HumanReply struct {
	Text    string
	Skipped bool
}

// Prompter displays a prompt to the human and waits for an answer until ctx
// is done.
type Prompter interface {
	Ask(ctx context.Context, p Prompt) (HumanReply, error)
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func(ctx context.Context, p Prompt) (HumanReply, error)

// Ask calls f.
func (f PrompterFunc) Ask(ctx context.Context, p Prompt) (HumanReply, error) { return f(ctx, p) }

// HistoryStore persists the human Q&A log of a session.
type HistoryStore interface {
	Load(ctx context.Context, sessionID string) ([]QAEntry, error)
	Append(ctx context.Context, sessionID string, e QAEntry) error
}

// HumanGate serializes access to the human operator. At most one prompt is
// shown at a time, waiters are served in arrival order, and once the human
// has answered anything every later request gets the recorded history
// instead of a new prompt.
type HumanGate struct {
	prompter  Prompter
	store     HistoryStore
	sessionID string
	logger    *slog.Logger
	now       func() time.Time

	lock fifoLock

	mu      sync.Mutex
	history []QAEntry
	showing int
}

var _ Responder = (*HumanGate)(nil)

// GateOption configures a HumanGate.
type GateOption func(*HumanGate)

// WithHistoryStore persists answers under sessionID.
func WithHistoryStore(store HistoryStore, sessionID string) GateOption {
	return func(g *HumanGate) {
		g.store = store
		g.sessionID = sessionID
	}
}

// WithGateLogger sets the gate's logger.
func WithGateLogger(l *slog.Logger) GateOption {
	return func(g *HumanGate) { g.logger = l }
}

// WithGateClock overrides time.Now.
func WithGateClock(now func() time.Time) GateOption {
	return func(g *HumanGate) { g.now = now }
}

// WithHistory seeds the gate with previously answered questions.
func WithHistory(entries []QAEntry) GateOption {
	return func(g *HumanGate) { g.history = append(g.history, entries...) }
}

// NewHumanGate creates a gate that asks through p.
func NewHumanGate(p Prompter, opts ...GateOption) *HumanGate {
	g := &HumanGate{
		prompter: p,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	g.logger = g.logger.With("component", "human_gate")
	return g
}

// Load appends the store's history for the gate's session. It is a no-op
// without a store.
func (g *HumanGate) Load(ctx context.Context) error {
	if g.store == nil {
		return nil
	}
	entries, err := g.store.Load(ctx, g.sessionID)
	if err != nil {
		return err
	}
	g.mu.Lock()
	g.history = append(g.history, entries...)
	g.mu.Unlock()
	return nil
}

func (g *HumanGate) ID() string          { return HumanResponderID }
func (g *HumanGate) Kind() ResponderKind { return KindHuman }

// History returns a copy of the answered questions.
func (g *HumanGate) History() []QAEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]QAEntry(nil), g.history...)
}

// Showing returns the number of prompts currently displayed (0 or 1).
func (g *HumanGate) Showing() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.showing
}

// Waiting returns the number of requests queued behind the current one.
func (g *HumanGate) Waiting() int { return g.lock.Waiting() }

// Respond implements Responder. The history check and the prompt happen
// under the gate lock.
func (g *HumanGate) Respond(ctx context.Context, q Question) Outcome {
	if err := g.lock.Lock(ctx); err != nil {
		g.logger.Info("gave up waiting for human", "request_id", q.RequestID, "requester", q.RequesterID)
		return Outcome{Status: StatusTimedOut, Err: err}
	}
	defer g.lock.Unlock()

	if history := g.History(); len(history) > 0 {
		g.logger.Info("reusing human answers", "request_id", q.RequestID, "entries", len(history))
		return Outcome{Status: StatusDeferred, History: history}
	}

	g.setShowing(1)
	reply, err := g.prompter.Ask(ctx, Prompt{
		RequestID:   q.RequestID,
		RequesterID: q.RequesterID,
		Question:    q.Text,
		Deadline:    q.Deadline,
	})
	g.setShowing(-1)

	answer := strings.TrimSpace(reply.Text)
	if err != nil || reply.Skipped || answer == "" {
		g.logger.Info("human did not answer", "request_id", q.RequestID, "skipped", reply.Skipped, "error", err)
		return Outcome{Status: StatusTimedOut, Err: err}
	}

	entry := QAEntry{Question: q.Text, Answer: answer, AnsweredAt: g.now()}
	g.mu.Lock()
	g.history = append(g.history, entry)
	g.mu.Unlock()

	if g.store != nil {
		// The in-memory log stays authoritative if persistence fails.
		if err := g.store.Append(context.WithoutCancel(ctx), g.sessionID, entry); err != nil {
			g.logger.Warn("persist human answer", "request_id", q.RequestID, "error", err)
		}
	}

	return Outcome{
		Status: StatusComplete,
		Responses: []Response{{
			ResponderID: HumanResponderID,
			Content:     answer,
			IsHuman:     true,
			CompletedAt: entry.AnsweredAt,
		}},
	}
}

func (g *HumanGate) setShowing(delta int) {
	g.mu.Lock()
	g.showing += delta
	g.mu.Unlock()
}
