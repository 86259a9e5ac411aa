package agent

import (
	"context"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
)

// Client is a stateful container that wraps an Agent and its Session. It
// maintains conversation history across Query calls and tracks the text the
// model is streaming right now, so other goroutines can take a consistent
// snapshot of the live agent.
type Client struct {
	agent   *Agent
	session *Session

	mu         sync.Mutex
	cancel     context.CancelFunc // cancel for current Query
	inProgress strings.Builder
}

// ClientSnapshot is a copy-on-read view of a Client's state.
type ClientSnapshot struct {
	Messages   []anthropic.MessageParam
	InProgress string
}

// NewClient creates a new Client with its own Agent configured by the given options.
func NewClient(opts ...AgentOption) *Client {
	return NewClientWithAgent(NewAgent(opts...))
}

// NewClientWithAgent creates a Client with a fresh session around an existing Agent.
func NewClientWithAgent(a *Agent) *Client {
	return &Client{
		agent:   a,
		session: NewSession(),
	}
}

// Query sends a prompt to the agent within the client's ongoing session.
func (c *Client) Query(ctx context.Context, prompt string) *AgentStream {
	c.mu.Lock()
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.inProgress.Reset()
	c.mu.Unlock()

	return c.agent.run(ctx, c.session, prompt, c)
}

// Interrupt cancels the currently running Query, if any.
func (c *Client) Interrupt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// InProgress returns the text streamed so far in the current model turn.
func (c *Client) InProgress() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inProgress.String()
}

// Snapshot copies the history and in-progress text under one lock so the
// two halves are consistent with each other.
func (c *Client) Snapshot() ClientSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ClientSnapshot{
		Messages:   c.session.Snapshot(),
		InProgress: c.inProgress.String(),
	}
}

// Notify injects an informational message into the client's session.
func (c *Client) Notify(text string) bool {
	return c.session.Notify(text)
}

// Fork creates a new Client that shares the same Agent but has a cloned session.
func (c *Client) Fork() *Client {
	return &Client{
		agent:   c.agent,
		session: c.session.Clone(),
	}
}

// Session returns the client's current session.
func (c *Client) Session() *Session {
	return c.session
}

// Agent returns the underlying Agent.
func (c *Client) Agent() *Agent {
	return c.agent
}

func (c *Client) delta(text string) {
	c.mu.Lock()
	c.inProgress.WriteString(text)
	c.mu.Unlock()
}

// turnDone clears the in-progress buffer once the turn lands in the history.
// The session append happens right after, so a snapshot may briefly see
// neither; it never sees the same text twice.
func (c *Client) turnDone() {
	c.mu.Lock()
	c.inProgress.Reset()
	c.mu.Unlock()
}
