package teams

import (
	"context"
	"sync/atomic"

	agent "github.com/armatrix/agent-broadcast-go"
	"github.com/armatrix/agent-broadcast-go/broadcast"
)

// MemberStatus tracks the current state of a team member.
type MemberStatus int32

const (
	// MemberIdle means the member is waiting for work.
	MemberIdle MemberStatus = iota
	// MemberWorking means the member is actively running.
	MemberWorking
	// MemberShutdown means the member has been stopped.
	MemberShutdown
)

func (s MemberStatus) String() string {
	switch s {
	case MemberIdle:
		return "idle"
	case MemberWorking:
		return "working"
	case MemberShutdown:
		return "shutdown"
	}
	return "unknown"
}

// Member is a single named agent within a team. It is the broadcast peer
// for that agent: shadows are built from its snapshot and notices land in
// its session.
type Member struct {
	name   string
	client *agent.Client
	status atomic.Int32
}

var _ broadcast.Peer = (*Member)(nil)

// NewMember wraps a client under name.
func NewMember(name string, c *agent.Client) *Member {
	return &Member{name: name, client: c}
}

// ID returns the member's name, which is also its identity in broadcasts.
func (m *Member) ID() string { return m.name }

// Name returns the member's display name.
func (m *Member) Name() string { return m.name }

// AgentID returns the underlying agent's generated id.
func (m *Member) AgentID() string { return m.client.Agent().ID() }

// Client returns the member's client.
func (m *Member) Client() *agent.Client { return m.client }

// Status returns the member's current status.
func (m *Member) Status() MemberStatus { return MemberStatus(m.status.Load()) }

// SetStatus atomically updates the member's status.
func (m *Member) SetStatus(s MemberStatus) { m.status.Store(int32(s)) }

// Snapshot implements broadcast.Peer.
func (m *Member) Snapshot() broadcast.ShadowContext {
	a := m.client.Agent()
	snap := m.client.Snapshot()
	return broadcast.ShadowContext{
		AgentID:    m.name,
		Persona:    a.SystemPrompt(),
		Model:      a.Model(),
		MaxTokens:  a.MaxOutputTokens(),
		Messages:   snap.Messages,
		InProgress: snap.InProgress,
		Tools:      a.Tools().Names(),
		Backend:    a.Backend(),
	}
}

// Notify implements broadcast.Peer.
func (m *Member) Notify(n broadcast.Notice) {
	m.client.Notify(n.Text())
}

// Run sends prompt to the member's agent and forwards every event to events,
// which may be nil. It returns the run's result event, or nil if the run
// produced none.
func (m *Member) Run(ctx context.Context, prompt string, events chan<- *Event) *agent.ResultEvent {
	if m.Status() == MemberShutdown {
		return nil
	}
	m.SetStatus(MemberWorking)
	defer func() {
		if m.Status() == MemberWorking {
			m.SetStatus(MemberIdle)
		}
	}()

	var result *agent.ResultEvent
	stream := m.client.Query(ctx, prompt)
	for stream.Next() {
		ev := stream.Current()
		if r, ok := ev.(*agent.ResultEvent); ok {
			result = r
		}
		if events == nil {
			continue
		}
		select {
		case events <- &Event{MemberName: m.name, AgentEvent: ev}:
		case <-ctx.Done():
		}
	}
	return result
}

// Stop marks the member shut down and interrupts any running query.
func (m *Member) Stop() {
	m.SetStatus(MemberShutdown)
	m.client.Interrupt()
}
