package broadcast

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	agent "github.com/armatrix/agent-broadcast-go"
)

// --- Fake backends ---

// replyBackend answers every call with text.
func replyBackend(text string) agent.Backend {
	return agent.BackendFunc(func(ctx context.Context, req agent.Request, onDelta func(string)) (*agent.Reply, error) {
		return &agent.Reply{Text: text, StopReason: agent.StopEndTurn}, nil
	})
}

// errorBackend fails every call.
func errorBackend(err error) agent.Backend {
	return agent.BackendFunc(func(ctx context.Context, req agent.Request, onDelta func(string)) (*agent.Reply, error) {
		return nil, err
	})
}

// blockingBackend waits for release or ctx, then answers with text.
func blockingBackend(text string, release <-chan struct{}) agent.Backend {
	return agent.BackendFunc(func(ctx context.Context, req agent.Request, onDelta func(string)) (*agent.Reply, error) {
		select {
		case <-release:
			return &agent.Reply{Text: text, StopReason: agent.StopEndTurn}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}

// recordingBackend stores every request it sees.
type recordingBackend struct {
	mu       sync.Mutex
	requests []agent.Request
	text     string
}

func (b *recordingBackend) Stream(ctx context.Context, req agent.Request, onDelta func(string)) (*agent.Reply, error) {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.mu.Unlock()
	return &agent.Reply{Text: b.text, StopReason: agent.StopEndTurn}, nil
}

func (b *recordingBackend) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

// --- Fake peers ---

type fakePeer struct {
	id      string
	persona string
	backend agent.Backend
	history []anthropic.MessageParam

	mu      sync.Mutex
	notices []Notice
	snaps   atomic.Int32
}

func newPeer(id string, b agent.Backend) *fakePeer {
	return &fakePeer{
		id:      id,
		persona: "You are " + id + ".",
		backend: b,
		history: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("Design the login flow.")),
			anthropic.NewAssistantMessage(anthropic.NewTextBlock(id + " is drafting.")),
		},
	}
}

func (p *fakePeer) ID() string { return p.id }

func (p *fakePeer) Snapshot() ShadowContext {
	p.snaps.Add(1)
	return ShadowContext{
		AgentID:  p.id,
		Persona:  p.persona,
		Model:    anthropic.ModelClaudeSonnet4_5,
		Messages: append([]anthropic.MessageParam(nil), p.history...),
		Backend:  p.backend,
	}
}

func (p *fakePeer) Notify(n Notice) {
	p.mu.Lock()
	p.notices = append(p.notices, n)
	p.mu.Unlock()
}

func (p *fakePeer) Notices() []Notice {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Notice(nil), p.notices...)
}

// --- Fake prompters ---

func answerPrompter(answer string, calls *atomic.Int32) Prompter {
	return PrompterFunc(func(ctx context.Context, p Prompt) (HumanReply, error) {
		calls.Add(1)
		return HumanReply{Text: answer}, nil
	})
}

func silentPrompter(calls *atomic.Int32) Prompter {
	return PrompterFunc(func(ctx context.Context, p Prompt) (HumanReply, error) {
		calls.Add(1)
		<-ctx.Done()
		return HumanReply{}, ctx.Err()
	})
}

func agentsConfig(timeout time.Duration) Config {
	cfg := DefaultConfig()
	cfg.Mode = ModeAgents
	cfg.Timeout = timeout
	return cfg
}

func humanConfig(timeout time.Duration) Config {
	cfg := DefaultConfig()
	cfg.Mode = ModeHuman
	cfg.Timeout = timeout
	return cfg
}
