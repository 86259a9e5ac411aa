package agent

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/armatrix/agent-broadcast-go/internal/engine"
)

// Agent is a stateless execution engine that holds identity, configuration
// and tools. The same Agent can be shared across goroutines; conversation
// state lives in a Session.
type Agent struct {
	id    string
	tools *ToolRegistry
	opts  agentOptions
}

// NewAgent creates a new Agent with the given options.
func NewAgent(opts ...AgentOption) *Agent {
	resolved := resolveOptions(opts)
	id := GenerateID(PrefixAgent)
	if resolved.name == "" {
		resolved.name = id
	}
	return &Agent{
		id:    id,
		tools: NewToolRegistry(),
		opts:  resolved,
	}
}

// ID returns the agent's generated identifier.
func (a *Agent) ID() string { return a.id }

// Name returns the agent's display name.
func (a *Agent) Name() string { return a.opts.name }

// Model returns the configured model.
func (a *Agent) Model() anthropic.Model { return a.opts.model }

// SystemPrompt returns the agent's persona.
func (a *Agent) SystemPrompt() string { return a.opts.systemPrompt }

// MaxOutputTokens returns the per-response output cap.
func (a *Agent) MaxOutputTokens() int { return a.opts.maxOutputTokens }

// Backend returns the configured model backend, or nil.
func (a *Agent) Backend() Backend { return a.opts.backend }

// Logger returns the agent's logger.
func (a *Agent) Logger() *slog.Logger { return a.opts.logger }

// Tools returns the agent's tool registry for registering custom tools.
func (a *Agent) Tools() *ToolRegistry { return a.tools }

// Run starts an agent execution on the given session. The prompt is appended
// as a user message and the loop runs in a background goroutine.
func (a *Agent) Run(ctx context.Context, session *Session, prompt string) *AgentStream {
	return a.run(ctx, session, prompt, nil)
}

// runObserver lets a Client follow a run without consuming the stream.
type runObserver interface {
	delta(text string)
	turnDone()
}

func (a *Agent) run(ctx context.Context, session *Session, prompt string, obs runObserver) *AgentStream {
	if a.opts.backend == nil {
		return errorStream(session, "error_during_execution", ErrNoBackend)
	}
	if err := session.beginRun(); err != nil {
		return errorStream(session, "error_during_execution", err)
	}

	session.Append(anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)))

	eventCh := make(chan Event, a.opts.streamBufferSize)
	stream := newStream(eventCh, session)

	ctx = WithContextAgentID(ctx, a.opts.name)
	ctx = WithContextSessionID(ctx, session.ID)

	cfg := engine.LoopConfig{
		Caller:  &backendCaller{agent: a},
		History: session,
		Tools:   &toolExecutorAdapter{registry: a.tools},
		Sink: &channelSink{
			ch:        eventCh,
			sessionID: session.ID,
			agent:     a,
			observer:  obs,
		},
		MaxTurns: a.opts.maxTurns,
	}

	go func() {
		defer close(eventCh)
		defer session.endRun()
		engine.RunLoop(ctx, cfg)
	}()

	return stream
}

// backendCaller adapts the agent's Backend to engine.Caller.
type backendCaller struct {
	agent *Agent
}

func (c *backendCaller) Call(ctx context.Context, messages []anthropic.MessageParam, tools []anthropic.ToolUnionParam, onDelta func(string)) (*engine.Turn, error) {
	reply, err := c.agent.opts.backend.Stream(ctx, Request{
		Model:     c.agent.opts.model,
		System:    c.agent.opts.systemPrompt,
		Messages:  messages,
		Tools:     tools,
		MaxTokens: c.agent.opts.maxOutputTokens,
	}, onDelta)
	if err != nil {
		return nil, err
	}
	calls := make([]engine.ToolCall, len(reply.ToolCalls))
	for i, tc := range reply.ToolCalls {
		calls[i] = engine.ToolCall{ID: tc.ID, Name: tc.Name, Input: tc.Input}
	}
	return &engine.Turn{
		Assistant:    reply.ToParam(),
		Text:         reply.Text,
		ToolCalls:    calls,
		StopReason:   string(reply.StopReason),
		InputTokens:  reply.Usage.InputTokens,
		OutputTokens: reply.Usage.OutputTokens,
	}, nil
}

// toolExecutorAdapter wraps ToolRegistry to implement engine.ToolExecutor.
type toolExecutorAdapter struct {
	registry *ToolRegistry
}

func (t *toolExecutorAdapter) Execute(ctx context.Context, name string, input json.RawMessage) (string, bool, error) {
	result, err := t.registry.Execute(ctx, name, input)
	if err != nil {
		return "", false, err
	}
	return result.Text(), result.IsError, nil
}

func (t *toolExecutorAdapter) ListForAPI() []anthropic.ToolUnionParam {
	return t.registry.ListForAPI()
}

// channelSink implements engine.EventSink by sending events to a channel.
type channelSink struct {
	ch        chan Event
	sessionID string
	agent     *Agent
	observer  runObserver
}

func (s *channelSink) OnSystem() {
	s.ch <- &SystemEvent{SessionID: s.sessionID, AgentID: s.agent.Name(), Model: s.agent.Model()}
}

func (s *channelSink) OnStream(delta string) {
	if s.observer != nil {
		s.observer.delta(delta)
	}
	s.ch <- &StreamEvent{Delta: delta}
}

func (s *channelSink) OnAssistant(turn *engine.Turn) {
	reply := &Reply{
		Text:       turn.Text,
		StopReason: StopReason(turn.StopReason),
		Model:      s.agent.Model(),
		Usage:      Usage{InputTokens: turn.InputTokens, OutputTokens: turn.OutputTokens},
	}
	for _, tc := range turn.ToolCalls {
		reply.ToolCalls = append(reply.ToolCalls, ToolCall{ID: tc.ID, Name: tc.Name, Input: tc.Input})
	}
	if s.observer != nil {
		s.observer.turnDone()
	}
	s.ch <- &AssistantEvent{Reply: reply}
}

func (s *channelSink) OnTool(info engine.ToolInfo) {
	s.ch <- &ToolEvent{
		ToolUseID: info.ToolUseID,
		Name:      info.Name,
		Output:    info.Output,
		IsError:   info.IsError,
	}
}

func (s *channelSink) OnResult(info engine.ResultInfo) {
	s.ch <- &ResultEvent{
		Subtype:    info.Subtype,
		SessionID:  s.sessionID,
		DurationMs: info.DurationMs,
		IsError:    info.IsError,
		NumTurns:   info.NumTurns,
		Usage:      Usage{InputTokens: info.InputTokens, OutputTokens: info.OutputTokens},
		Result:     info.Result,
		Errors:     info.Errors,
	}
}
