package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armatrix/agent-broadcast-go/internal/engine"
)

// --- toolExecutorAdapter ---

func TestToolExecutorAdapter_Execute(t *testing.T) {
	registry := NewToolRegistry()
	RegisterTool(registry, &stubTool{name: "echo", desc: "echo tool"})

	adapter := &toolExecutorAdapter{registry: registry}
	text, isErr, err := adapter.Execute(context.Background(), "echo", json.RawMessage(`{"text":"hi"}`))

	require.NoError(t, err)
	assert.False(t, isErr)
	assert.Equal(t, "echo: hi", text)
}

func TestToolExecutorAdapter_Execute_NotFound(t *testing.T) {
	adapter := &toolExecutorAdapter{registry: NewToolRegistry()}

	_, _, err := adapter.Execute(context.Background(), "nonexistent", json.RawMessage(`{}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestToolExecutorAdapter_ListForAPI(t *testing.T) {
	registry := NewToolRegistry()
	RegisterTool(registry, &stubTool{name: "echo", desc: "echo tool"})

	tools := (&toolExecutorAdapter{registry: registry}).ListForAPI()
	require.Len(t, tools, 1)
	assert.Equal(t, "echo", tools[0].OfTool.Name)
}

// --- channelSink ---

func TestChannelSink_OnSystem(t *testing.T) {
	ch := make(chan Event, 1)
	a := NewAgent(WithName("alice"), WithModel(anthropic.ModelClaudeSonnet4_5))
	sink := &channelSink{ch: ch, sessionID: "sess-1", agent: a}

	sink.OnSystem()

	sys, ok := (<-ch).(*SystemEvent)
	require.True(t, ok)
	assert.Equal(t, "sess-1", sys.SessionID)
	assert.Equal(t, "alice", sys.AgentID)
	assert.Equal(t, anthropic.ModelClaudeSonnet4_5, sys.Model)
}

func TestChannelSink_OnAssistant(t *testing.T) {
	ch := make(chan Event, 1)
	sink := &channelSink{ch: ch, agent: NewAgent()}

	sink.OnAssistant(&engine.Turn{
		Text:        "hi",
		StopReason:  "tool_use",
		ToolCalls:   []engine.ToolCall{{ID: "tu_1", Name: "echo", Input: json.RawMessage(`{}`)}},
		InputTokens: 7,
	})

	ev, ok := (<-ch).(*AssistantEvent)
	require.True(t, ok)
	assert.Equal(t, "hi", ev.Reply.Text)
	assert.Equal(t, StopToolUse, ev.Reply.StopReason)
	require.Len(t, ev.Reply.ToolCalls, 1)
	assert.Equal(t, "echo", ev.Reply.ToolCalls[0].Name)
	assert.Equal(t, int64(7), ev.Reply.Usage.InputTokens)
}

func TestChannelSink_OnTool(t *testing.T) {
	ch := make(chan Event, 1)
	sink := &channelSink{ch: ch}

	sink.OnTool(engine.ToolInfo{ToolUseID: "tu_1", Name: "echo", Output: "x", IsError: true})

	ev, ok := (<-ch).(*ToolEvent)
	require.True(t, ok)
	assert.Equal(t, "tu_1", ev.ToolUseID)
	assert.True(t, ev.IsError)
}

func TestChannelSink_OnResult(t *testing.T) {
	ch := make(chan Event, 1)
	sink := &channelSink{ch: ch, sessionID: "sess-1"}

	sink.OnResult(engine.ResultInfo{Subtype: "success", NumTurns: 2, Result: "ok", OutputTokens: 5})

	ev, ok := (<-ch).(*ResultEvent)
	require.True(t, ok)
	assert.Equal(t, "sess-1", ev.SessionID)
	assert.Equal(t, 2, ev.NumTurns)
	assert.Equal(t, "ok", ev.Result)
	assert.Equal(t, int64(5), ev.Usage.OutputTokens)
}

// --- NewAgent ---

func TestNewAgent_Defaults(t *testing.T) {
	a := NewAgent()
	assert.NotEmpty(t, a.ID())
	assert.Equal(t, a.ID(), a.Name(), "name falls back to the id")
	assert.Equal(t, anthropic.Model(DefaultModel), a.Model())
	assert.Equal(t, DefaultMaxOutputTokens, a.MaxOutputTokens())
	assert.Nil(t, a.Backend())
	assert.NotNil(t, a.Logger())
	assert.Empty(t, a.Tools().Names())
}

// --- Run ---

func TestAgent_Run_ToolRoundTrip(t *testing.T) {
	backend := &scriptBackend{replies: []*Reply{
		toolReply("tu_1", "echo", map[string]string{"text": "hi"}),
		textReply("final"),
	}}
	var caller string
	a := NewAgent(WithName("alice"), WithSystemPrompt("be brief"), WithBackend(backend))
	RegisterTool(a.Tools(), &stubTool{name: "echo", seen: func(ctx context.Context) {
		caller = ContextAgentID(ctx)
	}})

	session := NewSession()
	events := collect(a.Run(context.Background(), session, "start"))

	require.NotEmpty(t, events)
	_, ok := events[0].(*SystemEvent)
	assert.True(t, ok)
	result, ok := events[len(events)-1].(*ResultEvent)
	require.True(t, ok)
	assert.False(t, result.IsError)
	assert.Equal(t, "final", result.Result)
	assert.Equal(t, 2, result.NumTurns)

	var tool *ToolEvent
	for _, ev := range events {
		if te, ok := ev.(*ToolEvent); ok {
			tool = te
		}
	}
	require.NotNil(t, tool)
	assert.Equal(t, "echo: hi", tool.Output)
	assert.Equal(t, "alice", caller)

	assert.Equal(t, 4, session.Len())
	assert.False(t, session.Running())

	calls := backend.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "be brief", calls[0].System)
	assert.Len(t, calls[0].Tools, 1)
	assert.Len(t, calls[1].Messages, 3)
}

func TestAgent_Run_NoBackend(t *testing.T) {
	stream := NewAgent().Run(context.Background(), NewSession(), "hi")
	result := stream.Drain()

	require.NotNil(t, result)
	assert.True(t, result.IsError)
	assert.Error(t, stream.Err())
	assert.Contains(t, result.Errors[0], ErrNoBackend.Error())
}

func TestAgent_Run_SessionBusy(t *testing.T) {
	session := NewSession()
	require.NoError(t, session.beginRun())

	a := NewAgent(WithBackend(&scriptBackend{}))
	result := a.Run(context.Background(), session, "hi").Drain()

	require.NotNil(t, result)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Errors[0], ErrRunInProgress.Error())
	assert.Equal(t, 0, session.Len())
}

func TestAgent_Run_BackendError(t *testing.T) {
	backend := &scriptBackend{errs: []error{errors.New("overloaded")}}
	stream := NewAgent(WithBackend(backend)).Run(context.Background(), NewSession(), "hi")
	result := stream.Drain()

	require.NotNil(t, result)
	assert.True(t, result.IsError)
	assert.Equal(t, "error_during_execution", result.Subtype)

	var runErr *RunError
	require.ErrorAs(t, stream.Err(), &runErr)
	assert.Equal(t, "overloaded", runErr.Message)
}

func TestAgent_Run_MaxTurns(t *testing.T) {
	backend := &scriptBackend{replies: []*Reply{
		toolReply("tu_1", "echo", map[string]string{"text": "a"}),
		toolReply("tu_2", "echo", map[string]string{"text": "b"}),
	}}
	a := NewAgent(WithBackend(backend), WithMaxTurns(1))
	RegisterTool(a.Tools(), &stubTool{name: "echo"})

	result := a.Run(context.Background(), NewSession(), "loop").Drain()
	require.NotNil(t, result)
	assert.Equal(t, "error_max_turns", result.Subtype)
	assert.Len(t, backend.calls(), 1)
}

func TestAgent_Run_UnknownToolIsErrorResult(t *testing.T) {
	backend := &scriptBackend{replies: []*Reply{
		toolReply("tu_1", "missing", map[string]string{}),
		textReply("recovered"),
	}}
	session := NewSession()
	result := NewAgent(WithBackend(backend)).Run(context.Background(), session, "go").Drain()

	require.NotNil(t, result)
	assert.False(t, result.IsError)
	msgs := session.Messages()
	require.Len(t, msgs, 4)
	tr := msgs[2].Content[0].OfToolResult
	require.NotNil(t, tr)
	assert.True(t, tr.IsError.Value)
}

func TestAgent_Run_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	backend := &scriptBackend{}
	result := NewAgent(WithBackend(backend)).Run(ctx, NewSession(), "hi").Drain()

	require.NotNil(t, result)
	assert.True(t, result.IsError)
	assert.Empty(t, backend.calls())
}
