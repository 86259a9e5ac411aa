package agent

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
)

// scriptBackend replays replies in order and records every request.
type scriptBackend struct {
	mu       sync.Mutex
	replies  []*Reply
	errs     []error
	requests []Request
}

func (b *scriptBackend) Stream(ctx context.Context, req Request, onDelta func(string)) (*Reply, error) {
	b.mu.Lock()
	i := len(b.requests)
	b.requests = append(b.requests, req)
	b.mu.Unlock()

	if i < len(b.errs) && b.errs[i] != nil {
		return nil, b.errs[i]
	}
	if i >= len(b.replies) {
		return &Reply{Text: "done", StopReason: StopEndTurn}, nil
	}
	r := b.replies[i]
	if onDelta != nil && r.Text != "" {
		onDelta(r.Text)
	}
	return r, nil
}

func (b *scriptBackend) calls() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Request, len(b.requests))
	copy(out, b.requests)
	return out
}

func textReply(text string) *Reply {
	return &Reply{Text: text, StopReason: StopEndTurn}
}

func toolReply(id, name string, input any) *Reply {
	raw, _ := json.Marshal(input)
	return &Reply{
		ToolCalls:  []ToolCall{{ID: id, Name: name, Input: raw}},
		StopReason: StopToolUse,
	}
}

// echoInput is the input for stubTool.
type echoInput struct {
	Text string `json:"text" jsonschema:"required,description=Text to echo"`
}

type stubTool struct {
	name string
	desc string
	seen func(ctx context.Context)
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return s.desc }

func (s *stubTool) Execute(ctx context.Context, in echoInput) (*ToolResult, error) {
	if s.seen != nil {
		s.seen(ctx)
	}
	return TextResult("echo: " + in.Text), nil
}

var _ Tool[echoInput] = (*stubTool)(nil)

func userText(m anthropic.MessageParam) []string {
	var out []string
	for _, b := range m.Content {
		if b.OfText != nil {
			out = append(out, b.OfText.Text)
		}
	}
	return out
}

func collect(s *AgentStream) []Event {
	var events []Event
	for s.Next() {
		events = append(events, s.Current())
	}
	return events
}
