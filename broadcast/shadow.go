package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	agent "github.com/armatrix/agent-broadcast-go"
)

// ShadowContext is a point-in-time copy of a peer agent's state, taken when
// its shadow is spawned. The shadow owns it; the live agent never sees it
// again.
type ShadowContext struct {
	AgentID    string
	Persona    string
	Model      anthropic.Model
	MaxTokens  int
	Messages   []anthropic.MessageParam
	InProgress string
	Tools      []string
	Backend    agent.Backend
}

// ShadowResponder answers one question on behalf of a peer, from that peer's
// snapshot, with a single tool-less model call.
type ShadowResponder struct {
	snap      ShadowContext
	workflow  *toolMatcher
	maxTokens int
	logger    *slog.Logger
	now       func() time.Time
}

var _ Responder = (*ShadowResponder)(nil)

// NewShadowResponder creates a shadow for snap. workflowTools are doublestar
// patterns of tools hidden from the shadow; nil uses DefaultWorkflowTools.
func NewShadowResponder(snap ShadowContext, workflowTools []string) (*ShadowResponder, error) {
	if workflowTools == nil {
		workflowTools = DefaultWorkflowTools
	}
	m, err := newToolMatcher(workflowTools)
	if err != nil {
		return nil, err
	}
	return newShadow(snap, m, 0, slog.Default(), time.Now), nil
}

func newShadow(snap ShadowContext, m *toolMatcher, maxTokens int, logger *slog.Logger, now func() time.Time) *ShadowResponder {
	if maxTokens <= 0 {
		maxTokens = snap.MaxTokens
	}
	if maxTokens <= 0 {
		maxTokens = agent.DefaultShadowMaxOutputTokens
	}
	return &ShadowResponder{
		snap:      snap,
		workflow:  m,
		maxTokens: maxTokens,
		logger:    logger,
		now:       now,
	}
}

func (s *ShadowResponder) ID() string          { return s.snap.AgentID }
func (s *ShadowResponder) Kind() ResponderKind { return KindAgentShadow }

// Respond performs the shadow's model call. A cancelled or failed call
// yields an Outcome with Err set and no responses.
func (s *ShadowResponder) Respond(ctx context.Context, q Question) Outcome {
	if s.snap.Backend == nil {
		return Outcome{Status: StatusTimedOut, Err: fmt.Errorf("%w: %s", ErrNoBackend, s.snap.AgentID)}
	}

	s.logger.Debug("shadow answering", "request_id", q.RequestID, "parent", s.snap.AgentID, "history", len(s.snap.Messages))
	reply, err := s.snap.Backend.Stream(ctx, s.Request(q), nil)
	if ctx.Err() != nil {
		return Outcome{Status: StatusTimedOut, Err: ctx.Err()}
	}
	if err != nil {
		return Outcome{Status: StatusTimedOut, Err: fmt.Errorf("%w: %s: %w", ErrShadowGeneration, s.snap.AgentID, err)}
	}

	content := strings.TrimSpace(reply.Text)
	if content == "" {
		return Outcome{Status: StatusTimedOut, Err: fmt.Errorf("%w: shadow of %s", ErrEmptyAnswer, s.snap.AgentID)}
	}
	return Outcome{
		Status: StatusComplete,
		Responses: []Response{{
			ResponderID: s.snap.AgentID,
			Content:     content,
			CompletedAt: s.now(),
		}},
	}
}

// Request builds the model call: the parent's persona verbatim, its history
// flattened to plain text, and a final user turn carrying the in-progress
// work and the question. No tools are offered.
func (s *ShadowResponder) Request(q Question) agent.Request {
	msgs := flattenHistory(s.snap.Messages, s.workflow)
	msgs = appendUserText(msgs, s.prompt(q))
	return agent.Request{
		Model:     s.snap.Model,
		System:    s.snap.Persona,
		Messages:  msgs,
		MaxTokens: s.maxTokens,
	}
}

func (s *ShadowResponder) prompt(q Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Another agent working on the same task, %s, is asking for your input:\n\n%s\n", q.RequesterID, q.Text)
	if in := strings.TrimSpace(s.snap.InProgress); in != "" {
		fmt.Fprintf(&b, "\nYou were in the middle of writing this when the question arrived:\n\n%s\n", in)
	}
	if tools := s.visibleTools(); len(tools) > 0 {
		fmt.Fprintf(&b, "\nTools you have been using (not callable now): %s\n", strings.Join(tools, ", "))
	}
	b.WriteString("\nAnswer from your own perspective and current understanding of the work. Reply in plain text only; you cannot call tools here.")
	return b.String()
}

func (s *ShadowResponder) visibleTools() []string {
	var out []string
	for _, name := range s.snap.Tools {
		if !s.workflow.Match(name) {
			out = append(out, name)
		}
	}
	return out
}

// flattenHistory renders tool activity as text so the copy is valid without
// tool definitions. Workflow tool calls and their results are dropped.
// Consecutive messages with the same role are merged.
func flattenHistory(in []anthropic.MessageParam, workflow *toolMatcher) []anthropic.MessageParam {
	dropped := make(map[string]bool)
	out := make([]anthropic.MessageParam, 0, len(in))

	for _, msg := range in {
		var blocks []anthropic.ContentBlockParamUnion
		for _, block := range msg.Content {
			switch {
			case block.OfText != nil:
				if block.OfText.Text != "" {
					blocks = append(blocks, anthropic.NewTextBlock(block.OfText.Text))
				}
			case block.OfToolUse != nil:
				use := block.OfToolUse
				if workflow.Match(use.Name) {
					dropped[use.ID] = true
					continue
				}
				blocks = append(blocks, anthropic.NewTextBlock(fmt.Sprintf("[called tool %s with %s]", use.Name, renderInput(use.Input))))
			case block.OfToolResult != nil:
				res := block.OfToolResult
				if dropped[res.ToolUseID] {
					continue
				}
				label := "tool result"
				if res.IsError.Value {
					label = "tool error"
				}
				blocks = append(blocks, anthropic.NewTextBlock(fmt.Sprintf("[%s: %s]", label, renderResult(res.Content))))
			}
		}
		if len(blocks) == 0 {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == msg.Role {
			out[n-1].Content = append(out[n-1].Content, blocks...)
			continue
		}
		out = append(out, anthropic.MessageParam{Role: msg.Role, Content: blocks})
	}

	// The API requires the conversation to open with a user turn.
	for len(out) > 0 && out[0].Role != anthropic.MessageParamRoleUser {
		out = out[1:]
	}
	return out
}

func appendUserText(msgs []anthropic.MessageParam, text string) []anthropic.MessageParam {
	if n := len(msgs); n > 0 && msgs[n-1].Role == anthropic.MessageParamRoleUser {
		msgs[n-1].Content = append(msgs[n-1].Content, anthropic.NewTextBlock(text))
		return msgs
	}
	return append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
}

func renderInput(input any) string {
	switch v := input.(type) {
	case nil:
		return "{}"
	case json.RawMessage:
		return string(v)
	case []byte:
		return string(v)
	case string:
		return v
	}
	data, err := json.Marshal(input)
	if err != nil {
		return fmt.Sprintf("%v", input)
	}
	return string(data)
}

func renderResult(content []anthropic.ToolResultBlockParamContentUnion) string {
	var parts []string
	for _, c := range content {
		switch {
		case c.OfText != nil:
			parts = append(parts, c.OfText.Text)
		case c.OfImage != nil:
			parts = append(parts, "<image>")
		case c.OfDocument != nil:
			parts = append(parts, "<document>")
		}
	}
	return strings.Join(parts, "\n")
}
