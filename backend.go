package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
)

// Backend turns a prompt into a response. The agent loop and broadcast
// shadows both talk to the model exclusively through this interface, so tests
// can substitute a scripted implementation.
type Backend interface {
	// Stream performs one model call. onDelta, when non-nil, receives text
	// deltas as they arrive.
	Stream(ctx context.Context, req Request, onDelta func(string)) (*Reply, error)
}

// BackendFunc adapts a plain function to the Backend interface.
type BackendFunc func(ctx context.Context, req Request, onDelta func(string)) (*Reply, error)

// Stream calls f.
func (f BackendFunc) Stream(ctx context.Context, req Request, onDelta func(string)) (*Reply, error) {
	return f(ctx, req, onDelta)
}

// Request is a single model call.
type Request struct {
	Model     anthropic.Model
	System    string
	Messages  []anthropic.MessageParam
	Tools     []anthropic.ToolUnionParam
	MaxTokens int
}

// StopReason mirrors the API stop reasons the loop cares about.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
)

// ToolCall is a tool_use block requested by the model.
type ToolCall struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// Reply is the backend-neutral result of one model call.
type Reply struct {
	Text       string
	ToolCalls  []ToolCall
	StopReason StopReason
	Model      anthropic.Model
	Usage      Usage
}

// ToParam converts the reply into an assistant message for the history.
func (r *Reply) ToParam() anthropic.MessageParam {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(r.ToolCalls)+1)
	if r.Text != "" {
		blocks = append(blocks, anthropic.NewTextBlock(r.Text))
	}
	for _, call := range r.ToolCalls {
		blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, call.Input, call.Name))
	}
	return anthropic.NewAssistantMessage(blocks...)
}

// MessageStreamer abstracts the Anthropic Messages API so the backend can be
// tested with a mock. Production code passes the real client.Messages.
type MessageStreamer interface {
	NewStreaming(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) *ssestream.Stream[anthropic.MessageStreamEventUnion]
}

// AnthropicBackend calls the Anthropic Messages API with streaming.
type AnthropicBackend struct {
	streamer MessageStreamer

	// FallbackModel is used when the primary model returns overloaded or
	// unavailable. Empty means errors propagate immediately.
	FallbackModel anthropic.Model
}

var _ Backend = (*AnthropicBackend)(nil)

// NewAnthropicBackend creates a backend from request options
// (API key, base URL, ...). With no options the SDK reads ANTHROPIC_API_KEY.
func NewAnthropicBackend(opts ...option.RequestOption) *AnthropicBackend {
	client := anthropic.NewClient(opts...)
	return &AnthropicBackend{streamer: &client.Messages}
}

// NewAnthropicBackendWithStreamer wraps an existing streamer.
func NewAnthropicBackendWithStreamer(s MessageStreamer) *AnthropicBackend {
	return &AnthropicBackend{streamer: s}
}

// Stream implements Backend.
func (b *AnthropicBackend) Stream(ctx context.Context, req Request, onDelta func(string)) (*Reply, error) {
	params := anthropic.MessageNewParams{
		Model:     req.Model,
		MaxTokens: int64(req.MaxTokens),
		Messages:  req.Messages,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = req.Tools
	}

	msg, err := b.stream(ctx, params, onDelta)
	if err != nil && b.FallbackModel != "" && params.Model != b.FallbackModel && isRetryableError(err) {
		params.Model = b.FallbackModel
		msg, err = b.stream(ctx, params, onDelta)
	}
	if err != nil {
		return nil, err
	}
	return replyFromMessage(msg, params.Model), nil
}

func (b *AnthropicBackend) stream(ctx context.Context, params anthropic.MessageNewParams, onDelta func(string)) (*anthropic.Message, error) {
	stream := b.streamer.NewStreaming(ctx, params)
	defer stream.Close()

	msg := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := msg.Accumulate(event); err != nil {
			return nil, fmt.Errorf("accumulate error: %w", err)
		}
		if onDelta != nil && event.Type == "content_block_delta" && event.Delta.Type == "text_delta" && event.Delta.Text != "" {
			onDelta(event.Delta.Text)
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("stream error: %w", err)
	}
	return &msg, nil
}

// replyFromMessage flattens an accumulated API message.
func replyFromMessage(msg *anthropic.Message, model anthropic.Model) *Reply {
	reply := &Reply{
		StopReason: StopReason(msg.StopReason),
		Model:      model,
		Usage: Usage{
			InputTokens:              msg.Usage.InputTokens,
			OutputTokens:             msg.Usage.OutputTokens,
			CacheReadInputTokens:     msg.Usage.CacheReadInputTokens,
			CacheCreationInputTokens: msg.Usage.CacheCreationInputTokens,
		},
	}
	var text strings.Builder
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			reply.ToolCalls = append(reply.ToolCalls, ToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: json.RawMessage(block.Input),
			})
		}
	}
	reply.Text = text.String()
	return reply
}

// isRetryableError returns true if the error indicates the model is overloaded
// or unavailable (suitable for fallback retry).
func isRetryableError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "model_unavailable") ||
		strings.Contains(msg, "529") ||
		strings.Contains(msg, "503")
}
