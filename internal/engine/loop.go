// Package engine runs the agent tool-use loop. It knows nothing about the
// root package types; callers plug in a Caller, a History, a ToolExecutor and
// an EventSink.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

// ToolCall is a tool_use block requested by the model.
type ToolCall struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// Turn is the outcome of a single model call.
type Turn struct {
	// Assistant is the message to append to the history. It may have no
	// content blocks when the model returned nothing.
	Assistant    anthropic.MessageParam
	Text         string
	ToolCalls    []ToolCall
	StopReason   string
	InputTokens  int64
	OutputTokens int64
}

// Caller performs one model call over the current history.
type Caller interface {
	Call(ctx context.Context, messages []anthropic.MessageParam, tools []anthropic.ToolUnionParam, onDelta func(string)) (*Turn, error)
}

// History is the session the loop reads from and appends to.
type History interface {
	Messages() []anthropic.MessageParam
	Append(msgs ...anthropic.MessageParam)
}

// ToolExecutor executes a tool by name with raw JSON input.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, input json.RawMessage) (content string, isError bool, err error)
	ListForAPI() []anthropic.ToolUnionParam
}

// EventSink receives events from the loop. The loop calls these methods instead
// of importing root package event types, breaking the import cycle.
type EventSink interface {
	OnSystem()
	OnStream(delta string)
	OnAssistant(turn *Turn)
	OnTool(info ToolInfo)
	OnResult(info ResultInfo)
}

// ToolInfo describes a finished tool call.
type ToolInfo struct {
	ToolUseID string
	Name      string
	Output    string
	IsError   bool
}

// ResultInfo contains the data for a result event.
type ResultInfo struct {
	Subtype      string
	IsError      bool
	NumTurns     int
	DurationMs   int64
	InputTokens  int64
	OutputTokens int64
	Result       string
	Errors       []string
}

// LoopConfig holds everything the agent loop needs to execute.
type LoopConfig struct {
	Caller   Caller
	History  History
	Tools    ToolExecutor
	Sink     EventSink
	MaxTurns int
}

// RunLoop is the core agent execution loop. It runs in the calling goroutine
// and calls Sink methods to emit events. The caller is responsible for
// channel management.
func RunLoop(ctx context.Context, cfg LoopConfig) {
	startTime := time.Now()
	var inputTokens, outputTokens int64
	turns := 0

	finish := func(info ResultInfo) {
		info.NumTurns = turns
		info.DurationMs = time.Since(startTime).Milliseconds()
		info.InputTokens = inputTokens
		info.OutputTokens = outputTokens
		cfg.Sink.OnResult(info)
	}

	cfg.Sink.OnSystem()

	for {
		if ctx.Err() != nil {
			finish(ResultInfo{
				Subtype: "error_during_execution",
				IsError: true,
				Errors:  []string{ctx.Err().Error()},
			})
			return
		}

		turn, err := cfg.Caller.Call(ctx, cfg.History.Messages(), cfg.Tools.ListForAPI(), cfg.Sink.OnStream)
		if err != nil {
			finish(ResultInfo{
				Subtype: "error_during_execution",
				IsError: true,
				Errors:  []string{err.Error()},
			})
			return
		}
		turns++
		inputTokens += turn.InputTokens
		outputTokens += turn.OutputTokens

		cfg.Sink.OnAssistant(turn)
		if len(turn.Assistant.Content) > 0 {
			cfg.History.Append(turn.Assistant)
		}

		switch {
		case turn.StopReason == "tool_use" && len(turn.ToolCalls) > 0:
			results := processToolUse(ctx, cfg, turn.ToolCalls)
			cfg.History.Append(anthropic.NewUserMessage(results...))

		case turn.StopReason == "max_tokens":
			finish(ResultInfo{
				Subtype: "error_max_turns",
				IsError: true,
				Result:  turn.Text,
				Errors:  []string{"max_tokens reached"},
			})
			return

		default:
			finish(ResultInfo{Subtype: "success", Result: turn.Text})
			return
		}

		if cfg.MaxTurns > 0 && turns >= cfg.MaxTurns {
			finish(ResultInfo{
				Subtype: "error_max_turns",
				IsError: true,
				Errors:  []string{"max turns reached"},
			})
			return
		}
	}
}

// processToolUse executes each tool call in order. Tool failures become
// error tool results; they never abort the loop.
func processToolUse(ctx context.Context, cfg LoopConfig, calls []ToolCall) []anthropic.ContentBlockParamUnion {
	results := make([]anthropic.ContentBlockParamUnion, 0, len(calls))
	for _, call := range calls {
		text, isError, err := cfg.Tools.Execute(ctx, call.Name, call.Input)
		if err != nil {
			text, isError = fmt.Sprintf("error: %s", err.Error()), true
		}
		cfg.Sink.OnTool(ToolInfo{
			ToolUseID: call.ID,
			Name:      call.Name,
			Output:    text,
			IsError:   isError,
		})
		results = append(results, anthropic.NewToolResultBlock(call.ID, text, isError))
	}
	return results
}
