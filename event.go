package agent

import "github.com/anthropics/anthropic-sdk-go"

// EventType identifies the kind of event emitted by an AgentStream.
type EventType string

const (
	EventSystem    EventType = "system"
	EventAssistant EventType = "assistant"
	EventStream    EventType = "stream"
	EventTool      EventType = "tool"
	EventResult    EventType = "result"
)

// Event is the interface implemented by all events emitted through AgentStream.
type Event interface {
	Type() EventType
}

// SystemEvent is emitted once at the start of a run with initialization info.
type SystemEvent struct {
	SessionID string
	AgentID   string
	Model     anthropic.Model
}

func (e *SystemEvent) Type() EventType { return EventSystem }

// AssistantEvent is emitted when the model produces a complete response.
type AssistantEvent struct {
	Reply *Reply
}

func (e *AssistantEvent) Type() EventType { return EventAssistant }

// StreamEvent is emitted for streaming text deltas as they arrive.
type StreamEvent struct {
	Delta string
}

func (e *StreamEvent) Type() EventType { return EventStream }

// ToolEvent is emitted after each tool call completes.
type ToolEvent struct {
	ToolUseID string
	Name      string
	Output    string
	IsError   bool
}

func (e *ToolEvent) Type() EventType { return EventTool }

// Usage tracks token consumption for a run.
type Usage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheReadInputTokens     int64
	CacheCreationInputTokens int64
}

// Add accumulates u2 into u.
func (u *Usage) Add(u2 Usage) {
	u.InputTokens += u2.InputTokens
	u.OutputTokens += u2.OutputTokens
	u.CacheReadInputTokens += u2.CacheReadInputTokens
	u.CacheCreationInputTokens += u2.CacheCreationInputTokens
}

// ResultEvent is emitted once at the end of a run with summary information.
type ResultEvent struct {
	// Subtype indicates the outcome: "success", "error_max_turns",
	// or "error_during_execution".
	Subtype    string
	SessionID  string
	DurationMs int64
	IsError    bool
	NumTurns   int
	Usage      Usage
	Result     string
	Errors     []string
}

func (e *ResultEvent) Type() EventType { return EventResult }
