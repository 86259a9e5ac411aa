package agent

// Model and loop defaults.
const (
	// DefaultModel is the model used when no model is specified.
	DefaultModel = "claude-sonnet-4-5"

	// DefaultMaxOutputTokens is the default maximum output tokens per response.
	DefaultMaxOutputTokens = 16_384

	// DefaultShadowMaxOutputTokens caps a shadow's single tool-free answer.
	DefaultShadowMaxOutputTokens = 2_048

	// DefaultMaxTurns is the default max turns (0 = unlimited).
	DefaultMaxTurns = 0

	// DefaultStreamBufferSize is the default channel buffer size for streaming events.
	DefaultStreamBufferSize = 64
)
