package broadcast

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects who answers ask_others.
type Mode string

const (
	// ModeDisabled means the ask_others tool is not exposed at all.
	ModeDisabled Mode = ""
	// ModeAgents answers through shadows of the other active agents.
	ModeAgents Mode = "agents"
	// ModeHuman answers through the single human operator.
	ModeHuman Mode = "human"
)

// ParseMode accepts the configuration forms false, "agents" and "human".
// nil, the empty string and "false" also mean disabled.
func ParseMode(v any) (Mode, error) {
	switch x := v.(type) {
	case nil:
		return ModeDisabled, nil
	case bool:
		if !x {
			return ModeDisabled, nil
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "", "false", "off", "disabled":
			return ModeDisabled, nil
		case string(ModeAgents):
			return ModeAgents, nil
		case string(ModeHuman):
			return ModeHuman, nil
		}
	case Mode:
		return ParseMode(string(x))
	}
	return ModeDisabled, fmt.Errorf("%w: %v", ErrInvalidMode, v)
}

// String returns "disabled" for the zero mode.
func (m Mode) String() string {
	if m == ModeDisabled {
		return "disabled"
	}
	return string(m)
}

// Sensitivity hints to agents how readily they should call ask_others. It
// only shapes the tool description; runtime behavior is identical.
type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
)

// ParseSensitivity parses low, medium or high. Empty means medium.
func ParseSensitivity(s string) (Sensitivity, error) {
	switch Sensitivity(strings.ToLower(strings.TrimSpace(s))) {
	case "", SensitivityMedium:
		return SensitivityMedium, nil
	case SensitivityLow:
		return SensitivityLow, nil
	case SensitivityHigh:
		return SensitivityHigh, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSensitivity, s)
}

// Hint is the guidance sentence surfaced in the tool description.
func (s Sensitivity) Hint() string {
	switch s {
	case SensitivityLow:
		return "Only use this for decisions you genuinely cannot make alone; prefer proceeding on your own judgment."
	case SensitivityHigh:
		return "Use this freely whenever a decision could benefit from another perspective or would be costly to get wrong."
	default:
		return "Use this for significant decisions where another perspective would help, not for routine choices."
	}
}

// Defaults.
const (
	DefaultTimeout     = 300 * time.Second
	DefaultMaxPerAgent = 10
	HumanResponderID   = "human"
)

// DefaultWorkflowTools are the workflow-control tools a shadow never sees.
// Entries are doublestar patterns.
var DefaultWorkflowTools = []string{"vote", "new_answer", "submit_answer", ToolName}

// Config is the resolved broadcast configuration for one coordination session.
type Config struct {
	Mode        Mode
	Timeout     time.Duration
	MaxPerAgent int
	Sensitivity Sensitivity

	// MaxConcurrentShadows bounds the agents-mode fan-out. 0 = one goroutine per peer.
	MaxConcurrentShadows int

	// WorkflowTools are doublestar patterns of tool names stripped from a
	// shadow's view of its parent's history.
	WorkflowTools []string

	// ShadowMaxTokens caps each shadow answer. 0 uses the parent's setting.
	ShadowMaxTokens int
}

// DefaultConfig returns a disabled configuration with default limits.
func DefaultConfig() Config {
	return Config{
		Mode:          ModeDisabled,
		Timeout:       DefaultTimeout,
		MaxPerAgent:   DefaultMaxPerAgent,
		Sensitivity:   SensitivityMedium,
		WorkflowTools: DefaultWorkflowTools,
	}
}

// Enabled reports whether ask_others should be exposed.
func (c Config) Enabled() bool { return c.Mode != ModeDisabled }

// Validate checks the configuration and fills zero values with defaults.
func (c *Config) Validate() error {
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if c.MaxPerAgent <= 0 {
		c.MaxPerAgent = DefaultMaxPerAgent
	}
	if c.Sensitivity == "" {
		c.Sensitivity = SensitivityMedium
	}
	if _, err := ParseSensitivity(string(c.Sensitivity)); err != nil {
		return err
	}
	if c.WorkflowTools == nil {
		c.WorkflowTools = DefaultWorkflowTools
	}
	if c.MaxConcurrentShadows < 0 {
		return fmt.Errorf("broadcast: max concurrent shadows must be >= 0, got %d", c.MaxConcurrentShadows)
	}
	return nil
}
