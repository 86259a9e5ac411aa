package broadcast

import (
	"context"
	"errors"
	"fmt"

	agent "github.com/armatrix/agent-broadcast-go"
)

// ToolName is the name the model calls.
const ToolName = "ask_others"

// AskOthersInput is the tool input.
type AskOthersInput struct {
	Question string `json:"question" jsonschema:"required,minLength=1,description=The question to put to the other agents or to the human operator"`
}

// AskOthersTool exposes a Coordinator to one agent.
type AskOthersTool struct {
	Coordinator *Coordinator

	// AgentID identifies the caller. Empty falls back to the agent id carried
	// in the tool context.
	AgentID string
}

var _ agent.Tool[AskOthersInput] = (*AskOthersTool)(nil)

func (t *AskOthersTool) Name() string { return ToolName }

func (t *AskOthersTool) Description() string {
	cfg := t.Coordinator.Config()
	var who string
	switch cfg.Mode {
	case ModeHuman:
		who = "Ask the human operator a question and wait for their answer. " +
			"The human is asked at most once per session; later calls return their earlier answers."
	default:
		who = "Ask every other agent working on this task a question. " +
			"Each answers from a copy of its own context while it keeps working; you wait for the answers."
	}
	return fmt.Sprintf("%s Returns JSON with status (complete, deferred or timed_out) and responses. "+
		"Waits at most %s. %s", who, cfg.Timeout, cfg.Sensitivity.Hint())
}

func (t *AskOthersTool) Execute(ctx context.Context, input AskOthersInput) (*agent.ToolResult, error) {
	requester := t.AgentID
	if requester == "" {
		requester = agent.ContextAgentID(ctx)
	}
	if requester == "" {
		return agent.ErrorResult("ask_others: caller identity unknown"), nil
	}

	res, err := t.Coordinator.AskOthers(ctx, requester, input.Question)
	switch {
	case errors.Is(err, ErrRateLimitExceeded):
		return agent.ErrorResult(fmt.Sprintf("ask_others: %v. Wait for earlier questions to finish before asking again.", err)), nil
	case err != nil:
		return agent.ErrorResult(fmt.Sprintf("ask_others: %v", err)), nil
	}

	text, err := res.JSON()
	if err != nil {
		return agent.ErrorResult(fmt.Sprintf("ask_others: encode result: %v", err)), nil
	}
	out := agent.TextResult(text)
	out.Metadata = map[string]any{
		"request_id": res.RequestID,
		"status":     string(res.Status),
		"responses":  len(res.Responses),
	}
	return out, nil
}

// RegisterTool registers ask_others for agentID. It does nothing and returns
// false when broadcasting is disabled.
func RegisterTool(r *agent.ToolRegistry, c *Coordinator, agentID string) bool {
	if c == nil || !c.Config().Enabled() {
		return false
	}
	agent.RegisterTool(r, &AskOthersTool{Coordinator: c, AgentID: agentID})
	return true
}
