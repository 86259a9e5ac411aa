package agent

import "context"

type contextKey int

const (
	ctxKeyAgentID contextKey = iota
	ctxKeySessionID
)

// WithContextAgentID returns a context carrying the id of the agent whose
// loop is executing a tool call.
func WithContextAgentID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyAgentID, id)
}

// ContextAgentID returns the calling agent id from context, or empty string.
func ContextAgentID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyAgentID).(string); ok {
		return v
	}
	return ""
}

// WithContextSessionID returns a context with the session id set.
func WithContextSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeySessionID, id)
}

// ContextSessionID returns the session id from context, or empty string.
func ContextSessionID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeySessionID).(string); ok {
		return v
	}
	return ""
}
