package agent

import "errors"

// Sentinel errors returned by the agent loop and client operations.
var (
	ErrNoBackend     = errors.New("agent: no backend configured")
	ErrRunInProgress = errors.New("agent: a run is already in progress for this session")
	ErrToolNotFound  = errors.New("agent: tool not found")
)
