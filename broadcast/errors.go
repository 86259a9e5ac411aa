package broadcast

import "errors"

// Sentinel errors for the broadcast package.
var (
	ErrRateLimitExceeded  = errors.New("broadcast: rate limit exceeded")
	ErrBroadcastDisabled  = errors.New("broadcast: broadcast is disabled")
	ErrEmptyQuestion      = errors.New("broadcast: question is empty")
	ErrUnknownRequest     = errors.New("broadcast: unknown request")
	ErrNotTerminal        = errors.New("broadcast: status is not terminal")
	ErrNoDirectory        = errors.New("broadcast: agents mode requires a peer directory")
	ErrNoHumanGate        = errors.New("broadcast: human mode requires a human gate")
	ErrInvalidMode        = errors.New("broadcast: invalid mode")
	ErrInvalidSensitivity = errors.New("broadcast: invalid sensitivity")
	ErrInvalidPattern     = errors.New("broadcast: invalid workflow tool pattern")
	ErrShadowGeneration   = errors.New("broadcast: shadow generation failed")
	ErrEmptyAnswer        = errors.New("broadcast: empty answer")
	ErrNoBackend          = errors.New("broadcast: peer has no backend")
)
