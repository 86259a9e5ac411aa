package broadcast

import (
	"context"
	"time"
)

// ResponderKind distinguishes the two answering variants.
type ResponderKind int

const (
	KindAgentShadow ResponderKind = iota
	KindHuman
)

func (k ResponderKind) String() string {
	switch k {
	case KindAgentShadow:
		return "agent_shadow"
	case KindHuman:
		return "human"
	}
	return "unknown"
}

// Question is what a responder is asked to answer.
type Question struct {
	RequestID   string
	RequesterID string
	Text        string
	Deadline    time.Time
}

// Outcome is a responder's contribution to a broadcast. Err is set when the
// responder produced nothing; it is logged, never surfaced to the requester.
type Outcome struct {
	Status    Status
	Responses []Response
	History   []QAEntry
	Err       error
}

// Responder answers a broadcast question. Respond must return promptly once
// ctx is done.
type Responder interface {
	ID() string
	Kind() ResponderKind
	Respond(ctx context.Context, q Question) Outcome
}

func questionFor(req Request) Question {
	return Question{
		RequestID:   req.ID,
		RequesterID: req.RequesterID,
		Text:        req.Question,
		Deadline:    req.TimeoutAt,
	}
}
