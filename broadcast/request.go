package broadcast

import "time"

// Status is the lifecycle state of a broadcast request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusFannedOut Status = "fanned_out"
	StatusComplete  Status = "complete"
	StatusDeferred  Status = "deferred"
	StatusTimedOut  Status = "timed_out"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	switch s {
	case StatusComplete, StatusDeferred, StatusTimedOut:
		return true
	}
	return false
}

// Request is one outstanding ask_others call. Values returned by the
// registry are copies; the registry owns the live record.
type Request struct {
	ID          string
	RequesterID string
	Question    string
	Mode        Mode
	CreatedAt   time.Time
	TimeoutAt   time.Time
	Status      Status
}

// Response is one answer to a broadcast.
type Response struct {
	ResponderID string    `json:"responderId"`
	Content     string    `json:"content"`
	IsHuman     bool      `json:"isHuman"`
	CompletedAt time.Time `json:"-"`
}

// QAEntry is one answered human question.
type QAEntry struct {
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	AnsweredAt time.Time `json:"answeredAt"`
}
