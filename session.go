package agent

import (
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

// Session holds the conversation state of one live agent. It is safe for
// concurrent use: the agent loop appends while broadcast shadows read
// snapshots and notices arrive from other goroutines.
//
// Messages are never mutated once appended; readers receive value copies.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	messages  []anthropic.MessageParam
	pending   []string
	running   bool
	updatedAt time.Time
}

// NewSession creates a new empty session.
func NewSession() *Session {
	now := time.Now()
	return &Session{
		ID:        GenerateID(PrefixSession),
		CreatedAt: now,
		updatedAt: now,
	}
}

// Messages returns a value copy of the conversation history.
func (s *Session) Messages() []anthropic.MessageParam {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneMessages(s.messages)
}

// Len returns the number of messages in the history.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// UpdatedAt returns the time of the last append.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Append adds messages to the history. Notices queued while a run is active
// ride along on the next user message, after its tool results, so a
// tool_use/tool_result pair is never split.
func (s *Session) Append(msgs ...anthropic.MessageParam) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		if m.Role == anthropic.MessageParamRoleUser && len(s.pending) > 0 {
			content := make([]anthropic.ContentBlockParamUnion, 0, len(m.Content)+len(s.pending))
			content = append(content, m.Content...)
			for _, n := range s.pending {
				content = append(content, anthropic.NewTextBlock(n))
			}
			m.Content = content
			s.pending = nil
		}
		s.messages = append(s.messages, m)
	}
	s.updatedAt = time.Now()
}

// Notify injects an informational message that requires no reply. When the
// session is idle the notice is appended immediately as a user message and
// Notify returns true; during a run it is queued until the next safe point.
func (s *Session) Notify(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.pending = append(s.pending, text)
		return false
	}
	s.messages = append(s.messages, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
	s.updatedAt = time.Now()
	return true
}

// PendingNotices returns the notices still waiting for a safe point.
func (s *Session) PendingNotices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.pending))
	copy(out, s.pending)
	return out
}

// Snapshot returns a copy-on-read view of the history. The copy shares no
// slices with the live session.
func (s *Session) Snapshot() []anthropic.MessageParam {
	return s.Messages()
}

// Running reports whether a run currently owns the session.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// beginRun marks the session busy. Only one run may own a session.
func (s *Session) beginRun() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrRunInProgress
	}
	s.running = true
	return nil
}

// endRun releases the session and flushes any notices that did not find a
// user message to ride on.
func (s *Session) endRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	if len(s.pending) == 0 {
		return
	}
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(s.pending))
	for _, n := range s.pending {
		blocks = append(blocks, anthropic.NewTextBlock(n))
	}
	s.messages = append(s.messages, anthropic.NewUserMessage(blocks...))
	s.pending = nil
	s.updatedAt = time.Now()
}

// Clone creates a copy of the session with a new ID and timestamp.
// Queued notices are not carried over.
func (s *Session) Clone() *Session {
	now := time.Now()
	return &Session{
		ID:        GenerateID(PrefixSession),
		CreatedAt: now,
		messages:  s.Messages(),
		updatedAt: now,
	}
}

// cloneMessages copies the outer slice and every content slice.
func cloneMessages(in []anthropic.MessageParam) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, len(in))
	for i, m := range in {
		content := make([]anthropic.ContentBlockParamUnion, len(m.Content))
		copy(content, m.Content)
		m.Content = content
		out[i] = m
	}
	return out
}
