package agent

// AgentStream is an iterator over events emitted during an agent run.
// Usage:
//
//	stream := a.Run(ctx, session, "prompt")
//	for stream.Next() {
//	    event := stream.Current()
//	    // handle event
//	}
//	if err := stream.Err(); err != nil {
//	    // handle error
//	}
type AgentStream struct {
	events  chan Event
	current Event
	err     error
	done    bool
	session *Session
}

func newStream(events chan Event, session *Session) *AgentStream {
	return &AgentStream{
		events:  events,
		session: session,
	}
}

// Next advances to the next event. Returns false when the stream is exhausted.
func (s *AgentStream) Next() bool {
	if s.done {
		return false
	}
	event, ok := <-s.events
	if !ok {
		s.done = true
		return false
	}
	s.current = event
	if r, ok := event.(*ResultEvent); ok && r.IsError && s.err == nil && len(r.Errors) > 0 {
		s.err = &RunError{Subtype: r.Subtype, Message: r.Errors[0]}
	}
	return true
}

// Current returns the most recent event returned by Next.
func (s *AgentStream) Current() Event {
	return s.current
}

// Err returns the run error reported by the final ResultEvent, if any.
func (s *AgentStream) Err() error {
	return s.err
}

// Session returns the session associated with this stream.
func (s *AgentStream) Session() *Session {
	return s.session
}

// Drain consumes the remaining events and returns the final ResultEvent.
func (s *AgentStream) Drain() *ResultEvent {
	var last *ResultEvent
	for s.Next() {
		if r, ok := s.Current().(*ResultEvent); ok {
			last = r
		}
	}
	return last
}

// errorStream returns a stream that yields a single error result.
func errorStream(session *Session, subtype string, err error) *AgentStream {
	ch := make(chan Event, 1)
	ch <- &ResultEvent{
		Subtype:   subtype,
		SessionID: session.ID,
		IsError:   true,
		Result:    "error: " + err.Error(),
		Errors:    []string{err.Error()},
	}
	close(ch)
	return newStream(ch, session)
}

// RunError describes a run that ended with an error result.
type RunError struct {
	Subtype string
	Message string
}

func (e *RunError) Error() string {
	return "agent: " + e.Subtype + ": " + e.Message
}
