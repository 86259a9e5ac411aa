package teams

import agent "github.com/armatrix/agent-broadcast-go"

// Event wraps an agent event with the member name that produced it.
type Event struct {
	MemberName string
	AgentEvent agent.Event
}

// Stream aggregates events from all team members into a single iterator.
type Stream struct {
	events  chan *Event
	current *Event
	done    bool
	results map[string]*agent.ResultEvent
	closed  chan struct{}
}

func newStream(size int) *Stream {
	return &Stream{
		events:  make(chan *Event, size),
		results: make(map[string]*agent.ResultEvent),
		closed:  make(chan struct{}),
	}
}

// Next advances to the next event. Returns false once every member is done.
func (s *Stream) Next() bool {
	if s.done {
		return false
	}
	ev, ok := <-s.events
	if !ok {
		s.done = true
		return false
	}
	s.current = ev
	return true
}

// Current returns the most recently read event.
func (s *Stream) Current() *Event { return s.current }

// Drain consumes the remaining events and returns each member's result.
func (s *Stream) Drain() map[string]*agent.ResultEvent {
	for s.Next() {
	}
	<-s.closed
	return s.results
}
