package broadcast

import (
	"fmt"
	"time"

	agent "github.com/armatrix/agent-broadcast-go"
)

// Notice tells a responding agent that its shadow answered a question.
type Notice struct {
	ID          string
	RequestID   string
	RequesterID string
	Question    string
	ResponderID string
	Answer      string
	At          time.Time
}

func newNotice(req Request, resp Response) Notice {
	return Notice{
		ID:          agent.GenerateID(agent.PrefixNotice),
		RequestID:   req.ID,
		RequesterID: req.RequesterID,
		Question:    req.Question,
		ResponderID: resp.ResponderID,
		Answer:      resp.Content,
		At:          resp.CompletedAt,
	}
}

// Text is the informational message appended to the responder's history.
func (n Notice) Text() string {
	return fmt.Sprintf("While you were working, %s asked: %s\nYour shadow answered: %s\n"+
		"This is for your awareness only; no reply is needed.", n.RequesterID, n.Question, n.Answer)
}

// Peer is an active agent that can answer through a shadow.
type Peer interface {
	ID() string
	// Snapshot returns a value copy of the peer's current context.
	Snapshot() ShadowContext
	// Notify appends n to the peer's history without interrupting it.
	Notify(n Notice)
}

// Directory lists the peers a requester may ask.
type Directory interface {
	// Peers returns the active agents other than requesterID.
	Peers(requesterID string) []Peer
}

// PeerList is a fixed Directory.
type PeerList []Peer

// Peers implements Directory.
func (l PeerList) Peers(requesterID string) []Peer {
	out := make([]Peer, 0, len(l))
	for _, p := range l {
		if p.ID() != requesterID {
			out = append(out, p)
		}
	}
	return out
}
