package broadcast

import "encoding/json"

// Result is what ask_others returns to the requesting agent.
type Result struct {
	RequestID      string       `json:"-"`
	Status         Status       `json:"status"`
	Responses      []Response   `json:"responses"`
	HumanQAHistory []QAExchange `json:"humanQaHistory,omitempty"`
	HumanQANote    string       `json:"humanQaNote,omitempty"`
}

// QAExchange is the wire form of a QAEntry.
type QAExchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func newResult(req Request, out Outcome) *Result {
	res := &Result{
		RequestID: req.ID,
		Status:    req.Status,
		Responses: out.Responses,
	}
	if res.Responses == nil {
		res.Responses = []Response{}
	}
	if req.Status == StatusDeferred {
		res.HumanQAHistory = make([]QAExchange, len(out.History))
		for i, e := range out.History {
			res.HumanQAHistory[i] = QAExchange{Question: e.Question, Answer: e.Answer}
		}
		res.HumanQANote = HumanQANote
	}
	return res
}

// JSON encodes the result for the tool response.
func (r *Result) JSON() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
