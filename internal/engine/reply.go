package engine

import (
	"encoding/json"
	"strconv"

	"github.com/hpungsan/triage/internal/cases"
)

// Reply is the bot's answer to one message.
type Reply struct {
	Text    string
	Options []string

	// Case status at the time of the reply
	CaseID     string
	Locked     bool
	Complete   bool
	Level      string
	Confidence float64
	RedFlags   []string
	Reasons    []string
	Duration   string

	// SessionID is set by transports that assign session ids
	SessionID string
}

func (r *Reply) attach(c *cases.Case) {
	r.CaseID = c.ID
	r.Locked = c.Locked
	r.Complete = c.Complete
	if !c.Complete {
		return
	}
	r.Level = c.Result.Level
	r.Confidence = c.Result.Confidence
	r.RedFlags = append(make([]string, 0, len(c.Result.RedFlags)), c.Result.RedFlags...)
	r.Reasons = append(make([]string, 0, len(c.Result.Reasons)), c.Result.Reasons...)
	r.Duration = c.Duration
}

type replyWire struct {
	Type             string      `json:"type"`
	Text             string      `json:"text"`
	Locked           bool        `json:"locked"`
	TriageLevel      string      `json:"triageLevel,omitempty"`
	TriageConfidence json.Number `json:"triageConfidence,omitempty"`
	RedFlags         *[]string   `json:"redFlags,omitempty"`
	Reasons          *[]string   `json:"reasons,omitempty"`
	Duration         string      `json:"duration,omitempty"`
	Options          []string    `json:"options,omitempty"`
	SessionID        string      `json:"sessionId,omitempty"`
}

// MarshalJSON writes the chat wire format. Triage fields appear only once the
// case is complete; confidence carries four decimals.
func (r Reply) MarshalJSON() ([]byte, error) {
	w := replyWire{
		Type:      "bot",
		Text:      r.Text,
		Locked:    r.Locked,
		Options:   r.Options,
		SessionID: r.SessionID,
	}
	if r.Complete {
		redFlags := nonNil(r.RedFlags)
		reasons := nonNil(r.Reasons)
		w.TriageLevel = r.Level
		w.TriageConfidence = json.Number(strconv.FormatFloat(r.Confidence, 'f', 4, 64))
		w.RedFlags = &redFlags
		w.Reasons = &reasons
		w.Duration = r.Duration
	}
	return json.Marshal(w)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
