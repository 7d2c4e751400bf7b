// Package cases holds the per-session triage case and its persisted forms.
package cases

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/triage/internal/slots"
)

// Mode is the conversation state of a case.
type Mode string

const (
	ModeOpening     Mode = "OPENING"
	ModeClarifying  Mode = "CLARIFYING"
	ModeGatherInfo  Mode = "GATHER_INFO"
	ModeCollectMore Mode = "COLLECT_MORE"
	ModeReady       Mode = "READY"
)

// Result is a triage decision. Set once per case.
type Result struct {
	Level      string
	Confidence float64
	Reasons    []string
	RedFlags   []string
}

// Case is one triage session's accumulated state. It is owned by a single
// session and must not be mutated concurrently. Once Locked, nothing changes.
type Case struct {
	// ID is a ULID that uniquely identifies this case
	ID string

	// StartedAt is the creation time in epoch milliseconds
	StartedAt int64

	// Notes is the raw transcript of user messages, append-only
	Notes []string

	// Duration is the display label of the duration slot ("" when unset)
	Duration string

	// DurationMinutes is the normalized duration, slots.UnsetMinutes when unset
	DurationMinutes float64

	// Severity is the severity slot
	Severity slots.Severity

	// Mode is the conversation state
	Mode Mode

	// UnclearCount counts consecutive clarification attempts
	UnclearCount int

	// LastPrompt is the most recent distinct prompt sent
	LastPrompt PromptKind

	// Complete is true once triage has been computed
	Complete bool

	// Locked is true once the result is final
	Locked bool

	// Result is the triage decision, zero until Complete
	Result Result

	candidates     map[string]float64
	candidateOrder []string
}

// New creates an empty case in OPENING mode.
func New(id string, startedAt time.Time) *Case {
	return &Case{
		ID:              id,
		StartedAt:       startedAt.UnixMilli(),
		DurationMinutes: slots.UnsetMinutes,
		Mode:            ModeOpening,
		candidates:      make(map[string]float64),
	}
}

// NewID generates a new case ULID.
func NewID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// AddNote appends a raw user message.
func (c *Case) AddNote(text string) {
	if c.Locked {
		return
	}
	c.Notes = append(c.Notes, text)
}

// Bump records a candidate confidence, keeping the maximum ever seen.
func (c *Case) Bump(code string, confidence float64) {
	if c.Locked {
		return
	}
	if c.candidates == nil {
		c.candidates = make(map[string]float64)
	}
	prev, seen := c.candidates[code]
	if !seen {
		c.candidateOrder = append(c.candidateOrder, code)
	}
	if !seen || confidence > prev {
		c.candidates[code] = confidence
	}
}

// Confidence returns the recorded confidence for code.
func (c *Case) Confidence(code string) (float64, bool) {
	v, ok := c.candidates[code]
	return v, ok
}

// CandidateScore is one code with its confidence.
type CandidateScore struct {
	Code       string  `json:"code"`
	Confidence float64 `json:"confidence"`
}

// Candidates returns recorded candidates in first-seen order.
func (c *Case) Candidates() []CandidateScore {
	out := make([]CandidateScore, 0, len(c.candidateOrder))
	for _, code := range c.candidateOrder {
		out = append(out, CandidateScore{Code: code, Confidence: c.candidates[code]})
	}
	return out
}

// HasCandidates reports whether any symptom has been recorded.
func (c *Case) HasCandidates() bool {
	return len(c.candidateOrder) > 0
}

// DurationSlot returns the duration slot as a slots.Duration.
func (c *Case) DurationSlot() slots.Duration {
	return slots.Duration{Label: c.Duration, Minutes: c.DurationMinutes}
}

// SetDuration fills the duration slot.
func (c *Case) SetDuration(d slots.Duration) {
	if c.Locked {
		return
	}
	c.Duration = d.Label
	c.DurationMinutes = d.Minutes
}

// SetSeverity fills the severity slot.
func (c *Case) SetSeverity(s slots.Severity) {
	if c.Locked {
		return
	}
	c.Severity = s
}

// SlotsFilled reports whether both duration and severity are set.
func (c *Case) SlotsFilled() bool {
	return c.Duration != "" && c.Severity != slots.SeverityNone
}

// Lock stores the triage result and locks the case. It returns false and
// changes nothing if the case is already complete.
func (c *Case) Lock(r Result) bool {
	if c.Complete {
		return false
	}
	c.Result = Result{
		Level:      r.Level,
		Confidence: r.Confidence,
		Reasons:    append([]string(nil), r.Reasons...),
		RedFlags:   append([]string(nil), r.RedFlags...),
	}
	c.Complete = true
	c.Locked = true
	return true
}
