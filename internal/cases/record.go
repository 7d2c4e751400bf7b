package cases

import "time"

// Record is the persisted snapshot of a case.
type Record struct {
	// CaseID is the case ULID
	CaseID string `json:"caseId"`

	// SessionID is the session the case belonged to
	SessionID string `json:"sessionId"`

	// StartedEpochMs is when the case was created
	StartedEpochMs int64 `json:"startedEpochMs"`

	// UpdatedEpochMs is when the snapshot was taken
	UpdatedEpochMs int64 `json:"updatedEpochMs"`

	Locked           bool    `json:"locked"`
	TriageComplete   bool    `json:"triageComplete"`
	TriageLevel      string  `json:"triageLevel"`
	TriageConfidence float64 `json:"triageConfidence"`

	Duration        string  `json:"duration"`
	DurationMinutes float64 `json:"durationMinutes"`
	Severity        string  `json:"severity"`

	Mode       Mode       `json:"mode"`
	LastPrompt PromptKind `json:"lastPrompt"`

	Notes               []string         `json:"notes"`
	TriageReasons       []string         `json:"triageReasons"`
	TriageRedFlags      []string         `json:"triageRedFlags"`
	CandidateConfidence []CandidateScore `json:"candidateConfidence"`
}

// Summary is a lightweight case row for history listings.
type Summary struct {
	CaseID           string  `json:"caseId"`
	SessionID        string  `json:"sessionId"`
	StartedEpochMs   int64   `json:"startedEpochMs"`
	TriageLevel      string  `json:"triageLevel"`
	TriageConfidence float64 `json:"triageConfidence"`
	Duration         string  `json:"duration"`
	Severity         string  `json:"severity"`
	NotesCount       int     `json:"notesCount"`
	RedFlagCount     int     `json:"redFlagCount"`
}

// Snapshot copies the case into a Record. Slices are copied so the record
// stays stable while the case keeps changing.
func (c *Case) Snapshot(sessionID string, now time.Time) Record {
	return Record{
		CaseID:              c.ID,
		SessionID:           sessionID,
		StartedEpochMs:      c.StartedAt,
		UpdatedEpochMs:      now.UnixMilli(),
		Locked:              c.Locked,
		TriageComplete:      c.Complete,
		TriageLevel:         c.Result.Level,
		TriageConfidence:    c.Result.Confidence,
		Duration:            c.Duration,
		DurationMinutes:     c.DurationMinutes,
		Severity:            string(c.Severity),
		Mode:                c.Mode,
		LastPrompt:          c.LastPrompt,
		Notes:               nonNil(c.Notes),
		TriageReasons:       nonNil(c.Result.Reasons),
		TriageRedFlags:      nonNil(c.Result.RedFlags),
		CandidateConfidence: c.Candidates(),
	}
}

// ToSummary strips a record down to its listing fields.
func (r *Record) ToSummary() Summary {
	return Summary{
		CaseID:           r.CaseID,
		SessionID:        r.SessionID,
		StartedEpochMs:   r.StartedEpochMs,
		TriageLevel:      r.TriageLevel,
		TriageConfidence: r.TriageConfidence,
		Duration:         r.Duration,
		Severity:         r.Severity,
		NotesCount:       len(r.Notes),
		RedFlagCount:     len(r.TriageRedFlags),
	}
}

func nonNil(s []string) []string {
	return append(make([]string, 0, len(s)), s...)
}
