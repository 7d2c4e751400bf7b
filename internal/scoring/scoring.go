// Package scoring turns a case's accumulated symptoms and slots into a triage
// level, confidence and reasons.
package scoring

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/hpungsan/triage/internal/cases"
	"github.com/hpungsan/triage/internal/intent"
	"github.com/hpungsan/triage/internal/kb"
	"github.com/hpungsan/triage/internal/slots"
)

// Triage levels.
const (
	LevelEmergency = "911"
	LevelER        = "ER now"
	LevelDoctor    = "Doctor visit recommended"
	LevelSelfCare  = "Self-care / monitor"
)

const (
	// DefaultRedFlagThreshold is the confidence at which a red-flag symptom escalates.
	DefaultRedFlagThreshold = 0.60

	// DefaultReasonThreshold is the confidence at which a symptom is listed as a reason.
	DefaultReasonThreshold = 0.40

	// NosebleedCode is the symptom code checked for prolonged bleeding.
	NosebleedCode = "NOSEBLEED"

	// NosebleedThreshold is the confidence at which a nosebleed counts.
	NosebleedThreshold = 0.50

	// ProlongedMinutes is the duration from which symptoms count as prolonged.
	ProlongedMinutes = 120

	// MinNotesForTriage lets triage fire without an explicit completion signal.
	MinNotesForTriage = 3

	erScore     = 8.0
	doctorScore = 4.0

	redFlagConfidence   = 0.92
	nosebleedConfidence = 0.90
)

// Reason texts appended beside per-symptom reasons.
const (
	ReasonNosebleed     = "Nosebleed lasting 2+ hours"
	ReasonNoSymptoms    = "No significant symptoms detected yet"
	reasonSeverityFmt   = "Reported severity: %s"
	reasonOngoingFmt    = "Symptoms ongoing for %s"
	reasonConfidenceFmt = "%s (conf %.0f%%)"
)

// Thresholds are the tunable confidence cutoffs.
type Thresholds struct {
	RedFlag float64
	Reason  float64
}

// DefaultThresholds returns the standard cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{RedFlag: DefaultRedFlagThreshold, Reason: DefaultReasonThreshold}
}

// Definitions is the part of the knowledge base scoring needs.
type Definitions interface {
	SymptomByCode(code string) (kb.Symptom, bool)
}

// Outcome is a computed decision plus the numbers behind it.
type Outcome struct {
	cases.Result
	Score     float64
	BaseScore float64
}

// Scorer computes triage outcomes.
type Scorer struct {
	defs       Definitions
	thresholds Thresholds
}

// New creates a Scorer. Zero thresholds fall back to the defaults.
func New(defs Definitions, t Thresholds) *Scorer {
	if t.RedFlag <= 0 {
		t.RedFlag = DefaultRedFlagThreshold
	}
	if t.Reason <= 0 {
		t.Reason = DefaultReasonThreshold
	}
	return &Scorer{defs: defs, thresholds: t}
}

// Ready reports whether triage may fire for c given the current normalized message.
func Ready(c *cases.Case, norm string) bool {
	if c.Complete || !c.HasCandidates() || !c.SlotsFilled() {
		return false
	}
	return intent.SeemsDone(norm) || len(c.Notes) >= MinNotesForTriage
}

// Score computes the outcome for c without modifying it.
func (s *Scorer) Score(c *cases.Case) Outcome {
	sevMult := SeverityMultiplier(c.Severity)
	durMult := DurationMultiplier(c.Duration, c.DurationMinutes)
	sevBoost := SeverityBoost(c.Severity)
	durBoost := DurationBoost(c.DurationMinutes)

	var (
		base      float64
		reasons   []string
		redFlags  []string
		nosebleed bool
	)
	for _, cand := range c.Candidates() {
		def, ok := s.defs.SymptomByCode(cand.Code)
		if !ok {
			continue
		}
		weighted := def.Weight * cand.Confidence
		base += weighted
		slog.Debug("scoring symptom", "code", def.Code, "weight", def.Weight, "confidence", cand.Confidence, "weighted", weighted)

		switch {
		case def.RedFlag && cand.Confidence >= s.thresholds.RedFlag:
			r := fmt.Sprintf(reasonConfidenceFmt, def.Label, cand.Confidence*100)
			redFlags = append(redFlags, r)
			reasons = append(reasons, r)
		case cand.Confidence >= s.thresholds.Reason:
			reasons = append(reasons, fmt.Sprintf(reasonConfidenceFmt, def.Label, cand.Confidence*100))
		}

		if def.Code == NosebleedCode && cand.Confidence >= NosebleedThreshold {
			nosebleed = true
		}
	}

	score := base*sevMult*durMult + sevBoost + durBoost
	prolongedNosebleed := nosebleed && c.DurationMinutes >= ProlongedMinutes

	switch c.Severity {
	case slots.SeveritySevere, slots.SeverityModerate:
		reasons = append(reasons, fmt.Sprintf(reasonSeverityFmt, c.Severity))
	}
	if c.Duration != "" && IsProlonged(c.Duration, c.DurationMinutes) {
		reasons = append(reasons, fmt.Sprintf(reasonOngoingFmt, c.Duration))
	}

	out := Outcome{Score: score, BaseScore: base}
	switch {
	case len(redFlags) > 0:
		out.Level = LevelEmergency
		out.Confidence = redFlagConfidence
	case prolongedNosebleed:
		out.Level = LevelER
		if c.Severity == slots.SeveritySevere {
			out.Level = LevelEmergency
		}
		out.Confidence = nosebleedConfidence
		reasons = append(reasons, ReasonNosebleed)
	case score >= erScore:
		out.Level = LevelER
		out.Confidence = math.Min(1, 0.70+score/15)
	case score >= doctorScore:
		out.Level = LevelDoctor
		out.Confidence = math.Min(1, 0.60+score/12)
	default:
		out.Level = LevelSelfCare
		out.Confidence = math.Min(1, 0.50+score/10)
		if len(reasons) == 0 {
			reasons = append(reasons, ReasonNoSymptoms)
		}
	}
	out.Reasons = reasons
	out.RedFlags = redFlags
	return out
}

// SeverityMultiplier scales the base score by reported severity.
func SeverityMultiplier(s slots.Severity) float64 {
	switch s {
	case slots.SeverityModerate:
		return 1.30
	case slots.SeveritySevere:
		return 1.70
	default:
		return 1.0
	}
}

// SeverityBoost is added to the score for reported severity.
func SeverityBoost(s slots.Severity) float64 {
	switch s {
	case slots.SeveritySevere:
		return 1.2
	case slots.SeverityModerate:
		return 0.5
	default:
		return 0
	}
}

// DurationMultiplier scales the base score by duration. Numeric minutes win;
// without them the label is matched against coarse textual buckets.
func DurationMultiplier(label string, minutes float64) float64 {
	if minutes > 0 {
		switch {
		case minutes <= 30:
			return 1.00
		case minutes <= 120:
			return 1.15
		case minutes <= 360:
			return 1.30
		case minutes <= 1440:
			return 1.45
		case minutes <= 4320:
			return 1.60
		default:
			return 1.75
		}
	}

	d := strings.ToLower(label)
	switch {
	case strings.Contains(d, "today"):
		return 1.20
	case strings.Contains(d, "1-2 days"), strings.Contains(d, "1 2 days"), strings.Contains(d, "yesterday"):
		return 1.15
	case strings.Contains(d, "3-7 days"), strings.Contains(d, "3 7 days"):
		return 1.30
	case strings.Contains(d, "1-2 weeks"), strings.Contains(d, "1 2 weeks"):
		return 1.45
	case strings.Contains(d, "2+ weeks"), strings.Contains(d, "2 weeks"):
		return 1.60
	default:
		return 1.0
	}
}

// DurationBoost is added to the score for long numeric durations.
func DurationBoost(minutes float64) float64 {
	switch {
	case minutes <= 0:
		return 0
	case minutes >= 1440:
		return 1.6
	case minutes >= 360:
		return 1.2
	case minutes >= 120:
		return 0.8
	default:
		return 0
	}
}

// IsProlonged reports whether a duration counts as prolonged.
func IsProlonged(label string, minutes float64) bool {
	if minutes >= ProlongedMinutes {
		return true
	}
	d := strings.ToLower(label)
	return strings.Contains(d, "day") || strings.Contains(d, "week") || strings.Contains(d, "today")
}
