package slots

import "github.com/hpungsan/triage/internal/textnorm"

var (
	// durationContext words signal the message is talking about a duration.
	durationContext = textnorm.Set("for", "since", "past", "last", "lasting", "started", "been")

	// correctionWords signal the user is revising an earlier answer.
	correctionWords = textnorm.Set("actually", "just", "only")
)

// HasDurationContext reports whether norm contains a duration-context word.
func HasDurationContext(norm string) bool {
	return textnorm.ContainsAnyToken(norm, durationContext)
}

// HasCorrection reports whether norm contains a correction word.
func HasCorrection(norm string) bool {
	return textnorm.ContainsAnyToken(norm, correctionWords)
}

// ShouldUpdateDuration decides whether parsed may replace stored. An empty
// stored label means the slot is unset. askedDuration is true when the last
// bot prompt asked for the duration.
//
// Without a correction word a filled slot only moves upward; an explicit ask
// always accepts, even a lower value.
func ShouldUpdateDuration(stored, parsed Duration, norm string, askedDuration bool) bool {
	hasContext := HasDurationContext(norm)

	if stored.Label == "" {
		return askedDuration || hasContext || parsed.Minutes > 0
	}

	if askedDuration {
		return true
	}
	if parsed.Minutes <= 0 {
		return false
	}
	if HasCorrection(norm) {
		return true
	}
	if !hasContext {
		return false
	}
	if stored.Minutes <= 0 {
		return true
	}
	return parsed.Minutes >= stored.Minutes
}

// ShouldUpdateSeverity decides whether a newly extracted severity may replace
// stored: always when unset or explicitly asked, otherwise only on correction.
func ShouldUpdateSeverity(stored Severity, norm string, askedSeverity bool) bool {
	if stored == SeverityNone {
		return true
	}
	if askedSeverity {
		return true
	}
	return HasCorrection(norm)
}
