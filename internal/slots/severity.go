package slots

import "strings"

// Severity is the user-reported intensity.
type Severity string

const (
	SeverityNone     Severity = ""
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// severityPhrases are tested in priority order; first hit wins.
var severityPhrases = []struct {
	phrase   string
	severity Severity
}{
	{"mild", SeverityMild},
	{"moderate", SeverityModerate},
	{"severe", SeveritySevere},
	{"really bad", SeveritySevere},
}

// ExtractSeverity returns the first severity phrase contained in normalized
// text, or SeverityNone.
func ExtractSeverity(norm string) Severity {
	for _, p := range severityPhrases {
		if strings.Contains(norm, p.phrase) {
			return p.severity
		}
	}
	return SeverityNone
}

// ParseSeverity converts a stored value back to a Severity. Unknown values map
// to SeverityNone.
func ParseSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityMild, SeverityModerate, SeveritySevere:
		return Severity(s)
	default:
		return SeverityNone
	}
}
