// Package report renders a stored case as a markdown document.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/hpungsan/triage/internal/cases"
)

const timeLayout = "2006-01-02 15:04 UTC"

// Disclaimer closes every report.
const Disclaimer = "_This is an automated, non-diagnostic triage suggestion. If you think you are having an emergency, call your local emergency number._"

// Markdown renders rec. User text is escaped so it cannot inject markup.
func Markdown(rec *cases.Record) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Case %s\n\n", rec.CaseID)

	field(&b, "Session", escape(rec.SessionID))
	field(&b, "Started", formatMillis(rec.StartedEpochMs))
	if rec.UpdatedEpochMs > 0 {
		field(&b, "Updated", formatMillis(rec.UpdatedEpochMs))
	}
	status := "In progress"
	if rec.Locked {
		status = "Locked"
	}
	field(&b, "Status", status)
	if rec.TriageComplete {
		field(&b, "Triage level", fmt.Sprintf("%s (confidence %.0f%%)", rec.TriageLevel, rec.TriageConfidence*100))
	}
	field(&b, "Duration", orDash(rec.Duration))
	field(&b, "Severity", orDash(rec.Severity))
	field(&b, "Mode", string(rec.Mode))
	b.WriteString("\n")

	section(&b, "Red flags", rec.TriageRedFlags)
	section(&b, "Reasons", rec.TriageReasons)

	if len(rec.CandidateConfidence) > 0 {
		b.WriteString("## Symptoms\n\n| Code | Confidence |\n|---|---|\n")
		for _, c := range rec.CandidateConfidence {
			fmt.Fprintf(&b, "| %s | %.0f%% |\n", escape(c.Code), c.Confidence*100)
		}
		b.WriteString("\n")
	}

	if len(rec.Notes) > 0 {
		b.WriteString("## Transcript\n\n")
		for i, n := range rec.Notes {
			fmt.Fprintf(&b, "%d. %s\n", i+1, escape(n))
		}
		b.WriteString("\n")
	}

	b.WriteString(Disclaimer + "\n")
	return b.String()
}

func field(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "- **%s:** %s\n", name, value)
}

func section(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", escape(it))
	}
	b.WriteString("\n")
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(timeLayout)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return escape(s)
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`,
	"[", `\[`, "]", `\]`, "<", `\<`, ">", `\>`,
	"#", `\#`, "|", `\|`,
)

func escape(s string) string {
	return markdownEscaper.Replace(strings.ReplaceAll(s, "\n", " "))
}
