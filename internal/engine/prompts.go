package engine

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/hpungsan/triage/internal/cases"
)

// User-facing prompt texts.
const (
	TextEmpty          = "Type what’s going on (you can list symptoms like: “fever, cough, sore throat”)."
	TextGreeting       = "Hi again! I’m here to help, but I need symptoms to guide you. Describe what you’re feeling (for example: “chest tightness for 90 minutes, moderate”)."
	TextClarifyFirst   = "I didn’t fully understand. Tell me a few symptoms or what feels worst right now."
	TextClarify        = "I’m not fully sure I understood. Tell me the key symptoms and when they started."
	TextClarifyAlt     = "Can you share a couple symptoms and roughly how long they’ve been going on?"
	TextClarifyFormat  = "I’m still having trouble. Tell me the main symptoms and how long they’ve been happening."
	TextAskDuration    = "How long has this been going on? You can answer with minutes, hours, days, or weeks (examples: “45 minutes”, “2 hours”, “3 days”)."
	TextAskSeverity    = "Overall, how bad is it right now?"
	TextListMore       = "Got it. List any other symptoms you’re noticing (even if they seem minor)."
	TextCollectMore    = "Got it. Anything else you’re noticing?"
	TextCaseLocked     = "Case locked. Start a new session to begin another triage."
	textPendingLevel   = "Pending"
	clarifyFallbackMin = 3
)

// Quick-reply options offered with slot questions.
var (
	DurationOptions = []string{"30 minutes", "2 hours", "3 days", "2 weeks"}
	SeverityOptions = []string{"mild", "moderate", "severe"}
)

// Acks open the first reply of a case.
var Acks = []string{
	"Got it — I can help you sort this out.",
	"Okay. Let’s walk through it step by step.",
	"Thanks. I’ll keep it simple and ask one thing at a time.",
}

// PickAck returns the acknowledgement for a case. The same id always gets the same ack.
func PickAck(caseID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(caseID))
	return Acks[h.Sum32()%uint32(len(Acks))]
}

func withAck(ack, text string) string {
	if ack == "" {
		return text
	}
	return ack + " " + text
}

// Summary renders the locked triage result of c.
func Summary(c *cases.Case) string {
	var b strings.Builder
	level := c.Result.Level
	if level == "" {
		level = textPendingLevel
	}
	b.WriteString("Triage result: " + level)
	if c.Result.Confidence > 0 {
		fmt.Fprintf(&b, " (confidence %.0f%%)", c.Result.Confidence*100)
	}
	if len(c.Result.Reasons) > 0 {
		b.WriteString("\nReasons: " + strings.Join(c.Result.Reasons, "; "))
	}
	if c.Duration != "" {
		b.WriteString("\nDuration noted: " + c.Duration)
	}
	b.WriteString("\n" + TextCaseLocked)
	return b.String()
}

// Recap lists what has been collected so far without triaging.
func Recap(c *cases.Case) string {
	return fmt.Sprintf("Alright. Here’s what I have so far:\n- Duration: %s\n- Severity: %s\n- Notes count: %d\n\n",
		c.Duration, c.Severity, len(c.Notes))
}
