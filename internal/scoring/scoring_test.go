package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/triage/internal/cases"
	"github.com/hpungsan/triage/internal/kb"
	"github.com/hpungsan/triage/internal/slots"
)

func newCase(sev slots.Severity, d slots.Duration, cands map[string]float64, order ...string) *cases.Case {
	c := cases.New("test", time.Now())
	c.SetSeverity(sev)
	c.SetDuration(d)
	for _, code := range order {
		c.Bump(code, cands[code])
	}
	return c
}

func TestScore_Fever(t *testing.T) {
	s := New(kb.Default(), DefaultThresholds())
	c := newCase(slots.SeverityModerate, slots.Duration{Label: "2 hours", Minutes: 120},
		map[string]float64{"FEVER": 1}, "FEVER")

	out := s.Score(c)
	require.InDelta(t, 2*1.30*1.15+0.5+0.8, out.Score, 1e-9)
	require.Equal(t, LevelDoctor, out.Level)
	require.InDelta(t, 0.60+out.Score/12, out.Confidence, 1e-9)
	require.Equal(t, []string{
		"Fever (conf 100%)",
		"Reported severity: moderate",
		"Symptoms ongoing for 2 hours",
	}, out.Reasons)
	require.Empty(t, out.RedFlags)
}

func TestScore_RunnyNose(t *testing.T) {
	s := New(kb.Default(), DefaultThresholds())
	c := newCase(slots.SeverityMild, slots.Duration{Label: "30 minutes", Minutes: 30},
		map[string]float64{"RUNNY_NOSE": 1}, "RUNNY_NOSE")

	out := s.Score(c)
	require.Equal(t, LevelSelfCare, out.Level)
	require.InDelta(t, 0.55, out.Confidence, 1e-9)
	require.Equal(t, []string{"Runny nose (conf 100%)"}, out.Reasons)
}

func TestScore_RedFlagOverridesScore(t *testing.T) {
	s := New(kb.Default(), DefaultThresholds())
	c := newCase(slots.SeverityMild, slots.Duration{Label: "30 minutes", Minutes: 30},
		map[string]float64{"SHORTNESS_OF_BREATH": 0.6}, "SHORTNESS_OF_BREATH")

	out := s.Score(c)
	require.Less(t, out.Score, doctorScore)
	require.Equal(t, LevelEmergency, out.Level)
	require.Equal(t, 0.92, out.Confidence)
	require.Equal(t, []string{"Shortness of breath (conf 60%)"}, out.RedFlags)
	require.Equal(t, out.RedFlags, out.Reasons)
}

func TestScore_RedFlagBelowThreshold(t *testing.T) {
	s := New(kb.Default(), DefaultThresholds())
	c := newCase(slots.SeverityMild, slots.Duration{Label: "30 minutes", Minutes: 30},
		map[string]float64{"SHORTNESS_OF_BREATH": 0.5}, "SHORTNESS_OF_BREATH")

	out := s.Score(c)
	require.Equal(t, LevelSelfCare, out.Level)
	require.Empty(t, out.RedFlags)
	require.Equal(t, []string{"Shortness of breath (conf 50%)"}, out.Reasons)

	// tuned threshold escalates the same case
	tuned := New(kb.Default(), Thresholds{RedFlag: 0.45, Reason: 0.40})
	require.Equal(t, LevelEmergency, tuned.Score(c).Level)
}

func TestScore_ProlongedNosebleed(t *testing.T) {
	s := New(kb.Default(), DefaultThresholds())
	threeHours := slots.Duration{Label: "3 hours", Minutes: 180}

	c := newCase(slots.SeverityMild, threeHours, map[string]float64{"NOSEBLEED": 1}, "NOSEBLEED")
	out := s.Score(c)
	require.Equal(t, LevelER, out.Level)
	require.Equal(t, 0.90, out.Confidence)
	require.Equal(t, ReasonNosebleed, out.Reasons[len(out.Reasons)-1])

	c = newCase(slots.SeveritySevere, threeHours, map[string]float64{"NOSEBLEED": 1}, "NOSEBLEED")
	require.Equal(t, LevelEmergency, s.Score(c).Level)

	// short nosebleed is scored normally
	c = newCase(slots.SeverityMild, slots.Duration{Label: "30 minutes", Minutes: 30}, map[string]float64{"NOSEBLEED": 1}, "NOSEBLEED")
	require.Equal(t, LevelSelfCare, s.Score(c).Level)
}

func TestScore_HighScore(t *testing.T) {
	s := New(kb.Default(), DefaultThresholds())
	cands := map[string]float64{"ABDOMINAL_PAIN": 1, "FEVER": 1, "NAUSEA": 1, "HEADACHE": 1}
	c := newCase(slots.SeveritySevere, slots.Duration{Label: "3 days", Minutes: 4320}, cands,
		"ABDOMINAL_PAIN", "FEVER", "NAUSEA", "HEADACHE")

	out := s.Score(c)
	require.GreaterOrEqual(t, out.Score, erScore)
	require.Equal(t, LevelER, out.Level)
	require.Equal(t, 1.0, out.Confidence)
	require.Equal(t, "Abdominal pain (conf 100%)", out.Reasons[0])
	require.Contains(t, out.Reasons, "Reported severity: severe")
	require.Contains(t, out.Reasons, "Symptoms ongoing for 3 days")
}

func TestScore_UnknownCodeSkipped(t *testing.T) {
	s := New(kb.Default(), DefaultThresholds())
	c := newCase(slots.SeverityMild, slots.Duration{Label: "30 minutes", Minutes: 30},
		map[string]float64{"NOT_A_CODE": 1}, "NOT_A_CODE")

	out := s.Score(c)
	require.Equal(t, 0.0, out.Score)
	require.Equal(t, LevelSelfCare, out.Level)
	require.Equal(t, []string{ReasonNoSymptoms}, out.Reasons)
}

func TestScore_DoesNotMutate(t *testing.T) {
	s := New(kb.Default(), DefaultThresholds())
	c := newCase(slots.SeveritySevere, slots.Duration{Label: "2 hours", Minutes: 120},
		map[string]float64{"CHEST_PAIN": 1}, "CHEST_PAIN")

	s.Score(c)
	require.False(t, c.Complete)
	require.False(t, c.Locked)
}

func TestReady(t *testing.T) {
	c := newCase(slots.SeverityMild, slots.Duration{Label: "2 hours", Minutes: 120},
		map[string]float64{"FEVER": 1}, "FEVER")
	c.AddNote("fever")
	c.AddNote("2 hours")

	require.False(t, Ready(c, "mild"))
	require.True(t, Ready(c, "that s it"))

	c.AddNote("mild")
	require.True(t, Ready(c, "mild"))

	empty := cases.New("e", time.Now())
	empty.AddNote("a")
	empty.AddNote("b")
	empty.AddNote("c")
	require.False(t, Ready(empty, "done"))
}

func TestDurationMultiplier(t *testing.T) {
	tests := []struct {
		label   string
		minutes float64
		want    float64
	}{
		{"30 minutes", 30, 1.00},
		{"2 hours", 120, 1.15},
		{"6 hours", 360, 1.30},
		{"1 day", 1440, 1.45},
		{"3 days", 4320, 1.60},
		{"1 week", 10080, 1.75},
		{"today", -1, 1.20},
		{"since yesterday", -1, 1.15},
		{"1-2 days", -1, 1.15},
		{"3-7 days", -1, 1.30},
		{"1-2 weeks", -1, 1.45},
		{"2+ weeks", -1, 1.60},
		{"", -1, 1.0},
	}

	for _, tt := range tests {
		if got := DurationMultiplier(tt.label, tt.minutes); got != tt.want {
			t.Errorf("DurationMultiplier(%q, %v) = %v, want %v", tt.label, tt.minutes, got, tt.want)
		}
	}
}

func TestDurationBoost(t *testing.T) {
	tests := []struct {
		minutes float64
		want    float64
	}{
		{-1, 0}, {0, 0}, {119, 0}, {120, 0.8}, {360, 1.2}, {1440, 1.6}, {99999, 1.6},
	}

	for _, tt := range tests {
		if got := DurationBoost(tt.minutes); got != tt.want {
			t.Errorf("DurationBoost(%v) = %v, want %v", tt.minutes, got, tt.want)
		}
	}
}

func TestIsProlonged(t *testing.T) {
	require.True(t, IsProlonged("2 hours", 120))
	require.False(t, IsProlonged("90 minutes", 90))
	require.True(t, IsProlonged("few days (~3)", -1))
	require.True(t, IsProlonged("started today", -1))
	require.False(t, IsProlonged("", -1))
}
