package slots

import (
	"testing"
)

func TestParseDuration(t *testing.T) {
	var hugeWeeks = 1e20
	tests := []struct {
		name      string
		norm      string
		wantOK    bool
		wantLabel string
		wantMins  float64
	}{
		{"few minutes", "only a few minutes ago", true, "few minutes (~10)", 10},
		{"few hours", "for a few hours", true, "few hours (~180)", 180},
		{"few days", "few days now", true, "few days (~3)", 4320},
		{"few weeks", "a few weeks", true, "few weeks (~3)", 30240},
		{"past week", "all of the past week", true, "1 week", 10080},
		{"last week", "since last week", true, "1 week", 10080},
		{"last day", "over the last day", true, "1 day", 1440},
		{"half hour", "about half hour", true, "30 minutes", 30},
		{"half an hour", "half an hour", true, "30 minutes", 30},
		{"hour and a half", "an hour and a half", true, "90 minutes", 90},
		{"numeric hours", "2 hours", true, "2 hours", 120},
		{"numeric minutes", "45 minutes", true, "45 minutes", 45},
		{"singular", "1 day", true, "1 day", 1440},
		{"word number", "two weeks", true, "2 weeks", 20160},
		{"article an", "an hour", true, "1 hour", 60},
		{"couple", "a couple days", true, "2 days", 2880},
		{"hr abbreviation", "3 hrs", true, "3 hours", 180},
		{"min abbreviation", "five mins", true, "5 minutes", 5},
		{"first number wins", "3 days then 2 hours", true, "3 days", 4320},
		{"zero", "0 minutes", true, "0 minutes", 0},
		{"huge value keeps its sign", "99999999999999999999 weeks", true, "100000000000000000000 weeks", hugeWeeks * MinutesPerWeek},
		{"no unit", "i am 45", false, "", 0},
		{"number at end", "it is 3", false, "", 0},
		{"no duration", "i have a fever", false, "", 0},
		{"empty", "", false, "", 0},
		{"spelled infinity is not a number", "infinity days", false, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDuration(tt.norm)
			if ok != tt.wantOK {
				t.Fatalf("ParseDuration(%q) ok = %v, want %v", tt.norm, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.Label != tt.wantLabel {
				t.Errorf("ParseDuration(%q) label = %q, want %q", tt.norm, got.Label, tt.wantLabel)
			}
			if got.Minutes != tt.wantMins {
				t.Errorf("ParseDuration(%q) minutes = %v, want %v", tt.norm, got.Minutes, tt.wantMins)
			}
		})
	}
}

func TestFormatLabel(t *testing.T) {
	tests := []struct {
		value float64
		unit  string
		want  string
	}{
		{1, "hour", "1 hour"},
		{2, "hour", "2 hours"},
		{0, "minute", "0 minutes"},
		{1.5, "day", "1.50 days"},
		{2.00001, "week", "2 weeks"},
		{-1, "day", "-1 day"},
		{-0.00001, "hour", "0 hours"},
		{1e20, "week", "100000000000000000000 weeks"},
	}

	for _, tt := range tests {
		if got := FormatLabel(tt.value, tt.unit); got != tt.want {
			t.Errorf("FormatLabel(%v, %q) = %q, want %q", tt.value, tt.unit, got, tt.want)
		}
	}
}
