package textnorm

import (
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "lowercase",
			input: "Shortness Of Breath",
			want:  "shortness of breath",
		},
		{
			name:  "punctuation becomes space",
			input: "fever, cough, sore-throat!",
			want:  "fever cough sore throat",
		},
		{
			name:  "apostrophe splits word",
			input: "That's it",
			want:  "that s it",
		},
		{
			name:  "collapse and trim",
			input: "  2   hours \t\n ",
			want:  "2 hours",
		},
		{
			name:  "decimal point dropped",
			input: "1.5 hours",
			want:  "1 5 hours",
		},
		{
			name:  "non ascii letters removed",
			input: "café fièvre",
			want:  "caf fi vre",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
		{
			name:  "only symbols",
			input: "?!...",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"I have a FEVER!!",
		"  runny   nose, 30 min ",
		"Hola :) good   morning",
		"",
		"\t\n",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestTokens(t *testing.T) {
	if got := Tokens(""); len(got) != 0 {
		t.Errorf("Tokens(\"\") = %v, want empty", got)
	}
	got := Tokens("a fever for two days")
	if len(got) != 5 || got[1] != "fever" {
		t.Errorf("Tokens = %v", got)
	}
}

func TestContainsAnyToken(t *testing.T) {
	set := Set("for", "since")
	if !ContainsAnyToken("sick for 2 days", set) {
		t.Error("expected whole-word match on 'for'")
	}
	if ContainsAnyToken("before noon", set) {
		t.Error("substring 'for' inside 'before' must not match")
	}
	if ContainsAnyToken("", set) {
		t.Error("empty text must not match")
	}
}
