// Package extract turns normalized text into symptom candidates: exact alias
// phrases first, then a fuzzy per-token fallback when no phrase matched.
package extract

import (
	"log/slog"

	"github.com/hpungsan/triage/internal/kb"
	"github.com/hpungsan/triage/internal/textnorm"
)

const (
	// MaxPhraseWords is the longest alias phrase considered.
	MaxPhraseWords = 4

	// MinFuzzyTokenLen is the shortest token tried against aliases.
	MinFuzzyTokenLen = 3

	// DefaultFuzzyThreshold is the minimum similarity accepted by the fuzzy pass.
	DefaultFuzzyThreshold = 0.80

	// ExactConfidence is recorded for exact alias hits.
	ExactConfidence = 1.0
)

// Candidate is a symptom code inferred from text.
type Candidate struct {
	Code       string
	Confidence float64
	Alias      string
	Exact      bool
}

// Lookup is the part of the knowledge base the extractor needs.
type Lookup interface {
	CodesByAlias(alias string) []string
	AllAliases() []string
}

var _ Lookup = (*kb.KnowledgeBase)(nil)

// Extractor matches text against a knowledge base.
type Extractor struct {
	kb             Lookup
	fuzzyThreshold float64
}

// New creates an Extractor. A threshold outside (0,1] uses DefaultFuzzyThreshold.
func New(lookup Lookup, fuzzyThreshold float64) *Extractor {
	if fuzzyThreshold <= 0 || fuzzyThreshold > 1 {
		fuzzyThreshold = DefaultFuzzyThreshold
	}
	return &Extractor{kb: lookup, fuzzyThreshold: fuzzyThreshold}
}

// Extract returns candidates for raw text in discovery order. A code may
// appear more than once; callers keep the maximum confidence.
func (e *Extractor) Extract(text string) []Candidate {
	norm := textnorm.Normalize(text)
	if norm == "" {
		return nil
	}
	tokens := textnorm.Tokens(norm)

	var out []Candidate
	for _, phrase := range NGrams(tokens, MaxPhraseWords) {
		for _, code := range e.kb.CodesByAlias(phrase) {
			slog.Debug("exact alias hit", "alias", phrase, "code", code)
			out = append(out, Candidate{Code: code, Confidence: ExactConfidence, Alias: phrase, Exact: true})
		}
	}
	if len(out) > 0 {
		return out
	}

	aliases := e.kb.AllAliases()
	for _, tok := range tokens {
		if len(tok) < MinFuzzyTokenLen {
			continue
		}
		m, ok := BestMatch(tok, aliases)
		if !ok || m.Score < e.fuzzyThreshold {
			continue
		}
		for _, code := range e.kb.CodesByAlias(m.Alias) {
			slog.Debug("fuzzy alias hit", "token", tok, "alias", m.Alias, "score", m.Score, "code", code)
			out = append(out, Candidate{Code: code, Confidence: m.Score, Alias: m.Alias})
		}
	}
	return out
}
