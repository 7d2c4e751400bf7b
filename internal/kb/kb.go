// Package kb holds the symptom knowledge base: definitions keyed by code and
// the normalized alias index the extractor matches against.
package kb

import (
	"sort"

	"github.com/hpungsan/triage/internal/textnorm"
)

// Symptom is one knowledge base entry. Immutable once loaded.
type Symptom struct {
	Code     string   `json:"code" yaml:"code"`
	Label    string   `json:"label" yaml:"label"`
	Category string   `json:"category" yaml:"category"`
	Weight   float64  `json:"weight" yaml:"weight"`
	RedFlag  bool     `json:"redFlag" yaml:"redFlag"`
	Aliases  []string `json:"aliases" yaml:"aliases"`
}

// KnowledgeBase is the lookup structure consumed by extraction and scoring.
// Safe for concurrent reads.
type KnowledgeBase struct {
	symptomByCode map[string]Symptom
	codesByAlias  map[string][]string
	allAliases    []string
}

// New builds a KnowledgeBase from definitions. Aliases are normalized; an alias
// shared by several codes maps to all of them in definition order. A later
// definition with an already seen code replaces the earlier one.
func New(symptoms []Symptom) *KnowledgeBase {
	k := &KnowledgeBase{
		symptomByCode: make(map[string]Symptom, len(symptoms)),
		codesByAlias:  make(map[string][]string),
	}

	seenAlias := make(map[string]bool)
	for _, s := range symptoms {
		k.symptomByCode[s.Code] = s
		for _, raw := range s.Aliases {
			alias := textnorm.Normalize(raw)
			if alias == "" {
				continue
			}
			if !containsString(k.codesByAlias[alias], s.Code) {
				k.codesByAlias[alias] = append(k.codesByAlias[alias], s.Code)
			}
			if !seenAlias[alias] {
				seenAlias[alias] = true
				k.allAliases = append(k.allAliases, alias)
			}
		}
	}
	return k
}

// CodesByAlias returns the codes owning a normalized alias, or nil.
func (k *KnowledgeBase) CodesByAlias(alias string) []string {
	return k.codesByAlias[alias]
}

// SymptomByCode returns the definition for code.
func (k *KnowledgeBase) SymptomByCode(code string) (Symptom, bool) {
	s, ok := k.symptomByCode[code]
	return s, ok
}

// AllAliases returns every distinct normalized alias in load order.
func (k *KnowledgeBase) AllAliases() []string {
	return k.allAliases
}

// Symptoms returns all definitions sorted by code.
func (k *KnowledgeBase) Symptoms() []Symptom {
	out := make([]Symptom, 0, len(k.symptomByCode))
	for _, s := range k.symptomByCode {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Len returns the number of symptom definitions.
func (k *KnowledgeBase) Len() int {
	return len(k.symptomByCode)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
