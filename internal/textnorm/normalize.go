// Package textnorm folds free text into the canonical form every matcher works on.
package textnorm

import (
	"regexp"
	"strings"
)

var (
	// nonAlnumRegex matches anything outside lowercase ASCII letters, digits and whitespace
	nonAlnumRegex = regexp.MustCompile(`[^a-z0-9\s]`)

	// whitespaceRegex matches one or more whitespace characters
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// Normalize lowercases s, replaces every character outside [a-z0-9\s] with a
// space, collapses whitespace runs to a single space and trims the result.
// Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = nonAlnumRegex.ReplaceAllString(s, " ")
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Tokens splits normalized text into words. Empty input yields no tokens.
func Tokens(norm string) []string {
	return strings.Fields(norm)
}

// ContainsAnyToken reports whether any whole word of norm is in set.
func ContainsAnyToken(norm string, set map[string]bool) bool {
	for _, tok := range Tokens(norm) {
		if set[tok] {
			return true
		}
	}
	return false
}

// Set builds a lookup set from words.
func Set(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
