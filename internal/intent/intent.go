// Package intent classifies a normalized user message as a greeting, an
// unclear message, or a signal that the user has finished listing symptoms.
package intent

import (
	"strings"

	"github.com/hpungsan/triage/internal/textnorm"
)

// A clear message has at least MinRealWords tokens of MinRealWordLen or more letters.
const (
	MinRealWords   = 2
	MinRealWordLen = 3
)

var (
	greetings = []string{"hi", "hello", "hey", "hola", "greetings", "good morning", "good evening", "good afternoon"}

	filler = textnorm.Set("idk", "help", "please", "uh", "umm", "yo", "hey")

	donePhrases = []string{"that s it", "thats it", "that is it", "that's it", "that is all", "nothing else", "no more"}
)

// IsGreeting reports whether norm is a greeting or starts with one followed by a space.
func IsGreeting(norm string) bool {
	if norm == "" {
		return false
	}
	for _, g := range greetings {
		if norm == g || strings.HasPrefix(norm, g+" ") {
			return true
		}
	}
	return false
}

// SeemsDone reports whether the user signalled they have nothing more to add.
func SeemsDone(norm string) bool {
	if norm == "done" {
		return true
	}
	for _, p := range donePhrases {
		if strings.Contains(norm, p) {
			return true
		}
	}
	return false
}

// IsUnclear reports whether norm is too thin to act on: empty, pure filler,
// or fewer than MinRealWords words of MinRealWordLen letters. A completion
// signal is never unclear.
func IsUnclear(norm string) bool {
	if norm == "" {
		return true
	}
	if SeemsDone(norm) {
		return false
	}
	if filler[norm] {
		return true
	}

	words := 0
	for _, tok := range textnorm.Tokens(norm) {
		if len(tok) >= MinRealWordLen {
			words++
		}
	}
	return words < MinRealWords
}
