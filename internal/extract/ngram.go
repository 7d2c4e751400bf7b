package extract

import "strings"

// NGrams returns every contiguous run of 1..maxWords tokens, ordered by start
// position then length.
func NGrams(tokens []string, maxWords int) []string {
	out := make([]string, 0, len(tokens)*maxWords)
	for i := range tokens {
		for n := 1; n <= maxWords && i+n <= len(tokens); n++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}
