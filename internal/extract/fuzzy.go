package extract

import "github.com/xrash/smetrics"

// EditDistance returns the Levenshtein distance between a and b with unit
// cost for insertion, deletion and substitution.
func EditDistance(a, b string) int {
	return smetrics.WagnerFischer(a, b, 1, 1, 1)
}

// Similarity is 1 - EditDistance(a,b)/max(len(a),len(b)), and 1.0 when both
// are empty. Symmetric, and Similarity(x, x) == 1.
func Similarity(a, b string) float64 {
	longest := max(len(a), len(b))
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(EditDistance(a, b))/float64(longest)
}

// Match is the best alias found for a token.
type Match struct {
	Alias string
	Score float64
}

// BestMatch returns the highest scoring alias for token. Ties keep the earliest
// alias. ok is false when aliases is empty.
func BestMatch(token string, aliases []string) (m Match, ok bool) {
	for _, alias := range aliases {
		s := Similarity(token, alias)
		if !ok || s > m.Score {
			m = Match{Alias: alias, Score: s}
			ok = true
		}
	}
	return m, ok
}
