// Package slots extracts the two structured facts triage needs, duration and
// severity, and decides when a new reading may replace a stored one.
package slots

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/hpungsan/triage/internal/textnorm"
)

// Minutes per unit.
const (
	MinutesPerHour = 60
	MinutesPerDay  = 24 * MinutesPerHour
	MinutesPerWeek = 7 * MinutesPerDay
)

// UnsetMinutes marks a duration slot that has not been filled.
const UnsetMinutes = -1

// Duration is a parsed duration: display label plus normalized minutes.
type Duration struct {
	Label   string
	Minutes float64
}

// idiom is a fixed phrase with an implied magnitude.
type idiom struct {
	phrases []string
	result  Duration
}

// idioms are checked in order before numeric extraction.
var idioms = []idiom{
	{[]string{"few minutes"}, Duration{"few minutes (~10)", 10}},
	{[]string{"few hours"}, Duration{"few hours (~180)", 3 * MinutesPerHour}},
	{[]string{"few days"}, Duration{"few days (~3)", 3 * MinutesPerDay}},
	{[]string{"few weeks"}, Duration{"few weeks (~3)", 3 * MinutesPerWeek}},
	{[]string{"past week", "last week"}, Duration{"1 week", MinutesPerWeek}},
	{[]string{"past day", "last day"}, Duration{"1 day", MinutesPerDay}},
	{[]string{"half hour", "half an hour"}, Duration{"30 minutes", 30}},
	{[]string{"hour and a half", "an hour and a half"}, Duration{"90 minutes", 90}},
}

// numberWords maps spelled quantities to values.
var numberWords = map[string]float64{
	"a": 1, "an": 1, "one": 1,
	"two": 2, "couple": 2,
	"three": 3,
	"four":  4,
	"five":  5,
}

// unitPrefixes maps a unit token prefix to its singular name and minutes.
var unitPrefixes = []struct {
	prefix  string
	unit    string
	minutes float64
}{
	{"min", "minute", 1},
	{"hour", "hour", MinutesPerHour},
	{"hr", "hour", MinutesPerHour},
	{"day", "day", MinutesPerDay},
	{"week", "week", MinutesPerWeek},
}

var decimalRegex = regexp.MustCompile(`^\d+(\.\d+)?$`)

// ParseDuration extracts a duration from normalized text. ok is false when no
// duration phrase is present.
func ParseDuration(norm string) (d Duration, ok bool) {
	for _, id := range idioms {
		for _, p := range id.phrases {
			if strings.Contains(norm, p) {
				return id.result, true
			}
		}
	}

	tokens := textnorm.Tokens(norm)
	for i := 0; i+1 < len(tokens); i++ {
		value, isNum := parseNumber(tokens[i])
		if !isNum {
			continue
		}
		next := tokens[i+1]
		for _, u := range unitPrefixes {
			if strings.HasPrefix(next, u.prefix) {
				return Duration{Label: FormatLabel(value, u.unit), Minutes: value * u.minutes}, true
			}
		}
	}
	return Duration{}, false
}

func parseNumber(tok string) (float64, bool) {
	if v, ok := numberWords[tok]; ok {
		return v, true
	}
	if !decimalRegex.MatchString(tok) {
		return 0, false
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FormatLabel renders "<value> <unit>[s]". Whole values print without
// decimals, others with two; the unit is plural unless |value| == 1.
func FormatLabel(value float64, unit string) string {
	var num string
	if math.Abs(value-math.Round(value)) < 0.0001 {
		whole := math.Round(value)
		if whole == 0 {
			whole = 0 // drop the sign of -0
		}
		num = strconv.FormatFloat(whole, 'f', 0, 64)
	} else {
		num = fmt.Sprintf("%.2f", value)
	}
	if math.Abs(value) != 1 {
		unit += "s"
	}
	return num + " " + unit
}
