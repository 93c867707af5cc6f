package core

// convert.go turns the loosely typed strings of element records into numbers and dates.
//
// Input comes from user edits and model extraction, so it is messy:
//   - Units trailing the number ("2.50 m³")
//   - Multiple date formats (ISO, US, EU)
//   - The literal "not specified" exported by some authoring tools
//
// Nothing here returns an error for bad input. Aggregation treats unparseable
// values as 0 and persistence treats them as null.

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// NotSpecified is the placeholder some model exports use for empty values.
const NotSpecified = "not specified"

// numericPrefix matches a leading decimal number with optional exponent.
var numericPrefix = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would land more than this many years in the future
// are moved to the previous century.
var TwoDigitYearPivot = 20

// DateLayout is the canonical date format stored on records.
const DateLayout = "2006-01-02"

var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006", "20060102",
		time.RFC3339,
	}
)

// ParseNumber reads the longest numeric prefix of a field value after leading
// whitespace, so "2.50 m³" is 2.5 and "1,5" is 1. ok is false when the value
// does not start with a number, in which case n is 0.
func ParseNumber(s string) (n float64, ok bool) {
	m := numericPrefix.FindString(strings.TrimLeftFunc(s, unicode.IsSpace))
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// NumberOrZero returns the parsed value, or 0 when it does not parse.
func NumberOrZero(s string) float64 {
	n, _ := ParseNumber(s)
	return n
}

// NullableNumber converts a field value for persistence: nil when it does not parse.
func NullableNumber(s string) *float64 {
	n, ok := ParseNumber(s)
	if !ok {
		return nil
	}
	return &n
}

// FormatNumber renders a stored number back into record form.
// Integral values drop the decimal part.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ParseDate parses a date in any supported layout.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, NotSpecified) {
		return time.Time{}, false
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// NormalizeDate rewrites a parseable date into DateLayout and leaves anything else as typed.
func NormalizeDate(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return strings.TrimSpace(s)
	}
	return t.Format(DateLayout)
}
