package core

// convert.go provides single-value coercers for raw source values.
//
// Source data arrives as strings, numbers, nulls or already-typed values
// depending on the extractor. Every coercer here:
//   - accepts any raw value and never panics
//   - returns nil when the value cannot be converted
//   - passes already-converted values through unchanged, so re-cleaning
//     a cleaned batch does not alter it

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TimestampLayout is the canonical text form of timestamps in snapshots and SQLite.
const TimestampLayout = "2006-01-02 15:04:05"

// dateLayouts are tried in order by ToDate. Layouts with a four-digit year come
// first; the source systems mix ISO dates with spelled-out month orderings.
var dateLayouts = []string{
	"2006-01-02",
	TimestampLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006/01/02",
	"2006 January 02",
	"2006 January 2",
	"January 2006 02",
	"January 2006 2",
	"2006 Jan 02",
	"2006 Jan 2",
	"Jan 2006 02",
	"Jan 2006 2",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"02 January 2006",
	"01/02/2006",
	"1/2/2006",
	"2006.01.02",
}

// CardExpiryLayouts parse month/two-digit-year expiry dates such as "09/26".
var CardExpiryLayouts = []string{"01/06", "1/06"}

// ToNumber converts a value to float64.
// Integers pass through as int64. Returns nil on failure.
func ToNumber(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case int64:
		return x
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return ToNumber(float64(x))
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	default:
		return nil
	}
}

// ToInteger converts a value to int64.
// Non-integral numbers and failures return nil.
func ToInteger(v any) any {
	switch n := ToNumber(v).(type) {
	case int64:
		return n
	case float64:
		if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			return nil
		}
		return int64(n)
	default:
		return nil
	}
}

// ToDate converts a value to time.Time using the permissive layout list.
// Returns nil if no layout matches.
func ToDate(v any) any {
	return parseTime(v, dateLayouts)
}

// ToDateLayout converts a value to time.Time using only the given layouts.
// Returns nil if no layout matches.
func ToDateLayout(v any, layouts ...string) any {
	return parseTime(v, layouts)
}

func parseTime(v any, layouts []string) any {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return nil
		}
		return x
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil
		}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
		return nil
	default:
		return nil
	}
}

// Strip trims surrounding whitespace. Non-strings are returned unchanged.
func Strip(v any) any {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return v
}

// Upper upper-cases a string value. Non-strings are returned unchanged.
func Upper(v any) any {
	if s, ok := v.(string); ok {
		return strings.ToUpper(s)
	}
	return v
}

// Lower lower-cases a string value. Non-strings are returned unchanged.
func Lower(v any) any {
	if s, ok := v.(string); ok {
		return strings.ToLower(s)
	}
	return v
}

// TitleCase capitalises the first letter of every word and lower-cases the rest.
// An apostrophe starts a new word, so "o'brien" becomes "O'Brien".
// Non-strings are returned unchanged.
func TitleCase(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}

	// A Caser keeps state between calls, so each call gets its own.
	caser := cases.Title(language.English)
	var b strings.Builder
	start := 0
	for i, r := range s {
		if r == '\'' || r == '’' {
			b.WriteString(caser.String(s[start:i]))
			b.WriteRune(r)
			start = i + utf8.RuneLen(r)
		}
	}
	b.WriteString(caser.String(s[start:]))
	return b.String()
}

// DigitsOnly keeps the decimal digits of a value.
// Numbers are formatted as integers first. Returns nil when no digit remains.
func DigitsOnly(v any) any {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case int64:
		s = strconv.FormatInt(x, 10)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		s = strconv.FormatFloat(x, 'f', 0, 64)
	default:
		return nil
	}

	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return nil
	}
	return b.String()
}

// IsDigits reports whether v is a non-empty string of decimal digits,
// or an integral number.
func IsDigits(v any) bool {
	switch x := v.(type) {
	case string:
		if x == "" {
			return false
		}
		for _, r := range x {
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	case int64:
		return x >= 0
	case float64:
		return x >= 0 && x == math.Trunc(x)
	default:
		return false
	}
}

// Chain composes coercers left to right.
func Chain(fns ...func(any) any) func(any) any {
	return func(v any) any {
		for _, fn := range fns {
			v = fn(v)
		}
		return v
	}
}
