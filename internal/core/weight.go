package core

import (
	"math"
	"strconv"
	"strings"
)

// ParseWeight converts a free-text product weight to kilograms.
//
// Accepted forms, checked in order:
//
//	"12 x 100g"   multipack: quantity times unit weight
//	"0.5kg"       kilograms
//	"250g"        grams
//	"330ml"       millilitres, taken as grams
//	"16oz"        anything else: digits taken as grams
//
// "kg" is always tested before "g". Anything that cannot be parsed yields 0.
//
// Numbers are taken as kilograms already and returned unchanged rather
// than zeroed, so a cleaned weight column parses to itself and a source
// that already delivers numeric kilograms keeps its values.
func ParseWeight(v any) float64 {
	switch x := v.(type) {
	case string:
		return finite(parseWeightText(x))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0
		}
		return x
	case int64:
		return float64(x)
	default:
		return 0
	}
}

func parseWeightText(s string) float64 {
	s = strings.ToLower(strings.TrimSpace(s))

	if strings.Contains(s, "x") {
		return parseMultipack(s)
	}

	switch {
	case strings.Contains(s, "kg"):
		return parseUnitWeight(s, "kg", 1)
	case strings.Contains(s, "g"):
		return parseUnitWeight(s, "g", 1000)
	case strings.Contains(s, "ml"):
		return parseUnitWeight(s, "ml", 1000)
	}

	digits := strings.TrimRight(keepNumeric(s), ".")
	if digits == "" {
		return 0
	}
	f, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0
	}
	return f / 1000
}

// parseMultipack handles "<N> x <value><unit>".
func parseMultipack(s string) float64 {
	parts := strings.Split(s, "x")
	if len(parts) != 2 {
		return 0
	}

	qty, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0
	}
	value, err := strconv.ParseFloat(keepNumeric(strings.TrimSpace(parts[1])), 64)
	if err != nil {
		return 0
	}

	unit := parts[1]
	switch {
	case strings.Contains(unit, "kg"):
		return float64(qty) * value
	case strings.Contains(unit, "g"), strings.Contains(unit, "ml"):
		return float64(qty) * value / 1000
	default:
		return 0
	}
}

// parseUnitWeight removes the unit and any trailing dots, then divides by divisor.
func parseUnitWeight(s, unit string, divisor float64) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, unit, ""))
	s = strings.TrimSpace(strings.TrimRight(s, "."))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f / divisor
}

// keepNumeric drops everything except digits and dots.
func keepNumeric(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
