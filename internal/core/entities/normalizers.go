package entities

import "strings"

// Continents maps known misspellings in the store API to canonical names.
var Continents = map[string]string{
	"eeEurope":  "Europe",
	"eeAmerica": "America",
}

// NormalizeContinent replaces known continent typos.
// Other values, including non-strings, are returned as-is.
func NormalizeContinent(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if fixed, ok := Continents[strings.TrimSpace(s)]; ok {
		return fixed
	}
	return s
}

// normalizeHeader lower-cases and trims a column name.
func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
