package core

// validation.go provides the two levels of checking the cleaner performs:
//  1. Field contract: every required field must be present in the batch
//     header before a recipe runs, otherwise the whole entity fails
//  2. Row predicates: domain checks (email shape, card provider, store code
//     sentinel, country code length) that drop individual rows

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ErrMissingColumns is wrapped by every StructuralError.
var ErrMissingColumns = errors.New("missing required columns")

// StructuralError reports required fields absent from a raw batch.
// It is not recoverable within the entity.
type StructuralError struct {
	Entity  string
	Missing []string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Entity, ErrMissingColumns, strings.Join(e.Missing, ", "))
}

func (e *StructuralError) Unwrap() error { return ErrMissingColumns }

// CheckFields verifies that every required spec is present in columns.
// Returns a *StructuralError listing all missing fields, or nil.
func CheckFields(entity string, specs []FieldSpec, columns []string) error {
	var missing []string
	for _, spec := range specs {
		if spec.Required && !slices.Contains(columns, spec.Name) {
			missing = append(missing, spec.Name)
		}
	}
	if len(missing) > 0 {
		return &StructuralError{Entity: entity, Missing: missing}
	}
	return nil
}

// emailRegex accepts local@domain.tld with no whitespace.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether v is a string shaped like local@domain.tld.
// The value is expected to be trimmed and lower-cased already.
func ValidEmail(v any) bool {
	s, ok := v.(string)
	return ok && emailRegex.MatchString(s)
}

// CardProviders is the allow-list of card providers accepted into dim_card_details.
var CardProviders = []string{
	"Diners Club / Carte Blanche",
	"American Express",
	"JCB 16 digit",
	"JCB 15 digit",
	"Maestro",
	"Mastercard",
	"Discover",
	"VISA 19 digit",
	"VISA 16 digit",
	"VISA 13 digit",
}

// ValidCardProvider reports whether v exactly matches an allow-listed provider.
func ValidCardProvider(v any) bool {
	s, ok := v.(string)
	return ok && slices.Contains(CardProviders, s)
}

// IsNullSentinel reports whether v is the literal string "NULL" (any case),
// which some sources emit instead of a real missing value.
func IsNullSentinel(v any) bool {
	s, ok := v.(string)
	return ok && strings.EqualFold(strings.TrimSpace(s), "NULL")
}

// ValidCountryCode reports whether v is a string of at most two characters
// once upper-cased. Null values are rejected.
func ValidCountryCode(v any) bool {
	s, ok := v.(string)
	return ok && len([]rune(strings.ToUpper(s))) <= 2
}
