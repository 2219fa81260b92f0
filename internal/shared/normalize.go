package shared

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeEmail trims and lower-cases an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(email))
}

// NormalizeKey trims and lower-cases resource and action identifiers.
func NormalizeKey(key string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(key))
}
