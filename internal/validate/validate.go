// Package validate checks tutoring request text before any provider work.
package validate

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// MaxPromptLen bounds questions, free-form prompts and pre-built prompts.
	MaxPromptLen = 32000
	// MaxTopicLen bounds topic fields of quiz and teaching-content requests.
	MaxTopicLen = 500
)

// Kind identifies which bound a text field violated.
type Kind string

const (
	Empty      Kind = "empty"
	TooLong    Kind = "too_long"
	OutOfRange Kind = "out_of_range"
	NotAllowed Kind = "not_allowed"
)

// Error is returned when a request field is outside its allowed bounds.
type Error struct {
	Field  string
	Kind   Kind
	Limit  int
	Length int

	Min, Max int
	Allowed  []string
}

func (e *Error) Error() string {
	switch e.Kind {
	case Empty:
		return fmt.Sprintf("%s is required and must not be empty", e.Field)
	case OutOfRange:
		return fmt.Sprintf("%s must be between %d and %d", e.Field, e.Min, e.Max)
	case NotAllowed:
		return fmt.Sprintf("%s must be one of: %s", e.Field, strings.Join(e.Allowed, ", "))
	default:
		return fmt.Sprintf("%s is too long: %d characters, maximum is %d", e.Field, e.Length, e.Limit)
	}
}

// Text trims s and reports whether its length is within [1, max].
// Length is counted in runes.
func Text(field, s string, max int) error {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	if n < 1 {
		return &Error{Field: field, Kind: Empty, Limit: max}
	}
	if n > max {
		return &Error{Field: field, Kind: TooLong, Limit: max, Length: n}
	}
	return nil
}

// Prompt validates a field against MaxPromptLen.
func Prompt(field, s string) error {
	return Text(field, s, MaxPromptLen)
}

// Topic validates a field against MaxTopicLen.
func Topic(field, s string) error {
	return Text(field, s, MaxTopicLen)
}

// Optional is Text for fields that may be left blank: an empty or
// whitespace-only s passes, anything else must fit within max.
func Optional(field, s string, max int) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return Text(field, s, max)
}

// Context validates the optional free-text context of a request against
// MaxPromptLen.
func Context(s string) error {
	return Optional("context", s, MaxPromptLen)
}

// Range reports whether n is within [min, max].
func Range(field string, n, min, max int) error {
	if n < min || n > max {
		return &Error{Field: field, Kind: OutOfRange, Min: min, Max: max}
	}
	return nil
}

// OneOf reports whether s is one of allowed.
func OneOf(field, s string, allowed ...string) error {
	for _, a := range allowed {
		if s == a {
			return nil
		}
	}
	return &Error{Field: field, Kind: NotAllowed, Allowed: allowed}
}
