package validator

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrEmptyID indicates a required identifier is missing
	ErrEmptyID = errors.New("identifier cannot be empty")

	// ErrInvalidID indicates an identifier is not an RFC 4122 UUID (versions 1-5)
	ErrInvalidID = errors.New("identifier must be a valid UUID")

	// ErrEmptyDate indicates a required date is missing
	ErrEmptyDate = errors.New("date cannot be empty")

	// ErrInvalidDate indicates a date is neither YYYY-MM-DD nor RFC 3339
	ErrInvalidDate = errors.New("date must be formatted as YYYY-MM-DD or RFC 3339")
)

// uuidRegex matches RFC 4122 UUIDs of versions 1 through 5
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[1-5][0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)

// dateLayouts are tried in order by ParseDate
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	time.RFC3339,
}

// ParseID validates and parses a resource identifier
func ParseID(value string) (uuid.UUID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return uuid.Nil, ErrEmptyID
	}

	if !uuidRegex.MatchString(value) {
		return uuid.Nil, ErrInvalidID
	}

	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, ErrInvalidID
	}

	return id, nil
}

// IsValidID reports whether value is a well-formed identifier
func IsValidID(value string) bool {
	_, err := ParseID(value)
	return err == nil
}

// ParseDate parses a calendar date or timestamp and returns its UTC calendar
// date. Any time of day is dropped so ranges are compared and billed on the
// same dates that are stored.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrEmptyDate
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return StartOfDay(t), nil
		}
	}

	return time.Time{}, ErrInvalidDate
}

// StartOfDay truncates t to midnight UTC of its calendar day
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
