// Package dateutils provides tolerant date parsing for the many locale
// variants that show up in source documents.
package dateutils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Common date format constants used throughout the application
const (
	DateLayoutISO      = "2006-01-02"
	DateLayoutEuropean = "02.01.2006"
	DateLayoutFull     = "2006-01-02 15:04:05"
)

// CommonFormats is the ordered list of layouts tried when parsing dates.
// Day-first layouts come before US month-first ones; a value like 03/04/2024
// is read as the 3rd of April. Unambiguous values are unaffected by ordering.
var CommonFormats = []string{
	DateLayoutISO,
	DateLayoutFull,
	"2006/01/02",
	"02/01/2006",
	"02.01.2006",
	"02-01-2006",
	"01-02-06",
	"01/02/2006",
	"2-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"02/01/06",
}

// ParseDate attempts to parse a date string using the common formats.
// Returns the parsed time and the layout that matched.
func ParseDate(dateStr string) (time.Time, string, error) {
	dateStr = CleanDateString(dateStr)
	if dateStr == "" {
		return time.Time{}, "", fmt.Errorf("empty date string")
	}

	for _, format := range CommonFormats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t, format, nil
		}
	}

	return time.Time{}, "", fmt.Errorf("unable to parse date: %s", dateStr)
}

// TryParseDate parses a date string and returns nil when no layout matches.
// Extractors use this: an unparseable date is retained as null, never fatal.
func TryParseDate(dateStr string) *time.Time {
	t, _, err := ParseDate(dateStr)
	if err != nil {
		return nil
	}
	return &t
}

// ToISODate formats a time.Time value as an ISO date (YYYY-MM-DD)
func ToISODate(date time.Time) string {
	return date.Format(DateLayoutISO)
}

var multiSpace = regexp.MustCompile(`\s+`)

// CleanDateString trims and normalizes whitespace in a date string
func CleanDateString(dateStr string) string {
	return multiSpace.ReplaceAllString(strings.TrimSpace(dateStr), " ")
}

// WithinDays reports whether two dates are at most n calendar days apart.
// Nil dates are never "within" anything.
func WithinDays(a, b *time.Time, n int) bool {
	if a == nil || b == nil {
		return false
	}
	diff := a.Sub(*b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= time.Duration(n)*24*time.Hour
}
