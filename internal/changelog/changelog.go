// Package changelog turns raw amendment records into display-ready change
// histories. Producers serialize the same date in several different shapes,
// so a naive string comparison reports edits that never happened; the
// pipeline here normalizes values before comparing, drops bookkeeping fields
// and cosmetic changes, and formats what survives for display.
package changelog

import (
	"strings"
	"time"
)

// dateFormats lists accepted date/time layouts, most specific first
var dateFormats = []string{
	"2006-01-02T15:04:05Z07:00", // RFC3339
	"2006-01-02T15:04:05Z",      // UTC
	"2006-01-02 15:04:05",       // DateTime
	"2006-01-02",                // Date
}

// IsTemporalField reports whether a field name heuristically indicates a
// date/time value: the lowercased name contains "date" or "expiry".
// The match is substring based, so names like "validateFlag" are classified
// as temporal. That matches the producers' behavior and is relied on
// downstream; do not tighten to a whole-word match.
func IsTemporalField(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "date") || strings.Contains(lower, "expiry")
}

// NormalizeValue canonicalizes a raw value for comparison. Temporal fields
// are parsed as dates and reduced to the UTC calendar date in YYYY-MM-DD
// form; zoneless inputs are interpreted as UTC, zoned inputs are converted.
// Anything that does not parse, and every non-temporal field, passes through
// unchanged. Normalization is idempotent.
func NormalizeValue(raw, field string) string {
	if !IsTemporalField(field) {
		return raw
	}

	t, ok := parseDate(raw)
	if !ok {
		return raw
	}
	return t.UTC().Format("2006-01-02")
}

// parseDate attempts to parse a value against the accepted layouts
func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	for _, format := range dateFormats {
		if t, err := time.Parse(format, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
