// Package timestamp provides standardized UTC timestamp handling for message metadata.
//
// Message origin dates travel on the wire as ISO-8601 strings in UTC with exactly six
// fractional digits (microsecond precision), for example "2024-03-01T09:15:42.123456Z".
// All helpers in this package normalize to that representation.
//
// Zero Value Semantics:
//   - A zero time.Time means "not set"
//   - Format returns an empty string for the zero time; Parse of "" returns the zero time
//
// Usage Examples:
//
//	// Current time at wire precision
//	now := timestamp.Now()
//
//	// Format for the envelope
//	s := timestamp.Format(now)
//
//	// Parse back
//	t, err := timestamp.Parse(s)
package timestamp

import (
	"fmt"
	"time"
)

// Layout is the wire layout for origin timestamps.
const Layout = "2006-01-02T15:04:05.000000Z"

// Now returns the current UTC time truncated to microseconds.
func Now() time.Time {
	return Normalize(time.Now())
}

// Normalize converts t to UTC and truncates it to microsecond precision.
// The zero time is returned unchanged.
func Normalize(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(time.Microsecond)
}

// Format renders t in the wire layout. Returns empty string if t is zero.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return Normalize(t).Format(Layout)
}

// Parse reads a wire timestamp. RFC3339 with any fractional precision and any
// offset is accepted; the result is normalized to UTC microseconds.
func Parse(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	if t, err := time.Parse(Layout, s); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp: cannot parse %q: %w", s, err)
	}
	return Normalize(t), nil
}

// Validate checks that t is set and not unreasonably far in the future (year 3000).
func Validate(t time.Time) error {
	if t.IsZero() {
		return fmt.Errorf("timestamp is not set")
	}
	if t.Year() >= 3000 {
		return fmt.Errorf("timestamp too far in future: %s", Format(t))
	}
	return nil
}
