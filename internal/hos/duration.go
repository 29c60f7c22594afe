// Package hos implements Hours-of-Service arithmetic over duty-status logs:
// interval durations, per-day aggregation, trip compliance and rule checks.
package hos

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrInvalidTimestamp is returned when a timestamp cannot be parsed.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// timestampLayouts are tried in order. Offset-less forms are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses an ISO-8601 timestamp as emitted by the backend.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidTimestamp)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
}

// IntervalHours returns (end - start) in fractional hours. If either
// timestamp fails to parse it returns NaN and an error wrapping
// ErrInvalidTimestamp.
func IntervalHours(start, end string) (float64, error) {
	s, err := ParseTimestamp(start)
	if err != nil {
		return math.NaN(), fmt.Errorf("start: %w", err)
	}
	e, err := ParseTimestamp(end)
	if err != nil {
		return math.NaN(), fmt.Errorf("end: %w", err)
	}
	return float64(e.Sub(s)) / float64(time.Hour), nil
}

// ContributionHours is IntervalHours with every failure mapped to zero.
// All summing callers go through it so a bad record never poisons a total.
func ContributionHours(start, end string) float64 {
	h, err := IntervalHours(start, end)
	if err != nil || math.IsNaN(h) || math.IsInf(h, 0) {
		return 0
	}
	return h
}
