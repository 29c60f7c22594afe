package hos

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Mwapsam/tracker/internal/domain"
)

// CycleIncrement is how much the advisory cycle projection grows per tick.
const CycleIncrement = 0.1

// ErrInvalidDuration is returned for malformed trip durations.
var ErrInvalidDuration = errors.New("invalid duration")

// Progress returns the percentage (0..100) of stops whose actual time is
// strictly before now. A trip with no stops or no distance has 0 progress.
func Progress(trip domain.Trip, now time.Time) float64 {
	if len(trip.Stops) == 0 || trip.Distance == nil || *trip.Distance == 0 {
		return 0
	}
	completed := 0
	for _, stop := range trip.Stops {
		if stop.ActualTime != nil && stop.ActualTime.Before(now) {
			completed++
		}
	}
	return float64(completed) / float64(len(trip.Stops)) * 100
}

// DistanceCovered returns the distance implied by Progress, rounded to the
// nearest whole unit.
func DistanceCovered(trip domain.Trip, now time.Time) int {
	if trip.Distance == nil {
		return 0
	}
	return int(math.Round(Progress(trip, now) / 100 * *trip.Distance))
}

// RemainingCyclePercent converts remaining cycle hours into the share of the
// cycle limit, clamped to [0, 100].
func RemainingCyclePercent(remaining float64, cycle Cycle) float64 {
	if cycle.LimitHours <= 0 {
		return 0
	}
	pct := remaining / cycle.LimitHours * 100
	return math.Max(0, math.Min(100, pct))
}

// ParseTripDuration parses a backend duration of the form "D HH:MM[:SS]"
// or "HH:MM[:SS]".
func ParseTripDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidDuration)
	}

	var days int
	clock := s
	if before, after, ok := strings.Cut(s, " "); ok {
		d, err := strconv.Atoi(before)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
		}
		days = d
		clock = strings.TrimSpace(after)
	}

	parts := strings.Split(clock, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
	var seconds float64
	if len(parts) == 3 {
		seconds, err = strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
		}
	}

	d := time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second))
	return d, nil
}

// FormatRemaining renders a backend duration as "Nh MMm remaining", or
// "N/A" when it cannot be parsed.
func FormatRemaining(s string) string {
	d, err := ParseTripDuration(s)
	if err != nil {
		return "N/A"
	}
	total := int(d / time.Minute)
	return fmt.Sprintf("%dh %02dm remaining", total/60, total%60)
}

// CycleProjection is a local, advisory estimate of cycle hours used while a
// trip is active. It is never written back to the trip.
type CycleProjection struct {
	used float64
}

// NewCycleProjection starts a projection at the given hours.
func NewCycleProjection(start float64) CycleProjection {
	return CycleProjection{used: start}
}

// Advance adds one CycleIncrement and returns the new value.
func (p *CycleProjection) Advance() float64 {
	p.used += CycleIncrement
	return p.used
}

// Used returns the projected hours.
func (p CycleProjection) Used() float64 {
	return p.used
}
