package hos

import (
	"encoding/json"

	"github.com/Mwapsam/tracker/internal/domain"
)

// DailySummary holds the per-status hour totals for one date.
type DailySummary struct {
	Date              string  `json:"date"`
	DrivingHours      float64 `json:"driving_hours"`
	OnDutyHours       float64 `json:"on_duty_hours"`
	OffDutyHours      float64 `json:"off_duty_hours"`
	SleeperBerthHours float64 `json:"sleeper_berth_hours"`
}

// Total returns the sum of all four buckets.
func (s DailySummary) Total() float64 {
	return s.DrivingHours + s.OnDutyHours + s.OffDutyHours + s.SleeperBerthHours
}

// OnDutyTotal returns driving plus on-duty-not-driving hours.
func (s DailySummary) OnDutyTotal() float64 {
	return s.DrivingHours + s.OnDutyHours
}

func (s *DailySummary) add(code domain.DutyStatusCode, hours float64) bool {
	switch code {
	case domain.StatusDriving:
		s.DrivingHours += hours
	case domain.StatusOnDuty:
		s.OnDutyHours += hours
	case domain.StatusOffDuty:
		s.OffDutyHours += hours
	case domain.StatusSleeperBerth:
		s.SleeperBerthHours += hours
	default:
		return false
	}
	return true
}

// Summaries is an insertion-ordered map of date to DailySummary.
type Summaries struct {
	order        []string
	byDate       map[string]*DailySummary
	unrecognized int
}

// Aggregate reduces log entries into per-date totals. Dates appear in the
// order they are first seen; a date with no records still gets a zeroed
// summary. Records with unknown status codes are skipped. Overlapping
// intervals are summed as-is.
func Aggregate(entries []domain.LogEntry) *Summaries {
	s := &Summaries{byDate: make(map[string]*DailySummary)}
	for _, entry := range entries {
		sum, ok := s.byDate[entry.Date]
		if !ok {
			sum = &DailySummary{Date: entry.Date}
			s.byDate[entry.Date] = sum
			s.order = append(s.order, entry.Date)
		}
		for _, rec := range entry.DutyStatuses {
			if !sum.add(rec.Status, ContributionHours(rec.StartTime, rec.EndTime)) {
				s.unrecognized++
			}
		}
	}
	return s
}

// Len returns the number of dates.
func (s *Summaries) Len() int {
	return len(s.order)
}

// Dates returns the dates in first-seen order.
func (s *Summaries) Dates() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Get returns the summary for date.
func (s *Summaries) Get(date string) (DailySummary, bool) {
	sum, ok := s.byDate[date]
	if !ok {
		return DailySummary{}, false
	}
	return *sum, true
}

// List returns the summaries in first-seen order.
func (s *Summaries) List() []DailySummary {
	out := make([]DailySummary, 0, len(s.order))
	for _, d := range s.order {
		out = append(out, *s.byDate[d])
	}
	return out
}

// Unrecognized returns how many records were skipped for an unknown code.
func (s *Summaries) Unrecognized() int {
	return s.unrecognized
}

// MarshalJSON encodes the summaries as an array in first-seen order.
func (s *Summaries) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.List())
}
