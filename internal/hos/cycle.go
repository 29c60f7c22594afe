package hos

import (
	"time"

	"github.com/Mwapsam/tracker/internal/domain"
)

// Cycle is a rolling on-duty limit.
type Cycle struct {
	Name       string
	LimitHours float64
	Days       int
}

// Supported cycles.
var (
	Cycle70Hour8Day = Cycle{Name: "70/8", LimitHours: 70, Days: 8}
	Cycle60Hour7Day = Cycle{Name: "60/7", LimitHours: 60, Days: 7}
)

// CycleByChoice maps a carrier's cycle choice ("70" or "60") to a Cycle.
// Anything other than "60" selects the 70-hour cycle.
func CycleByChoice(choice string) Cycle {
	if choice == "60" {
		return Cycle60Hour7Day
	}
	return Cycle70Hour8Day
}

// Remaining returns the hours left in the cycle given hours used.
func (c Cycle) Remaining(used float64) float64 {
	if used >= c.LimitHours {
		return 0
	}
	return c.LimitHours - used
}

// CycleUsed sums driving and on-duty hours of records that start within the
// cycle's rolling window ending at asOf.
func CycleUsed(entries []domain.LogEntry, cycle Cycle, asOf time.Time) float64 {
	windowStart := asOf.Add(-time.Duration(cycle.Days) * 24 * time.Hour)
	var used float64
	for _, entry := range entries {
		for _, rec := range entry.DutyStatuses {
			if rec.Status != domain.StatusDriving && rec.Status != domain.StatusOnDuty {
				continue
			}
			start, err := ParseTimestamp(rec.StartTime)
			if err != nil || start.Before(windowStart) || start.After(asOf) {
				continue
			}
			used += ContributionHours(rec.StartTime, rec.EndTime)
		}
	}
	return used
}
