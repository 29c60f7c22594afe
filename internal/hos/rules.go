package hos

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Mwapsam/tracker/internal/domain"
)

// Limits applied by CheckDay.
const (
	MaxDrivingHours      = 11.0
	DutyWindowHours      = 14.0
	BreakRequiredAfter   = 8.0
	MinBreakHours        = 0.5
	MinSleeperBerthHours = 6.0
	RestartHours         = 34.0
)

// Rule identifies a checked HOS rule.
type Rule string

// Checked rules.
const (
	RuleInvalidTimestamp Rule = "invalid_timestamp"
	RuleOverlap          Rule = "overlap"
	RuleDrivingLimit     Rule = "driving_limit_11h"
	RuleDutyWindow       Rule = "duty_window_14h"
	RuleBreakRequired    Rule = "break_30m"
	RuleSleeperBerth     Rule = "sleeper_berth_min"
)

// Violation describes one failed check for a log entry. RecordIndex is the
// index into the entry's duty statuses, or -1 for day-level rules.
type Violation struct {
	Date        string `json:"date"`
	Rule        Rule   `json:"rule"`
	Message     string `json:"message"`
	RecordIndex int    `json:"record_index"`
}

type timedRecord struct {
	index int
	code  domain.DutyStatusCode
	start time.Time
	end   time.Time
}

func (r timedRecord) hours() float64 {
	return r.end.Sub(r.start).Hours()
}

// CheckDay runs the HOS rule checks over one log entry. It only reports;
// aggregation is unaffected by anything found here.
func CheckDay(entry domain.LogEntry) []Violation {
	var violations []Violation
	add := func(rule Rule, idx int, format string, args ...any) {
		violations = append(violations, Violation{
			Date:        entry.Date,
			Rule:        rule,
			Message:     fmt.Sprintf(format, args...),
			RecordIndex: idx,
		})
	}

	records := make([]timedRecord, 0, len(entry.DutyStatuses))
	for i, rec := range entry.DutyStatuses {
		start, err := ParseTimestamp(rec.StartTime)
		if err != nil {
			add(RuleInvalidTimestamp, i, "start time: %v", err)
			continue
		}
		end, err := ParseTimestamp(rec.EndTime)
		if err != nil {
			add(RuleInvalidTimestamp, i, "end time: %v", err)
			continue
		}
		records = append(records, timedRecord{index: i, code: rec.Status, start: start, end: end})
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].start.Before(records[j].start)
	})

	var (
		latestEnd    time.Time
		driving      float64
		sinceBreak   float64
		breakFlagged bool
		windowStart  time.Time
		windowEnd    time.Time
	)
	for i, rec := range records {
		if i > 0 && rec.start.Before(latestEnd) {
			add(RuleOverlap, rec.index, "duty status periods cannot overlap")
		}
		if rec.end.After(latestEnd) {
			latestEnd = rec.end
		}

		switch rec.code {
		case domain.StatusDriving:
			driving += rec.hours()
			sinceBreak += round2(rec.hours())
		case domain.StatusOffDuty, domain.StatusSleeperBerth:
			if round2(rec.hours()) >= MinBreakHours {
				sinceBreak = 0
			}
		}
		if rec.code == domain.StatusSleeperBerth && rec.hours() < MinSleeperBerthHours {
			add(RuleSleeperBerth, rec.index, "sleeper berth must be at least %.0f hours long", MinSleeperBerthHours)
		}
		if sinceBreak > BreakRequiredAfter && !breakFlagged {
			breakFlagged = true
			add(RuleBreakRequired, rec.index, "30-minute break required after %.0f hours of driving", BreakRequiredAfter)
		}

		if rec.code == domain.StatusDriving || rec.code == domain.StatusOnDuty {
			if windowStart.IsZero() || rec.start.Before(windowStart) {
				windowStart = rec.start
			}
			if rec.end.After(windowEnd) {
				windowEnd = rec.end
			}
		}
	}

	if driving > MaxDrivingHours {
		add(RuleDrivingLimit, -1, "driving time %.2fh exceeds %.0f-hour limit", driving, MaxDrivingHours)
	}
	if !windowStart.IsZero() && !entry.AdverseConditions {
		if window := windowEnd.Sub(windowStart).Hours(); window > DutyWindowHours {
			add(RuleDutyWindow, -1, "%.0f-hour duty window exceeded (%.2fh) without adverse conditions", DutyWindowHours, window)
		}
	}
	return violations
}

// CheckAll runs CheckDay over every entry, preserving entry order.
func CheckAll(entries []domain.LogEntry) []Violation {
	var out []Violation
	for _, entry := range entries {
		out = append(out, CheckDay(entry)...)
	}
	return out
}

// LastRestart returns the end of the most recent qualifying 34-hour
// restart: an off-duty or sleeper-berth period of at least 34 hours with no
// driving or on-duty time inside the 34 hours before it ended.
func LastRestart(entries []domain.LogEntry) (time.Time, bool) {
	var all []timedRecord
	for _, entry := range entries {
		for _, rec := range entry.DutyStatuses {
			start, err1 := ParseTimestamp(rec.StartTime)
			end, err2 := ParseTimestamp(rec.EndTime)
			if err1 != nil || err2 != nil {
				continue
			}
			all = append(all, timedRecord{code: rec.Status, start: start, end: end})
		}
	}

	var latest time.Time
	for _, rec := range all {
		if rec.code != domain.StatusOffDuty && rec.code != domain.StatusSleeperBerth {
			continue
		}
		if rec.hours() < RestartHours {
			continue
		}
		from := rec.end.Add(-RestartHours * time.Hour)
		clean := true
		for _, other := range all {
			if other.code != domain.StatusDriving && other.code != domain.StatusOnDuty {
				continue
			}
			if other.start.Before(rec.end) && other.end.After(from) {
				clean = false
				break
			}
		}
		if clean && rec.end.After(latest) {
			latest = rec.end
		}
	}
	return latest, !latest.IsZero()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
