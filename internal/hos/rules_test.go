package hos_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mwapsam/tracker/internal/domain"
	"github.com/Mwapsam/tracker/internal/hos"
)

func rules(vs []hos.Violation) []hos.Rule {
	out := make([]hos.Rule, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Rule)
	}
	return out
}

func TestCheckDay_Clean(t *testing.T) {
	entry := domain.LogEntry{Date: "2025-03-01", DutyStatuses: []domain.DutyStatusRecord{
		record(domain.StatusOnDuty, "2025-03-01T06:00:00Z", "2025-03-01T07:00:00Z"),
		record(domain.StatusDriving, "2025-03-01T07:00:00Z", "2025-03-01T12:00:00Z"),
		record(domain.StatusOffDuty, "2025-03-01T12:00:00Z", "2025-03-01T12:30:00Z"),
		record(domain.StatusDriving, "2025-03-01T12:30:00Z", "2025-03-01T17:00:00Z"),
		record(domain.StatusSleeperBerth, "2025-03-01T17:00:00Z", "2025-03-02T03:00:00Z"),
	}}

	assert.Empty(t, hos.CheckDay(entry))
}

func TestCheckDay_DrivingLimit(t *testing.T) {
	entry := domain.LogEntry{Date: "2025-03-01", AdverseConditions: true, DutyStatuses: []domain.DutyStatusRecord{
		record(domain.StatusDriving, "2025-03-01T00:00:00Z", "2025-03-01T06:00:00Z"),
		record(domain.StatusOffDuty, "2025-03-01T06:00:00Z", "2025-03-01T07:00:00Z"),
		record(domain.StatusDriving, "2025-03-01T07:00:00Z", "2025-03-01T13:00:00Z"),
	}}

	assert.Equal(t, []hos.Rule{hos.RuleDrivingLimit}, rules(hos.CheckDay(entry)))
}

func TestCheckDay_DutyWindow(t *testing.T) {
	entry := domain.LogEntry{Date: "2025-03-01", DutyStatuses: []domain.DutyStatusRecord{
		record(domain.StatusOnDuty, "2025-03-01T04:00:00Z", "2025-03-01T05:00:00Z"),
		record(domain.StatusOffDuty, "2025-03-01T05:00:00Z", "2025-03-01T15:00:00Z"),
		record(domain.StatusDriving, "2025-03-01T15:00:00Z", "2025-03-01T19:00:00Z"),
	}}

	assert.Equal(t, []hos.Rule{hos.RuleDutyWindow}, rules(hos.CheckDay(entry)))

	entry.AdverseConditions = true
	assert.Empty(t, hos.CheckDay(entry))
}

func TestCheckDay_BreakRequired(t *testing.T) {
	entry := domain.LogEntry{Date: "2025-03-01", AdverseConditions: true, DutyStatuses: []domain.DutyStatusRecord{
		record(domain.StatusDriving, "2025-03-01T06:00:00Z", "2025-03-01T11:00:00Z"),
		record(domain.StatusOffDuty, "2025-03-01T11:00:00Z", "2025-03-01T11:15:00Z"),
		record(domain.StatusDriving, "2025-03-01T11:15:00Z", "2025-03-01T15:00:00Z"),
	}}

	vs := hos.CheckDay(entry)
	require.Len(t, vs, 1)
	assert.Equal(t, hos.RuleBreakRequired, vs[0].Rule)
	assert.Equal(t, 2, vs[0].RecordIndex)
}

func TestCheckDay_SleeperBerthMinimum(t *testing.T) {
	entry := domain.LogEntry{Date: "2025-03-01", DutyStatuses: []domain.DutyStatusRecord{
		record(domain.StatusSleeperBerth, "2025-03-01T00:00:00Z", "2025-03-01T04:00:00Z"),
	}}

	vs := hos.CheckDay(entry)
	require.Len(t, vs, 1)
	assert.Equal(t, hos.RuleSleeperBerth, vs[0].Rule)
	assert.Equal(t, "2025-03-01", vs[0].Date)
}

func TestCheckDay_InvalidTimestamp(t *testing.T) {
	entry := domain.LogEntry{Date: "2025-03-01", DutyStatuses: []domain.DutyStatusRecord{
		record(domain.StatusDriving, "bad", "2025-03-01T04:00:00Z"),
	}}

	assert.Equal(t, []hos.Rule{hos.RuleInvalidTimestamp}, rules(hos.CheckDay(entry)))
}

func TestCheckAll(t *testing.T) {
	entries := []domain.LogEntry{
		{Date: "a", DutyStatuses: []domain.DutyStatusRecord{record(domain.StatusSleeperBerth, "2025-03-01T00:00:00Z", "2025-03-01T01:00:00Z")}},
		{Date: "b", DutyStatuses: []domain.DutyStatusRecord{record(domain.StatusSleeperBerth, "2025-03-02T00:00:00Z", "2025-03-02T01:00:00Z")}},
	}

	vs := hos.CheckAll(entries)
	require.Len(t, vs, 2)
	assert.Equal(t, "a", vs[0].Date)
	assert.Equal(t, "b", vs[1].Date)
}

func TestLastRestart(t *testing.T) {
	entries := []domain.LogEntry{{DutyStatuses: []domain.DutyStatusRecord{
		record(domain.StatusDriving, "2025-03-01T00:00:00Z", "2025-03-01T08:00:00Z"),
		record(domain.StatusOffDuty, "2025-03-01T08:00:00Z", "2025-03-02T20:00:00Z"),
		record(domain.StatusDriving, "2025-03-02T20:00:00Z", "2025-03-02T22:00:00Z"),
	}}}

	got, ok := hos.LastRestart(entries)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 2, 20, 0, 0, 0, time.UTC), got.UTC())

	_, ok = hos.LastRestart([]domain.LogEntry{{DutyStatuses: []domain.DutyStatusRecord{
		record(domain.StatusOffDuty, "2025-03-01T08:00:00Z", "2025-03-02T08:00:00Z"),
	}}})
	assert.False(t, ok)
}

func TestPlanStops(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	stops := hos.PlanStops(2500, 17, start)

	require.Len(t, stops, 4)
	assert.Equal(t, domain.StopTypeRest, stops[0].StopType)
	assert.Equal(t, start.Add(8*time.Hour), stops[0].ScheduledTime)
	assert.Equal(t, "10:00:00", stops[0].Duration)
	assert.Equal(t, domain.StopTypeRest, stops[1].StopType)
	assert.Equal(t, start.Add(16*time.Hour), stops[1].ScheduledTime)
	assert.Equal(t, domain.StopTypeFuel, stops[2].StopType)
	assert.Equal(t, "Fuel Stop at Mile 1000", stops[2].LocationName)
	assert.Equal(t, start.Add(20*time.Hour), stops[2].ScheduledTime)
	assert.Equal(t, "00:30:00", stops[2].Duration)
	assert.Equal(t, start.Add(40*time.Hour), stops[3].ScheduledTime)

	assert.Empty(t, hos.PlanStops(999, 8, start))
}
