package trip

import (
	"context"
	"time"

	"github.com/Mwapsam/tracker/internal/domain"
	"github.com/Mwapsam/tracker/internal/hos"
)

// View is the dashboard projection of the current trip at a point in time.
type View struct {
	State            State        `json:"state"`
	Trip             *domain.Trip `json:"trip"`
	Progress         float64      `json:"progress"`
	CompletedStops   int          `json:"completed_stops"`
	TotalStops       int          `json:"total_stops"`
	DistanceCovered  int          `json:"distance_covered"`
	RemainingHours   float64      `json:"remaining_hours"`
	RemainingPercent float64      `json:"remaining_percent"`
	EstimatedTime    string       `json:"estimated_time"`
	AverageSpeed     float64      `json:"average_speed"`
	CycleUsed        float64      `json:"cycle_used"`
	Cycle            string       `json:"cycle"`
	CycleLimit       float64      `json:"cycle_limit"`
	EvaluatedAt      time.Time    `json:"evaluated_at"`
}

// View derives the dashboard projection. Progress is computed against now on
// every call.
func (c *Controller) View(now time.Time) View {
	c.mu.RLock()
	cur := c.currentLocked()
	v := View{
		State:       StateOf(cur),
		CycleUsed:   c.projection.Used(),
		Cycle:       c.cycle.Name,
		CycleLimit:  c.cycle.LimitHours,
		EvaluatedAt: now,
	}
	var t domain.Trip
	if cur != nil {
		t = cur.Clone()
	}
	c.mu.RUnlock()

	if cur == nil {
		return v
	}

	v.Trip = &t
	v.Progress = hos.Progress(t, now)
	v.CompletedStops = completedStops(t, now)
	v.TotalStops = len(t.Stops)
	v.DistanceCovered = hos.DistanceCovered(t, now)
	v.RemainingHours = t.RemainingHours
	v.RemainingPercent = hos.RemainingCyclePercent(t.RemainingHours, c.cycle)
	v.EstimatedTime = hos.FormatRemaining(t.EstimatedDuration)
	v.AverageSpeed = t.Speed()
	return v
}

// Now returns the view at the controller's clock.
func (c *Controller) Now() View {
	return c.View(c.clock())
}

func completedStops(t domain.Trip, now time.Time) int {
	n := 0
	for _, s := range t.Stops {
		if s.ActualTime != nil && s.ActualTime.Before(now) {
			n++
		}
	}
	return n
}

// Logs fetches the driver's log entries.
func (c *Controller) Logs(ctx context.Context) ([]domain.LogEntry, error) {
	if c.logs == nil {
		return nil, ErrNoLogSource
	}
	ctx, span := c.tracer.Start(ctx, "trip.fetch_logs")
	defer span.End()

	entries, err := c.logs.FetchLogs(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return entries, nil
}

// DailySummaries fetches logs and aggregates them per date.
func (c *Controller) DailySummaries(ctx context.Context) (*hos.Summaries, error) {
	entries, err := c.Logs(ctx)
	if err != nil {
		return nil, err
	}
	summaries := hos.Aggregate(entries)
	if n := summaries.Unrecognized(); n > 0 {
		c.logger.Debug().Int("records", n).Msg("ignored duty statuses with unknown codes")
	}
	return summaries, nil
}

// Violations fetches logs and runs the per-day HOS checks.
func (c *Controller) Violations(ctx context.Context) ([]hos.Violation, error) {
	entries, err := c.Logs(ctx)
	if err != nil {
		return nil, err
	}
	return hos.CheckAll(entries), nil
}

// CycleUsedFromLogs sums on-duty hours in the configured cycle window.
func (c *Controller) CycleUsedFromLogs(ctx context.Context) (float64, error) {
	entries, err := c.Logs(ctx)
	if err != nil {
		return 0, err
	}
	return hos.CycleUsed(entries, c.cycle, c.clock()), nil
}

// LogReport is one fetch of the driver's logs, aggregated and checked.
type LogReport struct {
	Summaries  *hos.Summaries
	Violations []hos.Violation
	CycleUsed  float64
	Cycle      hos.Cycle
}

// Report fetches logs once and derives summaries, violations and cycle use.
func (c *Controller) Report(ctx context.Context) (LogReport, error) {
	entries, err := c.Logs(ctx)
	if err != nil {
		return LogReport{}, err
	}
	return LogReport{
		Summaries:  hos.Aggregate(entries),
		Violations: hos.CheckAll(entries),
		CycleUsed:  hos.CycleUsed(entries, c.cycle, c.clock()),
		Cycle:      c.cycle,
	}, nil
}
