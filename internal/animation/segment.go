package animation

import (
	"math"

	"github.com/Mwapsam/tracker/internal/hos"
)

const (
	// BaseStep is the per-frame progress at ReferenceSpeedKmh.
	BaseStep = 0.02
	// ReferenceSpeedKmh is the speed that advances a segment by BaseStep per frame.
	ReferenceSpeedKmh = 80.0
	// MinStep bounds a moving segment to 1/MinStep frames.
	MinStep = BaseStep / 50
)

// Segment is the leg between two consecutive waypoints.
type Segment struct {
	From        Point   `json:"from"`
	To          Point   `json:"to"`
	DistanceKm  float64 `json:"distance_km"`
	Bearing     float64 `json:"bearing"`
	DurationSec float64 `json:"duration_sec"`
	// SpeedKmh is DistanceKm*1000 / DurationSec * 3.6, i.e. metres per
	// second converted to km/h, so it compares directly with ReferenceSpeedKmh.
	SpeedKmh float64 `json:"speed_kmh"`
	// Step is the progress added per frame. Zero means the marker jumps
	// straight to To; a moving segment never steps less than MinStep.
	Step float64 `json:"step"`
}

// PlanSegments computes the legs of a route. A single waypoint yields no
// segments.
func PlanSegments(wps []Waypoint) ([]Segment, error) {
	if len(wps) == 0 {
		return nil, ErrNoWaypoints
	}

	segs := make([]Segment, 0, len(wps)-1)
	for i := 1; i < len(wps); i++ {
		a, b := wps[i-1], wps[i]
		seg := Segment{
			From:       a.Point(),
			To:         b.Point(),
			DistanceKm: HaversineKm(a.Point(), b.Point()),
			Bearing:    InitialBearing(a.Point(), b.Point()),
		}
		seg.DurationSec = hos.ContributionHours(a.EndTime, b.StartTime) * 3600
		if seg.DurationSec > 0 {
			seg.SpeedKmh = seg.DistanceKm * 1000 / seg.DurationSec * 3.6
			seg.Step = BaseStep * seg.SpeedKmh / ReferenceSpeedKmh
		}
		if math.IsNaN(seg.Step) || math.IsInf(seg.Step, 0) || seg.Step < 0 {
			seg.Step = 0
		}
		if seg.Step > 0 && seg.Step < MinStep {
			seg.Step = MinStep
		}
		segs = append(segs, seg)
	}
	return segs, nil
}
