package animation

// progressEpsilon absorbs float drift when summing steps toward 1.
const progressEpsilon = 1e-9

// Frame is a single marker update.
type Frame struct {
	Segment  int     `json:"segment"`
	Progress float64 `json:"progress"`
	Position Point   `json:"position"`
	Heading  float64 `json:"heading"`
	Done     bool    `json:"done"`
}

// Animator steps a marker through a route one frame at a time. It does no
// scheduling of its own and is not safe for concurrent use.
type Animator struct {
	origin   Point
	segments []Segment
	idx      int
	progress float64
	halted   bool
}

// NewAnimator plans the route and positions the marker at the first waypoint.
func NewAnimator(wps []Waypoint) (*Animator, error) {
	segs, err := PlanSegments(wps)
	if err != nil {
		return nil, err
	}
	return &Animator{origin: wps[0].Point(), segments: segs}, nil
}

// Segments returns the planned legs.
func (a *Animator) Segments() []Segment {
	return a.segments
}

// Next advances the marker and returns the resulting frame. It returns false
// once the animation has halted.
func (a *Animator) Next() (Frame, bool) {
	if a.halted {
		return Frame{}, false
	}

	if len(a.segments) == 0 {
		a.halted = true
		return Frame{Progress: 1, Position: a.origin, Done: true}, true
	}

	seg := a.segments[a.idx]
	if seg.Step <= 0 {
		a.progress = 1
	} else {
		a.progress += seg.Step
		if a.progress >= 1-progressEpsilon {
			a.progress = 1
		}
	}

	f := Frame{
		Segment:  a.idx,
		Progress: a.progress,
		Heading:  seg.Bearing,
	}
	if a.progress >= 1 {
		f.Position = seg.To
		a.idx++
		a.progress = 0
		if a.idx == len(a.segments) {
			a.halted = true
			f.Done = true
		}
	} else {
		f.Position = Slerp(seg.From, seg.To, a.progress)
	}
	return f, true
}

// Halt stops the animation. Repeated calls are no-ops.
func (a *Animator) Halt() {
	a.halted = true
}

// Done reports whether the animation has halted.
func (a *Animator) Done() bool {
	return a.halted
}
