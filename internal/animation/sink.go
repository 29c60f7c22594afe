package animation

import (
	"sync"

	"github.com/Mwapsam/tracker/pkg/polyline"
)

// Route describes an animation run to sinks.
type Route struct {
	Key       string     `json:"key"`
	Waypoints []Waypoint `json:"waypoints"`
	Polyline  string     `json:"polyline"`
	LengthKm  float64    `json:"length_km"`
}

// NewRoute builds the route description for wps.
func NewRoute(key string, wps []Waypoint) Route {
	coords := make([]polyline.Coordinate, len(wps))
	for i, w := range wps {
		coords[i] = w.Point().coordinate()
	}
	return Route{
		Key:       key,
		Waypoints: wps,
		Polyline:  polyline.Encode(coords),
		LengthKm:  polyline.Length(coords),
	}
}

// Sink receives the output of an animation run. Begin and End are called
// exactly once per run, with frames in between.
type Sink interface {
	Begin(Route)
	Frame(Frame)
	End()
}

// MultiSink fans every call out to each sink in order.
type MultiSink []Sink

func (m MultiSink) Begin(r Route) {
	for _, s := range m {
		s.Begin(r)
	}
}

func (m MultiSink) Frame(f Frame) {
	for _, s := range m {
		s.Frame(f)
	}
}

func (m MultiSink) End() {
	for _, s := range m {
		s.End()
	}
}

// Message types sent by Broadcaster.
const (
	MessageBegin = "begin"
	MessageFrame = "frame"
	MessageEnd   = "end"
)

// Message is one event delivered to a Broadcaster subscriber.
type Message struct {
	Type  string `json:"type"`
	Route *Route `json:"route,omitempty"`
	Frame *Frame `json:"frame,omitempty"`
}

// Broadcaster is a Sink that fans messages out to channel subscribers.
// Slow subscribers lose frames rather than stalling the run.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[chan Message]struct{}
	last   *Route
	active bool
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan Message]struct{})}
}

// Subscribe registers a subscriber with the given buffer size. If a run is in
// progress the subscriber first receives its begin message. The returned
// function unsubscribes and closes the channel.
func (b *Broadcaster) Subscribe(buffer int) (<-chan Message, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Message, buffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	if b.active && b.last != nil {
		ch <- Message{Type: MessageBegin, Route: b.last}
	}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of live subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Broadcaster) Begin(r Route) {
	b.mu.Lock()
	b.last = &r
	b.active = true
	b.mu.Unlock()
	b.publish(Message{Type: MessageBegin, Route: &r})
}

func (b *Broadcaster) Frame(f Frame) {
	b.publish(Message{Type: MessageFrame, Frame: &f})
}

func (b *Broadcaster) End() {
	b.mu.Lock()
	b.active = false
	b.mu.Unlock()
	b.publish(Message{Type: MessageEnd})
}

func (b *Broadcaster) publish(m Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- m:
		default:
		}
	}
}
