package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Mwapsam/tracker/internal/trip"
)

// TripInstruments records trip controller activity as OTLP metrics. It
// implements trip.Observer.
type TripInstruments struct {
	transitions metric.Int64Counter
	duration    metric.Float64Histogram
	ticks       metric.Int64Counter

	mu    sync.Mutex
	state trip.State
	used  float64
}

// NewTripInstruments registers the instruments on meter.
func NewTripInstruments(meter metric.Meter) (*TripInstruments, error) {
	ti := &TripInstruments{}
	var err error

	ti.transitions, err = meter.Int64Counter("tracker.trip.transitions",
		metric.WithDescription("Trip lifecycle actions by operation and result"),
		metric.WithUnit("{action}"),
	)
	if err != nil {
		return nil, err
	}

	ti.duration, err = meter.Float64Histogram("tracker.trip.transition.duration",
		metric.WithDescription("Duration of trip lifecycle actions"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	ti.ticks, err = meter.Int64Counter("tracker.cycle.ticks",
		metric.WithDescription("Cycle projection ticks applied"),
	)
	if err != nil {
		return nil, err
	}

	_, err = meter.Float64ObservableGauge("tracker.cycle.used",
		metric.WithDescription("Advisory projection of cycle hours used"),
		metric.WithUnit("h"),
		metric.WithFloat64Callback(func(_ context.Context, o metric.Float64Observer) error {
			ti.mu.Lock()
			defer ti.mu.Unlock()
			o.Observe(ti.used, metric.WithAttributes(attribute.String("trip.state", ti.state.String())))
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	return ti, nil
}

// TransitionCompleted implements trip.Observer.
func (ti *TripInstruments) TransitionCompleted(op string, d time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("trip.op", op),
		attribute.String("result", resultOf(err)),
	)
	ctx := context.Background()
	ti.transitions.Add(ctx, 1, attrs)
	ti.duration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("trip.op", op)))
}

// StateChanged implements trip.Observer.
func (ti *TripInstruments) StateChanged(_, to trip.State) {
	ti.mu.Lock()
	ti.state = to
	ti.mu.Unlock()
}

// CycleTicked implements trip.Observer.
func (ti *TripInstruments) CycleTicked(used float64) {
	ti.ticks.Add(context.Background(), 1)
	ti.mu.Lock()
	ti.used = used
	ti.mu.Unlock()
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, trip.ErrInvalidTransition):
		return "rejected"
	case errors.Is(err, trip.ErrBusy):
		return "busy"
	default:
		return "error"
	}
}
