package trip

import (
	"context"
	"time"

	"github.com/Mwapsam/tracker/internal/domain"
)

// API is the trip service that owns persistence.
type API interface {
	ListTrips(ctx context.Context) ([]domain.Trip, error)
	CreateTrip(ctx context.Context, in domain.CreateTripInput) (domain.Trip, error)
	StartTrip(ctx context.Context, id domain.ID) (domain.Trip, error)
	// GenerateStops returns the stops created by this call, which may be none.
	GenerateStops(ctx context.Context, id domain.ID) ([]domain.Stop, error)
	CompleteTrip(ctx context.Context, id domain.ID) (domain.Trip, error)
	UpdateLocation(ctx context.Context, id domain.ID, location string) (domain.Trip, error)
}

// LogSource provides the driver's daily log entries.
type LogSource interface {
	FetchLogs(ctx context.Context) ([]domain.LogEntry, error)
}

// Observer receives controller metrics. All methods must be safe for
// concurrent use.
type Observer interface {
	TransitionCompleted(op string, d time.Duration, err error)
	StateChanged(from, to State)
	CycleTicked(used float64)
}

// EventType identifies a controller event.
type EventType string

// Event types.
const (
	EventStateChanged EventType = "state_changed"
	EventTripSwitched EventType = "trip_switched"
	EventTripUpdated  EventType = "trip_updated"
	EventCycleTick    EventType = "cycle_tick"
)

// Event is delivered to subscribers after the controller's state has
// changed. Handlers run synchronously and must not block.
type Event struct {
	Type           EventType `json:"type"`
	TripID         domain.ID `json:"trip_id,omitempty"`
	PreviousTripID domain.ID `json:"previous_trip_id,omitempty"`
	State          State     `json:"state"`
	PreviousState  State     `json:"previous_state"`
	CycleUsed      float64   `json:"cycle_used,omitempty"`
}

// Observers fans notifications out to several observers.
type Observers []Observer

// TransitionCompleted implements Observer.
func (o Observers) TransitionCompleted(op string, d time.Duration, err error) {
	for _, ob := range o {
		ob.TransitionCompleted(op, d, err)
	}
}

// StateChanged implements Observer.
func (o Observers) StateChanged(from, to State) {
	for _, ob := range o {
		ob.StateChanged(from, to)
	}
}

// CycleTicked implements Observer.
func (o Observers) CycleTicked(used float64) {
	for _, ob := range o {
		ob.CycleTicked(used)
	}
}
