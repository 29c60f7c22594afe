package domain

import "time"

// Stop types produced by server-side stop synthesis.
const (
	StopTypeFuel = "FUEL"
	StopTypeRest = "REST"
)

// Stop is a planned halt along a trip.
type Stop struct {
	ID            ID         `json:"id"`
	StopType      string     `json:"stop_type"`
	LocationName  string     `json:"location_name"`
	LocationLat   *float64   `json:"location_lat"`
	LocationLon   *float64   `json:"location_lon"`
	ScheduledTime time.Time  `json:"scheduled_time"`
	ActualTime    *time.Time `json:"actual_time"`
	Duration      string     `json:"duration,omitempty"`
	Completed     bool       `json:"completed"`
}

// Trip is a driver's planned movement from pickup to dropoff.
type Trip struct {
	ID                ID         `json:"id"`
	Driver            ID         `json:"driver"`
	Vehicle           ID         `json:"vehicle"`
	CurrentLocation   string     `json:"current_location"`
	PickupLocation    string     `json:"pickup_location"`
	DropoffLocation   string     `json:"dropoff_location"`
	Distance          *float64   `json:"distance"`
	EstimatedDuration string     `json:"estimated_duration,omitempty"`
	AverageSpeed      *float64   `json:"average_speed,omitempty"`
	StartTime         *time.Time `json:"start_time"`
	Completed         bool       `json:"completed"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	RemainingHours    float64    `json:"remaining_hours"`
	Stops             []Stop     `json:"stops"`
}

// Clone returns a copy that shares no mutable state with t.
func (t Trip) Clone() Trip {
	c := t
	if t.Stops != nil {
		c.Stops = make([]Stop, len(t.Stops))
		copy(c.Stops, t.Stops)
	}
	return c
}

// DefaultAverageSpeed is the backend's default planning speed in mph.
const DefaultAverageSpeed = 50.0

// Speed returns the trip's average speed, falling back to the default.
func (t Trip) Speed() float64 {
	if t.AverageSpeed == nil || *t.AverageSpeed <= 0 {
		return DefaultAverageSpeed
	}
	return *t.AverageSpeed
}

// CreateTripInput is the payload for creating a trip.
type CreateTripInput struct {
	CurrentLocation  string  `json:"current_location"`
	PickupLocation   string  `json:"pickup_location"`
	DropoffLocation  string  `json:"dropoff_location"`
	CurrentCycleUsed float64 `json:"current_cycle_used"`
	Vehicle          ID      `json:"vehicle"`
	Driver           ID      `json:"driver"`
}
