package models

import (
	"strings"

	"github.com/Mwapsam/tracker/internal/domain"
	"github.com/Mwapsam/tracker/internal/hos"
	"github.com/Mwapsam/tracker/internal/trip"
)

// TripList is the body of GET /v1/trips.
type TripList struct {
	Trips     []domain.Trip `json:"trips"`
	CurrentID domain.ID     `json:"currentId,omitempty"`
	State     trip.State    `json:"state"`
}

// CreateTripRequest is the body of POST /v1/trips.
type CreateTripRequest struct {
	CurrentLocation  string    `json:"current_location"`
	PickupLocation   string    `json:"pickup_location"`
	DropoffLocation  string    `json:"dropoff_location"`
	CurrentCycleUsed float64   `json:"current_cycle_used"`
	Vehicle          domain.ID `json:"vehicle"`
	Driver           domain.ID `json:"driver"`
}

// Validate reports missing or out-of-range fields.
func (r CreateTripRequest) Validate() []FieldError {
	var errs []FieldError
	for _, f := range []struct{ name, value string }{
		{"current_location", r.CurrentLocation},
		{"pickup_location", r.PickupLocation},
		{"dropoff_location", r.DropoffLocation},
	} {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, FieldError{Field: f.name, Message: "required", Code: "REQUIRED"})
		}
	}
	if r.CurrentCycleUsed < 0 || r.CurrentCycleUsed > hos.Cycle70Hour8Day.LimitHours {
		errs = append(errs, FieldError{Field: "current_cycle_used", Message: "must be between 0 and 70", Code: "OUT_OF_RANGE"})
	}
	return errs
}

// Input converts the request to the controller's input.
func (r CreateTripRequest) Input() domain.CreateTripInput {
	return domain.CreateTripInput{
		CurrentLocation:  strings.TrimSpace(r.CurrentLocation),
		PickupLocation:   strings.TrimSpace(r.PickupLocation),
		DropoffLocation:  strings.TrimSpace(r.DropoffLocation),
		CurrentCycleUsed: r.CurrentCycleUsed,
		Vehicle:          r.Vehicle,
		Driver:           r.Driver,
	}
}

// SelectTripRequest is the body of PUT /v1/trips/current.
type SelectTripRequest struct {
	ID domain.ID `json:"id"`
}

// UpdateLocationRequest is the body of PATCH /v1/trips/{id}/location.
type UpdateLocationRequest struct {
	Location string `json:"location"`
}

// StopsResponse is the body of POST /v1/trips/{id}/stops.
type StopsResponse struct {
	Created []domain.Stop `json:"created"`
	Trip    domain.Trip   `json:"trip"`
}

// DailyLogsResponse is the body of GET /v1/logs/daily.
type DailyLogsResponse struct {
	Days         []hos.DailySummary `json:"days"`
	Unrecognized int                `json:"unrecognizedRecords"`
	CycleUsed    float64            `json:"cycleUsed"`
	Cycle        string             `json:"cycle"`
}

// ViolationsResponse is the body of GET /v1/logs/violations.
type ViolationsResponse struct {
	Violations []hos.Violation `json:"violations"`
}
