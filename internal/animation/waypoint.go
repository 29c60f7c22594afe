package animation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Mwapsam/tracker/internal/domain"
	"github.com/Mwapsam/tracker/internal/geocode"
	"github.com/Mwapsam/tracker/internal/hos"
)

var (
	// ErrNoWaypoints is returned when a route has nothing to animate.
	ErrNoWaypoints = errors.New("route has no waypoints")
	// ErrUnresolvedWaypoint is returned when a waypoint cannot be placed on the map.
	ErrUnresolvedWaypoint = errors.New("waypoint could not be resolved")
)

// Waypoint statuses for trip-derived routes.
const (
	StatusPickup  = "PICKUP"
	StatusDropoff = "DROPOFF"
)

// Waypoint is a single point on an animated route.
type Waypoint struct {
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	LocationName string  `json:"locationName"`
	Status       string  `json:"status"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
}

// Point returns the waypoint position.
func (w Waypoint) Point() Point {
	return Point{Lat: w.Lat, Lng: w.Lng}
}

// Resolver turns a free-text location into coordinates.
type Resolver interface {
	Resolve(ctx context.Context, query string) (*geocode.Result, error)
}

// FromDutyStatuses projects a day's duty-status records onto a route.
// Records without coordinates are skipped.
func FromDutyStatuses(records []domain.DutyStatusRecord) []Waypoint {
	wps := make([]Waypoint, 0, len(records))
	for _, r := range records {
		if !r.Location.HasCoordinates() {
			continue
		}
		wps = append(wps, Waypoint{
			Lat:          *r.Location.Lat,
			Lng:          *r.Location.Lon,
			LocationName: r.Location.Name,
			Status:       string(r.Status),
			StartTime:    r.StartTime,
			EndTime:      r.EndTime,
		})
	}
	return wps
}

// FromTrip builds the pickup, stops, dropoff route for a trip. Locations
// without coordinates go through r; any miss fails the whole route.
func FromTrip(ctx context.Context, trip domain.Trip, r Resolver) ([]Waypoint, error) {
	wps := make([]Waypoint, 0, len(trip.Stops)+2)

	var departed string
	if trip.StartTime != nil {
		departed = formatTime(*trip.StartTime)
	}

	pickup, err := resolve(ctx, r, trip.PickupLocation)
	if err != nil {
		return nil, err
	}
	wps = append(wps, Waypoint{
		Lat:          pickup.Lat,
		Lng:          pickup.Lon,
		LocationName: pickup.Name,
		Status:       StatusPickup,
		StartTime:    departed,
		EndTime:      departed,
	})

	for _, s := range trip.Stops {
		wp := Waypoint{
			LocationName: s.LocationName,
			Status:       s.StopType,
			StartTime:    formatTime(s.ScheduledTime),
			EndTime:      formatTime(s.ScheduledTime),
		}
		if d, err := hos.ParseTripDuration(s.Duration); err == nil {
			wp.EndTime = formatTime(s.ScheduledTime.Add(d))
		}
		if s.LocationLat != nil && s.LocationLon != nil {
			wp.Lat, wp.Lng = *s.LocationLat, *s.LocationLon
		} else {
			res, err := resolve(ctx, r, s.LocationName)
			if err != nil {
				return nil, err
			}
			wp.Lat, wp.Lng = res.Lat, res.Lon
		}
		wps = append(wps, wp)
	}

	dropoff, err := resolve(ctx, r, trip.DropoffLocation)
	if err != nil {
		return nil, err
	}
	arrival := ""
	if trip.StartTime != nil {
		if d, err := hos.ParseTripDuration(trip.EstimatedDuration); err == nil {
			arrival = formatTime(trip.StartTime.Add(d))
		}
	}
	wps = append(wps, Waypoint{
		Lat:          dropoff.Lat,
		Lng:          dropoff.Lon,
		LocationName: dropoff.Name,
		Status:       StatusDropoff,
		StartTime:    arrival,
		EndTime:      arrival,
	})

	return wps, nil
}

func resolve(ctx context.Context, r Resolver, query string) (*geocode.Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty location", ErrUnresolvedWaypoint)
	}
	if r == nil {
		return nil, fmt.Errorf("%w: %q: no resolver configured", ErrUnresolvedWaypoint, query)
	}
	res, err := r.Resolve(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrUnresolvedWaypoint, query, err)
	}
	if res == nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrUnresolvedWaypoint, query, geocode.ErrNoResults)
	}
	return res, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
