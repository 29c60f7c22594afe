package hos

import (
	"fmt"
	"sort"
	"time"

	"github.com/Mwapsam/tracker/internal/domain"
)

// Stop planning parameters.
const (
	FuelIntervalMiles = 1000.0
	FuelPlanningSpeed = 50.0
	FuelStopDuration  = 30 * time.Minute
	RestIntervalHours = 8
	RestStopDuration  = 10 * time.Hour
)

// PlanStops previews the fuel and rest stops the backend would synthesize
// for a trip of the given distance (miles) and driving time (hours),
// starting at start. Stops are ordered by scheduled time and carry no ids.
func PlanStops(distance, drivingHours float64, start time.Time) []domain.Stop {
	var stops []domain.Stop

	legTime := time.Duration(FuelIntervalMiles / FuelPlanningSpeed * float64(time.Hour))
	for mile := FuelIntervalMiles; mile < distance; mile += FuelIntervalMiles {
		offset := time.Duration(float64(legTime) * (mile / FuelIntervalMiles))
		stops = append(stops, domain.Stop{
			StopType:      domain.StopTypeFuel,
			LocationName:  fmt.Sprintf("Fuel Stop at Mile %.0f", mile),
			ScheduledTime: start.Add(offset),
			Duration:      formatClock(FuelStopDuration),
		})
	}

	for hour := RestIntervalHours; float64(hour) < drivingHours; hour += RestIntervalHours {
		stops = append(stops, domain.Stop{
			StopType:      domain.StopTypeRest,
			LocationName:  fmt.Sprintf("Rest Stop after %dh", hour),
			ScheduledTime: start.Add(time.Duration(hour) * time.Hour),
			Duration:      formatClock(RestStopDuration),
		})
	}

	sort.SliceStable(stops, func(i, j int) bool {
		return stops[i].ScheduledTime.Before(stops[j].ScheduledTime)
	})
	return stops
}

func formatClock(d time.Duration) string {
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total%3600/60, total%60)
}
