package domain

// DutyStatusCode is the wire code of a duty status.
type DutyStatusCode string

// Duty status codes.
const (
	StatusOffDuty      DutyStatusCode = "OFF"
	StatusSleeperBerth DutyStatusCode = "SB"
	StatusDriving      DutyStatusCode = "D"
	StatusOnDuty       DutyStatusCode = "ON"
)

var statusDisplay = map[DutyStatusCode]string{
	StatusOffDuty:      "Off Duty",
	StatusSleeperBerth: "Sleeper Berth",
	StatusDriving:      "Driving",
	StatusOnDuty:       "On Duty (Not Driving)",
}

// Known reports whether c is one of the four recognized codes.
func (c DutyStatusCode) Known() bool {
	_, ok := statusDisplay[c]
	return ok
}

// Display returns the human readable label. Unknown codes display as-is.
func (c DutyStatusCode) Display() string {
	if d, ok := statusDisplay[c]; ok {
		return d
	}
	return string(c)
}

// DutyStatusRecord is one contiguous interval in a single duty status.
// Timestamps are kept verbatim so malformed values reach the aggregator.
type DutyStatusRecord struct {
	ID            ID             `json:"id,omitempty"`
	Status        DutyStatusCode `json:"status"`
	StatusDisplay string         `json:"status_display,omitempty"`
	StartTime     string         `json:"start_time"`
	EndTime       string         `json:"end_time"`
	Location      Location       `json:"location"`
}

// User is the account attached to a driver.
type User struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
}

// DriverRef is the driver as embedded in a log entry.
type DriverRef struct {
	ID               ID     `json:"id"`
	User             User   `json:"user"`
	LicenseNumber    string `json:"license_number,omitempty"`
	CurrentCycleUsed Number `json:"current_cycle_used"`
}

// VehicleRef is the vehicle as embedded in a log entry.
type VehicleRef struct {
	ID            ID     `json:"id"`
	TruckNumber   string `json:"truck_number,omitempty"`
	TrailerNumber string `json:"trailer_number,omitempty"`
}

// LogEntry groups the duty-status records for one calendar day.
type LogEntry struct {
	ID                ID                 `json:"id"`
	Date              string             `json:"date"`
	Driver            DriverRef          `json:"driver"`
	Vehicle           VehicleRef         `json:"vehicle"`
	StartOdometer     Number             `json:"start_odometer"`
	EndOdometer       Number             `json:"end_odometer"`
	TotalMiles        Number             `json:"total_miles"`
	Remarks           string             `json:"remarks,omitempty"`
	Signature         string             `json:"signature,omitempty"`
	AdverseConditions bool               `json:"adverse_conditions"`
	DutyStatuses      []DutyStatusRecord `json:"duty_statuses"`
}
