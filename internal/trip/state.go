// Package trip manages the lifecycle of the driver's current trip.
package trip

import "github.com/Mwapsam/tracker/internal/domain"

// State is the lifecycle state of the current trip.
type State int

const (
	// StateNone means no trip is loaded.
	StateNone State = iota
	// StateDraft means the trip exists but has not started.
	StateDraft
	// StateActive means the trip has started and is not completed.
	StateActive
	// StateCompleted is terminal.
	StateCompleted
)

var stateNames = map[State]string{
	StateNone:      "NONE",
	StateDraft:     "DRAFT",
	StateActive:    "ACTIVE",
	StateCompleted: "COMPLETED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// StateOf derives the lifecycle state from a trip record.
func StateOf(t *domain.Trip) State {
	switch {
	case t == nil:
		return StateNone
	case t.Completed:
		return StateCompleted
	case t.StartTime != nil:
		return StateActive
	default:
		return StateDraft
	}
}
