package trip

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Mwapsam/tracker/internal/domain"
)

// Controller errors.
var (
	ErrInvalidTransition = errors.New("invalid trip transition")
	ErrNoCurrentTrip     = errors.New("no current trip")
	ErrNotCurrent        = errors.New("trip is not the current trip")
	ErrTripNotFound      = errors.New("trip not found")
	ErrBusy              = errors.New("another trip action is in progress")
	ErrInvalidInput      = errors.New("invalid input")
	ErrNoLogSource       = errors.New("no log source configured")
)

// TransitionError describes an action rejected by the local state check.
type TransitionError struct {
	Op      string
	TripID  domain.ID
	From    State
	Allowed []State
}

func (e *TransitionError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = s.String()
	}
	target := "trip"
	if e.TripID != "" {
		target = "trip " + e.TripID.String()
	}
	return fmt.Sprintf("cannot %s %s in state %s (allowed: %s)", e.Op, target, e.From, strings.Join(allowed, ", "))
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
