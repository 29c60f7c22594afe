package trip

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Mwapsam/tracker/internal/domain"
	"github.com/Mwapsam/tracker/internal/hos"
)

// DefaultTickInterval is how often the cycle projection advances.
const DefaultTickInterval = time.Minute

const tracerName = "github.com/Mwapsam/tracker/internal/trip"

// Config holds configuration for a Controller.
type Config struct {
	// API is the trip backend (required).
	API API

	// Logs supplies log entries for daily summaries (optional).
	Logs LogSource

	// Tracer wraps each transition in a span (default: global tracer).
	Tracer trace.Tracer

	// Observer receives metrics (optional).
	Observer Observer

	// TickInterval is the cycle projection period (default: 60s).
	TickInterval time.Duration

	// Cycle is the carrier's HOS cycle (default: 70/8).
	Cycle hos.Cycle

	// Clock returns the current time (default: time.Now).
	Clock func() time.Time

	Logger zerolog.Logger
}

// Controller owns the driver's trip list and a single current trip. Lifecycle
// actions are validated locally, sent to the API, and applied only on
// success. At most one action is in flight at a time.
type Controller struct {
	api          API
	logs         LogSource
	tracer       trace.Tracer
	observer     Observer
	tickInterval time.Duration
	cycle        hos.Cycle
	clock        func() time.Time
	logger       zerolog.Logger

	busy atomic.Bool

	mu         sync.RWMutex
	trips      []domain.Trip
	currentID  domain.ID
	projection hos.CycleProjection
	tickGen    uint64
	tickCancel context.CancelFunc
	tickDone   chan struct{}
	closed     bool

	subsMu  sync.RWMutex
	subs    map[int]func(Event)
	nextSub int
}

// NewController creates a Controller with no trip loaded.
func NewController(cfg Config) *Controller {
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	interval := cfg.TickInterval
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	cycle := cfg.Cycle
	if cycle.LimitHours == 0 {
		cycle = hos.Cycle70Hour8Day
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Controller{
		api:          cfg.API,
		logs:         cfg.Logs,
		tracer:       tracer,
		observer:     cfg.Observer,
		tickInterval: interval,
		cycle:        cycle,
		clock:        clock,
		logger:       cfg.Logger,
		subs:         make(map[int]func(Event)),
	}
}

// Cycle returns the configured HOS cycle.
func (c *Controller) Cycle() hos.Cycle {
	return c.cycle
}

// Load fetches the trip list. The current selection is kept if the trip is
// still listed; otherwise the first trip becomes current.
func (c *Controller) Load(ctx context.Context) error {
	return c.run(ctx, "load", "", func(ctx context.Context) error {
		trips, err := c.api.ListTrips(ctx)
		if err != nil {
			return err
		}

		c.mu.Lock()
		prevID, prevState := c.currentID, c.stateLocked()
		c.trips = cloneTrips(trips)
		if c.indexLocked(c.currentID) < 0 {
			c.currentID = ""
			if len(c.trips) > 0 {
				c.currentID = c.trips[0].ID
			}
		}
		events := c.reconcileLocked(prevID, prevState)
		c.mu.Unlock()

		c.emit(events)
		return nil
	})
}

// Select makes the trip with id current.
func (c *Controller) Select(id domain.ID) error {
	c.mu.Lock()
	if c.indexLocked(id) < 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTripNotFound, id)
	}
	prevID, prevState := c.currentID, c.stateLocked()
	c.currentID = id
	events := c.reconcileLocked(prevID, prevState)
	c.mu.Unlock()

	c.emit(events)
	return nil
}

// Unload clears the current trip.
func (c *Controller) Unload() {
	c.mu.Lock()
	prevID, prevState := c.currentID, c.stateLocked()
	c.currentID = ""
	events := c.reconcileLocked(prevID, prevState)
	c.mu.Unlock()

	c.emit(events)
}

// Current returns a copy of the current trip.
func (c *Controller) Current() (domain.Trip, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t := c.currentLocked()
	if t == nil {
		return domain.Trip{}, false
	}
	return t.Clone(), true
}

// CurrentID returns the current trip id, or "" when none is loaded.
func (c *Controller) CurrentID() domain.ID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentID
}

// State returns the lifecycle state of the current trip.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stateLocked()
}

// Trips returns a copy of the trip list.
func (c *Controller) Trips() []domain.Trip {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneTrips(c.trips)
}

// Trip returns a copy of the trip with id.
func (c *Controller) Trip(id domain.ID) (domain.Trip, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := c.indexLocked(id)
	if i < 0 {
		return domain.Trip{}, false
	}
	return c.trips[i].Clone(), true
}

// CreateTrip creates a trip and makes it current in DRAFT.
func (c *Controller) CreateTrip(ctx context.Context, in domain.CreateTripInput) (domain.Trip, error) {
	var created domain.Trip
	err := c.run(ctx, "create", "", func(ctx context.Context) error {
		if err := validateCreate(in); err != nil {
			return err
		}
		if from := c.State(); from != StateNone && from != StateDraft {
			return &TransitionError{Op: "create", TripID: c.CurrentID(), From: from, Allowed: []State{StateNone, StateDraft}}
		}

		t, err := c.api.CreateTrip(ctx, in)
		if err != nil {
			return err
		}

		c.mu.Lock()
		prevID, prevState := c.currentID, c.stateLocked()
		c.trips = append([]domain.Trip{t.Clone()}, c.trips...)
		c.currentID = t.ID
		c.projection = hos.NewCycleProjection(in.CurrentCycleUsed)
		events := c.reconcileLocked(prevID, prevState)
		c.mu.Unlock()

		c.emit(events)
		created = t.Clone()
		return nil
	})
	return created, err
}

// StartTrip starts the current DRAFT trip.
func (c *Controller) StartTrip(ctx context.Context, id domain.ID) (domain.Trip, error) {
	return c.replace(ctx, "start", id, []State{StateDraft}, c.api.StartTrip)
}

// CompleteTrip completes the current ACTIVE trip.
func (c *Controller) CompleteTrip(ctx context.Context, id domain.ID) (domain.Trip, error) {
	return c.replace(ctx, "complete", id, []State{StateActive}, func(ctx context.Context, id domain.ID) (domain.Trip, error) {
		t, err := c.api.CompleteTrip(ctx, id)
		if err != nil {
			return t, err
		}
		t.Completed = true
		if t.CompletedAt == nil {
			now := c.clock()
			t.CompletedAt = &now
		}
		return t, nil
	})
}

// UpdateLocation patches the current location of the ACTIVE trip.
func (c *Controller) UpdateLocation(ctx context.Context, id domain.ID, location string) (domain.Trip, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return domain.Trip{}, fmt.Errorf("%w: location is required", ErrInvalidInput)
	}
	return c.replace(ctx, "update_location", id, []State{StateActive}, func(ctx context.Context, id domain.ID) (domain.Trip, error) {
		return c.api.UpdateLocation(ctx, id, location)
	})
}

// GenerateStops asks the backend to plan stops for the ACTIVE trip and
// appends the new ones. The lifecycle state does not change.
func (c *Controller) GenerateStops(ctx context.Context, id domain.ID) ([]domain.Stop, error) {
	var added []domain.Stop
	err := c.run(ctx, "generate_stops", id, func(ctx context.Context) error {
		if _, err := c.precondition("generate_stops", id, StateActive); err != nil {
			return err
		}

		stops, err := c.api.GenerateStops(ctx, id)
		if err != nil {
			return err
		}
		if len(stops) == 0 {
			stops = c.refetchStops(ctx, id)
		}

		c.mu.Lock()
		i := c.indexLocked(id)
		if i >= 0 && c.currentID == id {
			added = appendNewStops(&c.trips[i], stops)
		}
		c.mu.Unlock()

		c.emit([]Event{{Type: EventTripUpdated, TripID: id, State: c.State(), PreviousState: StateActive}})
		return nil
	})
	return added, err
}

// refetchStops reads the trip back from the backend when the stops call
// succeeded without returning any. A failed read leaves the stops as they are.
func (c *Controller) refetchStops(ctx context.Context, id domain.ID) []domain.Stop {
	trips, err := c.api.ListTrips(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Str("trip_id", id.String()).Msg("failed to re-read trip after generating stops")
		return nil
	}
	for _, t := range trips {
		if t.ID == id {
			return append([]domain.Stop(nil), t.Stops...)
		}
	}
	return nil
}

// CycleUsed returns the advisory cycle-hours projection.
func (c *Controller) CycleUsed() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.projection.Used()
}

// SetCycleUsed seeds the cycle-hours projection.
func (c *Controller) SetCycleUsed(hours float64) {
	c.mu.Lock()
	c.projection = hos.NewCycleProjection(hours)
	c.mu.Unlock()
}

// Subscribe registers fn for controller events and returns a function that
// removes it.
func (c *Controller) Subscribe(fn func(Event)) func() {
	c.subsMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subsMu.Unlock()

	return func() {
		c.subsMu.Lock()
		delete(c.subs, id)
		c.subsMu.Unlock()
	}
}

// Close cancels the cycle tick and waits for it to exit.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	done := c.stopTickLocked()
	c.mu.Unlock()

	if done != nil {
		<-done
	}
}

// replace runs an API call whose response replaces the trip record.
func (c *Controller) replace(ctx context.Context, op string, id domain.ID, allowed []State, call func(context.Context, domain.ID) (domain.Trip, error)) (domain.Trip, error) {
	var updated domain.Trip
	err := c.run(ctx, op, id, func(ctx context.Context) error {
		if _, err := c.precondition(op, id, allowed...); err != nil {
			return err
		}

		t, err := call(ctx, id)
		if err != nil {
			return err
		}
		if t.ID == "" {
			t.ID = id
		}

		c.mu.Lock()
		prevID, prevState := c.currentID, c.stateLocked()
		if i := c.indexLocked(id); i >= 0 {
			c.trips[i] = t.Clone()
		}
		events := c.reconcileLocked(prevID, prevState)
		if c.currentID == id {
			events = append(events, Event{Type: EventTripUpdated, TripID: id, State: c.stateLocked(), PreviousState: prevState})
		}
		c.mu.Unlock()

		c.emit(events)
		updated = t.Clone()
		return nil
	})
	return updated, err
}

// precondition checks that id is the current trip and in an allowed state.
func (c *Controller) precondition(op string, id domain.ID, allowed ...State) (domain.Trip, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cur := c.currentLocked()
	if cur == nil {
		return domain.Trip{}, &TransitionError{Op: op, TripID: id, From: StateNone, Allowed: allowed}
	}
	if id != "" && id != cur.ID {
		if c.indexLocked(id) < 0 {
			return domain.Trip{}, fmt.Errorf("%w: %s", ErrTripNotFound, id)
		}
		return domain.Trip{}, fmt.Errorf("%w: %s", ErrNotCurrent, id)
	}
	from := StateOf(cur)
	for _, s := range allowed {
		if s == from {
			return cur.Clone(), nil
		}
	}
	return domain.Trip{}, &TransitionError{Op: op, TripID: cur.ID, From: from, Allowed: allowed}
}

// run serializes an action and wraps it in a span.
func (c *Controller) run(ctx context.Context, op string, id domain.ID, fn func(context.Context) error) error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer c.busy.Store(false)

	ctx, span := c.tracer.Start(ctx, "trip."+op,
		trace.WithAttributes(attribute.String("trip.id", id.String())),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	log := c.logger.With().Str("op", op).Str("trip_id", id.String()).Dur("duration", elapsed).Logger()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn().Err(err).Msg("trip action failed")
	} else {
		span.SetAttributes(attribute.String("trip.state", c.State().String()))
		log.Info().Str("state", c.State().String()).Msg("trip action completed")
	}
	if c.observer != nil {
		c.observer.TransitionCompleted(op, elapsed, err)
	}
	return err
}

// reconcileLocked starts or cancels the cycle tick for the current trip and
// returns the events implied by the change from (prevID, prevState).
func (c *Controller) reconcileLocked(prevID domain.ID, prevState State) []Event {
	state := c.stateLocked()
	switched := prevID != c.currentID

	var events []Event
	if switched {
		events = append(events, Event{Type: EventTripSwitched, TripID: c.currentID, PreviousTripID: prevID, State: state, PreviousState: prevState})
	}
	if switched || state != prevState {
		events = append(events, Event{Type: EventStateChanged, TripID: c.currentID, PreviousTripID: prevID, State: state, PreviousState: prevState})
		if c.observer != nil && state != prevState {
			c.observer.StateChanged(prevState, state)
		}
	}

	switch {
	case state != StateActive:
		c.stopTickLocked()
	case switched || prevState != StateActive || c.tickCancel == nil:
		c.startTickLocked(c.currentID)
	}
	return events
}

func (c *Controller) startTickLocked(id domain.ID) {
	c.stopTickLocked()
	if c.closed {
		return
	}

	c.tickGen++
	gen := c.tickGen
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.tickCancel, c.tickDone = cancel, done

	go c.runTick(ctx, gen, id, done)
	c.logger.Debug().Str("trip_id", id.String()).Dur("interval", c.tickInterval).Msg("cycle tick started")
}

// stopTickLocked cancels the tick and returns its done channel. It does not
// wait: the tick goroutine needs c.mu to observe the cancellation.
func (c *Controller) stopTickLocked() chan struct{} {
	if c.tickCancel == nil {
		return nil
	}
	c.tickGen++
	c.tickCancel()
	done := c.tickDone
	c.tickCancel, c.tickDone = nil, nil
	return done
}

func (c *Controller) runTick(ctx context.Context, gen uint64, id domain.ID, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.tick(gen, id) {
				return
			}
		}
	}
}

// tick advances the projection if gen and id still describe the live tick.
func (c *Controller) tick(gen uint64, id domain.ID) bool {
	c.mu.Lock()
	if c.tickGen != gen || c.currentID != id || c.stateLocked() != StateActive {
		c.mu.Unlock()
		return false
	}
	used := c.projection.Advance()
	c.mu.Unlock()

	if c.observer != nil {
		c.observer.CycleTicked(used)
	}
	c.emit([]Event{{Type: EventCycleTick, TripID: id, State: StateActive, PreviousState: StateActive, CycleUsed: used}})
	return true
}

func (c *Controller) emit(events []Event) {
	if len(events) == 0 {
		return
	}
	c.subsMu.RLock()
	handlers := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		handlers = append(handlers, fn)
	}
	c.subsMu.RUnlock()

	for _, e := range events {
		for _, fn := range handlers {
			fn(e)
		}
	}
}

func (c *Controller) currentLocked() *domain.Trip {
	if i := c.indexLocked(c.currentID); i >= 0 {
		return &c.trips[i]
	}
	return nil
}

func (c *Controller) stateLocked() State {
	return StateOf(c.currentLocked())
}

func (c *Controller) indexLocked(id domain.ID) int {
	if id == "" {
		return -1
	}
	for i := range c.trips {
		if c.trips[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneTrips(trips []domain.Trip) []domain.Trip {
	out := make([]domain.Trip, len(trips))
	for i, t := range trips {
		out[i] = t.Clone()
	}
	return out
}

func appendNewStops(t *domain.Trip, stops []domain.Stop) []domain.Stop {
	seen := make(map[domain.ID]bool, len(t.Stops))
	for _, s := range t.Stops {
		if s.ID != "" {
			seen[s.ID] = true
		}
	}
	var added []domain.Stop
	for _, s := range stops {
		if s.ID != "" && seen[s.ID] {
			continue
		}
		t.Stops = append(t.Stops, s)
		added = append(added, s)
	}
	return added
}

func validateCreate(in domain.CreateTripInput) error {
	var missing []string
	if strings.TrimSpace(in.CurrentLocation) == "" {
		missing = append(missing, "current_location")
	}
	if strings.TrimSpace(in.PickupLocation) == "" {
		missing = append(missing, "pickup_location")
	}
	if strings.TrimSpace(in.DropoffLocation) == "" {
		missing = append(missing, "dropoff_location")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", ErrInvalidInput, strings.Join(missing, ", "))
	}
	if in.CurrentCycleUsed < 0 {
		return fmt.Errorf("%w: current_cycle_used must not be negative", ErrInvalidInput)
	}
	return nil
}
