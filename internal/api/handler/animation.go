package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Mwapsam/tracker/internal/animation"
	"github.com/Mwapsam/tracker/internal/api/models"
	"github.com/Mwapsam/tracker/internal/api/response"
	"github.com/Mwapsam/tracker/internal/domain"
	"github.com/Mwapsam/tracker/internal/trip"
)

const (
	streamBuffer     = 256
	streamPongWait   = 60 * time.Second
	streamWriteWait  = 10 * time.Second
	defaultPingEvery = 20 * time.Second
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

// AnimationConfig holds the collaborators of an AnimationHandler.
type AnimationConfig struct {
	Controller  *trip.Controller
	Resolver    animation.Resolver // optional, resolves stops without coordinates
	Runner      *animation.Runner
	Broadcaster *animation.Broadcaster
	// Sinks receive every run in addition to the broadcaster (e.g. NATS).
	Sinks []animation.Sink
	// PingInterval is the websocket keepalive period (default: 20s).
	PingInterval time.Duration
	Logger       zerolog.Logger
}

// AnimationHandler plays trips as animated routes and streams the frames
// over a websocket.
type AnimationHandler struct {
	ctl          *trip.Controller
	resolver     animation.Resolver
	runner       *animation.Runner
	broadcaster  *animation.Broadcaster
	sink         animation.Sink
	pingInterval time.Duration
	logger       zerolog.Logger
	unsubscribe  func()
}

// NewAnimationHandler creates an AnimationHandler. A run is stopped when its
// trip stops being current or is completed.
func NewAnimationHandler(cfg AnimationConfig) *AnimationHandler {
	ping := cfg.PingInterval
	if ping <= 0 {
		ping = defaultPingEvery
	}
	sinks := append(animation.MultiSink{cfg.Broadcaster}, cfg.Sinks...)

	h := &AnimationHandler{
		ctl:          cfg.Controller,
		resolver:     cfg.Resolver,
		runner:       cfg.Runner,
		broadcaster:  cfg.Broadcaster,
		sink:         sinks,
		pingInterval: ping,
		logger:       cfg.Logger,
	}
	h.unsubscribe = cfg.Controller.Subscribe(h.onTripEvent)
	return h
}

// Runner returns the runner driving the animation.
func (h *AnimationHandler) Runner() *animation.Runner {
	return h.runner
}

// Close detaches the handler from the controller and stops any run.
func (h *AnimationHandler) Close() {
	h.unsubscribe()
	h.runner.Stop()
}

// onTripEvent runs on the controller's emit path. StopKey waits at most one
// frame for the run goroutine, which never calls back into the controller.
func (h *AnimationHandler) onTripEvent(e trip.Event) {
	switch e.Type {
	case trip.EventTripSwitched:
		if e.PreviousTripID != "" {
			h.runner.StopKey(e.PreviousTripID.String())
		}
	case trip.EventStateChanged:
		if e.State == trip.StateCompleted || e.State == trip.StateNone {
			h.runner.StopKey(e.TripID.String())
		}
	}
}

// Waypoints handles GET /v1/trips/{id}/waypoints.
func (h *AnimationHandler) Waypoints(w http.ResponseWriter, r *http.Request) {
	id := tripID(r)
	wps, err := h.waypoints(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	segments, err := animation.PlanSegments(wps)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.WaypointsResponse{
		Route:    animation.NewRoute(id.String(), wps),
		Segments: segments,
	})
}

// Start handles POST /v1/trips/{id}/animation. Any run in progress is
// replaced.
func (h *AnimationHandler) Start(w http.ResponseWriter, r *http.Request) {
	id := tripID(r)
	wps, err := h.waypoints(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	// The run outlives the request but keeps its trace and request id.
	if err := h.runner.Start(context.WithoutCancel(r.Context()), id.String(), wps, h.sink); err != nil {
		response.Error(w, r, err)
		return
	}
	h.logger.Info().Str("trip_id", id.String()).Int("waypoints", len(wps)).Msg("animation started")

	response.JSON(w, r, http.StatusAccepted, models.AnimationStatus{
		Key:         id.String(),
		Running:     true,
		Subscribers: h.broadcaster.Subscribers(),
	})
}

// Stop handles DELETE /v1/animation.
func (h *AnimationHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.runner.Stop()
	response.NoContent(w, r)
}

// Status handles GET /v1/animation.
func (h *AnimationHandler) Status(w http.ResponseWriter, r *http.Request) {
	key := h.runner.Key()
	response.JSON(w, r, http.StatusOK, models.AnimationStatus{
		Key:         key,
		Running:     key != "",
		Subscribers: h.broadcaster.Subscribers(),
	})
}

// Stream handles GET /v1/animation/stream. Each websocket message is an
// animation.Message; a subscriber joining mid-run first receives the run's
// begin message.
func (h *AnimationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	msgs, unsubscribe := h.broadcaster.Subscribe(streamBuffer)
	defer unsubscribe()

	log := h.logger.With().Str("remote_addr", r.RemoteAddr).Logger()
	log.Debug().Msg("animation stream opened")

	// The read loop only services pongs and close frames.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			log.Debug().Msg("animation stream closed by client")
			return
		case <-r.Context().Done():
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(m); err != nil {
				log.Debug().Err(err).Msg("animation stream write failed")
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		}
	}
}

func (h *AnimationHandler) waypoints(ctx context.Context, id domain.ID) ([]animation.Waypoint, error) {
	t, ok := h.ctl.Trip(id)
	if !ok {
		return nil, trip.ErrTripNotFound
	}
	return animation.FromTrip(ctx, t, h.resolver)
}
