// Package metrics exposes engine metrics in Prometheus format.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Mwapsam/tracker/internal/trip"
)

// Collector owns a private registry with the engine's instruments. It
// implements trip.Observer, animation.Observer and publisher.Metrics.
type Collector struct {
	reg *prometheus.Registry

	Transitions        *prometheus.CounterVec // op, result
	TransitionDuration *prometheus.HistogramVec
	TripState          *prometheus.GaugeVec // state
	CycleTicks         prometheus.Counter
	CycleUsed          prometheus.Gauge

	AnimationsStarted  prometheus.Counter
	AnimationsFinished *prometheus.CounterVec // outcome: completed|cancelled
	AnimationsActive   prometheus.Gauge
	AnimationFrames    prometheus.Counter

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSDropped     prometheus.Counter
	NATSConnected   prometheus.Gauge
	PublishDuration prometheus.Histogram

	TickInterval  prometheus.Gauge // seconds
	FrameInterval prometheus.Gauge // seconds
}

// NewCollector creates a Collector and records the configured intervals.
func NewCollector(tickInterval, frameInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_trip_transitions_total",
			Help: "Trip lifecycle actions by operation and result.",
		}, []string{"op", "result"}),
		TransitionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tracker_trip_transition_duration_seconds",
			Help:    "Duration of trip lifecycle actions including the backend call.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"op"}),
		TripState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tracker_trip_state",
			Help: "1 for the lifecycle state of the current trip, 0 otherwise.",
		}, []string{"state"}),
		CycleTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_cycle_ticks_total",
			Help: "Cycle projection ticks applied.",
		}),
		CycleUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_cycle_used_hours",
			Help: "Advisory projection of cycle hours used.",
		}),
		AnimationsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_animations_started_total",
			Help: "Animation runs started.",
		}),
		AnimationsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_animations_finished_total",
			Help: "Animation runs finished by outcome.",
		}, []string{"outcome"}),
		AnimationsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_animations_active",
			Help: "Animation runs in progress.",
		}),
		AnimationFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_animation_frames_total",
			Help: "Animation frames delivered.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_nats_frames_dropped_total",
			Help: "Frames skipped by the publish rate limit.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		TickInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_cycle_tick_interval_seconds",
			Help: "Cycle projection tick interval in seconds.",
		}),
		FrameInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_animation_frame_interval_seconds",
			Help: "Animation frame interval in seconds.",
		}),
	}

	reg.MustRegister(
		c.Transitions, c.TransitionDuration, c.TripState, c.CycleTicks, c.CycleUsed,
		c.AnimationsStarted, c.AnimationsFinished, c.AnimationsActive, c.AnimationFrames,
		c.NATSPublished, c.NATSPublishErrs, c.NATSDropped, c.NATSConnected, c.PublishDuration,
		c.TickInterval, c.FrameInterval,
	)

	c.TickInterval.Set(tickInterval.Seconds())
	c.FrameInterval.Set(frameInterval.Seconds())
	c.setState(trip.StateNone)

	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on addr.
func (c *Collector) Serve(addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()
	logger.Info().Str("addr", addr).Msg("metrics listening")
	return srv
}

// TransitionCompleted implements trip.Observer.
func (c *Collector) TransitionCompleted(op string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		if errors.Is(err, trip.ErrInvalidTransition) {
			result = "rejected"
		} else if errors.Is(err, trip.ErrBusy) {
			result = "busy"
		}
	}
	c.Transitions.WithLabelValues(op, result).Inc()
	c.TransitionDuration.WithLabelValues(op).Observe(d.Seconds())
}

// StateChanged implements trip.Observer.
func (c *Collector) StateChanged(_, to trip.State) {
	c.setState(to)
}

// CycleTicked implements trip.Observer.
func (c *Collector) CycleTicked(used float64) {
	c.CycleTicks.Inc()
	c.CycleUsed.Set(used)
}

func (c *Collector) setState(current trip.State) {
	for _, s := range []trip.State{trip.StateNone, trip.StateDraft, trip.StateActive, trip.StateCompleted} {
		v := 0.0
		if s == current {
			v = 1
		}
		c.TripState.WithLabelValues(s.String()).Set(v)
	}
}

// AnimationStarted implements animation.Observer.
func (c *Collector) AnimationStarted(string) {
	c.AnimationsStarted.Inc()
	c.AnimationsActive.Inc()
}

// AnimationFrame implements animation.Observer.
func (c *Collector) AnimationFrame(string) {
	c.AnimationFrames.Inc()
}

// AnimationStopped implements animation.Observer.
func (c *Collector) AnimationStopped(_ string, completed bool) {
	c.AnimationsActive.Dec()
	outcome := "cancelled"
	if completed {
		outcome = "completed"
	}
	c.AnimationsFinished.WithLabelValues(outcome).Inc()
}

// NATSPublishedInc implements publisher.Metrics.
func (c *Collector) NATSPublishedInc() { c.NATSPublished.Inc() }

// NATSPublishErrInc implements publisher.Metrics.
func (c *Collector) NATSPublishErrInc() { c.NATSPublishErrs.Inc() }

// NATSDroppedInc implements publisher.Metrics.
func (c *Collector) NATSDroppedInc() { c.NATSDropped.Inc() }

// PublishObserve implements publisher.Metrics.
func (c *Collector) PublishObserve(d time.Duration) { c.PublishDuration.Observe(d.Seconds()) }

// NATSSetConnected implements publisher.Metrics.
func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
		return
	}
	c.NATSConnected.Set(0)
}
