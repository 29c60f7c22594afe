// Package api provides the HTTP surface of the trip-compliance dashboard.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Mwapsam/tracker/internal/animation"
	"github.com/Mwapsam/tracker/internal/api/handler"
	"github.com/Mwapsam/tracker/internal/api/middleware"
	"github.com/Mwapsam/tracker/internal/provider/resilience"
	"github.com/Mwapsam/tracker/internal/trip"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	ServiceName string
	RequireTLS  bool
	Logger      zerolog.Logger
	Metrics     *middleware.Metrics

	Controller *trip.Controller
	Animation  *handler.AnimationHandler // optional, disables the animation routes when nil
	Registry   *resilience.Registry
}

// NewRouter builds the /v1 API.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "tracker"
	}

	// Order matters: the request id must exist before tracing and logging.
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)

	var runner *animation.Runner
	if cfg.Animation != nil {
		runner = cfg.Animation.Runner()
	}
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Registry, cfg.Controller, runner)
	tripHandler := handler.NewTripHandler(cfg.Controller, cfg.Logger)
	logsHandler := handler.NewLogsHandler(cfg.Controller)

	actionRateLimit := middleware.RateLimitByIP(middleware.ActionRateLimit)
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/dashboard", tripHandler.Dashboard)
			r.Get("/trips", tripHandler.ListTrips)
			r.Get("/trips/{id}", tripHandler.GetTrip)
			r.Get("/logs/daily", logsHandler.Daily)
			r.Get("/logs/violations", logsHandler.Violations)
			r.Delete("/trips/current", tripHandler.UnloadTrip)
			r.With(middleware.RequireJSON).Put("/trips/current", tripHandler.SelectTrip)
		})

		// Every action below reaches the trip service or the geocoder.
		r.Group(func(r chi.Router) {
			r.Use(actionRateLimit)
			r.Use(middleware.RequireJSON)
			r.Post("/refresh", tripHandler.Refresh)
			r.Post("/trips", tripHandler.CreateTrip)
			r.Post("/trips/{id}/start", tripHandler.StartTrip)
			r.Post("/trips/{id}/stops", tripHandler.GenerateStops)
			r.Post("/trips/{id}/complete", tripHandler.CompleteTrip)
			r.Patch("/trips/{id}/location", tripHandler.UpdateLocation)
		})

		if a := cfg.Animation; a != nil {
			r.With(standardRateLimit).Get("/trips/{id}/waypoints", a.Waypoints)
			r.With(actionRateLimit).Post("/trips/{id}/animation", a.Start)
			r.Get("/animation", a.Status)
			r.Delete("/animation", a.Stop)
			r.Get("/animation/stream", a.Stream)
		}
	})

	return r
}
