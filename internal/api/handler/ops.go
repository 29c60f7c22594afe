package handler

import (
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/Mwapsam/tracker/internal/animation"
	"github.com/Mwapsam/tracker/internal/api/models"
	"github.com/Mwapsam/tracker/internal/api/response"
	"github.com/Mwapsam/tracker/internal/provider/resilience"
	"github.com/Mwapsam/tracker/internal/trip"
)

// OpsHandler serves liveness, readiness and collaborator status.
type OpsHandler struct {
	version    string
	buildTime  string
	registry   *resilience.Registry
	controller *trip.Controller
	runner     *animation.Runner
	now        func() time.Time
}

// NewOpsHandler creates an OpsHandler. registry, controller and runner may
// be nil.
func NewOpsHandler(version, buildTime string, registry *resilience.Registry, controller *trip.Controller, runner *animation.Runner) *OpsHandler {
	return &OpsHandler{
		version:    version,
		buildTime:  buildTime,
		registry:   registry,
		controller: controller,
		runner:     runner,
		now:        time.Now,
	}
}

// HealthCheck handles GET /v1/ops/health.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.now()),
		Details: map[string]any{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. The service is not ready while
// the trip backend's circuit is open.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{Status: models.HealthStatusOK, Time: models.Timestamp(h.now())}
	if h.registry != nil {
		for _, p := range h.registry.All() {
			if p.IsUnhealthy() {
				health.Status = models.HealthStatusFail
				health.Details = map[string]any{"unavailable": p.Name}
				response.JSON(w, r, http.StatusServiceUnavailable, health)
				return
			}
		}
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(h.now()),
		Subsystems: []models.SubsystemStatus{},
		Providers:  []models.ProviderStatus{},
	}

	if h.controller != nil {
		status.Subsystems = append(status.Subsystems, models.SubsystemStatus{
			Name:   "trip-controller",
			Status: models.HealthStatusOK,
			Detail: "state " + h.controller.State().String(),
		})
	}
	if h.runner != nil {
		detail := "idle"
		if key := h.runner.Key(); key != "" {
			detail = "animating " + key
		}
		status.Subsystems = append(status.Subsystems, models.SubsystemStatus{
			Name:   "animation",
			Status: models.HealthStatusOK,
			Detail: detail,
		})
	}

	if h.registry != nil {
		for _, p := range h.registry.All() {
			ps := models.ProviderStatus{
				Provider:     p.Name,
				Status:       providerStatus(p.CircuitState),
				CircuitState: p.CircuitState.String(),
				Requests:     p.Counts.Requests,
				Failures:     p.Counts.ConsecutiveFailures,
				Message:      p.LastError,
			}
			if p.LastSuccessAt != nil {
				ts := models.Timestamp(*p.LastSuccessAt)
				ps.LastSuccessAt = &ts
			}
			if p.LastFailureAt != nil {
				ts := models.Timestamp(*p.LastFailureAt)
				ps.LastFailureAt = &ts
			}
			status.Providers = append(status.Providers, ps)
			status.Status = worst(status.Status, ps.Status)
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func providerStatus(s gobreaker.State) models.HealthStatus {
	switch s {
	case gobreaker.StateOpen:
		return models.HealthStatusFail
	case gobreaker.StateHalfOpen:
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusOK
	}
}

func worst(a, b models.HealthStatus) models.HealthStatus {
	rank := map[models.HealthStatus]int{
		models.HealthStatusOK:       0,
		models.HealthStatusDegraded: 1,
		models.HealthStatusFail:     2,
	}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
