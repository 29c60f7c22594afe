package handler

import (
	"net/http"

	"github.com/Mwapsam/tracker/internal/api/models"
	"github.com/Mwapsam/tracker/internal/api/response"
	"github.com/Mwapsam/tracker/internal/hos"
	"github.com/Mwapsam/tracker/internal/trip"
)

// LogsHandler serves aggregated daily logs and rule checks.
type LogsHandler struct {
	ctl *trip.Controller
}

// NewLogsHandler creates a LogsHandler.
func NewLogsHandler(ctl *trip.Controller) *LogsHandler {
	return &LogsHandler{ctl: ctl}
}

// Daily handles GET /v1/logs/daily.
func (h *LogsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	report, err := h.ctl.Report(r.Context())
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.DailyLogsResponse{
		Days:         report.Summaries.List(),
		Unrecognized: report.Summaries.Unrecognized(),
		CycleUsed:    report.CycleUsed,
		Cycle:        report.Cycle.Name,
	})
}

// Violations handles GET /v1/logs/violations.
func (h *LogsHandler) Violations(w http.ResponseWriter, r *http.Request) {
	violations, err := h.ctl.Violations(r.Context())
	if err != nil {
		response.Error(w, r, err)
		return
	}
	if violations == nil {
		violations = []hos.Violation{}
	}
	response.JSON(w, r, http.StatusOK, models.ViolationsResponse{Violations: violations})
}
