// Package handler provides the HTTP handlers of the dashboard API.
package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Mwapsam/tracker/internal/api/models"
	"github.com/Mwapsam/tracker/internal/api/response"
	"github.com/Mwapsam/tracker/internal/trip"
)

// TripHandler exposes the trip lifecycle controller.
type TripHandler struct {
	ctl    *trip.Controller
	logger zerolog.Logger
}

// NewTripHandler creates a TripHandler.
func NewTripHandler(ctl *trip.Controller, logger zerolog.Logger) *TripHandler {
	return &TripHandler{ctl: ctl, logger: logger}
}

// Dashboard handles GET /v1/dashboard. It always answers with the last
// known state, even when the most recent action failed.
func (h *TripHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, h.ctl.Now())
}

// Refresh handles POST /v1/refresh.
func (h *TripHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.ctl.Load(r.Context()); err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, h.ctl.Now())
}

// ListTrips handles GET /v1/trips.
func (h *TripHandler) ListTrips(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.TripList{
		Trips:     h.ctl.Trips(),
		CurrentID: h.ctl.CurrentID(),
		State:     h.ctl.State(),
	})
}

// CreateTrip handles POST /v1/trips.
func (h *TripHandler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTripRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "invalid trip", errs)
		return
	}

	t, err := h.ctl.CreateTrip(r.Context(), req.Input())
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, r, "/v1/trips/"+t.ID.String(), t)
}

// GetTrip handles GET /v1/trips/{id}.
func (h *TripHandler) GetTrip(w http.ResponseWriter, r *http.Request) {
	t, ok := h.ctl.Trip(tripID(r))
	if !ok {
		response.Error(w, r, trip.ErrTripNotFound)
		return
	}
	response.JSON(w, r, http.StatusOK, t)
}

// SelectTrip handles PUT /v1/trips/current.
func (h *TripHandler) SelectTrip(w http.ResponseWriter, r *http.Request) {
	var req models.SelectTripRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	if req.ID == "" {
		response.BadRequest(w, r, "invalid selection", []models.FieldError{{Field: "id", Message: "required", Code: "REQUIRED"}})
		return
	}
	if err := h.ctl.Select(req.ID); err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, h.ctl.Now())
}

// UnloadTrip handles DELETE /v1/trips/current.
func (h *TripHandler) UnloadTrip(w http.ResponseWriter, r *http.Request) {
	h.ctl.Unload()
	response.NoContent(w, r)
}

// StartTrip handles POST /v1/trips/{id}/start.
func (h *TripHandler) StartTrip(w http.ResponseWriter, r *http.Request) {
	t, err := h.ctl.StartTrip(r.Context(), tripID(r))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, t)
}

// GenerateStops handles POST /v1/trips/{id}/stops.
func (h *TripHandler) GenerateStops(w http.ResponseWriter, r *http.Request) {
	id := tripID(r)
	created, err := h.ctl.GenerateStops(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	t, _ := h.ctl.Trip(id)
	response.JSON(w, r, http.StatusOK, models.StopsResponse{Created: created, Trip: t})
}

// CompleteTrip handles POST /v1/trips/{id}/complete.
func (h *TripHandler) CompleteTrip(w http.ResponseWriter, r *http.Request) {
	t, err := h.ctl.CompleteTrip(r.Context(), tripID(r))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, t)
}

// UpdateLocation handles PATCH /v1/trips/{id}/location.
func (h *TripHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateLocationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	t, err := h.ctl.UpdateLocation(r.Context(), tripID(r), req.Location)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, t)
}
