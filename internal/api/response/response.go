// Package response writes JSON and problem responses for the dashboard API.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Mwapsam/tracker/internal/animation"
	"github.com/Mwapsam/tracker/internal/api/middleware"
	"github.com/Mwapsam/tracker/internal/api/models"
	"github.com/Mwapsam/tracker/internal/backend"
	"github.com/Mwapsam/tracker/internal/geocode"
	"github.com/Mwapsam/tracker/internal/trip"
)

// JSON writes data with the given status and echoes the request id.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	if id := middleware.GetRequestID(r.Context()); id != "" {
		w.Header().Set("X-Request-Id", id)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Created writes a 201 with an optional Location header.
func Created(w http.ResponseWriter, r *http.Request, location string, data any) {
	if location != "" {
		w.Header().Set("Location", location)
	}
	JSON(w, r, http.StatusCreated, data)
}

// NoContent writes a 204.
func NoContent(w http.ResponseWriter, r *http.Request) {
	if id := middleware.GetRequestID(r.Context()); id != "" {
		w.Header().Set("X-Request-Id", id)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Problem writes p with the request path as its instance.
func Problem(w http.ResponseWriter, r *http.Request, p *models.Problem) {
	p.WithInstance(r.URL.Path).Write(w)
}

// BadRequest writes a 400 validation problem.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errs []models.FieldError) {
	Problem(w, r, models.NewBadRequest(middleware.GetRequestID(r.Context()), detail, errs))
}

// NotFound writes a 404 problem.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Problem(w, r, models.NewNotFound(middleware.GetRequestID(r.Context()), detail))
}

// ServiceUnavailable writes a 503 problem.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string) {
	Problem(w, r, models.NewServiceUnavailable(middleware.GetRequestID(r.Context()), detail))
}

// InternalError writes a 500 problem.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	Problem(w, r, models.NewInternalError(middleware.GetRequestID(r.Context()), detail))
}

// Error maps an engine error onto a problem response.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	Problem(w, r, ProblemFor(middleware.GetRequestID(r.Context()), err))
}

// ProblemFor classifies err. Lifecycle rejections are conflicts and refusals
// by the backend or geocoder are unprocessable. Upstream outages are checked
// before unresolved waypoints since a waypoint error may wrap one.
func ProblemFor(traceID string, err error) *models.Problem {
	var te *trip.TransitionError
	switch {
	case errors.As(err, &te):
		allowed := make([]string, len(te.Allowed))
		for i, s := range te.Allowed {
			allowed[i] = s.String()
		}
		return models.NewInvalidState(traceID, err.Error(), allowed)
	case errors.Is(err, trip.ErrBusy):
		return models.NewBusy(traceID)
	case errors.Is(err, trip.ErrNotCurrent):
		return models.NewInvalidState(traceID, err.Error(), nil)
	case errors.Is(err, trip.ErrTripNotFound), errors.Is(err, backend.ErrNotFound):
		return models.NewNotFound(traceID, err.Error())
	case errors.Is(err, trip.ErrNoCurrentTrip):
		return models.NewNotFound(traceID, err.Error())
	case errors.Is(err, trip.ErrInvalidInput), errors.Is(err, geocode.ErrInvalidQuery):
		return models.NewBadRequest(traceID, err.Error(), nil)
	case errors.Is(err, backend.ErrRejected):
		return models.NewUnprocessable(models.ProblemTypeRejected, "Rejected by trip service", traceID, err.Error())
	case errors.Is(err, backend.ErrUnavailable),
		errors.Is(err, backend.ErrUnauthorized),
		errors.Is(err, backend.ErrDecode),
		errors.Is(err, backend.ErrLogFetchFailed),
		errors.Is(err, trip.ErrNoLogSource),
		errors.Is(err, geocode.ErrProviderUnavailable),
		errors.Is(err, geocode.ErrQuotaExceeded):
		return models.NewServiceUnavailable(traceID, err.Error())
	case errors.Is(err, animation.ErrUnresolvedWaypoint),
		errors.Is(err, animation.ErrNoWaypoints),
		errors.Is(err, geocode.ErrNoResults):
		return models.NewUnprocessable(models.ProblemTypeUnresolved, "Location could not be resolved", traceID, err.Error())
	default:
		return models.NewInternalError(traceID, "an unexpected error occurred")
	}
}
