package response_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mwapsam/tracker/internal/animation"
	"github.com/Mwapsam/tracker/internal/api/middleware"
	"github.com/Mwapsam/tracker/internal/api/models"
	"github.com/Mwapsam/tracker/internal/api/response"
	"github.com/Mwapsam/tracker/internal/backend"
	"github.com/Mwapsam/tracker/internal/geocode"
	"github.com/Mwapsam/tracker/internal/trip"
)

// withRequestID runs req through the RequestID middleware and returns the
// request as the handler saw it.
func withRequestID(req *http.Request) *http.Request {
	var seen *http.Request
	middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = r
	})).ServeHTTP(httptest.NewRecorder(), req)
	return seen
}

func TestJSON(t *testing.T) {
	req := withRequestID(httptest.NewRequest(http.MethodGet, "/v1/dashboard", http.NoBody))
	rec := httptest.NewRecorder()

	response.JSON(rec, req, http.StatusOK, map[string]string{"state": "ACTIVE"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("X-Request-Id"), "req_")
	assert.JSONEq(t, `{"state":"ACTIVE"}`, rec.Body.String())
}

func TestCreatedAndNoContent(t *testing.T) {
	req := withRequestID(httptest.NewRequest(http.MethodPost, "/v1/trips", http.NoBody))

	rec := httptest.NewRecorder()
	response.Created(rec, req, "/v1/trips/7", map[string]string{"id": "7"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/v1/trips/7", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	response.NoContent(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Empty(t, rec.Body.String())
}

func TestError_Mapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		typ    string
	}{
		{"transition", &trip.TransitionError{Op: "start", TripID: "1", From: trip.StateActive, Allowed: []trip.State{trip.StateDraft}}, http.StatusConflict, models.ProblemTypeInvalidState},
		{"busy", trip.ErrBusy, http.StatusConflict, models.ProblemTypeBusy},
		{"not current", fmt.Errorf("start 2: %w", trip.ErrNotCurrent), http.StatusConflict, models.ProblemTypeInvalidState},
		{"unknown trip", trip.ErrTripNotFound, http.StatusNotFound, models.ProblemTypeNotFound},
		{"backend 404", &backend.Error{Op: "start trip", StatusCode: 404, Err: backend.ErrNotFound}, http.StatusNotFound, models.ProblemTypeNotFound},
		{"invalid input", fmt.Errorf("%w: location is empty", trip.ErrInvalidInput), http.StatusBadRequest, models.ProblemTypeValidation},
		{"rejected", &backend.Error{Op: "complete trip", StatusCode: 400, Err: backend.ErrRejected}, http.StatusUnprocessableEntity, models.ProblemTypeRejected},
		{"geocode miss", fmt.Errorf("%w: %q: %w", animation.ErrUnresolvedWaypoint, "Atlantis", geocode.ErrNoResults), http.StatusUnprocessableEntity, models.ProblemTypeUnresolved},
		{"geocoder down", fmt.Errorf("%w: %q: %w", animation.ErrUnresolvedWaypoint, "Reno", geocode.ErrProviderUnavailable), http.StatusServiceUnavailable, models.ProblemTypeUnavailable},
		{"backend down", &backend.Error{Op: "list trips", Err: backend.ErrUnavailable}, http.StatusServiceUnavailable, models.ProblemTypeUnavailable},
		{"logs exhausted", backend.ErrLogFetchFailed, http.StatusServiceUnavailable, models.ProblemTypeUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, models.ProblemTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withRequestID(httptest.NewRequest(http.MethodPost, "/v1/trips/1/start", http.NoBody))
			rec := httptest.NewRecorder()

			response.Error(rec, req, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			var p models.Problem
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
			assert.Equal(t, tt.typ, p.Type)
			assert.Equal(t, "/v1/trips/1/start", p.Instance)
			assert.Contains(t, p.TraceID, "req_")
		})
	}
}

func TestError_TransitionListsAllowedStates(t *testing.T) {
	p := response.ProblemFor("r", &trip.TransitionError{
		Op: "complete", TripID: "3", From: trip.StateDraft, Allowed: []trip.State{trip.StateActive},
	})
	assert.Equal(t, []string{"ACTIVE"}, p.Allowed)
	assert.Contains(t, p.Detail, "DRAFT")
}

func TestError_InternalHidesDetail(t *testing.T) {
	p := response.ProblemFor("r", errors.New("pq: password authentication failed"))
	assert.NotContains(t, p.Detail, "password")
}
