package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mwapsam/tracker/internal/animation"
	"github.com/Mwapsam/tracker/internal/api"
	"github.com/Mwapsam/tracker/internal/api/handler"
	"github.com/Mwapsam/tracker/internal/api/models"
	"github.com/Mwapsam/tracker/internal/backend"
	"github.com/Mwapsam/tracker/internal/domain"
	"github.com/Mwapsam/tracker/internal/geocode"
	"github.com/Mwapsam/tracker/internal/provider/resilience"
	"github.com/Mwapsam/tracker/internal/trip"
)

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

type fakeTrips struct {
	mu     sync.Mutex
	trips  []domain.Trip
	fail   map[string]error
	nextID int
}

func newFakeTrips(trips ...domain.Trip) *fakeTrips {
	return &fakeTrips{trips: trips, fail: map[string]error{}, nextID: 100}
}

func (f *fakeTrips) err(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail[op]
}

func (f *fakeTrips) find(id domain.ID) domain.Trip {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.trips {
		if t.ID == id {
			return t.Clone()
		}
	}
	return domain.Trip{ID: id}
}

func (f *fakeTrips) ListTrips(context.Context) ([]domain.Trip, error) {
	if err := f.err("list"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Trip(nil), f.trips...), nil
}

func (f *fakeTrips) CreateTrip(_ context.Context, in domain.CreateTripInput) (domain.Trip, error) {
	if err := f.err("create"); err != nil {
		return domain.Trip{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t := domain.Trip{
		ID:                domain.ID(strconv.Itoa(f.nextID)),
		CurrentLocation:   in.CurrentLocation,
		PickupLocation:    in.PickupLocation,
		DropoffLocation:   in.DropoffLocation,
		EstimatedDuration: "10:00",
		RemainingHours:    70 - in.CurrentCycleUsed,
	}
	f.trips = append([]domain.Trip{t}, f.trips...)
	return t, nil
}

func (f *fakeTrips) StartTrip(_ context.Context, id domain.ID) (domain.Trip, error) {
	if err := f.err("start"); err != nil {
		return domain.Trip{}, err
	}
	t := f.find(id)
	start := t0
	t.StartTime = &start
	return t, nil
}

func (f *fakeTrips) GenerateStops(context.Context, domain.ID) ([]domain.Stop, error) {
	if err := f.err("stops"); err != nil {
		return nil, err
	}
	lat, lon := 41.25, -95.93
	return []domain.Stop{{
		ID:            "s1",
		StopType:      "REST",
		LocationName:  "Omaha",
		LocationLat:   &lat,
		LocationLon:   &lon,
		ScheduledTime: t0.Add(5 * time.Hour),
		Duration:      "00:30",
	}}, nil
}

func (f *fakeTrips) CompleteTrip(_ context.Context, id domain.ID) (domain.Trip, error) {
	if err := f.err("complete"); err != nil {
		return domain.Trip{}, err
	}
	t := f.find(id)
	start := t0
	t.StartTime = &start
	t.Completed = true
	return t, nil
}

func (f *fakeTrips) UpdateLocation(_ context.Context, id domain.ID, location string) (domain.Trip, error) {
	if err := f.err("location"); err != nil {
		return domain.Trip{}, err
	}
	t := f.find(id)
	start := t0
	t.StartTime = &start
	t.CurrentLocation = location
	return t, nil
}

type staticLogs []domain.LogEntry

func (s staticLogs) FetchLogs(context.Context) ([]domain.LogEntry, error) {
	return s, nil
}

type mapResolver map[string]geocode.Result

func (m mapResolver) Resolve(_ context.Context, query string) (*geocode.Result, error) {
	r, ok := m[query]
	if !ok {
		return nil, geocode.ErrNoResults
	}
	return &r, nil
}

var cities = mapResolver{
	"Chicago": {Lat: 41.8781, Lon: -87.6298, Name: "Chicago, IL"},
	"Denver":  {Lat: 39.7392, Lon: -104.9903, Name: "Denver, CO"},
	"Omaha":   {Lat: 41.2565, Lon: -95.9345, Name: "Omaha, NE"},
}

type testServer struct {
	handler http.Handler
	api     *fakeTrips
	ctl     *trip.Controller
	runner  *animation.Runner
}

type serverOptions struct {
	trips         []domain.Trip
	logs          trip.LogSource
	frameInterval time.Duration
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()
	logger := zerolog.New(io.Discard)

	fake := newFakeTrips(opts.trips...)
	ctl := trip.NewController(trip.Config{
		API:    fake,
		Logs:   opts.logs,
		Clock:  func() time.Time { return t0.Add(2 * time.Hour) },
		Logger: logger,
	})
	t.Cleanup(ctl.Close)

	frame := opts.frameInterval
	if frame == 0 {
		frame = time.Millisecond
	}
	runner := animation.NewRunner(animation.RunnerConfig{FrameInterval: frame, Logger: logger})
	anim := handler.NewAnimationHandler(handler.AnimationConfig{
		Controller:  ctl,
		Resolver:    cities,
		Runner:      runner,
		Broadcaster: animation.NewBroadcaster(),
		Logger:      logger,
	})
	t.Cleanup(anim.Close)

	registry := resilience.NewRegistry()
	registry.Register("backend", resilience.NewClient(resilience.DefaultClientConfig("backend")))

	router := api.NewRouter(api.RouterConfig{
		Version:    "test",
		BuildTime:  "2025-01-01T00:00:00Z",
		Logger:     logger,
		Controller: ctl,
		Animation:  anim,
		Registry:   registry,
	})
	return &testServer{handler: router, api: fake, ctl: ctl, runner: runner}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type dashboard struct {
	State     string       `json:"state"`
	Trip      *domain.Trip `json:"trip"`
	Progress  float64      `json:"progress"`
	CycleUsed float64      `json:"cycle_used"`
	Cycle     string       `json:"cycle"`
}

type tripList struct {
	Trips     []domain.Trip `json:"trips"`
	CurrentID domain.ID     `json:"currentId"`
	State     string        `json:"state"`
}

func draftTrip(id string) domain.Trip {
	return domain.Trip{
		ID:                domain.ID(id),
		CurrentLocation:   "Chicago",
		PickupLocation:    "Chicago",
		DropoffLocation:   "Denver",
		EstimatedDuration: "10:00",
		RemainingHours:    60,
	}
}

// slowTrip animates for several seconds at any short frame interval.
func slowTrip(id string) domain.Trip {
	t := draftTrip(id)
	start := t0
	t.StartTime = &start
	t.EstimatedDuration = "100:00"
	return t
}

func TestOpsEndpoints(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	t.Run("health", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/v1/ops/health", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

		health := decode[models.Health](t, rec)
		assert.Equal(t, models.HealthStatusOK, health.Status)
		assert.Equal(t, "test", health.Details["version"])
	})

	t.Run("ready", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/v1/ops/ready", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("status", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/v1/ops/status", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		status := decode[models.SystemStatus](t, rec)
		assert.Equal(t, models.HealthStatusOK, status.Status)
		require.Len(t, status.Providers, 1)
		assert.Equal(t, "backend", status.Providers[0].Provider)
		assert.Equal(t, "closed", status.Providers[0].CircuitState)

		names := make([]string, 0, len(status.Subsystems))
		for _, sub := range status.Subsystems {
			names = append(names, sub.Name)
		}
		assert.ElementsMatch(t, []string{"trip-controller", "animation"}, names)
	})
}

func TestSecurityHeadersApplied(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	rec := s.do(t, http.MethodGet, "/v1/dashboard", nil)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestDashboard_NoTrip(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	rec := s.do(t, http.MethodGet, "/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	d := decode[dashboard](t, rec)
	assert.Equal(t, "NONE", d.State)
	assert.Nil(t, d.Trip)
	assert.Equal(t, "70/8", d.Cycle)
}

func TestRefresh_SelectsFirstTrip(t *testing.T) {
	s := newTestServer(t, serverOptions{trips: []domain.Trip{draftTrip("1"), draftTrip("2")}})

	rec := s.do(t, http.MethodPost, "/v1/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	d := decode[dashboard](t, rec)
	assert.Equal(t, "DRAFT", d.State)
	require.NotNil(t, d.Trip)
	assert.Equal(t, domain.ID("1"), d.Trip.ID)

	list := decode[tripList](t, s.do(t, http.MethodGet, "/v1/trips", nil))
	assert.Len(t, list.Trips, 2)
	assert.Equal(t, domain.ID("1"), list.CurrentID)
	assert.Equal(t, "DRAFT", list.State)
}

func TestRefresh_BackendDown(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	s.api.fail["list"] = &backend.Error{Op: "list trips", Err: backend.ErrUnavailable, StatusCode: http.StatusBadGateway}

	rec := s.do(t, http.MethodPost, "/v1/refresh", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	p := decode[models.Problem](t, rec)
	assert.Equal(t, models.ProblemTypeUnavailable, p.Type)
	assert.Equal(t, "/v1/refresh", p.Instance)
}

func TestTripLifecycle(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	rec := s.do(t, http.MethodPost, "/v1/trips", models.CreateTripRequest{
		CurrentLocation:  " Chicago ",
		PickupLocation:   "Chicago",
		DropoffLocation:  "Denver",
		CurrentCycleUsed: 12,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[domain.Trip](t, rec)
	assert.Equal(t, "Chicago", created.CurrentLocation)
	assert.Equal(t, "/v1/trips/"+created.ID.String(), rec.Header().Get("Location"))

	base := "/v1/trips/" + created.ID.String()

	t.Run("get", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, base, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, created.ID, decode[domain.Trip](t, rec).ID)
	})

	t.Run("complete before start is rejected", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, base+"/complete", nil)
		require.Equal(t, http.StatusConflict, rec.Code)

		p := decode[models.Problem](t, rec)
		assert.Equal(t, models.ProblemTypeInvalidState, p.Type)
		assert.Equal(t, []string{"ACTIVE"}, p.Allowed)
	})

	t.Run("start", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, base+"/start", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		started := decode[domain.Trip](t, rec)
		require.NotNil(t, started.StartTime)

		d := decode[dashboard](t, s.do(t, http.MethodGet, "/v1/dashboard", nil))
		assert.Equal(t, "ACTIVE", d.State)
		assert.Zero(t, d.Progress)
		assert.Equal(t, 12.0, d.CycleUsed)
	})

	t.Run("start twice is rejected", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, base+"/start", nil)
		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, []string{"DRAFT"}, decode[models.Problem](t, rec).Allowed)
	})

	t.Run("generate stops", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, base+"/stops", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var body struct {
			Created []domain.Stop `json:"created"`
			Trip    domain.Trip   `json:"trip"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Len(t, body.Created, 1)
		assert.Len(t, body.Trip.Stops, 1)

		// The same stop is not appended twice.
		rec = s.do(t, http.MethodPost, base+"/stops", nil)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Empty(t, body.Created)
		assert.Len(t, body.Trip.Stops, 1)
	})

	t.Run("update location", func(t *testing.T) {
		rec := s.do(t, http.MethodPatch, base+"/location", models.UpdateLocationRequest{Location: "Omaha"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "Omaha", decode[domain.Trip](t, rec).CurrentLocation)

		rec = s.do(t, http.MethodPatch, base+"/location", models.UpdateLocationRequest{Location: "  "})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("complete", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, base+"/complete", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		done := decode[domain.Trip](t, rec)
		assert.True(t, done.Completed)
		assert.NotNil(t, done.CompletedAt)

		d := decode[dashboard](t, s.do(t, http.MethodGet, "/v1/dashboard", nil))
		assert.Equal(t, "COMPLETED", d.State)
	})
}

func TestCreateTrip_Validation(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	rec := s.do(t, http.MethodPost, "/v1/trips", models.CreateTripRequest{
		PickupLocation:   "Chicago",
		CurrentCycleUsed: 71,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	p := decode[models.Problem](t, rec)
	assert.Equal(t, models.ProblemTypeValidation, p.Type)

	fields := map[string]string{}
	for _, e := range p.Errors {
		fields[e.Field] = e.Code
	}
	assert.Equal(t, map[string]string{
		"current_location":   "REQUIRED",
		"dropoff_location":   "REQUIRED",
		"current_cycle_used": "OUT_OF_RANGE",
	}, fields)
}

func TestCreateTrip_RejectsMalformedBodies(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	tests := []struct {
		name        string
		body        string
		contentType string
		want        int
	}{
		{"unknown field", `{"pickup":"x"}`, "application/json", http.StatusBadRequest},
		{"not json", `{`, "application/json", http.StatusBadRequest},
		{"empty", ``, "application/json", http.StatusBadRequest},
		{"wrong media type", `pickup=x`, "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/trips", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := httptest.NewRecorder()
			s.handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestActions_TargetCurrentTrip(t *testing.T) {
	s := newTestServer(t, serverOptions{trips: []domain.Trip{draftTrip("1"), draftTrip("2")}})
	require.NoError(t, s.ctl.Load(context.Background()))

	t.Run("unknown trip", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/v1/trips/999", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, models.ProblemTypeNotFound, decode[models.Problem](t, rec).Type)

		rec = s.do(t, http.MethodPost, "/v1/trips/999/start", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("other trip", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/v1/trips/2/start", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, models.ProblemTypeInvalidState, decode[models.Problem](t, rec).Type)
	})

	t.Run("select then start", func(t *testing.T) {
		rec := s.do(t, http.MethodPut, "/v1/trips/current", models.SelectTripRequest{ID: "2"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, domain.ID("2"), decode[dashboard](t, rec).Trip.ID)

		rec = s.do(t, http.MethodPost, "/v1/trips/2/start", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("select unknown", func(t *testing.T) {
		rec := s.do(t, http.MethodPut, "/v1/trips/current", models.SelectTripRequest{ID: "999"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, domain.ID("2"), s.ctl.CurrentID())
	})

	t.Run("select without id", func(t *testing.T) {
		rec := s.do(t, http.MethodPut, "/v1/trips/current", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unload", func(t *testing.T) {
		rec := s.do(t, http.MethodDelete, "/v1/trips/current", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, trip.StateNone, s.ctl.State())
	})
}

func TestBackendRejection(t *testing.T) {
	s := newTestServer(t, serverOptions{trips: []domain.Trip{draftTrip("1")}})
	require.NoError(t, s.ctl.Load(context.Background()))
	s.api.fail["start"] = &backend.Error{
		Op:         "start trip",
		StatusCode: http.StatusBadRequest,
		Detail:     "trip already started",
		Err:        backend.ErrRejected,
	}

	rec := s.do(t, http.MethodPost, "/v1/trips/1/start", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	p := decode[models.Problem](t, rec)
	assert.Equal(t, models.ProblemTypeRejected, p.Type)
	assert.Contains(t, p.Detail, "trip already started")

	// The failed action leaves the trip untouched.
	assert.Equal(t, trip.StateDraft, s.ctl.State())
}

func TestLogs(t *testing.T) {
	entry := domain.LogEntry{
		ID:   "10",
		Date: "2025-03-01",
		DutyStatuses: []domain.DutyStatusRecord{
			{Status: domain.StatusOffDuty, StartTime: "2025-03-01T00:00:00Z", EndTime: "2025-03-01T06:00:00Z"},
			{Status: domain.StatusDriving, StartTime: "2025-03-01T06:00:00Z", EndTime: "2025-03-01T18:00:00Z"},
			{Status: domain.StatusOffDuty, StartTime: "2025-03-01T18:00:00Z", EndTime: "2025-03-02T00:00:00Z"},
			{Status: "YM", StartTime: "2025-03-01T18:00:00Z", EndTime: "2025-03-01T19:00:00Z"},
		},
	}
	s := newTestServer(t, serverOptions{logs: staticLogs{entry}})

	t.Run("daily", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/v1/logs/daily", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var body struct {
			Days []struct {
				Date         string  `json:"date"`
				DrivingHours float64 `json:"driving_hours"`
				OffDutyHours float64 `json:"off_duty_hours"`
			} `json:"days"`
			Unrecognized int    `json:"unrecognizedRecords"`
			Cycle        string `json:"cycle"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Days, 1)
		assert.Equal(t, "2025-03-01", body.Days[0].Date)
		assert.InDelta(t, 12.0, body.Days[0].DrivingHours, 1e-9)
		assert.InDelta(t, 12.0, body.Days[0].OffDutyHours, 1e-9)
		assert.Equal(t, 1, body.Unrecognized)
		assert.Equal(t, "70/8", body.Cycle)
	})

	t.Run("violations", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/v1/logs/violations", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var body struct {
			Violations []struct {
				Rule string `json:"rule"`
			} `json:"violations"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		rules := make([]string, 0, len(body.Violations))
		for _, v := range body.Violations {
			rules = append(rules, v.Rule)
		}
		assert.Contains(t, rules, "driving_limit_11h")
	})
}

func TestLogs_NoSource(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	rec := s.do(t, http.MethodGet, "/v1/logs/daily", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWaypoints(t *testing.T) {
	unknown := draftTrip("2")
	unknown.DropoffLocation = "Atlantis"
	s := newTestServer(t, serverOptions{trips: []domain.Trip{draftTrip("1"), unknown}})
	require.NoError(t, s.ctl.Load(context.Background()))

	t.Run("resolved", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/v1/trips/1/waypoints", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var body struct {
			Route    animation.Route     `json:"route"`
			Segments []animation.Segment `json:"segments"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Route.Waypoints, 2)
		assert.Equal(t, "Chicago, IL", body.Route.Waypoints[0].LocationName)
		assert.Equal(t, animation.StatusDropoff, body.Route.Waypoints[1].Status)
		assert.NotEmpty(t, body.Route.Polyline)
		require.Len(t, body.Segments, 1)
		assert.InDelta(t, 1475, body.Segments[0].DistanceKm, 15)
	})

	t.Run("unresolved", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/v1/trips/2/waypoints", nil)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, models.ProblemTypeUnresolved, decode[models.Problem](t, rec).Type)
	})

	t.Run("unknown trip", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/v1/trips/999/waypoints", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAnimation_StoppedOnTripSwitch(t *testing.T) {
	long := slowTrip("1")
	s := newTestServer(t, serverOptions{
		trips:         []domain.Trip{long, draftTrip("2")},
		frameInterval: 50 * time.Millisecond,
	})
	require.NoError(t, s.ctl.Load(context.Background()))

	rec := s.do(t, http.MethodPost, "/v1/trips/1/animation", nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, "1", decode[models.AnimationStatus](t, rec).Key)

	status := decode[models.AnimationStatus](t, s.do(t, http.MethodGet, "/v1/animation", nil))
	assert.True(t, status.Running)

	rec = s.do(t, http.MethodPut, "/v1/trips/current", models.SelectTripRequest{ID: "2"})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Empty(t, s.runner.Key())
	status = decode[models.AnimationStatus](t, s.do(t, http.MethodGet, "/v1/animation", nil))
	assert.False(t, status.Running)
}

func TestAnimation_Stop(t *testing.T) {
	long := slowTrip("1")
	s := newTestServer(t, serverOptions{trips: []domain.Trip{long}, frameInterval: 50 * time.Millisecond})
	require.NoError(t, s.ctl.Load(context.Background()))

	require.Equal(t, http.StatusAccepted, s.do(t, http.MethodPost, "/v1/trips/1/animation", nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/v1/animation", nil).Code)
	assert.Empty(t, s.runner.Key())
}

func TestAnimation_Stream(t *testing.T) {
	s := newTestServer(t, serverOptions{trips: []domain.Trip{draftTrip("1")}})
	require.NoError(t, s.ctl.Load(context.Background()))

	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/animation/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	_ = resp.Body.Close()

	// Wait for the server side to subscribe before starting the run.
	require.Eventually(t, func() bool {
		rec := s.do(t, http.MethodGet, "/v1/animation", nil)
		return decode[models.AnimationStatus](t, rec).Subscribers == 1
	}, 2*time.Second, 10*time.Millisecond)

	rec := s.do(t, http.MethodPost, "/v1/trips/1/animation", nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var types []string
	var last animation.Message
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var m animation.Message
		require.NoError(t, conn.ReadJSON(&m))
		types = append(types, m.Type)
		if m.Type == animation.MessageBegin {
			require.NotNil(t, m.Route)
			assert.Equal(t, "1", m.Route.Key)
		}
		if m.Type == animation.MessageFrame {
			last = m
		}
		if m.Type == animation.MessageEnd {
			break
		}
	}

	require.GreaterOrEqual(t, len(types), 3, fmt.Sprint(types))
	assert.Equal(t, animation.MessageBegin, types[0])
	assert.Equal(t, animation.MessageFrame, types[1])
	require.NotNil(t, last.Frame)
	assert.InDelta(t, 39.7392, last.Frame.Position.Lat, 1e-6)
}
