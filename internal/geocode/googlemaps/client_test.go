package googlemaps_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mwapsam/tracker/internal/geocode"
	"github.com/Mwapsam/tracker/internal/geocode/googlemaps"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *googlemaps.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return googlemaps.NewClient(googlemaps.ClientConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Logger:     zerolog.Nop(),
	})
}

func TestClient_Geocode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/geocode/json", r.URL.Path)
		assert.Equal(t, "Denver, CO", r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`{"status": "OK", "results": [
			{"formatted_address": "Denver, CO, USA", "geometry": {"location": {"lat": 39.7392, "lng": -104.9903}}}
		]}`))
	})

	r, err := client.Geocode(context.Background(), "Denver, CO")
	require.NoError(t, err)
	assert.Equal(t, "Denver, CO, USA", r.Name)
	assert.InDelta(t, 39.7392, r.Lat, 1e-9)
	assert.InDelta(t, -104.9903, r.Lon, 1e-9)
	assert.Equal(t, "googlemaps", client.Name())
}

func TestClient_Reverse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "41.8781,-87.6298", r.URL.Query().Get("latlng"))
		_, _ = w.Write([]byte(`{"status": "OK", "results": [
			{"formatted_address": "Chicago, IL, USA", "geometry": {"location": {"lat": 41.88, "lng": -87.63}}}
		]}`))
	})

	r, err := client.Reverse(context.Background(), 41.8781, -87.6298)
	require.NoError(t, err)
	assert.Equal(t, "Chicago, IL, USA", r.Name)
	assert.InDelta(t, 41.8781, r.Lat, 1e-9)
	assert.InDelta(t, -87.6298, r.Lon, 1e-9)
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		status   int
		sentinel error
	}{
		{"zero results", `{"status": "ZERO_RESULTS", "results": []}`, http.StatusOK, geocode.ErrNoResults},
		{"ok but empty", `{"status": "OK", "results": []}`, http.StatusOK, geocode.ErrNoResults},
		{"quota", `{"status": "OVER_QUERY_LIMIT"}`, http.StatusOK, geocode.ErrQuotaExceeded},
		{"denied", `{"status": "REQUEST_DENIED", "error_message": "bad key"}`, http.StatusOK, geocode.ErrProviderUnavailable},
		{"invalid", `{"status": "INVALID_REQUEST"}`, http.StatusOK, geocode.ErrInvalidQuery},
		{"unknown", `{"status": "UNKNOWN_ERROR"}`, http.StatusOK, geocode.ErrProviderUnavailable},
		{"http error", `{}`, http.StatusBadGateway, geocode.ErrProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Geocode(context.Background(), "Nowhere")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)

			var gerr *geocode.Error
			require.True(t, errors.As(err, &gerr))
			assert.Equal(t, "googlemaps", gerr.Provider)
			assert.Equal(t, "Nowhere", gerr.Query)
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client := googlemaps.NewClient(googlemaps.ClientConfig{
		BaseURL:    baseURL,
		HTTPClient: http.DefaultClient,
		Logger:     zerolog.Nop(),
	})

	_, err := client.Geocode(context.Background(), "Denver")
	assert.ErrorIs(t, err, geocode.ErrProviderUnavailable)
}
