package resilience_test

import (
	"errors"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mwapsam/tracker/internal/provider/resilience"
)

func newRegistered(registry *resilience.Registry, name string) *resilience.Client {
	cfg := resilience.DefaultClientConfig(name)
	cfg.Registry = registry
	return resilience.NewClient(cfg)
}

func TestRegistry_RegisterOnConstruction(t *testing.T) {
	registry := resilience.NewRegistry()
	client := newRegistered(registry, "backend")

	assert.Equal(t, 1, registry.Len())

	health := registry.Health("backend")
	require.NotNil(t, health)
	assert.Equal(t, "backend", health.Name)
	assert.Equal(t, gobreaker.StateClosed, health.CircuitState)
	assert.True(t, health.IsHealthy())
	assert.False(t, health.IsDegraded())
	assert.False(t, health.IsUnhealthy())
	assert.Equal(t, "backend", client.Name())
}

func TestRegistry_Unregister(t *testing.T) {
	registry := resilience.NewRegistry()
	_ = newRegistered(registry, "backend")

	registry.Unregister("backend")

	assert.Equal(t, 0, registry.Len())
	assert.Nil(t, registry.Health("backend"))
}

func TestRegistry_RecordOutcomes(t *testing.T) {
	registry := resilience.NewRegistry()
	_ = newRegistered(registry, "geocoder")

	registry.RecordSuccess("geocoder")
	registry.RecordFailure("geocoder", errors.New("quota exceeded"))

	health := registry.Health("geocoder")
	require.NotNil(t, health)
	assert.NotNil(t, health.LastSuccessAt)
	assert.NotNil(t, health.LastFailureAt)
	assert.Equal(t, "quota exceeded", health.LastError)
}

func TestRegistry_RecordForUnknownProviderIsNoop(t *testing.T) {
	registry := resilience.NewRegistry()

	registry.RecordSuccess("missing")
	registry.RecordFailure("missing", errors.New("x"))

	assert.Nil(t, registry.Health("missing"))
	assert.Equal(t, 0, registry.Len())
}

func TestRegistry_AllSortedByName(t *testing.T) {
	registry := resilience.NewRegistry()
	_ = newRegistered(registry, "geocoder")
	_ = newRegistered(registry, "backend")

	all := registry.All()
	require.Len(t, all, 2)
	assert.Equal(t, "backend", all[0].Name)
	assert.Equal(t, "geocoder", all[1].Name)
}

func TestProviderHealth_States(t *testing.T) {
	tests := []struct {
		state     gobreaker.State
		healthy   bool
		degraded  bool
		unhealthy bool
	}{
		{gobreaker.StateClosed, true, false, false},
		{gobreaker.StateHalfOpen, false, true, false},
		{gobreaker.StateOpen, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			h := &resilience.ProviderHealth{CircuitState: tt.state}
			assert.Equal(t, tt.healthy, h.IsHealthy())
			assert.Equal(t, tt.degraded, h.IsDegraded())
			assert.Equal(t, tt.unhealthy, h.IsUnhealthy())
		})
	}
}
