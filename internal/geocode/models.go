// Package geocode resolves addresses and coordinate pairs into named points.
package geocode

import (
	"context"
	"errors"
)

// Sentinel errors for geocoding operations.
var (
	// ErrNoResults means the lookup matched nothing. It is never defaulted.
	ErrNoResults = errors.New("no geocoding results")
	// ErrProviderUnavailable indicates the provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("geocoding provider unavailable")
	// ErrQuotaExceeded indicates the provider rejected the call for quota reasons.
	ErrQuotaExceeded = errors.New("geocoding quota exceeded")
	// ErrInvalidQuery indicates an empty or malformed query.
	ErrInvalidQuery = errors.New("invalid geocoding query")
)

// Result is a resolved location.
type Result struct {
	Lat  float64 `json:"location_lat"`
	Lon  float64 `json:"location_lon"`
	Name string  `json:"location_name"`
}

// Provider is a geocoding backend.
type Provider interface {
	// Geocode resolves a free-text address.
	Geocode(ctx context.Context, address string) (*Result, error)
	// Reverse resolves a coordinate pair to a named location.
	Reverse(ctx context.Context, lat, lon float64) (*Result, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// Error provides detailed error information from the geocoding provider.
type Error struct {
	Provider string
	Code     string
	Message  string
	Query    string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Query != "" {
		msg += " for " + `"` + e.Query + `"`
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrQuotaExceeded)
}
