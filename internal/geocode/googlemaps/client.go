// Package googlemaps provides a client for the Google Geocoding API.
package googlemaps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Mwapsam/tracker/internal/geocode"
	"github.com/Mwapsam/tracker/internal/provider/resilience"
)

const (
	// ProviderName identifies this geocoding provider.
	ProviderName = "googlemaps"

	// DefaultBaseURL is the Google Maps API base URL.
	DefaultBaseURL = "https://maps.googleapis.com"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second
)

// Geocoding API statuses.
const (
	statusOK             = "OK"
	statusZeroResults    = "ZERO_RESULTS"
	statusOverQueryLimit = "OVER_QUERY_LIMIT"
	statusRequestDenied  = "REQUEST_DENIED"
	statusInvalidRequest = "INVALID_REQUEST"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Google geocoding client.
type ClientConfig struct {
	// APIKey is the Google Maps API key (required).
	APIKey string

	// BaseURL is the API base URL (optional).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Google Geocoding API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new Google geocoding client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		clientCfg.Registry = cfg.Registry
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Geocode resolves a free-text address.
func (c *Client) Geocode(ctx context.Context, address string) (*geocode.Result, error) {
	params := url.Values{}
	params.Set("address", address)
	return c.lookup(ctx, address, params)
}

// Reverse resolves a coordinate pair.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (*geocode.Result, error) {
	query := strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lon, 'f', -1, 64)
	params := url.Values{}
	params.Set("latlng", query)
	r, err := c.lookup(ctx, query, params)
	if err != nil {
		return nil, err
	}
	// Keep the caller's coordinates; the API snaps to the nearest address.
	r.Lat, r.Lon = lat, lon
	return r, nil
}

func (c *Client) lookup(ctx context.Context, query string, params url.Values) (*geocode.Result, error) {
	params.Set("key", c.apiKey)
	reqURL := c.baseURL + "/maps/api/geocode/json?" + params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("query", query).Msg("requesting geocode from Google")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &geocode.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach geocoding provider",
			Query:    query,
			Err:      geocode.ErrProviderUnavailable,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &geocode.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message:  fmt.Sprintf("geocoding provider returned status %d", resp.StatusCode),
			Query:    query,
			Err:      geocode.ErrProviderUnavailable,
		}
	}

	var gr geocodeResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if err := statusError(gr, query); err != nil {
		return nil, err
	}

	first := gr.Results[0]
	return &geocode.Result{
		Lat:  first.Geometry.Location.Lat,
		Lon:  first.Geometry.Location.Lng,
		Name: first.FormattedAddress,
	}, nil
}

func statusError(gr geocodeResponse, query string) error {
	switch gr.Status {
	case statusOK:
		if len(gr.Results) == 0 {
			return noResults(query)
		}
		return nil
	case statusZeroResults:
		return noResults(query)
	case statusOverQueryLimit:
		return &geocode.Error{
			Provider: ProviderName,
			Code:     gr.Status,
			Message:  "geocoding quota exceeded",
			Query:    query,
			Err:      geocode.ErrQuotaExceeded,
		}
	case statusRequestDenied:
		return &geocode.Error{
			Provider: ProviderName,
			Code:     gr.Status,
			Message:  "geocoding request denied - check API key configuration",
			Query:    query,
			Err:      geocode.ErrProviderUnavailable,
		}
	case statusInvalidRequest:
		return &geocode.Error{
			Provider: ProviderName,
			Code:     gr.Status,
			Message:  "invalid geocoding request",
			Query:    query,
			Err:      geocode.ErrInvalidQuery,
		}
	default:
		return &geocode.Error{
			Provider: ProviderName,
			Code:     gr.Status,
			Message:  "geocoding provider error: " + gr.ErrorMessage,
			Query:    query,
			Err:      geocode.ErrProviderUnavailable,
		}
	}
}

func noResults(query string) error {
	return &geocode.Error{
		Provider: ProviderName,
		Code:     statusZeroResults,
		Message:  "no results",
		Query:    query,
		Err:      geocode.ErrNoResults,
	}
}
