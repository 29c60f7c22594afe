// Package backend is the client for the trip and log REST backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/Mwapsam/tracker/internal/domain"
	"github.com/Mwapsam/tracker/internal/provider/resilience"
	"github.com/Mwapsam/tracker/internal/requestid"
)

const (
	// ProviderName identifies the backend in the provider registry.
	ProviderName = "backend"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 15 * time.Second

	// DefaultLogFetchRetries is how many times a failed log fetch is retried.
	DefaultLogFetchRetries = 3

	maxErrorBody = 64 << 10
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the backend client.
type ClientConfig struct {
	// BaseURL is the API root, e.g. "http://localhost:8000/api" (required).
	BaseURL string

	// Token is sent as a bearer token when set.
	Token string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client that never retries lifecycle calls.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 15s).
	Timeout time.Duration

	// LogFetchRetries is the fixed retry count for FetchLogs (defaults to 3).
	// Negative disables retries.
	LogFetchRetries int

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client talks to the trip/log backend.
type Client struct {
	baseURL    string
	token      string
	httpClient HTTPDoer
	logRetries uint64
	logger     zerolog.Logger
}

// NewClient creates a backend client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		clientCfg.Retry = resilience.RetryPolicy{Mode: resilience.RetryNone}
		clientCfg.Registry = cfg.Registry
		httpClient = resilience.NewClient(clientCfg)
	}

	retries := uint64(DefaultLogFetchRetries)
	switch {
	case cfg.LogFetchRetries < 0:
		retries = 0
	case cfg.LogFetchRetries > 0:
		retries = uint64(cfg.LogFetchRetries)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: httpClient,
		logRetries: retries,
		logger:     cfg.Logger,
	}
}

// ListTrips returns the driver's trips, newest relevant first.
func (c *Client) ListTrips(ctx context.Context) ([]domain.Trip, error) {
	var trips []domain.Trip
	if err := c.getList(ctx, "list trips", "/trips/", &trips); err != nil {
		return nil, err
	}
	return trips, nil
}

// CreateTrip posts a new trip.
func (c *Client) CreateTrip(ctx context.Context, in domain.CreateTripInput) (domain.Trip, error) {
	var trip domain.Trip
	err := c.do(ctx, "create trip", http.MethodPost, "/trips/", in, &trip)
	return trip, err
}

// StartTrip asks the backend to set the trip's start time.
func (c *Client) StartTrip(ctx context.Context, id domain.ID) (domain.Trip, error) {
	var trip domain.Trip
	err := c.do(ctx, "start trip", http.MethodPost, tripPath(id, "start"), nil, &trip)
	return trip, err
}

// GenerateStops triggers server-side stop synthesis. Any stops the backend
// returns are passed back; an empty or unrecognized success body yields none.
func (c *Client) GenerateStops(ctx context.Context, id domain.ID) ([]domain.Stop, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "generate stops", http.MethodPost, tripPath(id, "stops"), nil, &raw); err != nil {
		return nil, err
	}
	return decodeStops(raw), nil
}

// CompleteTrip marks the trip completed.
func (c *Client) CompleteTrip(ctx context.Context, id domain.ID) (domain.Trip, error) {
	var trip domain.Trip
	err := c.do(ctx, "complete trip", http.MethodPost, tripPath(id, "complete"), nil, &trip)
	return trip, err
}

// UpdateLocation patches the trip's current location.
func (c *Client) UpdateLocation(ctx context.Context, id domain.ID, location string) (domain.Trip, error) {
	var trip domain.Trip
	body := map[string]string{"current_location": location}
	err := c.do(ctx, "update location", http.MethodPatch, tripPath(id, "update_location"), body, &trip)
	return trip, err
}

// FetchLogs returns all log entries. Failures are retried a fixed number of
// times with no delay; exhausting them yields one ErrLogFetchFailed.
func (c *Client) FetchLogs(ctx context.Context) ([]domain.LogEntry, error) {
	var (
		entries  []domain.LogEntry
		attempts int
		lastErr  error
	)

	op := func() error {
		attempts++
		var out []domain.LogEntry
		if err := c.getList(ctx, "fetch logs", "/logs/", &out); err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			c.logger.Debug().Err(err).Int("attempt", attempts).Msg("log fetch attempt failed")
			return err
		}
		entries = out
		return nil
	}

	bo := backoff.WithContext(resilience.NewBackOff(resilience.FixedRetries(c.logRetries)), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn().Err(lastErr).Int("attempts", attempts).Msg("log fetch failed")
		return nil, &Error{
			Op:     "fetch logs",
			Detail: fmt.Sprintf("%d attempts", attempts),
			Err:    ErrLogFetchFailed,
			Cause:  lastErr,
		}
	}
	return entries, nil
}

func tripPath(id domain.ID, action string) string {
	return "/trips/" + url.PathEscape(id.String()) + "/" + action + "/"
}

// getList decodes either a bare JSON array or a paginated {"results": [...]}.
func (c *Client) getList(ctx context.Context, op, path string, out any) error {
	var raw json.RawMessage
	if err := c.do(ctx, op, http.MethodGet, path, nil, &raw); err != nil {
		return err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var page struct {
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &page); err != nil || page.Results == nil {
			return &Error{Op: op, Err: ErrDecode, Cause: errors.New("expected a list")}
		}
		trimmed = page.Results
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return &Error{Op: op, Err: ErrDecode, Cause: err}
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if id := requestid.From(ctx); id != "" {
		req.Header.Set(requestid.Header, id)
	}

	c.logger.Debug().
		Str("op", op).
		Str("method", method).
		Str("path", path).
		Msg("calling backend")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: op, Err: ErrUnavailable, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return errorForStatus(op, resp.StatusCode, parseDetail(respBody))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, Err: ErrUnavailable, Cause: err}
	}
	if out == nil {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], respBody...)
		return nil
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return &Error{Op: op, StatusCode: resp.StatusCode, Err: ErrDecode, Cause: errors.New("empty body")}
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, Err: ErrDecode, Cause: err}
	}
	return nil
}

// parseDetail extracts a readable message from a DRF-style error body.
func parseDetail(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}

	var list []string
	if err := json.Unmarshal(body, &list); err == nil {
		return strings.Join(list, "; ")
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return ""
	}
	for _, k := range []string{"detail", "error", "message"} {
		var s string
		if raw, ok := obj[k]; ok && json.Unmarshal(raw, &s) == nil {
			return s
		}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		var msgs []string
		if json.Unmarshal(obj[k], &msgs) == nil && len(msgs) > 0 {
			parts = append(parts, k+": "+strings.Join(msgs, ", "))
		}
	}
	return strings.Join(parts, "; ")
}

func decodeStops(raw json.RawMessage) []domain.Stop {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	var stops []domain.Stop
	if err := json.Unmarshal(raw, &stops); err == nil {
		return stops
	}
	var wrapped struct {
		Stops []domain.Stop `json:"stops"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		return wrapped.Stops
	}
	return nil
}
