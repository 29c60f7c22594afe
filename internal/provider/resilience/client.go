package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// Predefined errors for resilient operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrMaxRetriesExceeded wraps the last transport error once all attempts are used.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// RetryMode selects how failed attempts are spaced.
type RetryMode int

const (
	// RetryExponential backs off exponentially between attempts.
	RetryExponential RetryMode = iota
	// RetryConstant waits a fixed Interval (possibly zero) between attempts.
	RetryConstant
	// RetryNone makes exactly one attempt.
	RetryNone
)

// RetryPolicy configures retries for a client or a single operation.
type RetryPolicy struct {
	Mode RetryMode

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries uint64

	// Interval is the initial (exponential) or fixed (constant) wait.
	Interval time.Duration

	// MaxInterval caps exponential waits.
	MaxInterval time.Duration
}

// FixedRetries returns a policy of n immediate retries with no backoff.
func FixedRetries(n uint64) RetryPolicy {
	return RetryPolicy{Mode: RetryConstant, MaxRetries: n}
}

// NewBackOff builds the backoff.BackOff described by p.
func NewBackOff(p RetryPolicy) backoff.BackOff {
	switch p.Mode {
	case RetryNone:
		return &backoff.StopBackOff{}
	case RetryConstant:
		var bo backoff.BackOff = &backoff.ZeroBackOff{}
		if p.Interval > 0 {
			bo = backoff.NewConstantBackOff(p.Interval)
		}
		return backoff.WithMaxRetries(bo, p.MaxRetries)
	default:
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = p.Interval
		bo.MaxInterval = p.MaxInterval
		bo.MaxElapsedTime = 0
		return backoff.WithMaxRetries(bo, p.MaxRetries)
	}
}

// ClientConfig holds configuration for the resilient HTTP client.
type ClientConfig struct {
	// Name identifies this client for circuit breaker naming and the registry.
	Name string

	// Timeout is the request timeout for individual HTTP calls.
	// Default: 10 seconds
	Timeout time.Duration

	// Retry controls retries of transport failures and 5xx responses.
	// Zero value: exponential, 3 retries, 100ms initial, 5s max.
	Retry RetryPolicy

	// CircuitBreaker is the circuit breaker configuration.
	// If nil, uses DefaultCircuitBreakerConfig.
	CircuitBreaker *CircuitBreakerConfig

	// Registry, if set, receives the client on construction and every
	// request outcome afterwards.
	Registry *Registry
}

// DefaultClientConfig returns sensible defaults for the resilient client.
func DefaultClientConfig(name string) ClientConfig {
	cbConfig := DefaultCircuitBreakerConfig(name)
	return ClientConfig{
		Name:    name,
		Timeout: 10 * time.Second,
		Retry: RetryPolicy{
			Mode:        RetryExponential,
			MaxRetries:  3,
			Interval:    100 * time.Millisecond,
			MaxInterval: 5 * time.Second,
		},
		CircuitBreaker: &cbConfig,
	}
}

// Client is a resilient HTTP client with circuit breaker and retry logic.
type Client struct {
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker[*http.Response]
	config         ClientConfig
}

// NewClient creates a new resilient HTTP client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retry.Mode == RetryExponential {
		if cfg.Retry.MaxRetries == 0 {
			cfg.Retry.MaxRetries = 3
		}
		if cfg.Retry.Interval == 0 {
			cfg.Retry.Interval = 100 * time.Millisecond
		}
		if cfg.Retry.MaxInterval == 0 {
			cfg.Retry.MaxInterval = 5 * time.Second
		}
	}

	cbConfig := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.CircuitBreaker != nil {
		cbConfig = *cfg.CircuitBreaker
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		circuitBreaker: NewCircuitBreaker[*http.Response](cbConfig), //nolint:bodyclose // type param, not response
		config:         cfg,
	}
	if cfg.Registry != nil {
		cfg.Registry.Register(cfg.Name, c)
	}
	return c
}

// Name returns the configured client name.
func (c *Client) Name() string {
	return c.config.Name
}

// Do executes an HTTP request with circuit breaker protection and retry logic.
// Returns immediately with ErrCircuitOpen if the circuit breaker is open.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.DoWithContext(req.Context(), req)
}

// DoWithContext executes an HTTP request with the given context. Requests
// with a body are only retried when req.GetBody is set.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	bo := backoff.WithContext(NewBackOff(c.config.Retry), ctx)

	var (
		lastResp *http.Response
		attempts int
	)

	operation := func() error {
		attempts++
		if attempts > 1 && req.Body != nil && req.Body != http.NoBody {
			if req.GetBody == nil {
				return backoff.Permanent(errors.New("request body cannot be replayed"))
			}
		}

		resp, err := c.circuitBreaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // caller is responsible for closing
			reqClone := req.Clone(ctx)
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				reqClone.Body = body
			}
			r, err := c.httpClient.Do(reqClone)
			if err != nil {
				return nil, err
			}

			// 5xx counts against the breaker.
			if r.StatusCode >= 500 {
				return r, &ServerError{StatusCode: r.StatusCode}
			}
			return r, nil
		})

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			if lastResp != nil && lastResp != resp {
				lastResp.Body.Close()
			}
			if resp != nil {
				lastResp = resp
			}
			return err
		}

		if lastResp != nil {
			lastResp.Body.Close()
		}
		lastResp = resp
		return nil
	}

	err := backoff.Retry(operation, bo)
	if err != nil {
		if lastResp != nil && lastResp.StatusCode >= 500 {
			// The caller maps the final 5xx itself.
			c.recordFailure(&ServerError{StatusCode: lastResp.StatusCode})
			return lastResp, nil
		}
		if lastResp != nil {
			lastResp.Body.Close()
		}
		if !errors.Is(err, ErrCircuitOpen) && ctx.Err() == nil && attempts > 1 {
			err = fmt.Errorf("%w after %d attempts: %w", ErrMaxRetriesExceeded, attempts, err)
		}
		c.recordFailure(err)
		return nil, err
	}

	c.recordSuccess()
	return lastResp, nil
}

func (c *Client) recordSuccess() {
	if c.config.Registry != nil {
		c.config.Registry.RecordSuccess(c.config.Name)
	}
}

func (c *Client) recordFailure(err error) {
	if c.config.Registry != nil {
		c.config.Registry.RecordFailure(c.config.Name, err)
	}
}

// ServerError represents an HTTP 5xx server error.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}

// CircuitBreakerState returns the current state of the circuit breaker.
func (c *Client) CircuitBreakerState() gobreaker.State {
	return c.circuitBreaker.State()
}

// CircuitBreakerCounts returns the current counts of the circuit breaker.
func (c *Client) CircuitBreakerCounts() gobreaker.Counts {
	return c.circuitBreaker.Counts()
}
