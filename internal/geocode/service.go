package geocode

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the geocoding service.
type ServiceConfig struct {
	// Provider is the geocoding backend.
	Provider Provider

	// Cache stores successful lookups (default: in-memory).
	Cache Cache

	// CacheTTL is how long a lookup is cached (default: 24 hours).
	CacheTTL time.Duration

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service resolves queries through a Provider with caching.
type Service struct {
	provider Provider
	cache    Cache
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewService creates a new geocoding service.
func NewService(cfg ServiceConfig) *Service {
	cache := cfg.Cache
	if cache == nil {
		cache = NewMemoryCache()
	}
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		provider: cfg.Provider,
		cache:    cache,
		cacheTTL: ttl,
		logger:   cfg.Logger,
	}
}

// Resolve turns a free-text address or a "lat, lon" pair into a Result.
// Coordinate pairs are reverse-geocoded for their name. A lookup with no
// match returns an error wrapping ErrNoResults.
func (s *Service) Resolve(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &Error{Provider: s.provider.Name(), Code: "EMPTY_QUERY", Message: "empty query", Err: ErrInvalidQuery}
	}

	key := cacheKey(query)
	if r, ok := s.cache.Get(ctx, key); ok {
		s.logger.Debug().Str("query", query).Msg("geocode cache hit")
		return r, nil
	}

	var (
		r   *Result
		err error
	)
	if lat, lon, ok := ParseLatLon(query); ok {
		r, err = s.provider.Reverse(ctx, lat, lon)
	} else {
		r, err = s.provider.Geocode(ctx, query)
	}
	if err != nil {
		s.logger.Debug().Err(err).Str("query", query).Msg("geocode lookup failed")
		return nil, err
	}
	if r == nil {
		return nil, &Error{Provider: s.provider.Name(), Code: "ZERO_RESULTS", Message: "no results", Query: query, Err: ErrNoResults}
	}

	s.cache.Set(ctx, key, r, s.cacheTTL)
	return r, nil
}

// ParseLatLon parses "lat, lon" or "lat lon" with values in range.
func ParseLatLon(s string) (lat, lon float64, ok bool) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	if len(fields) != 2 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

func cacheKey(query string) string {
	if lat, lon, ok := ParseLatLon(query); ok {
		return fmt.Sprintf("ll:%.5f,%.5f", lat, lon)
	}
	return "q:" + strings.ToLower(strings.Join(strings.Fields(query), " "))
}
