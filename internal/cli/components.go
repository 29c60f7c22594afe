package cli

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Mwapsam/tracker/internal/animation"
	"github.com/Mwapsam/tracker/internal/backend"
	"github.com/Mwapsam/tracker/internal/config"
	"github.com/Mwapsam/tracker/internal/geocode"
	"github.com/Mwapsam/tracker/internal/geocode/googlemaps"
	"github.com/Mwapsam/tracker/internal/provider/resilience"
	"github.com/Mwapsam/tracker/internal/trip"
)

const redisPingTimeout = 3 * time.Second

func newBackendClient(cfg *config.Config, registry *resilience.Registry, logger zerolog.Logger) *backend.Client {
	// The client treats zero as "use the default".
	retries := cfg.LogFetchRetries
	if retries == 0 {
		retries = -1
	}
	return backend.NewClient(backend.ClientConfig{
		BaseURL:         cfg.BackendBaseURL,
		Token:           cfg.BackendToken,
		Timeout:         cfg.BackendTimeout,
		LogFetchRetries: retries,
		Registry:        registry,
		Logger:          logger.With().Str("component", "backend").Logger(),
	})
}

func newController(cfg *config.Config, client *backend.Client, observer trip.Observer, logger zerolog.Logger) *trip.Controller {
	return trip.NewController(trip.Config{
		API:          client,
		Logs:         client,
		Observer:     observer,
		TickInterval: cfg.TickInterval,
		Cycle:        cfg.Cycle,
		Logger:       logger.With().Str("component", "trip").Logger(),
	})
}

// newResolver returns the geocoding resolver, or nil when no API key is set.
// A Redis cache is used when REDIS_URL is set and reachable; otherwise
// lookups are cached in memory. The returned close function is never nil.
func newResolver(ctx context.Context, cfg *config.Config, registry *resilience.Registry, logger zerolog.Logger) (animation.Resolver, func()) {
	if cfg.GoogleMapsAPIKey == "" {
		logger.Warn().Msg("GOOGLE_MAPS_API_KEY not set, locations without coordinates cannot be animated")
		return nil, func() {}
	}

	log := logger.With().Str("component", "geocode").Logger()
	closeCache := func() {}

	var cache geocode.Cache
	if cfg.RedisURL != "" {
		rc, err := geocode.NewRedisCache(cfg.RedisURL)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
			err = rc.Ping(pingCtx)
			cancel()
			if err != nil {
				_ = rc.Close()
			}
		}
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, caching geocodes in memory")
		} else {
			cache = rc
			closeCache = func() { _ = rc.Close() }
			log.Info().Msg("geocode cache connected to redis")
		}
	}

	svc := geocode.NewService(geocode.ServiceConfig{
		Provider: googlemaps.NewClient(googlemaps.ClientConfig{
			APIKey:   cfg.GoogleMapsAPIKey,
			Registry: registry,
			Logger:   log,
		}),
		Cache:    cache,
		CacheTTL: cfg.GeocodeCacheTTL,
		Logger:   log,
	})
	return svc, closeCache
}
