package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mwapsam/tracker/internal/animation"
	"github.com/Mwapsam/tracker/internal/api"
	"github.com/Mwapsam/tracker/internal/api/handler"
	"github.com/Mwapsam/tracker/internal/api/middleware"
	"github.com/Mwapsam/tracker/internal/config"
	"github.com/Mwapsam/tracker/internal/metrics"
	"github.com/Mwapsam/tracker/internal/provider/resilience"
	"github.com/Mwapsam/tracker/internal/publisher"
	"github.com/Mwapsam/tracker/internal/telemetry"
	"github.com/Mwapsam/tracker/internal/trip"
)

const shutdownTimeout = 30 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API",
		Long: `Serve the dashboard API on APP_PORT until interrupted.

Configuration is read from the environment and an optional .env file.
BACKEND_BASE_URL is required.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, rootOpts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return wrapExit(ExitCommandError, "invalid configuration", err)
	}

	log := opts.logger(cfg, cmd.OutOrStdout())
	log.Info().Str("build_time", opts.BuildTime).Str("env", cfg.Environment).Msg("starting tracker")

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    ServiceName,
		ServiceVersion: opts.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		return wrapExit(ExitCommandError, "failed to initialize telemetry", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()
	if cfg.OTelEnabled {
		log.Info().Str("otlp_endpoint", cfg.OTLPEndpoint).Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics(tp.Meter)
	if err != nil {
		return wrapExit(ExitCommandError, "failed to initialize metrics", err)
	}
	instruments, err := telemetry.NewTripInstruments(tp.Meter)
	if err != nil {
		return wrapExit(ExitCommandError, "failed to initialize metrics", err)
	}
	collector := metrics.NewCollector(cfg.TickInterval, cfg.FrameInterval)

	registry := resilience.NewRegistry()
	client := newBackendClient(cfg, registry, log)

	ctl := newController(cfg, client, trip.Observers{collector, instruments}, log)
	defer ctl.Close()

	resolver, closeResolver := newResolver(ctx, cfg, registry, log)
	defer closeResolver()

	var sinks []animation.Sink
	if cfg.NATSURL != "" {
		pub, err := publisher.Connect(cfg.NATSURL, publisher.Config{
			Rate:    cfg.NATSPublishRate,
			Metrics: collector,
			Logger:  log.With().Str("component", "publisher").Logger(),
		})
		if err != nil {
			return wrapExit(ExitCommandError, "failed to connect to NATS", err)
		}
		defer pub.Close()
		sinks = append(sinks, pub)
		log.Info().Str("url", cfg.NATSURL).Msg("publishing animation frames to NATS")
	}

	anim := handler.NewAnimationHandler(handler.AnimationConfig{
		Controller: ctl,
		Resolver:   resolver,
		Runner: animation.NewRunner(animation.RunnerConfig{
			FrameInterval: cfg.FrameInterval,
			Observer:      collector,
			Logger:        log.With().Str("component", "animation").Logger(),
		}),
		Broadcaster: animation.NewBroadcaster(),
		Sinks:       sinks,
		Logger:      log,
	})
	defer anim.Close()

	if cfg.MetricsAddr != "" {
		metricsSrv := collector.Serve(cfg.MetricsAddr, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	// The dashboard serves an empty view until a refresh succeeds.
	if err := ctl.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("initial trip load failed")
	}

	router := api.NewRouter(api.RouterConfig{
		Version:     opts.Version,
		BuildTime:   opts.BuildTime,
		ServiceName: ServiceName,
		RequireTLS:  cfg.IsProduction(),
		Logger:      log,
		Metrics:     httpMetrics,
		Controller:  ctl,
		Animation:   anim,
		Registry:    registry,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down server")
	case <-ctx.Done():
		log.Info().Msg("shutting down server")
	case err, ok := <-serveErr:
		if ok {
			return wrapExit(ExitCommandError, "server error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Stop the animation first so open streams see their end message.
	anim.Runner().Stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return wrapExit(ExitCommandError, "server forced to shutdown", err)
	}

	log.Info().Msg("server stopped")
	return nil
}
