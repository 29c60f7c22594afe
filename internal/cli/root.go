// Package cli implements the tracker command line.
package cli

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Mwapsam/tracker/internal/config"
)

// ServiceName identifies the process in logs and telemetry.
const ServiceName = "tracker"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool

	Version   string
	BuildTime string
}

// NewRootCommand creates the root command.
func NewRootCommand(version, buildTime string) *cobra.Command {
	opts := &RootOptions{Version: version, BuildTime: buildTime}

	cmd := &cobra.Command{
		Use:   "tracker",
		Short: "HOS duty-status and trip compliance engine",
		Long: `Tracker aggregates a driver's duty-status logs into daily HOS totals,
drives the trip lifecycle against the trip backend, and animates trips
along their route.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewLogsCommand(opts))
	cmd.AddCommand(NewTripCommand(opts))

	return cmd
}

// logger builds the process logger. Verbose forces debug level.
func (o *RootOptions) logger(cfg *config.Config, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	level := cfg.LogLevel
	if o.Verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", ServiceName).
		Str("version", o.Version).
		Logger()
}
