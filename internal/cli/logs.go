package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Mwapsam/tracker/internal/config"
	"github.com/Mwapsam/tracker/internal/hos"
	"github.com/Mwapsam/tracker/internal/provider/resilience"
	"github.com/Mwapsam/tracker/internal/trip"
)

// LogsOptions holds flags for the logs command.
type LogsOptions struct {
	*RootOptions
	JSON  bool
	Check bool
}

// NewLogsCommand creates the logs command.
func NewLogsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print daily HOS totals from the driver's logs",
		Long: `Fetch the driver's log entries from the backend and print the hours
spent in each duty status per date, followed by the cycle hours used.

With --check the HOS rules are evaluated as well and the command exits
with status 1 when any violation is found.

Example:
  tracker logs
  tracker logs --check --json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print JSON instead of a table")
	cmd.Flags().BoolVar(&opts.Check, "check", false, "evaluate HOS rules and fail on violations")

	return cmd
}

type logsOutput struct {
	Days         []hos.DailySummary `json:"days"`
	Unrecognized int                `json:"unrecognizedRecords"`
	CycleUsed    float64            `json:"cycleUsed"`
	Cycle        string             `json:"cycle"`
	Violations   []hos.Violation    `json:"violations,omitempty"`
}

func runLogs(cmd *cobra.Command, opts *LogsOptions) error {
	ctl, err := opts.offlineController(cmd)
	if err != nil {
		return err
	}
	defer ctl.Close()

	report, err := ctl.Report(commandContext(cmd))
	if err != nil {
		return wrapExit(ExitCommandError, "failed to fetch logs", err)
	}

	out := logsOutput{
		Days:         report.Summaries.List(),
		Unrecognized: report.Summaries.Unrecognized(),
		CycleUsed:    report.CycleUsed,
		Cycle:        report.Cycle.Name,
	}
	if opts.Check {
		out.Violations = report.Violations
	}

	w := cmd.OutOrStdout()
	if opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	} else if err := printLogs(w, out, opts.Check, report.Cycle); err != nil {
		return err
	}

	if opts.Check && len(report.Violations) > 0 {
		return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%d HOS violation(s) found", len(report.Violations))}
	}
	return nil
}

func printLogs(w io.Writer, out logsOutput, check bool, cycle hos.Cycle) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tDRIVING\tON DUTY\tOFF DUTY\tSLEEPER\tTOTAL")
	for _, d := range out.Days {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\n",
			d.Date, d.DrivingHours, d.OnDutyHours, d.OffDutyHours, d.SleeperBerthHours, d.Total())
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\ncycle %s: %.2fh of %.0fh used\n", out.Cycle, out.CycleUsed, cycle.LimitHours)
	if out.Unrecognized > 0 {
		fmt.Fprintf(w, "%d record(s) with unknown duty status ignored\n", out.Unrecognized)
	}

	if !check {
		return nil
	}
	if len(out.Violations) == 0 {
		fmt.Fprintln(w, "no violations")
		return nil
	}
	fmt.Fprintln(w, "\nviolations:")
	for _, v := range out.Violations {
		fmt.Fprintf(w, "  %s  %-18s %s\n", v.Date, v.Rule, v.Message)
	}
	return nil
}

// offlineController builds a controller against the backend for one-shot
// commands. Logs go to stderr so stdout stays machine-readable.
func (o *RootOptions) offlineController(cmd *cobra.Command) (*trip.Controller, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, wrapExit(ExitCommandError, "invalid configuration", err)
	}
	log := o.logger(cfg, cmd.ErrOrStderr())
	if !o.Verbose && log.GetLevel() < zerolog.WarnLevel {
		log = log.Level(zerolog.WarnLevel)
	}
	client := newBackendClient(cfg, resilience.NewRegistry(), log)
	return newController(cfg, client, nil, log), nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
