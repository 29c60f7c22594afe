package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Mwapsam/tracker/internal/domain"
	"github.com/Mwapsam/tracker/internal/trip"
)

// TripOptions holds flags for the trip commands.
type TripOptions struct {
	*RootOptions
	JSON bool
	ID   string
}

// NewTripCommand creates the trip command group.
func NewTripCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TripOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trip",
		Short: "Inspect the driver's trips",
	}
	cmd.PersistentFlags().BoolVar(&opts.JSON, "json", false, "print JSON")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the current trip's dashboard view",
		Long: `Load the driver's trips and print the dashboard view of the current
trip. The first listed trip is current unless --id selects another.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTripShow(cmd, opts)
		},
	}
	show.Flags().StringVar(&opts.ID, "id", "", "trip id to show")

	list := &cobra.Command{
		Use:           "list",
		Short:         "List the driver's trips",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTripList(cmd, opts)
		},
	}

	cmd.AddCommand(show, list)
	return cmd
}

func loadTrips(cmd *cobra.Command, opts *TripOptions) (*trip.Controller, error) {
	ctl, err := opts.offlineController(cmd)
	if err != nil {
		return nil, err
	}
	if err := ctl.Load(commandContext(cmd)); err != nil {
		ctl.Close()
		return nil, wrapExit(ExitCommandError, "failed to load trips", err)
	}
	return ctl, nil
}

func runTripShow(cmd *cobra.Command, opts *TripOptions) error {
	ctl, err := loadTrips(cmd, opts)
	if err != nil {
		return err
	}
	defer ctl.Close()

	if opts.ID != "" {
		if err := ctl.Select(domain.ID(opts.ID)); err != nil {
			return wrapExit(ExitCommandError, "cannot select trip", err)
		}
	}

	view := ctl.Now()
	w := cmd.OutOrStdout()
	if opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}
	return printView(w, view)
}

func printView(w io.Writer, v trip.View) error {
	if v.Trip == nil {
		_, err := fmt.Fprintln(w, "no current trip")
		return err
	}
	t := v.Trip

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "trip\t%s\n", t.ID)
	fmt.Fprintf(tw, "state\t%s\n", v.State)
	fmt.Fprintf(tw, "route\t%s -> %s\n", t.PickupLocation, t.DropoffLocation)
	fmt.Fprintf(tw, "current location\t%s\n", t.CurrentLocation)
	fmt.Fprintf(tw, "progress\t%.0f%% (%d of %d stops)\n", v.Progress, v.CompletedStops, v.TotalStops)
	if t.Distance != nil {
		fmt.Fprintf(tw, "distance\t%d of %.0f\n", v.DistanceCovered, *t.Distance)
	}
	fmt.Fprintf(tw, "estimated time\t%s\n", v.EstimatedTime)
	fmt.Fprintf(tw, "average speed\t%.1f km/h\n", v.AverageSpeed)
	fmt.Fprintf(tw, "remaining hours\t%.2f (%.0f%%)\n", v.RemainingHours, v.RemainingPercent)
	fmt.Fprintf(tw, "cycle\t%s, %.2fh used\n", v.Cycle, v.CycleUsed)
	return tw.Flush()
}

func runTripList(cmd *cobra.Command, opts *TripOptions) error {
	ctl, err := loadTrips(cmd, opts)
	if err != nil {
		return err
	}
	defer ctl.Close()

	trips := ctl.Trips()
	w := cmd.OutOrStdout()
	if opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(trips)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATE\tPICKUP\tDROPOFF\tSTOPS")
	for i := range trips {
		t := &trips[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", t.ID, trip.StateOf(t), t.PickupLocation, t.DropoffLocation, len(t.Stops))
	}
	return tw.Flush()
}
