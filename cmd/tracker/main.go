// Package main provides the entrypoint for the tracker.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Mwapsam/tracker/internal/cli"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cmd := cli.NewRootCommand(Version, BuildTime)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(cli.ExitCode(err))
	}
}
