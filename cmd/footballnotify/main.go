// Command footballnotify watches football teams and leagues on the GoalServe
// livescore feed and pushes goals and status changes to the configured
// sinks.
//
// Usage:
//
//	footballnotify run
//	footballnotify sinks
//	footballnotify once --team Chelsea
//	footballnotify once --league 1204
//	footballnotify history --entity Chelsea --limit 20
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/charleschow/football-notify/internal/config"
	"github.com/charleschow/football-notify/internal/process"
	"github.com/charleschow/football-notify/internal/telemetry"
)

func main() {
	root := &cobra.Command{
		Use:           "footballnotify",
		Short:         "Football score notifications",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(runCmd())
	root.AddCommand(sinksCmd())
	root.AddCommand(onceCmd())
	root.AddCommand(historyCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads config and opens the log destination. The returned closer
// flushes the log file.
func setup() (*config.Config, *slog.Logger, io.Closer, error) {
	cfg := config.Load()
	out, err := telemetry.OpenLogFile(cfg.LogFile)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, telemetry.New(out, telemetry.ParseLogLevel(cfg.LogLevel)), out, nil
}

// --------------------------------------------------------------------------
// run command
// --------------------------------------------------------------------------

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start one worker per configured team and league",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, closer, err := setup()
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return process.Run(ctx, cfg, logger)
		},
	}
}
