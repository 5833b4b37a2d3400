// scores_tail connects to a footballnotify fanout sink and prints every
// notification it receives.
//
// Usage:
//
//	go run ./cmd/scores_tail --addr localhost:8765
//	go run ./cmd/scores_tail --addr localhost:8765 --entity Chelsea
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/charleschow/football-notify/internal/fanout"
	"github.com/charleschow/football-notify/internal/telemetry"
)

func main() {
	var addr, entity, level string
	root := &cobra.Command{
		Use:   "scores_tail",
		Short: "Print notifications from a fanout sink",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := telemetry.New(os.Stderr, telemetry.ParseLogLevel(level))

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client := fanout.NewClient(addr, entity, printEnvelope, logger)
			client.ConnectWithRetry(ctx)
			return nil
		},
	}
	root.Flags().StringVar(&addr, "addr", "localhost:8765", "Fanout server host:port")
	root.Flags().StringVar(&entity, "entity", "", "Only receive one team or league")
	root.Flags().StringVar(&level, "log-level", "info", "Log level")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func printEnvelope(env fanout.Envelope) {
	fmt.Printf("[%s] %-7s %-20s %s\n", env.Timestamp.Local().Format("15:04:05"), env.Mode, env.Entity, env.Title)
	for _, line := range strings.Split(env.Summary, "\n") {
		fmt.Printf("    %s\n", line)
	}
}
