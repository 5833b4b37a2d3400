package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/charleschow/football-notify/internal/core/notify"
	"github.com/charleschow/football-notify/internal/events"
	"github.com/charleschow/football-notify/internal/process"
)

// --------------------------------------------------------------------------
// sinks command
// --------------------------------------------------------------------------

func sinksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sinks",
		Short: "List configured sinks and which entity classes they cover",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, closer, err := setup()
			if err != nil {
				return err
			}
			defer closer.Close()

			cfgs, err := process.LoadSinkConfigs(cfg, logger)
			if err != nil {
				return err
			}
			// Never start listeners just to list them.
			for i := range cfgs {
				if cfgs[i].Type == "fanout" {
					cfgs[i].Listen = "127.0.0.1:0"
				}
			}
			set, err := process.BuildSinks(cfgs, cfg.DiscordWebhookURL, logger)
			if err != nil {
				return err
			}
			defer set.Close(context.Background())

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tMODES")
			for _, s := range set.Sinks {
				fmt.Fprintf(w, "%s\t%s\n", s.Name(), s.Modes())
			}
			w.Flush()

			fmt.Println()
			for _, class := range []struct {
				mode     events.Mode
				entities []string
			}{
				{events.ModeMatch, cfg.Teams},
				{events.ModeLeague, cfg.Leagues},
			} {
				n := len(notify.Compatible(class.mode, set.Sinks))
				status := "ok"
				if n == 0 && len(class.entities) > 0 {
					status = "NO COMPATIBLE SINKS"
				}
				fmt.Printf("%-7s entities=%d sinks=%d  %s\n", class.mode, len(class.entities), n, status)
			}
			return nil
		},
	}
}
