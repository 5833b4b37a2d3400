package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/charleschow/football-notify/internal/adapters/outbound/history"
	"github.com/charleschow/football-notify/internal/events"
	"github.com/charleschow/football-notify/internal/process"
)

// --------------------------------------------------------------------------
// history command
// --------------------------------------------------------------------------

func historyCmd() *cobra.Command {
	var entity, path string
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently recorded notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, closer, err := setup()
			if err != nil {
				return err
			}
			defer closer.Close()

			if path == "" {
				cfgs, err := process.LoadSinkConfigs(cfg, logger)
				if err != nil {
					return err
				}
				for _, c := range cfgs {
					if c.Type == "history" {
						path = c.Path
						if path == "" {
							path = process.DefaultHistoryPath
						}
						break
					}
				}
			}
			if path == "" {
				return errors.New("no history sink configured; pass --path")
			}

			store, err := history.Open("history", path, events.NewModeSet(events.ModeMatch))
			if err != nil {
				return err
			}
			defer store.Close()

			rows, err := store.Recent(context.Background(), entity, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tENTITY\tKIND\tTITLE\tSUMMARY")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					r.Recorded.Local().Format(time.DateTime), r.Entity, r.Kind, r.Title, firstLine(r.Summary))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&entity, "entity", "", "Only show one team or league")
	cmd.Flags().StringVar(&path, "path", "", "History database (default: from sinks file)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum rows")
	return cmd
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
