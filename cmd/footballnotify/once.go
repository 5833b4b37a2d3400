package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/charleschow/football-notify/internal/core/detect"
	"github.com/charleschow/football-notify/internal/core/schedule"
	"github.com/charleschow/football-notify/internal/events"
	"github.com/charleschow/football-notify/internal/process"
)

// --------------------------------------------------------------------------
// once command
// --------------------------------------------------------------------------

func onceCmd() *cobra.Command {
	var team, league string
	cmd := &cobra.Command{
		Use:   "once",
		Short: "Fetch one snapshot and show what a worker would do with it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (team == "") == (league == "") {
				return errors.New("exactly one of --team or --league is required")
			}
			cfg, logger, closer, err := setup()
			if err != nil {
				return err
			}
			defer closer.Close()

			mode, id := events.ModeMatch, team
			if league != "" {
				mode, id = events.ModeLeague, league
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			adapter, err := process.GoalServeFactory(process.NewFeed(cfg, logger))(ctx, mode, id, cfg.Detailed)
			if err != nil {
				return err
			}
			snap := adapter.Snapshot()

			fmt.Printf("%s %s\n", mode, id)
			fmt.Println(snap.Summary())
			fmt.Printf("found=%v started=%v live=%v finished=%v status=%q\n",
				snap.Found, snap.Started, snap.Live, snap.Finished, snap.Status)

			if evt, ok := detect.Detect(mode, snap); ok {
				fmt.Printf("event: %s (%s)\n", evt.Title(), evt.Code())
			} else {
				fmt.Println("event: none")
			}

			d := schedule.NextDelay(snap, cfg.LiveInterval, cfg.IdleInterval)
			fmt.Printf("next poll: %s (%s)\n", d.Delay.Round(time.Second), d.Phase)
			return nil
		},
	}
	cmd.Flags().StringVar(&team, "team", "", "Team name")
	cmd.Flags().StringVar(&league, "league", "", "GoalServe category id")
	return cmd
}
