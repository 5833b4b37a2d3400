package process

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/charleschow/football-notify/internal/adapters/outbound/goalserve"
	"github.com/charleschow/football-notify/internal/config"
	"github.com/charleschow/football-notify/internal/core/state"
	"github.com/charleschow/football-notify/internal/core/worker"
	"github.com/charleschow/football-notify/internal/events"
	"github.com/charleschow/football-notify/internal/telemetry"
)

// GoalServeFactory builds livescore adapters that all poll through feed.
func GoalServeFactory(feed goalserve.Feed) AdapterFactory {
	return func(ctx context.Context, mode events.Mode, entityID string, detailed bool) (state.Adapter, error) {
		switch mode {
		case events.ModeMatch:
			a, err := goalserve.NewMatchAdapter(ctx, feed, entityID, detailed)
			if err != nil {
				return nil, err
			}
			return a, nil
		case events.ModeLeague:
			a, err := goalserve.NewLeagueAdapter(ctx, feed, entityID, detailed)
			if err != nil {
				return nil, err
			}
			return a, nil
		}
		return nil, fmt.Errorf("unsupported mode %s", mode)
	}
}

// NewFeed builds the shared GoalServe client from config.
func NewFeed(cfg *config.Config, logger *slog.Logger) *goalserve.Client {
	return goalserve.NewClient(goalserve.ClientOptions{
		BaseURL:    cfg.GoalserveBaseURL,
		APIKey:     cfg.GoalserveAPIKey,
		Feed:       cfg.GoalserveFeed,
		RatePerMin: cfg.GoalserveRatePerMin,
		CacheTTL:   cfg.GoalserveCacheTTL,
		Logger:     logger,
	})
}

// LoadSinkConfigs reads the sinks file. A missing file is not an error; the
// discord shortcut may be the only sink.
func LoadSinkConfigs(cfg *config.Config, logger *slog.Logger) ([]config.SinkConfig, error) {
	cfgs, err := config.LoadSinks(cfg.SinksPath)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Sinks file not found", "path", cfg.SinksPath)
		return nil, nil
	}
	return cfgs, err
}

// Run boots the notifier service and blocks until ctx is cancelled, then
// stops the workers within cfg.StopGrace and prints the shutdown summary.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("Starting football notifier",
		"teams", len(cfg.Teams), "leagues", len(cfg.Leagues), "detailed", cfg.Detailed)

	sinkCfgs, err := LoadSinkConfigs(cfg, logger)
	if err != nil {
		return err
	}
	sinks, err := BuildSinks(sinkCfgs, cfg.DiscordWebhookURL, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.StopGrace)
		defer cancel()
		if err := sinks.Close(closeCtx); err != nil {
			logger.Warn("Closing sinks", "error", err)
		}
	}()
	logger.Info("Sinks ready", "count", len(sinks.Sinks))

	sup := NewSupervisor(SupervisorConfig{
		Teams:    cfg.Teams,
		Leagues:  cfg.Leagues,
		Detailed: cfg.Detailed,
		Worker: worker.Options{
			LiveInterval: cfg.LiveInterval,
			IdleInterval: cfg.IdleInterval,
		},
	}, sinks.Sinks, GoalServeFactory(NewFeed(cfg, logger)), logger)

	if err := sup.Run(ctx); err != nil {
		return err
	}

	logger.Info("Shutting down...")
	sup.Stop(cfg.StopGrace)
	for _, o := range sup.Outcomes() {
		if o.Err != nil {
			logger.Info("Worker ended with error", telemetry.WorkerKey, o.ID, "error", o.Err)
		}
	}

	logger.Info(Summary())
	return nil
}

// Summary is the one-line counter report printed at shutdown.
func Summary() string {
	m := &telemetry.Metrics
	return fmt.Sprintf("Shutdown complete  polls=%d  refreshes=%d  refresh_errors=%d  feed_fetches=%d  skipped_fixtures=%d  events=%d  sent=%d  failed=%d  refresh_p50=%s  refresh_p99=%s",
		m.PollCycles.Value(),
		m.Refreshes.Value(),
		m.RefreshErrors.Value(),
		m.FeedFetches.Value(),
		m.FixturesSkipped.Value(),
		m.EventsDetected.Value(),
		m.NotificationsSent.Value(),
		m.NotificationFailures.Value(),
		m.RefreshLatency.P50().Round(time.Millisecond),
		m.RefreshLatency.P99().Round(time.Millisecond),
	)
}
