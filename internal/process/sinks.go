package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charleschow/football-notify/internal/adapters/outbound/autoremote"
	"github.com/charleschow/football-notify/internal/adapters/outbound/discord"
	"github.com/charleschow/football-notify/internal/adapters/outbound/email"
	"github.com/charleschow/football-notify/internal/adapters/outbound/history"
	"github.com/charleschow/football-notify/internal/adapters/outbound/kodi"
	"github.com/charleschow/football-notify/internal/config"
	"github.com/charleschow/football-notify/internal/core/notify"
	"github.com/charleschow/football-notify/internal/events"
	"github.com/charleschow/football-notify/internal/fanout"
)

// DefaultHistoryPath is used by history sinks that do not set a path.
const DefaultHistoryPath = "data/history.db"

var (
	bothModes  = events.NewModeSet(events.ModeMatch, events.ModeLeague)
	matchModes = events.NewModeSet(events.ModeMatch)
)

// SupportedModes is what each sink type can render.
var SupportedModes = map[string]events.ModeSet{
	"discord":    bothModes,
	"autoremote": matchModes,
	"kodi":       matchModes,
	"email":      matchModes,
	"history":    bothModes,
	"fanout":     bothModes,
}

// SinkSet is the built sink list plus whatever needs closing on shutdown.
type SinkSet struct {
	Sinks   []notify.Sink
	History *history.Store // nil when no history sink is configured

	closers []func(context.Context) error
	fanouts []pendingFanout
}

type pendingFanout struct {
	srv    *fanout.Server
	listen string
}

// Close releases sink resources, returning every failure joined.
func (s *SinkSet) Close(ctx context.Context) error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BuildSinks turns sink config entries into sinks. A non-empty discordURL
// adds a discord sink covering both modes. Fanout servers are started once
// every sink is built so they can serve the first history store.
func BuildSinks(cfgs []config.SinkConfig, discordURL string, logger *slog.Logger) (*SinkSet, error) {
	set := &SinkSet{}
	if discordURL != "" {
		set.Sinks = append(set.Sinks, discord.NewNotifier("discord", discordURL, bothModes))
	}

	for _, c := range cfgs {
		s, err := buildSink(set, c, logger)
		if err != nil {
			set.Close(context.Background())
			return nil, fmt.Errorf("sink %s: %w", c.Name, err)
		}
		set.Sinks = append(set.Sinks, s)
	}

	for _, f := range set.fanouts {
		if set.History != nil {
			f.srv.SetHistory(set.History)
		}
		if err := f.srv.Start(f.listen); err != nil {
			set.Close(context.Background())
			return nil, fmt.Errorf("sink %s: %w", f.srv.Name(), err)
		}
		set.closers = append(set.closers, f.srv.Close)
	}
	set.fanouts = nil
	return set, nil
}

func buildSink(set *SinkSet, c config.SinkConfig, logger *slog.Logger) (notify.Sink, error) {
	supported, ok := SupportedModes[c.Type]
	if !ok {
		return nil, fmt.Errorf("unknown sink type %q", c.Type)
	}
	modes, err := events.ParseModeSet(c.Modes)
	if err != nil {
		return nil, err
	}
	for _, m := range modes.Modes() {
		if !supported.Has(m) {
			return nil, fmt.Errorf("%s sinks do not support %s mode", c.Type, m)
		}
	}

	switch c.Type {
	case "discord":
		if c.WebhookURL == "" {
			return nil, errors.New("webhook_url is required")
		}
		return discord.NewNotifier(c.Name, c.WebhookURL, modes), nil

	case "autoremote":
		if c.Key == "" {
			return nil, errors.New("key is required")
		}
		return autoremote.NewNotifier(c.Name, c.Address, c.Key, c.Prefix, modes), nil

	case "kodi":
		if c.Address == "" {
			return nil, errors.New("address is required")
		}
		port := c.Port
		if port == 0 {
			port = 8080
		}
		return kodi.NewNotifier(c.Name, kodi.Options{
			Address:     c.Address,
			Port:        port,
			Username:    c.Username,
			Password:    c.Password,
			DisplayTime: time.Duration(c.DisplayTimeMs) * time.Millisecond,
		}, modes), nil

	case "email":
		if c.Address == "" || c.From == "" || len(c.To) == 0 {
			return nil, errors.New("address, from and to are required")
		}
		return email.NewNotifier(c.Name, email.Options{
			Host:     c.Address,
			Port:     c.Port,
			Username: c.Username,
			Password: c.Password,
			From:     c.From,
			To:       c.To,
			Title:    c.Title,
		}, modes), nil

	case "history":
		path := c.Path
		if path == "" {
			path = DefaultHistoryPath
		}
		store, err := history.Open(c.Name, path, modes)
		if err != nil {
			return nil, err
		}
		set.closers = append(set.closers, func(context.Context) error { return store.Close() })
		if set.History == nil {
			set.History = store
		}
		return store, nil

	case "fanout":
		listen := c.Listen
		if listen == "" {
			listen = ":8765"
		}
		srv := fanout.NewServer(c.Name, modes, logger)
		srv.SetAllowedOrigins(c.Origins)
		set.fanouts = append(set.fanouts, pendingFanout{srv: srv, listen: listen})
		return srv, nil
	}
	return nil, fmt.Errorf("unknown sink type %q", c.Type)
}
