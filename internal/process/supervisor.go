package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/charleschow/football-notify/internal/core/notify"
	"github.com/charleschow/football-notify/internal/core/state"
	"github.com/charleschow/football-notify/internal/core/teams"
	"github.com/charleschow/football-notify/internal/core/worker"
	"github.com/charleschow/football-notify/internal/events"
	"github.com/charleschow/football-notify/internal/telemetry"
)

// AdapterFactory builds the adapter for one entity. The returned adapter has
// already performed its first refresh.
type AdapterFactory func(ctx context.Context, mode events.Mode, entityID string, detailed bool) (state.Adapter, error)

// SupervisorConfig lists the entities to monitor and how workers poll.
type SupervisorConfig struct {
	Teams    []string
	Leagues  []string
	Detailed bool
	Worker   worker.Options
}

// Outcome is how one worker ended. Err is nil for a clean stop.
type Outcome struct {
	ID   string
	Mode events.Mode
	Err  error
}

// Supervisor runs one worker goroutine per configured team and league.
type Supervisor struct {
	cfg     SupervisorConfig
	sinks   []notify.Sink
	factory AdapterFactory
	logger  *slog.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	started  bool
	outcomes []Outcome
	wg       sync.WaitGroup
}

func NewSupervisor(cfg SupervisorConfig, sinks []notify.Sink, factory AdapterFactory, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		cfg:     cfg,
		sinks:   sinks,
		factory: factory,
		logger:  logger,
	}
}

// Run launches every worker and blocks until ctx is done. Workers are not
// waited for; call Stop for that.
func (s *Supervisor) Run(ctx context.Context) error {
	n, err := s.Start(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		s.logger.Warn("No workers started; idling until shutdown")
	}
	<-ctx.Done()
	return nil
}

// Start validates sink coverage per entity class and launches the workers.
// It returns the number of workers launched.
func (s *Supervisor) Start(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return 0, errors.New("supervisor already started")
	}
	s.started = true
	wctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	launched := 0
	for _, class := range []struct {
		mode     events.Mode
		entities []string
	}{
		{events.ModeMatch, s.cfg.Teams},
		{events.ModeLeague, s.cfg.Leagues},
	} {
		entities := dedupe(class.mode, class.entities)
		if len(entities) == 0 {
			continue
		}

		reg, err := notify.NewRegistry(class.mode, s.sinks, s.logger)
		if err != nil {
			s.logger.Error("No notifiers support this mode, skipping its entities",
				"mode", class.mode, "entities", len(entities), "error", err)
			continue
		}

		for _, id := range entities {
			s.launch(wctx, class.mode, id, reg)
			launched++
		}
	}
	return launched, nil
}

func (s *Supervisor) launch(ctx context.Context, mode events.Mode, id string, reg *notify.Registry) {
	wlog := telemetry.ForWorker(s.logger, id)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		adapter, err := s.factory(ctx, mode, id, s.cfg.Detailed)
		if err != nil {
			if ctx.Err() == nil {
				wlog.Error("Could not create adapter, skipping entity", "mode", mode, "error", err)
				err = fmt.Errorf("adapter %s: %w", id, err)
			} else {
				err = nil
			}
			s.record(Outcome{ID: id, Mode: mode, Err: err})
			return
		}

		w := worker.New(id, mode, adapter, reg.WithLogger(wlog), s.cfg.Worker, wlog)
		telemetry.Metrics.ActiveWorkers.Inc()
		err = w.Run(ctx)
		telemetry.Metrics.ActiveWorkers.Dec()
		s.record(Outcome{ID: id, Mode: mode, Err: err})
	}()
}

func (s *Supervisor) record(o Outcome) {
	s.mu.Lock()
	s.outcomes = append(s.outcomes, o)
	s.mu.Unlock()
}

// Stop signals every worker and waits up to timeout for them to return.
// It reports whether all workers finished in time.
func (s *Supervisor) Stop(timeout time.Duration) bool {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		s.logger.Warn("Workers still running after stop grace period", "grace", timeout)
		return false
	}
}

// Wait blocks until every worker has returned and reports how each ended.
func (s *Supervisor) Wait() []Outcome {
	s.wg.Wait()
	return s.Outcomes()
}

// Outcomes returns the workers that have ended so far.
func (s *Supervisor) Outcomes() []Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Outcome, len(s.outcomes))
	copy(out, s.outcomes)
	return out
}

// dedupe drops blanks and repeats. Team names compare after normalisation.
func dedupe(mode events.Mode, ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		key := id
		if mode == events.ModeMatch {
			key = teams.Normalize(id)
		}
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, id)
	}
	return out
}
