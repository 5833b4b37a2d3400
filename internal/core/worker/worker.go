// Package worker runs the poll loop for a single monitored entity.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/charleschow/football-notify/internal/core/detect"
	"github.com/charleschow/football-notify/internal/core/notify"
	"github.com/charleschow/football-notify/internal/core/schedule"
	"github.com/charleschow/football-notify/internal/core/state"
	"github.com/charleschow/football-notify/internal/events"
	"github.com/charleschow/football-notify/internal/telemetry"
)

// State is the worker's lifecycle position.
type State int32

const (
	StateIdle State = iota
	StateScheduled
	StateLive
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScheduled:
		return "scheduled"
	case StateLive:
		return "live"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// SleepFunc blocks for d or until ctx is done. It reports whether the full
// delay elapsed.
type SleepFunc func(ctx context.Context, d time.Duration) bool

// Options tunes a worker's cadence.
type Options struct {
	LiveInterval time.Duration
	IdleInterval time.Duration

	// Sleep overrides the timer-based wait; nil uses a real timer.
	Sleep SleepFunc
}

// Worker owns one adapter and drives detect → dispatch → schedule → sleep →
// refresh until the adapter fails or ctx is cancelled.
type Worker struct {
	id       string
	mode     events.Mode
	adapter  state.Adapter
	registry *notify.Registry
	live     time.Duration
	idle     time.Duration
	sleep    SleepFunc
	logger   *slog.Logger

	state atomic.Int32
}

func New(id string, mode events.Mode, adapter state.Adapter, registry *notify.Registry, opts Options, logger *slog.Logger) *Worker {
	sleep := opts.Sleep
	if sleep == nil {
		sleep = timerSleep
	}
	return &Worker{
		id:       id,
		mode:     mode,
		adapter:  adapter,
		registry: registry,
		live:     opts.LiveInterval,
		idle:     opts.IdleInterval,
		sleep:    sleep,
		logger:   logger,
	}
}

func (w *Worker) ID() string        { return w.id }
func (w *Worker) Mode() events.Mode { return w.mode }
func (w *Worker) State() State      { return State(w.state.Load()) }

// Run blocks until the adapter fails (returned error) or ctx is cancelled
// (nil). The adapter is expected to hold a fresh snapshot already, so the
// first cycle detects before refreshing.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("Starting service", "mode", w.mode, "sinks", w.registry.Len())

	for {
		if ctx.Err() != nil {
			w.logger.Info("Stop requested")
			return nil
		}

		snap := w.adapter.Snapshot()
		telemetry.Metrics.PollCycles.Inc()

		w.logger.Debug("Checking status...")
		w.checkStatus(ctx, snap)

		w.logger.Debug("Calculating sleep time...")
		decision := schedule.NextDelay(snap, w.live, w.idle)
		w.transition(decision.Phase)
		if decision.Phase == schedule.PhaseFallback {
			w.logger.Warn("Unexpected snapshot state, using idle interval",
				"started", snap.Started, "finished", snap.Finished, "live", snap.Live)
		}
		w.logger.Debug("Sleeping", "seconds", decision.Delay.Seconds(), "phase", decision.Phase)

		if !w.sleep(ctx, decision.Delay) {
			w.logger.Info("Stop requested")
			return nil
		}

		w.logger.Debug("Refreshing data...")
		if err := w.refresh(ctx); err != nil {
			if ctx.Err() != nil {
				w.logger.Info("Stop requested during refresh", "error", err)
				return nil
			}
			w.logger.Error("Exception encountered in worker, terminating",
				"mode", w.mode, "state", w.State(), "error", err)
			return fmt.Errorf("worker %s: %w", w.id, err)
		}
	}
}

func (w *Worker) checkStatus(ctx context.Context, snap state.Snapshot) {
	if !snap.Found {
		w.logger.Debug("No match found.")
		return
	}

	evt, ok := detect.Detect(w.mode, snap)
	if !ok {
		return
	}
	telemetry.Metrics.EventsDetected.Inc()
	w.logger.Info("Event detected", "code", evt.Code(), "summary", snap.Summary())

	results := w.registry.Dispatch(ctx, evt)
	w.logger.Debug("Dispatch complete",
		"delivered", notify.CountDelivered(results), "sinks", len(results))
}

func (w *Worker) refresh(ctx context.Context) error {
	start := time.Now()
	err := w.adapter.Refresh(ctx)
	telemetry.Metrics.Refreshes.Inc()
	telemetry.Metrics.RefreshLatency.Record(time.Since(start))
	if err != nil {
		telemetry.Metrics.RefreshErrors.Inc()
	}
	return err
}

func (w *Worker) transition(p schedule.Phase) {
	next := stateFor(p, w.State())
	prev := State(w.state.Swap(int32(next)))
	if prev != next {
		w.logger.Info("State change", "from", prev, "to", next)
	}
}

func stateFor(p schedule.Phase, current State) State {
	switch p {
	case schedule.PhaseIdle:
		return StateIdle
	case schedule.PhaseScheduled:
		return StateScheduled
	case schedule.PhaseLive:
		return StateLive
	case schedule.PhaseFinished:
		return StateFinished
	}
	return current
}

func timerSleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
