package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/charleschow/football-notify/internal/events"
	"github.com/charleschow/football-notify/internal/telemetry"
)

// Registry is the sink subset compatible with one worker's mode.
type Registry struct {
	mode   events.Mode
	sinks  []Sink
	logger *slog.Logger

	// mu spans the whole sink iteration so two dispatches for the same
	// entity never interleave.
	mu sync.Mutex
}

// NewRegistry filters sinks down to those supporting mode. It fails with
// *IncompatibleSinkError when none do.
func NewRegistry(mode events.Mode, sinks []Sink, logger *slog.Logger) (*Registry, error) {
	compatible := Compatible(mode, sinks)
	if len(compatible) == 0 {
		return nil, &IncompatibleSinkError{Mode: mode, Configured: len(sinks)}
	}
	return &Registry{
		mode:   mode,
		sinks:  compatible,
		logger: logger,
	}, nil
}

func (r *Registry) Mode() events.Mode { return r.mode }

func (r *Registry) Len() int { return len(r.sinks) }

// Sinks returns the compatible sinks in dispatch order.
func (r *Registry) Sinks() []Sink {
	out := make([]Sink, len(r.sinks))
	copy(out, r.sinks)
	return out
}

// WithLogger returns a registry sharing the same sinks but logging through
// l. The copy has its own dispatch lock.
func (r *Registry) WithLogger(l *slog.Logger) *Registry {
	return &Registry{mode: r.mode, sinks: r.sinks, logger: l}
}

// Dispatch calls every sink in order, one at a time, and returns one result
// per sink. Failed deliveries are logged and not retried.
func (r *Registry) Dispatch(ctx context.Context, evt events.Event) []Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug("Sending update", "code", evt.Code(), "sinks", len(r.sinks))

	results := make([]Result, 0, len(r.sinks))
	for _, s := range r.sinks {
		res := s.Notify(ctx, evt)
		if res.Sink == "" {
			res.Sink = s.Name()
		}

		if res.Delivered {
			telemetry.Metrics.NotificationsSent.Inc()
		} else {
			telemetry.Metrics.NotificationFailures.Inc()
			r.logger.Warn("Notification not delivered",
				"sink", res.Sink, "code", evt.Code(), "error", res.Err)
		}
		results = append(results, res)
	}
	return results
}
