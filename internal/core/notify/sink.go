// Package notify holds the sink contract and the per-worker registry that
// filters sinks by mode and serializes dispatch.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/charleschow/football-notify/internal/events"
)

// Sink is a notification destination. Notify must not panic on ordinary
// transport failures; it reports them through Result instead. A sink may be
// shared by many workers, so Notify must be safe for concurrent use.
type Sink interface {
	Name() string
	Modes() events.ModeSet
	Notify(ctx context.Context, evt events.Event) Result
}

// Result is the per-sink outcome of one dispatch.
type Result struct {
	Sink      string
	Delivered bool
	Err       error
}

func Delivered(sink string) Result { return Result{Sink: sink, Delivered: true} }

func Failed(sink string, err error) Result { return Result{Sink: sink, Err: err} }

// CountDelivered returns how many results report success.
func CountDelivered(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Delivered {
			n++
		}
	}
	return n
}

// ErrNoCompatibleSinks is wrapped by IncompatibleSinkError.
var ErrNoCompatibleSinks = errors.New("no compatible notifiers")

// IncompatibleSinkError is returned when a worker mode has no sink whose
// capability set covers it.
type IncompatibleSinkError struct {
	Mode       events.Mode
	Configured int
}

func (e *IncompatibleSinkError) Error() string {
	return fmt.Sprintf("no compatible notifiers found for %s mode (%d configured)", e.Mode, e.Configured)
}

func (e *IncompatibleSinkError) Unwrap() error { return ErrNoCompatibleSinks }

// Compatible returns the sinks whose capability set includes mode,
// preserving configuration order.
func Compatible(mode events.Mode, sinks []Sink) []Sink {
	var out []Sink
	for _, s := range sinks {
		if s.Modes().Has(mode) {
			out = append(out, s)
		}
	}
	return out
}
