// Package schedule decides how long a worker sleeps between polls.
package schedule

import (
	"time"

	"github.com/charleschow/football-notify/internal/core/state"
)

const (
	// Inside this window before kickoff the worker polls at the live rate.
	KickoffWindow = 300 * time.Second
	// A long pre-match sleep wakes this long before kickoff, which lands
	// comfortably inside KickoffWindow.
	WakeLead = 240 * time.Second
)

// Phase is the lifecycle phase the delay was derived from.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseScheduled
	PhaseLive
	PhaseFinished
	// PhaseFallback is reached only when the adapter reports a found match
	// that is started, not finished and not live. A conforming adapter
	// never does this.
	PhaseFallback
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseScheduled:
		return "scheduled"
	case PhaseLive:
		return "live"
	case PhaseFinished:
		return "finished"
	default:
		return "fallback"
	}
}

// Decision is the outcome of one scheduling step.
type Decision struct {
	Delay time.Duration
	Phase Phase
}

// NextDelay maps the snapshot to the next poll delay.
func NextDelay(snap state.Snapshot, live, idle time.Duration) Decision {
	switch {
	case !snap.Found:
		return Decision{Delay: idle, Phase: PhaseIdle}

	case !snap.Started:
		if snap.KickoffUnknown {
			return Decision{Delay: idle, Phase: PhaseScheduled}
		}
		if snap.TimeToKickoff < KickoffWindow {
			return Decision{Delay: live, Phase: PhaseScheduled}
		}
		return Decision{Delay: snap.TimeToKickoff - WakeLead, Phase: PhaseScheduled}

	case snap.Finished:
		return Decision{Delay: idle, Phase: PhaseFinished}

	case snap.Live:
		return Decision{Delay: live, Phase: PhaseLive}
	}
	return Decision{Delay: idle, Phase: PhaseFallback}
}
