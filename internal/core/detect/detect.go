// Package detect turns an adapter snapshot into at most one event.
package detect

import (
	"github.com/charleschow/football-notify/internal/core/state"
	"github.com/charleschow/football-notify/internal/events"
)

// Detect returns the single highest-priority event for this poll:
// MatchFound > Goal > StatusChanged. Lower-priority conditions that hold in
// the same cycle are coalesced into it and not reported separately.
//
// Detect keeps no state; it trusts the flags the adapter computed.
func Detect(mode events.Mode, snap state.Snapshot) (events.Event, bool) {
	if !snap.Found {
		return events.Event{}, false
	}

	kind, ok := classify(mode, snap)
	if !ok {
		return events.Event{}, false
	}
	return events.New(kind, mode, snap), true
}

func classify(mode events.Mode, snap state.Snapshot) (events.Kind, bool) {
	switch {
	case snap.IsNew:
		return events.KindMatchFound, true

	case snap.Goal != nil:
		if mode == events.ModeLeague {
			return events.KindLeagueGoal, true
		}
		if snap.Goal.MyTeam {
			return events.KindGoalFor, true
		}
		return events.KindGoalAgainst, true

	case snap.StatusChanged:
		if mode == events.ModeLeague {
			return events.KindLeagueStatusChanged, true
		}
		return events.KindStatusChanged, true
	}
	return "", false
}
