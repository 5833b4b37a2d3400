package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/charleschow/football-notify/internal/core/state"
)

// Kind is the reportable transition detected in one poll cycle.
type Kind string

// Wire codes match the ones existing sink consumers (Tasker profiles,
// mail filters) already key on.
const (
	KindMatchFound          Kind = "found"
	KindGoalFor             Kind = "goodgoal"
	KindGoalAgainst         Kind = "badgoal"
	KindStatusChanged       Kind = "status"
	KindLeagueGoal          Kind = "leaguegoal"
	KindLeagueStatusChanged Kind = "leaguestatus"
)

// Event is the envelope handed to every sink.
type Event struct {
	ID        string
	Kind      Kind
	Mode      Mode
	EntityID  string
	Status    state.StatusCode // set for KindStatusChanged
	Timestamp time.Time
	Snapshot  state.Snapshot
}

func New(kind Kind, mode Mode, snap state.Snapshot) Event {
	e := Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		Mode:      mode,
		EntityID:  snap.EntityID,
		Timestamp: time.Now().UTC(),
		Snapshot:  snap,
	}
	if kind == KindStatusChanged {
		e.Status = snap.Status
	}
	return e
}

// Code is the short code sent to sinks. Match status changes report the
// status itself ("L", "HT", "FT"); every other kind reports its own code.
func (e Event) Code() string {
	if e.Kind == KindStatusChanged && e.Status != "" {
		return string(e.Status)
	}
	return string(e.Kind)
}

const (
	titleNewMatch     = "New match found."
	titleKickOff      = "KICK-OFF!"
	titleHalfTime     = "HALF TIME!"
	titleFullTime     = "FULL TIME!"
	titleTeamGoal     = "GOOOOOOAAAAALLL!!!"
	titleOppGoal      = "Uh oh..."
	titleLeagueGoal   = "Goal!"
	titleLeagueStatus = "League update"
	titleOther        = "Unknown status"
)

// Title is the one-line headline for an event.
func (e Event) Title() string {
	switch e.Kind {
	case KindMatchFound:
		return titleNewMatch
	case KindGoalFor:
		return titleTeamGoal
	case KindGoalAgainst:
		return titleOppGoal
	case KindLeagueGoal:
		return titleLeagueGoal
	case KindLeagueStatusChanged:
		return titleLeagueStatus
	case KindStatusChanged:
		switch e.Status {
		case state.StatusKickOff:
			return titleKickOff
		case state.StatusHalfTime:
			return titleHalfTime
		case state.StatusFullTime:
			return titleFullTime
		}
	}
	return titleOther
}
