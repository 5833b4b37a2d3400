package state

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// StatusCode is the coarse match phase reported to sinks.
type StatusCode string

const (
	StatusKickOff  StatusCode = "L"
	StatusHalfTime StatusCode = "HT"
	StatusFullTime StatusCode = "FT"
	StatusOther    StatusCode = ""
)

// Goal describes the most recent goal seen by the adapter during the last
// refresh. For league snapshots MyTeam is always false.
type Goal struct {
	MatchID   string
	MyTeam    bool
	Minute    string
	Scorer    string
	HomeScore int
	AwayScore int
}

// MatchInfo is the descriptive side of a fixture, carried for sinks.
type MatchInfo struct {
	ID          string     `json:"id"`
	League      string     `json:"league,omitempty"`
	HomeTeam    string     `json:"home_team"`
	AwayTeam    string     `json:"away_team"`
	HomeScore   int        `json:"home_score"`
	AwayScore   int        `json:"away_score"`
	Minute      string     `json:"minute,omitempty"`
	RawStatus   string     `json:"raw_status,omitempty"`
	Status      StatusCode `json:"status,omitempty"`
	Kickoff     time.Time  `json:"kickoff"`
	HomeScorers []string   `json:"home_scorers,omitempty"` // only populated when the adapter runs detailed
	AwayScorers []string   `json:"away_scorers,omitempty"`
}

func (m MatchInfo) String() string {
	s := fmt.Sprintf("%s %d-%d %s", m.HomeTeam, m.HomeScore, m.AwayScore, m.AwayTeam)
	if m.Minute != "" {
		s += fmt.Sprintf(" (%s)", m.Minute)
	}
	return s
}

// Snapshot is the adapter's point-in-time view of one entity. The flag
// fields (IsNew, Goal, StatusChanged) are computed by the adapter relative
// to its own previous refresh.
type Snapshot struct {
	EntityID string

	Found         bool
	IsNew         bool
	Started       bool
	Finished      bool
	Live          bool
	StatusChanged bool
	Status        StatusCode

	// TimeToKickoff is only meaningful while Found && !Started. For a league
	// it is the minimum over member matches that have not kicked off.
	TimeToKickoff time.Duration
	// KickoffUnknown is set while Found && !Started when the feed carries no
	// kickoff date, in which case TimeToKickoff is meaningless.
	KickoffUnknown bool

	Goal *Goal

	// Match is set for team entities once a fixture is found.
	Match *MatchInfo

	// League and Matches are set for league entities.
	League  string
	Matches []MatchInfo

	FetchedAt time.Time
}

// Summary renders the snapshot as a short plain-text scoreline.
func (s Snapshot) Summary() string {
	if !s.Found {
		return fmt.Sprintf("%s: no match", s.EntityID)
	}
	if s.Match != nil {
		return s.Match.String()
	}
	lines := make([]string, 0, len(s.Matches)+1)
	if s.League != "" {
		lines = append(lines, s.League)
	}
	for _, m := range s.Matches {
		lines = append(lines, m.String())
	}
	return strings.Join(lines, "\n")
}

// Adapter supplies a refreshable snapshot of one entity. Implementations
// are owned by exactly one worker goroutine and need not be safe for
// concurrent use.
type Adapter interface {
	// Refresh fetches fresh data. Failures are returned as *DataSourceError
	// and are fatal to the caller.
	Refresh(ctx context.Context) error
	Snapshot() Snapshot
}

// DataSourceError reports an irrecoverable fetch or parse failure.
type DataSourceError struct {
	EntityID string
	Op       string
	Err      error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("data source %s (%s): %v", e.Op, e.EntityID, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }
