package goalserve

import (
	"context"
	"sort"
	"time"

	"github.com/charleschow/football-notify/internal/core/state"
	"github.com/charleschow/football-notify/internal/core/teams"
)

// Feed is the part of Client the adapters depend on.
type Feed interface {
	Livescore(ctx context.Context) ([]Fixture, error)
}

// MatchAdapter follows the current fixture of one team.
type MatchAdapter struct {
	feed     Feed
	team     string
	detailed bool
	now      func() time.Time

	snap    state.Snapshot
	seen    map[string]bool
	matchID string
	home    int
	away    int
	status  state.StatusCode
}

// NewMatchAdapter builds the adapter and performs its first refresh.
func NewMatchAdapter(ctx context.Context, feed Feed, team string, detailed bool) (*MatchAdapter, error) {
	a := &MatchAdapter{
		feed:     feed,
		team:     team,
		detailed: detailed,
		now:      time.Now,
		seen:     make(map[string]bool),
	}
	if err := a.Refresh(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *MatchAdapter) Snapshot() state.Snapshot { return a.snap }

func (a *MatchAdapter) Refresh(ctx context.Context) error {
	fixtures, err := a.feed.Livescore(ctx)
	if err != nil {
		return &state.DataSourceError{EntityID: a.team, Op: "refresh", Err: err}
	}
	now := a.now()

	f, ok := pickFixture(fixtures, a.team)
	if !ok {
		a.matchID = ""
		a.snap = state.Snapshot{EntityID: a.team, FetchedAt: now}
		return nil
	}

	isNew := !a.seen[f.ID]
	a.seen[f.ID] = true
	tracked := f.ID == a.matchID

	snap := state.Snapshot{
		EntityID:  a.team,
		Found:     true,
		IsNew:     isNew,
		Started:   f.Started(),
		Live:      f.Phase == PhaseLive,
		Finished:  f.Phase == PhaseFinished,
		Status:    f.Status,
		FetchedAt: now,
	}
	if !snap.Started {
		if f.Kickoff.IsZero() {
			snap.KickoffUnknown = true
		} else {
			snap.TimeToKickoff = untilKickoff(f.Kickoff, now)
		}
	}

	if tracked {
		snap.StatusChanged = f.Status != a.status && f.Status != state.StatusOther
		snap.Goal = scoreIncrease(f, a.home, a.away, teams.Same(a.team, f.HomeTeam))
	}

	info := f.Info(a.detailed)
	snap.Match = &info

	a.matchID = f.ID
	a.home, a.away = f.HomeScore, f.AwayScore
	// Unreported codes (breaks, suspensions) keep the last reported one so
	// resuming play does not repeat it.
	if !tracked || f.Status != state.StatusOther {
		a.status = f.Status
	}
	a.snap = snap
	return nil
}

// pickFixture prefers a live match, then the next pending one, then the most
// recent finished one.
func pickFixture(fixtures []Fixture, team string) (Fixture, bool) {
	var best Fixture
	found := false
	for _, f := range fixtures {
		if !teams.Same(team, f.HomeTeam) && !teams.Same(team, f.AwayTeam) {
			continue
		}
		if !found || better(f, best) {
			best = f
			found = true
		}
	}
	return best, found
}

func better(a, b Fixture) bool {
	rank := func(f Fixture) int {
		switch f.Phase {
		case PhaseLive:
			return 0
		case PhasePending:
			return 1
		}
		return 2
	}
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra < rb
	}
	if a.Phase == PhasePending {
		return a.Kickoff.Before(b.Kickoff)
	}
	return a.Kickoff.After(b.Kickoff)
}

func scoreIncrease(f Fixture, prevHome, prevAway int, isHome bool) *state.Goal {
	homeUp := f.HomeScore > prevHome
	awayUp := f.AwayScore > prevAway
	if !homeUp && !awayUp {
		return nil
	}
	// If both sides moved between polls, report the tracked side's goal.
	scoredHome := homeUp
	if homeUp && awayUp {
		scoredHome = isHome
	}
	g := &state.Goal{
		MatchID:   f.ID,
		MyTeam:    scoredHome == isHome,
		HomeScore: f.HomeScore,
		AwayScore: f.AwayScore,
	}
	if ev, ok := f.LastGoal(scoredHome); ok {
		g.Minute = ev.Minute
		g.Scorer = ev.Player
	}
	return g
}

func untilKickoff(kickoff, now time.Time) time.Duration {
	d := kickoff.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

type memberState struct {
	home, away int
	status     state.StatusCode
}

// LeagueAdapter follows every fixture of one feed category.
type LeagueAdapter struct {
	feed     Feed
	leagueID string
	detailed bool
	now      func() time.Time

	snap    state.Snapshot
	seen    map[string]bool
	members map[string]memberState
}

// NewLeagueAdapter builds the adapter and performs its first refresh.
func NewLeagueAdapter(ctx context.Context, feed Feed, leagueID string, detailed bool) (*LeagueAdapter, error) {
	a := &LeagueAdapter{
		feed:     feed,
		leagueID: leagueID,
		detailed: detailed,
		now:      time.Now,
		seen:     make(map[string]bool),
		members:  make(map[string]memberState),
	}
	if err := a.Refresh(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *LeagueAdapter) Snapshot() state.Snapshot { return a.snap }

func (a *LeagueAdapter) Refresh(ctx context.Context) error {
	fixtures, err := a.feed.Livescore(ctx)
	if err != nil {
		return &state.DataSourceError{EntityID: a.leagueID, Op: "refresh", Err: err}
	}
	now := a.now()

	var matches []Fixture
	for _, f := range fixtures {
		if f.CategoryID == a.leagueID {
			matches = append(matches, f)
		}
	}
	if len(matches) == 0 {
		a.members = make(map[string]memberState)
		a.snap = state.Snapshot{EntityID: a.leagueID, FetchedAt: now}
		return nil
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].Kickoff.Equal(matches[j].Kickoff) {
			return matches[i].Kickoff.Before(matches[j].Kickoff)
		}
		return matches[i].ID < matches[j].ID
	})

	snap := state.Snapshot{
		EntityID:  a.leagueID,
		Found:     true,
		League:    matches[0].CategoryName,
		Status:    state.StatusOther,
		FetchedAt: now,
	}

	var anyLive, anyPending bool
	allFinished := true
	var soonest time.Duration = -1
	next := make(map[string]memberState, len(matches))

	for _, f := range matches {
		if !a.seen[f.ID] {
			snap.IsNew = true
			a.seen[f.ID] = true
		}
		switch f.Phase {
		case PhaseLive:
			anyLive = true
		case PhasePending:
			anyPending = true
			if !f.Kickoff.IsZero() {
				d := untilKickoff(f.Kickoff, now)
				if soonest < 0 || d < soonest {
					soonest = d
				}
			}
		}
		if f.Phase != PhaseFinished {
			allFinished = false
		}

		if prev, ok := a.members[f.ID]; ok {
			if snap.Goal == nil {
				snap.Goal = scoreIncrease(f, prev.home, prev.away, true)
				if snap.Goal != nil {
					snap.Goal.MyTeam = false
				}
			}
			if !snap.StatusChanged && f.Status != prev.status && f.Status != state.StatusOther {
				snap.StatusChanged = true
				snap.Status = f.Status
			}
		}
		status := f.Status
		if prev, ok := a.members[f.ID]; ok && status == state.StatusOther {
			status = prev.status
		}
		next[f.ID] = memberState{home: f.HomeScore, away: f.AwayScore, status: status}
		snap.Matches = append(snap.Matches, f.Info(a.detailed))
	}

	// A league counts as started while something is live or once nothing is
	// left to kick off; otherwise it is scheduled on its soonest kickoff.
	snap.Live = anyLive
	snap.Finished = allFinished
	snap.Started = anyLive || !anyPending
	if !snap.Started {
		if soonest >= 0 {
			snap.TimeToKickoff = soonest
		} else {
			snap.KickoffUnknown = true
		}
	}

	a.members = next
	a.snap = snap
	return nil
}
