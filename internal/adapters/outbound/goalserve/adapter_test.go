package goalserve

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/charleschow/football-notify/internal/core/state"
)

type fakeFeed struct {
	fixtures []Fixture
	err      error
}

func (f *fakeFeed) Livescore(context.Context) ([]Fixture, error) {
	return f.fixtures, f.err
}

var kickoff = time.Date(2026, 10, 14, 15, 0, 0, 0, time.UTC)

func chelseaArsenal(phase Phase, code state.StatusCode, home, away int) Fixture {
	return Fixture{
		ID: "100", CategoryID: "1204", CategoryName: "England: Premier League",
		HomeTeam: "Chelsea", AwayTeam: "Arsenal",
		HomeScore: home, AwayScore: away,
		Phase: phase, Status: code, Kickoff: kickoff,
	}
}

func newMatch(t *testing.T, feed *fakeFeed, team string, now time.Time) *MatchAdapter {
	t.Helper()
	a, err := NewMatchAdapter(context.Background(), feed, team, true)
	if err != nil {
		t.Fatalf("NewMatchAdapter: %v", err)
	}
	a.now = func() time.Time { return now }
	return a
}

func TestMatchAdapterLifecycle(t *testing.T) {
	now := kickoff.Add(-10 * time.Minute)
	feed := &fakeFeed{fixtures: []Fixture{chelseaArsenal(PhasePending, state.StatusOther, 0, 0)}}
	a := newMatch(t, feed, "Arsenal", now)

	s := a.Snapshot()
	if !s.Found || !s.IsNew || s.Started {
		t.Fatalf("first snapshot = %+v", s)
	}

	if err := a.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	s = a.Snapshot()
	if s.IsNew {
		t.Error("IsNew reported twice for the same match")
	}
	if s.TimeToKickoff != 10*time.Minute {
		t.Errorf("TimeToKickoff = %v", s.TimeToKickoff)
	}

	feed.fixtures = []Fixture{chelseaArsenal(PhaseLive, state.StatusKickOff, 0, 0)}
	a.Refresh(context.Background())
	s = a.Snapshot()
	if !s.StatusChanged || s.Status != state.StatusKickOff || !s.Live {
		t.Errorf("kickoff snapshot = %+v", s)
	}

	feed.fixtures = []Fixture{chelseaArsenal(PhaseLive, state.StatusKickOff, 0, 1)}
	a.Refresh(context.Background())
	s = a.Snapshot()
	if s.Goal == nil || !s.Goal.MyTeam || s.StatusChanged {
		t.Errorf("away goal snapshot = %+v goal=%+v", s, s.Goal)
	}

	feed.fixtures = []Fixture{chelseaArsenal(PhaseLive, state.StatusKickOff, 1, 1)}
	a.Refresh(context.Background())
	if g := a.Snapshot().Goal; g == nil || g.MyTeam {
		t.Errorf("home goal = %+v, want MyTeam=false", g)
	}

	feed.fixtures = []Fixture{chelseaArsenal(PhaseFinished, state.StatusFullTime, 1, 1)}
	a.Refresh(context.Background())
	s = a.Snapshot()
	if !s.Finished || !s.StatusChanged || s.Status != state.StatusFullTime {
		t.Errorf("full time snapshot = %+v", s)
	}
}

func TestMatchAdapterNotFound(t *testing.T) {
	a := newMatch(t, &fakeFeed{fixtures: []Fixture{chelseaArsenal(PhaseLive, state.StatusKickOff, 0, 0)}}, "Everton", kickoff)
	if s := a.Snapshot(); s.Found {
		t.Errorf("Found = true for a team with no fixture")
	}
}

func TestMatchAdapterFirstSightingMidGameHasNoGoal(t *testing.T) {
	a := newMatch(t, &fakeFeed{fixtures: []Fixture{chelseaArsenal(PhaseLive, state.StatusKickOff, 2, 0)}}, "Chelsea", kickoff)
	s := a.Snapshot()
	if !s.IsNew || s.Goal != nil || s.StatusChanged {
		t.Errorf("snapshot = %+v", s)
	}
}

func TestAdapterRefreshErrorIsDataSourceError(t *testing.T) {
	feed := &fakeFeed{fixtures: nil}
	a := newMatch(t, feed, "Chelsea", kickoff)
	feed.err = errors.New("connection refused")

	err := a.Refresh(context.Background())
	var dse *state.DataSourceError
	if !errors.As(err, &dse) || dse.EntityID != "Chelsea" {
		t.Fatalf("err = %v, want *state.DataSourceError", err)
	}

	if _, err := NewLeagueAdapter(context.Background(), feed, "1204", false); !errors.As(err, &dse) {
		t.Fatalf("NewLeagueAdapter err = %v", err)
	}
}

func TestLeagueAdapterAggregates(t *testing.T) {
	early := chelseaArsenal(PhaseFinished, state.StatusFullTime, 1, 0)
	late := Fixture{
		ID: "101", CategoryID: "1204", CategoryName: "England: Premier League",
		HomeTeam: "Everton", AwayTeam: "Fulham",
		Phase: PhasePending, Status: state.StatusOther, Kickoff: kickoff.Add(2 * time.Hour),
	}
	other := Fixture{ID: "200", CategoryID: "1399", Phase: PhaseLive, Status: state.StatusKickOff}
	feed := &fakeFeed{fixtures: []Fixture{early, late, other}}

	a, err := NewLeagueAdapter(context.Background(), feed, "1204", false)
	if err != nil {
		t.Fatal(err)
	}
	now := kickoff.Add(time.Hour)
	a.now = func() time.Time { return now }
	a.Refresh(context.Background())

	s := a.Snapshot()
	if !s.Found || s.IsNew || len(s.Matches) != 2 {
		t.Fatalf("snapshot = %+v", s)
	}
	if s.Started || s.Finished || s.Live {
		t.Errorf("flags started=%v finished=%v live=%v", s.Started, s.Finished, s.Live)
	}
	if s.TimeToKickoff != time.Hour {
		t.Errorf("TimeToKickoff = %v, want 1h", s.TimeToKickoff)
	}

	late.Phase, late.Status = PhaseLive, state.StatusKickOff
	feed.fixtures = []Fixture{early, late}
	a.Refresh(context.Background())
	s = a.Snapshot()
	if !s.Live || !s.Started || !s.StatusChanged || s.Status != state.StatusKickOff {
		t.Errorf("kickoff snapshot = %+v", s)
	}

	late.AwayScore = 1
	feed.fixtures = []Fixture{early, late}
	a.Refresh(context.Background())
	s = a.Snapshot()
	if s.Goal == nil || s.Goal.MatchID != "101" || s.Goal.MyTeam {
		t.Errorf("goal = %+v", s.Goal)
	}

	late.Phase, late.Status = PhaseFinished, state.StatusFullTime
	feed.fixtures = []Fixture{early, late}
	a.Refresh(context.Background())
	if s := a.Snapshot(); !s.Finished {
		t.Errorf("Finished = false after every member ended")
	}
}

func TestLeagueAdapterNewMatchesReportedOnce(t *testing.T) {
	feed := &fakeFeed{fixtures: []Fixture{chelseaArsenal(PhasePending, state.StatusOther, 0, 0)}}
	a, _ := NewLeagueAdapter(context.Background(), feed, "1204", false)
	if !a.Snapshot().IsNew {
		t.Fatal("first sighting not new")
	}
	a.Refresh(context.Background())
	if a.Snapshot().IsNew {
		t.Error("same members reported new twice")
	}
	feed.fixtures = append(feed.fixtures, Fixture{ID: "102", CategoryID: "1204", Phase: PhasePending})
	a.Refresh(context.Background())
	if !a.Snapshot().IsNew {
		t.Error("added member not reported")
	}
}

func TestMatchAdapterResumeAfterBreakIsQuiet(t *testing.T) {
	feed := &fakeFeed{fixtures: []Fixture{chelseaArsenal(PhaseLive, state.StatusKickOff, 0, 0)}}
	a := newMatch(t, feed, "Chelsea", kickoff)

	feed.fixtures = []Fixture{chelseaArsenal(PhaseLive, state.StatusOther, 0, 0)}
	a.Refresh(context.Background())
	if a.Snapshot().StatusChanged {
		t.Error("suspension reported as a status change")
	}

	feed.fixtures = []Fixture{chelseaArsenal(PhaseLive, state.StatusKickOff, 0, 0)}
	a.Refresh(context.Background())
	if s := a.Snapshot(); s.StatusChanged {
		t.Errorf("resume repeated kick-off: %+v", s)
	}

	feed.fixtures = []Fixture{chelseaArsenal(PhaseLive, state.StatusHalfTime, 0, 0)}
	a.Refresh(context.Background())
	if s := a.Snapshot(); !s.StatusChanged || s.Status != state.StatusHalfTime {
		t.Errorf("half time snapshot = %+v", s)
	}
}

func TestLeagueAdapterResumeAfterBreakIsQuiet(t *testing.T) {
	feed := &fakeFeed{fixtures: []Fixture{chelseaArsenal(PhaseLive, state.StatusKickOff, 0, 0)}}
	a, err := NewLeagueAdapter(context.Background(), feed, "1204", false)
	if err != nil {
		t.Fatal(err)
	}

	feed.fixtures = []Fixture{chelseaArsenal(PhaseLive, state.StatusOther, 0, 0)}
	a.Refresh(context.Background())
	feed.fixtures = []Fixture{chelseaArsenal(PhaseLive, state.StatusKickOff, 0, 0)}
	a.Refresh(context.Background())
	if s := a.Snapshot(); s.StatusChanged {
		t.Errorf("resume repeated kick-off: %+v", s)
	}
}

func TestAdaptersFlagMissingKickoff(t *testing.T) {
	undated := chelseaArsenal(PhasePending, state.StatusOther, 0, 0)
	undated.Kickoff = time.Time{}
	feed := &fakeFeed{fixtures: []Fixture{undated}}

	m := newMatch(t, feed, "Chelsea", kickoff)
	m.Refresh(context.Background())
	if s := m.Snapshot(); !s.KickoffUnknown || s.TimeToKickoff != 0 {
		t.Errorf("match snapshot = %+v", s)
	}

	l, err := NewLeagueAdapter(context.Background(), feed, "1204", false)
	if err != nil {
		t.Fatal(err)
	}
	if s := l.Snapshot(); !s.KickoffUnknown || s.Started {
		t.Errorf("league snapshot = %+v", s)
	}

	dated := Fixture{ID: "101", CategoryID: "1204", Phase: PhasePending, Kickoff: time.Now().Add(2 * time.Hour)}
	feed.fixtures = []Fixture{undated, dated}
	l.Refresh(context.Background())
	if s := l.Snapshot(); s.KickoffUnknown || s.TimeToKickoff <= time.Hour {
		t.Errorf("league with one dated member = %+v", s)
	}
}
