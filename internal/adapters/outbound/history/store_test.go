package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/charleschow/football-notify/internal/core/state"
	"github.com/charleschow/football-notify/internal/events"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open("history", filepath.Join(t.TempDir(), "nested", "history.db"), events.NewModeSet(events.ModeMatch, events.ModeLeague))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNotifyRecordsRows(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	found := events.New(events.KindMatchFound, events.ModeMatch, state.Snapshot{
		EntityID: "Chelsea", Found: true,
		Match: &state.MatchInfo{HomeTeam: "Chelsea", AwayTeam: "Arsenal"},
	})
	league := events.New(events.KindLeagueGoal, events.ModeLeague, state.Snapshot{EntityID: "1204", Found: true, League: "Premier League"})

	for _, evt := range []events.Event{found, league} {
		if res := s.Notify(ctx, evt); !res.Delivered {
			t.Fatalf("Notify: %+v", res)
		}
	}

	rows, err := s.Recent(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Kind != events.KindLeagueGoal || rows[0].Mode != events.ModeLeague {
		t.Errorf("newest row = %+v", rows[0])
	}
	if rows[1].EventID != found.ID || rows[1].Title != "New match found." || rows[1].Summary != "Chelsea 0-0 Arsenal" {
		t.Errorf("oldest row = %+v", rows[1])
	}

	only, _ := s.Recent(ctx, "Chelsea", 10)
	if len(only) != 1 || only[0].Entity != "Chelsea" {
		t.Errorf("entity filter = %+v", only)
	}
}

func TestEvictsOldestPastCap(t *testing.T) {
	s := openTemp(t)
	s.SetMaxRows(3)
	ctx := context.Background()

	var last events.Event
	for i := 0; i < 5; i++ {
		last = events.New(events.KindMatchFound, events.ModeMatch, state.Snapshot{EntityID: "Chelsea", Found: true})
		if err := s.Insert(ctx, last); err != nil {
			t.Fatal(err)
		}
	}
	rows, _ := s.Recent(ctx, "", 10)
	if len(rows) != 3 {
		t.Fatalf("got %d rows after eviction, want 3", len(rows))
	}
	if rows[0].EventID != last.ID {
		t.Errorf("newest row evicted")
	}
}
