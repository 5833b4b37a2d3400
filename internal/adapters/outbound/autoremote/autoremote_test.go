package autoremote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charleschow/football-notify/internal/core/state"
	"github.com/charleschow/football-notify/internal/events"
)

func kickoffEvent() events.Event {
	return events.New(events.KindStatusChanged, events.ModeMatch, state.Snapshot{
		EntityID: "Chelsea",
		Found:    true,
		Status:   state.StatusKickOff,
		Match:    &state.MatchInfo{HomeTeam: "Chelsea", AwayTeam: "Arsenal", Minute: "1'"},
	})
}

func TestNotifySendsKeyAndMessage(t *testing.T) {
	var key, msg string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key = r.URL.Query().Get("key")
		msg = r.URL.Query().Get("message")
		w.Write([]byte("OK"))
	}))
	defer srv.Close()

	n := NewNotifier("phone", srv.URL, "abc123", "footy", events.NewModeSet(events.ModeMatch))
	res := n.Notify(context.Background(), kickoffEvent())
	if !res.Delivered {
		t.Fatalf("result = %+v", res)
	}
	if key != "abc123" {
		t.Errorf("key = %q", key)
	}
	if want := "footy L=:=Chelsea 0-0 Arsenal (1')"; msg != want {
		t.Errorf("message = %q, want %q", msg, want)
	}
}

func TestNotifyRequiresOKBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Invalid key"))
	}))
	defer srv.Close()

	res := NewNotifier("phone", srv.URL, "bad", "footy", events.NewModeSet(events.ModeMatch)).Notify(context.Background(), kickoffEvent())
	if res.Delivered || res.Err == nil {
		t.Errorf("result = %+v, want failure", res)
	}
}
