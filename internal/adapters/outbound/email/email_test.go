package email

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/charleschow/football-notify/internal/core/state"
	"github.com/charleschow/football-notify/internal/events"
)

func fullTime() events.Event {
	return events.New(events.KindStatusChanged, events.ModeMatch, state.Snapshot{
		EntityID: "Chelsea", Found: true, Status: state.StatusFullTime,
		Match: &state.MatchInfo{
			HomeTeam: "Chelsea", AwayTeam: "Arsenal", HomeScore: 1,
			HomeScorers: []string{"<Palmer> (12)"},
		},
	})
}

func TestSubject(t *testing.T) {
	n := NewNotifier("mail", Options{Title: "[footy]"}, events.NewModeSet(events.ModeMatch))
	if got, want := n.Subject(fullTime()), "[footy] FULL TIME! Chelsea 1-0 Arsenal"; got != want {
		t.Errorf("Subject = %q, want %q", got, want)
	}
}

func TestMessageHasBothParts(t *testing.T) {
	n := NewNotifier("mail", Options{From: "bot@example.com", To: []string{"a@example.com", "b@example.com"}}, events.NewModeSet(events.ModeMatch))
	msg, err := n.Message(fullTime())
	if err != nil {
		t.Fatal(err)
	}
	s := string(msg)
	for _, want := range []string{
		"To: a@example.com, b@example.com\r\n",
		"Content-Type: multipart/alternative; boundary=",
		"Content-Type: text/plain; charset=utf-8",
		"Content-Type: text/html; charset=utf-8",
		"Chelsea 1-0 Arsenal",
		"&lt;Palmer&gt; (12)",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestNotifyDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	n := NewNotifier("mail", Options{Host: "127.0.0.1", Port: addr.Port, From: "a@b", To: []string{"c@d"}}, events.NewModeSet(events.ModeMatch))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if res := n.Notify(ctx, fullTime()); res.Delivered || res.Err == nil {
		t.Errorf("result = %+v, want failure", res)
	}
}
