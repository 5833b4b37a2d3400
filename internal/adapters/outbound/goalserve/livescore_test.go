package goalserve

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charleschow/football-notify/internal/core/state"
	"github.com/charleschow/football-notify/internal/telemetry"
)

const sampleFeed = `<?xml version="1.0" encoding="utf-8"?>
<scores sport="soccer" updated="14.10.2026 14:25:00">
 <category name="England: Premier League" gid="1204" id="1204">
  <matches>
   <match status="23" timer="23" formatted_date="14.10.2026" time="14:00" id="100">
    <localteam name="Chelsea" goals="1" id="1"/>
    <visitorteam name="Arsenal" goals="0" id="2"/>
    <events>
     <event type="goal" minute="12" team="localteam" player="C. Palmer"/>
     <event type="yellowcard" minute="17" team="visitorteam" player="D. Rice"/>
    </events>
   </match>
   <match status="16:30" formatted_date="14.10.2026" time="16:30" id="101">
    <localteam name="Everton" goals="?" id="3"/>
    <visitorteam name="Fulham" goals="?" id="4"/>
   </match>
  </matches>
 </category>
 <category name="Spain: La Liga" id="1399">
  <matches>
   <match status="FT" formatted_date="14.10.2026" time="11:00" id="200">
    <localteam name="Sevilla" goals="2" id="5"/>
    <visitorteam name="Getafe" goals="2" id="6"/>
   </match>
  </matches>
 </category>
</scores>`

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestClientParsesLivescore(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{BaseURL: srv.URL, APIKey: "k", Feed: "soccernew/home", RatePerMin: 600})
	fx, err := c.Livescore(context.Background())
	if err != nil {
		t.Fatalf("Livescore: %v", err)
	}
	if path != "/k/soccernew/home" {
		t.Errorf("path = %q", path)
	}
	if len(fx) != 3 {
		t.Fatalf("got %d fixtures, want 3", len(fx))
	}

	live := fx[0]
	if live.Phase != PhaseLive || live.Status != state.StatusKickOff {
		t.Errorf("fixture 100 phase=%v status=%q", live.Phase, live.Status)
	}
	if live.HomeScore != 1 || live.AwayScore != 0 || live.Minute != "23'" {
		t.Errorf("fixture 100 = %+v", live)
	}
	if len(live.Goals) != 1 || live.Goals[0].Player != "C. Palmer" || !live.Goals[0].Home {
		t.Errorf("goals = %+v", live.Goals)
	}

	pending := fx[1]
	if pending.Phase != PhasePending || pending.HomeScore != 0 {
		t.Errorf("fixture 101 = %+v", pending)
	}
	want := time.Date(2026, 10, 14, 16, 30, 0, 0, time.UTC)
	if !pending.Kickoff.Equal(want) {
		t.Errorf("kickoff = %v, want %v", pending.Kickoff, want)
	}

	if fx[2].Phase != PhaseFinished || fx[2].Status != state.StatusFullTime || fx[2].CategoryID != "1399" {
		t.Errorf("fixture 200 = %+v", fx[2])
	}
}

func TestClientCachesWithinTTL(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{BaseURL: srv.URL, APIKey: "k", Feed: "f", RatePerMin: 600, CacheTTL: time.Minute})
	for i := 0; i < 3; i++ {
		if _, err := c.Livescore(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hit %d times, want 1", got)
	}
}

func TestClientSkipsMalformedFixture(t *testing.T) {
	feed := strings.Replace(sampleFeed,
		`<match status="FT" formatted_date="14.10.2026" time="11:00" id="200">`,
		`<match status="FT" formatted_date="bogus" time="11:00" id="200">`, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feed))
	}))
	defer srv.Close()

	before := telemetry.Metrics.FixturesSkipped.Value()
	c := NewClient(ClientOptions{BaseURL: srv.URL, APIKey: "k", Feed: "f", RatePerMin: 600, Logger: discardLogger()})
	fx, err := c.Livescore(context.Background())
	if err != nil {
		t.Fatalf("Livescore: %v", err)
	}
	if len(fx) != 2 || fx[0].ID != "100" || fx[1].ID != "101" {
		t.Fatalf("fixtures = %+v, want 100 and 101", fx)
	}
	if got := telemetry.Metrics.FixturesSkipped.Value() - before; got != 1 {
		t.Errorf("skipped counter moved by %d, want 1", got)
	}
}

func TestClientBadDocumentFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<scores><category"))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{BaseURL: srv.URL, APIKey: "k", Feed: "f", RatePerMin: 600})
	if _, err := c.Livescore(context.Background()); err == nil {
		t.Fatal("truncated document should fail")
	}
}

func TestClientSharedFetchSurvivesCancelledCaller(t *testing.T) {
	release := make(chan struct{})
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{BaseURL: srv.URL, APIKey: "k", Feed: "f", RatePerMin: 600, CacheTTL: time.Minute})

	first, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Livescore(first)
		firstErr <- err
	}()
	for hits.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	second := make(chan error, 1)
	go func() {
		fx, err := c.Livescore(context.Background())
		if err == nil && len(fx) != 3 {
			err = errors.New("wrong fixture count")
		}
		second <- err
	}()

	cancelFirst()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled caller err = %v", err)
	}
	close(release)

	select {
	case err := <-second:
		if err != nil {
			t.Errorf("second caller: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("second caller never returned")
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hit %d times, want 1", got)
	}
}

func TestClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{BaseURL: srv.URL, APIKey: "k", Feed: "f", RatePerMin: 600})
	_, err := c.Livescore(context.Background())
	if err == nil || !strings.Contains(err.Error(), "status=403") {
		t.Fatalf("err = %v", err)
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		raw   string
		phase Phase
		code  state.StatusCode
	}{
		{"15:00", PhasePending, state.StatusOther},
		{"", PhasePending, state.StatusOther},
		{"1", PhaseLive, state.StatusKickOff},
		{"45+2", PhaseLive, state.StatusKickOff},
		{"HT", PhaseLive, state.StatusHalfTime},
		{"FT", PhaseFinished, state.StatusFullTime},
		{"AET", PhaseFinished, state.StatusFullTime},
		{"Pen.", PhaseFinished, state.StatusFullTime},
		{"Postp.", PhaseFinished, state.StatusOther},
		{"Canc.", PhaseFinished, state.StatusOther},
	}
	for _, tt := range tests {
		phase, code := classifyStatus(tt.raw)
		if phase != tt.phase || code != tt.code {
			t.Errorf("classifyStatus(%q) = %v,%q want %v,%q", tt.raw, phase, code, tt.phase, tt.code)
		}
	}
}
