// goalserve_mock serves a scripted GoalServe livescore feed on localhost so
// the notifier can be exercised end-to-end without an API key.
//
// The feed advances one frame every --step. Each frame is one state of a
// single match (kick-off, goals, half time, full time), listed alongside a
// second fixture in the same category that never starts.
//
// Usage:
//
//	go run ./cmd/goalserve_mock --step 20s
//	GOALSERVE_BASE_URL=http://localhost:8090 FN_TEAMS=Chelsea footballnotify run
package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/spf13/cobra"
)

type goal struct {
	minute string
	home   bool
	player string
}

type frame struct {
	status string // "" = kickoff time
	home   int
	away   int
	goals  []goal
	label  string
}

func script() []frame {
	g1 := goal{minute: "23", home: true, player: "C. Palmer"}
	g2 := goal{minute: "58", home: false, player: "B. Saka"}
	g3 := goal{minute: "81", home: true, player: "N. Jackson"}
	return []frame{
		{status: "", label: "Scheduled (kick-off in two frames)"},
		{status: "", label: "  (waiting)"},
		{status: "1", label: "KICK-OFF (1st min)"},
		{status: "12", label: "  (no change)"},
		{status: "23", home: 1, goals: []goal{g1}, label: "GOAL! 1-0 (23rd min)"},
		{status: "HT", home: 1, goals: []goal{g1}, label: "HALF TIME 1-0"},
		{status: "46", home: 1, goals: []goal{g1}, label: "SECOND HALF"},
		{status: "58", home: 1, away: 1, goals: []goal{g1, g2}, label: "GOAL! 1-1 (58th min)"},
		{status: "81", home: 2, away: 1, goals: []goal{g1, g2, g3}, label: "GOAL! 2-1 (81st min)"},
		{status: "90+3", home: 2, away: 1, goals: []goal{g1, g2, g3}, label: "  (stoppage time)"},
		{status: "FT", home: 2, away: 1, goals: []goal{g1, g2, g3}, label: "FULL TIME 2-1"},
	}
}

var feedTemplate = template.Must(template.New("feed").Parse(`<?xml version="1.0" encoding="utf-8"?>
<scores sport="soccer" updated="{{.Updated}}">
 <category name="{{.Category}}" gid="{{.CategoryID}}" id="{{.CategoryID}}">
  <matches>
   <match status="{{.Status}}" timer="{{.Timer}}" formatted_date="{{.Date}}" time="{{.Time}}" id="{{.MatchID}}">
    <localteam name="{{.Home}}" goals="{{.HomeGoals}}" id="1"/>
    <visitorteam name="{{.Away}}" goals="{{.AwayGoals}}" id="2"/>
    <events>{{range .Goals}}
     <event type="goal" minute="{{.Minute}}" team="{{.Team}}" player="{{.Player}}"/>{{end}}
    </events>
   </match>
   <match status="{{.LaterTime}}" formatted_date="{{.LaterDate}}" time="{{.LaterTime}}" id="{{.MatchID}}9">
    <localteam name="Everton" goals="?" id="3"/>
    <visitorteam name="Fulham" goals="?" id="4"/>
   </match>
  </matches>
 </category>
</scores>
`))

type goalView struct {
	Minute, Team, Player string
}

type feedView struct {
	Updated, Category, CategoryID string
	Status, Timer, Date, Time     string
	MatchID, Home, Away           string
	HomeGoals, AwayGoals          string
	Goals                         []goalView
	LaterDate, LaterTime          string
}

type mock struct {
	home, away, category, categoryID string
	step                             time.Duration
	frames                           []frame
	kickoff                          time.Time
	matchID                          string
	start                            time.Time

	mu      sync.Mutex
	current int
}

func (m *mock) frameIndex(now time.Time) int {
	i := int(now.Sub(m.start) / m.step)
	if i >= len(m.frames) {
		i = len(m.frames) - 1
	}
	return i
}

func (m *mock) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	idx := m.frameIndex(now)

	m.mu.Lock()
	if idx != m.current {
		m.current = idx
		fmt.Printf("  [%02d] %s\n", idx, m.frames[idx].label)
	}
	m.mu.Unlock()

	f := m.frames[idx]
	later := m.kickoff.Add(3 * time.Hour)
	v := feedView{
		Updated:    now.Format("02.01.2006 15:04:05"),
		Category:   m.category,
		CategoryID: m.categoryID,
		Status:     f.status,
		Date:       m.kickoff.Format("02.01.2006"),
		Time:       m.kickoff.Format("15:04"),
		MatchID:    m.matchID,
		Home:       m.home,
		Away:       m.away,
		HomeGoals:  "?",
		AwayGoals:  "?",
		LaterDate:  later.Format("02.01.2006"),
		LaterTime:  later.Format("15:04"),
	}
	if f.status == "" {
		v.Status = v.Time
	} else {
		v.HomeGoals = fmt.Sprint(f.home)
		v.AwayGoals = fmt.Sprint(f.away)
		if !strings.ContainsAny(f.status, "HF") {
			v.Timer = f.status
		}
	}
	for _, g := range f.goals {
		team := "visitorteam"
		if g.home {
			team = "localteam"
		}
		v.Goals = append(v.Goals, goalView{Minute: g.minute, Team: team, Player: g.player})
	}

	w.Header().Set("Content-Type", "application/xml")
	if err := feedTemplate.Execute(w, v); err != nil {
		fmt.Fprintf(os.Stderr, "render feed: %v\n", err)
	}
}

func main() {
	m := &mock{}
	var addr string
	root := &cobra.Command{
		Use:   "goalserve_mock",
		Short: "Serve a scripted GoalServe livescore feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			m.frames = script()
			m.start = time.Now().UTC()
			m.kickoff = m.start.Add(2 * m.step)
			m.matchID = fmt.Sprintf("%d", m.start.Unix())
			m.current = -1

			fmt.Println("=== GoalServe Mock ===")
			fmt.Printf("── %s vs %s (%s, category %s) ──\n", m.home, m.away, m.category, m.categoryID)
			fmt.Printf("  %d frames, one every %s, listening on %s\n\n", len(m.frames), m.step, addr)

			srv := &http.Server{Addr: addr, Handler: m, ReadHeaderTimeout: 5 * time.Second}
			return srv.ListenAndServe()
		},
	}
	root.Flags().StringVar(&addr, "addr", ":8090", "Listen address")
	root.Flags().DurationVar(&m.step, "step", 20*time.Second, "Time per frame")
	root.Flags().StringVar(&m.home, "home", "Chelsea", "Home team")
	root.Flags().StringVar(&m.away, "away", "Arsenal", "Away team")
	root.Flags().StringVar(&m.category, "category", "England: Premier League", "Category name")
	root.Flags().StringVar(&m.categoryID, "category-id", "1204", "Category id")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
