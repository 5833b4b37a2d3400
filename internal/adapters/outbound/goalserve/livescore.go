package goalserve

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charleschow/football-notify/internal/core/state"
)

// Phase is the coarse lifecycle of one fixture.
type Phase int

const (
	PhasePending Phase = iota
	PhaseLive
	PhaseFinished
)

// GoalEvent is one <event type="goal"> entry.
type GoalEvent struct {
	Minute string
	Home   bool
	Player string
}

// Fixture is one parsed <match> from the livescore feed.
type Fixture struct {
	ID           string
	CategoryID   string
	CategoryName string
	HomeTeam     string
	AwayTeam     string
	HomeScore    int
	AwayScore    int
	RawStatus    string
	Phase        Phase
	Status       state.StatusCode
	Minute       string
	Kickoff      time.Time
	Goals        []GoalEvent
}

func (f Fixture) Started() bool { return f.Phase != PhasePending }

// Info converts the fixture for sinks. Scorers are only listed when
// detailed is set.
func (f Fixture) Info(detailed bool) state.MatchInfo {
	mi := state.MatchInfo{
		ID:        f.ID,
		League:    f.CategoryName,
		HomeTeam:  f.HomeTeam,
		AwayTeam:  f.AwayTeam,
		HomeScore: f.HomeScore,
		AwayScore: f.AwayScore,
		Minute:    f.Minute,
		RawStatus: f.RawStatus,
		Status:    f.Status,
		Kickoff:   f.Kickoff,
	}
	if detailed {
		for _, g := range f.Goals {
			line := fmt.Sprintf("%s (%s)", g.Player, g.Minute)
			if g.Home {
				mi.HomeScorers = append(mi.HomeScorers, line)
			} else {
				mi.AwayScorers = append(mi.AwayScorers, line)
			}
		}
	}
	return mi
}

// LastGoal returns the most recent goal for one side, if the feed listed any.
func (f Fixture) LastGoal(home bool) (GoalEvent, bool) {
	for i := len(f.Goals) - 1; i >= 0; i-- {
		if f.Goals[i].Home == home {
			return f.Goals[i], true
		}
	}
	return GoalEvent{}, false
}

// --- XML ---

type scoresXML struct {
	Categories []categoryXML `xml:"category"`
}

type categoryXML struct {
	ID      string     `xml:"id,attr"`
	Name    string     `xml:"name,attr"`
	Matches []matchXML `xml:"matches>match"`
}

type matchXML struct {
	ID            string     `xml:"id,attr"`
	Status        string     `xml:"status,attr"`
	Timer         string     `xml:"timer,attr"`
	FormattedDate string     `xml:"formatted_date,attr"`
	Time          string     `xml:"time,attr"`
	LocalTeam     teamXML    `xml:"localteam"`
	VisitorTeam   teamXML    `xml:"visitorteam"`
	Events        []eventXML `xml:"events>event"`
}

type teamXML struct {
	Name  string `xml:"name,attr"`
	Goals string `xml:"goals,attr"`
}

type eventXML struct {
	Type   string `xml:"type,attr"`
	Minute string `xml:"minute,attr"`
	Team   string `xml:"team,attr"`
	Player string `xml:"player,attr"`
}

// fixtures converts every parseable match. A malformed match is reported in
// skipped and left out so it cannot take down the rest of the feed.
func (s scoresXML) fixtures() (out []Fixture, skipped []error) {
	for _, cat := range s.Categories {
		for _, m := range cat.Matches {
			f, err := m.fixture(cat)
			if err != nil {
				skipped = append(skipped, fmt.Errorf("category %s match %s: %w", cat.ID, m.ID, err))
				continue
			}
			out = append(out, f)
		}
	}
	return out, skipped
}

func (m matchXML) fixture(cat categoryXML) (Fixture, error) {
	if m.ID == "" {
		return Fixture{}, fmt.Errorf("missing id")
	}
	kickoff, err := parseKickoff(m.FormattedDate, m.Time)
	if err != nil {
		return Fixture{}, err
	}

	phase, code := classifyStatus(m.Status)
	f := Fixture{
		ID:           m.ID,
		CategoryID:   cat.ID,
		CategoryName: cat.Name,
		HomeTeam:     strings.TrimSpace(m.LocalTeam.Name),
		AwayTeam:     strings.TrimSpace(m.VisitorTeam.Name),
		HomeScore:    parseGoals(m.LocalTeam.Goals),
		AwayScore:    parseGoals(m.VisitorTeam.Goals),
		RawStatus:    strings.TrimSpace(m.Status),
		Phase:        phase,
		Status:       code,
		Kickoff:      kickoff,
	}
	if phase == PhaseLive {
		f.Minute = minuteLabel(m.Status, m.Timer)
	}
	for _, e := range m.Events {
		if !strings.EqualFold(e.Type, "goal") {
			continue
		}
		f.Goals = append(f.Goals, GoalEvent{
			Minute: e.Minute,
			Home:   e.Team == "localteam",
			Player: e.Player,
		})
	}
	return f, nil
}

// classifyStatus maps GoalServe's status attribute. Scheduled matches carry
// their kickoff time ("15:00"), live ones the minute ("23", "45+2"), plus a
// handful of fixed codes.
func classifyStatus(raw string) (Phase, state.StatusCode) {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "", "tba":
		return PhasePending, state.StatusOther
	case "ht":
		return PhaseLive, state.StatusHalfTime
	case "ft", "aet", "pen.", "after pen.":
		return PhaseFinished, state.StatusFullTime
	case "postp.", "canc.", "aban.", "awarded", "w.o.":
		return PhaseFinished, state.StatusOther
	case "susp.", "int.", "break", "et", "pen":
		return PhaseLive, state.StatusOther
	}
	if strings.Contains(s, ":") {
		return PhasePending, state.StatusOther
	}
	if isMinute(s) {
		return PhaseLive, state.StatusKickOff
	}
	return PhasePending, state.StatusOther
}

func isMinute(s string) bool {
	base, _, _ := strings.Cut(s, "+")
	_, err := strconv.Atoi(strings.TrimSpace(base))
	return err == nil
}

func minuteLabel(status, timer string) string {
	if isMinute(status) {
		return strings.TrimSpace(status) + "'"
	}
	if t := strings.TrimSpace(timer); t != "" && isMinute(t) {
		return t + "'"
	}
	return strings.TrimSpace(status)
}

func parseGoals(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0 // "?" before kickoff
	}
	return n
}

// parseKickoff reads formatted_date "14.10.2026" and time "14:00" (UTC).
func parseKickoff(date, clock string) (time.Time, error) {
	date, clock = strings.TrimSpace(date), strings.TrimSpace(clock)
	if date == "" {
		return time.Time{}, nil
	}
	if clock == "" {
		clock = "00:00"
	}
	t, err := time.ParseInLocation("02.01.2006 15:04", date+" "+clock, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse kickoff %q %q: %w", date, clock, err)
	}
	return t, nil
}
