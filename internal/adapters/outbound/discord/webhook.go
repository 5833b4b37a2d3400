package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charleschow/football-notify/internal/core/notify"
	"github.com/charleschow/football-notify/internal/events"
)

// Notifier posts events to a Discord webhook as embeds.
type Notifier struct {
	name       string
	modes      events.ModeSet
	webhookURL string
	httpClient *http.Client
}

func NewNotifier(name, webhookURL string, modes events.ModeSet) *Notifier {
	return &Notifier{
		name:       name,
		modes:      modes,
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *Notifier) Name() string          { return n.name }
func (n *Notifier) Modes() events.ModeSet { return n.modes }
func (n *Notifier) Enabled() bool         { return n.webhookURL != "" }

type Embed struct {
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Color       int     `json:"color,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
	Timestamp   string  `json:"timestamp,omitempty"`
}

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type webhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

const (
	ColorGreen  = 0x2ECC71
	ColorRed    = 0xE74C3C
	ColorYellow = 0xF1C40F
	ColorBlue   = 0x3498DB
)

func (n *Notifier) Notify(ctx context.Context, evt events.Event) notify.Result {
	if !n.Enabled() {
		return notify.Failed(n.name, fmt.Errorf("discord: no webhook url"))
	}
	if err := n.SendEmbed(ctx, embedFor(evt)); err != nil {
		return notify.Failed(n.name, err)
	}
	return notify.Delivered(n.name)
}

func embedFor(evt events.Event) Embed {
	snap := evt.Snapshot
	e := Embed{
		Title:       evt.Title(),
		Description: snap.Summary(),
		Color:       colorFor(evt.Kind),
		Timestamp:   evt.Timestamp.UTC().Format(time.RFC3339),
	}
	if m := snap.Match; m != nil {
		if m.League != "" {
			e.Fields = append(e.Fields, Field{Name: "League", Value: m.League, Inline: true})
		}
		if len(m.HomeScorers) > 0 {
			e.Fields = append(e.Fields, Field{Name: m.HomeTeam, Value: strings.Join(m.HomeScorers, "\n"), Inline: true})
		}
		if len(m.AwayScorers) > 0 {
			e.Fields = append(e.Fields, Field{Name: m.AwayTeam, Value: strings.Join(m.AwayScorers, "\n"), Inline: true})
		}
	}
	if g := snap.Goal; g != nil && g.Scorer != "" {
		e.Fields = append(e.Fields, Field{Name: "Scorer", Value: fmt.Sprintf("%s %s", g.Scorer, g.Minute), Inline: true})
	}
	return e
}

func colorFor(k events.Kind) int {
	switch k {
	case events.KindGoalFor, events.KindLeagueGoal:
		return ColorGreen
	case events.KindGoalAgainst:
		return ColorRed
	case events.KindMatchFound:
		return ColorBlue
	}
	return ColorYellow
}

func (n *Notifier) SendText(ctx context.Context, msg string) error {
	return n.send(ctx, webhookPayload{Content: msg})
}

func (n *Notifier) SendEmbed(ctx context.Context, embed Embed) error {
	if embed.Timestamp == "" {
		embed.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return n.send(ctx, webhookPayload{Embeds: []Embed{embed}})
}

func (n *Notifier) send(ctx context.Context, payload webhookPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("discord rate limited")
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("discord webhook: status=%d", resp.StatusCode)
	}
	return nil
}
