package process

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charleschow/football-notify/internal/config"
	"github.com/charleschow/football-notify/internal/events"
	"github.com/charleschow/football-notify/internal/fanout"
)

func TestBuildSinks(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfgs := []config.SinkConfig{
		{Type: "autoremote", Name: "phone", Key: "k", Prefix: "footy"},
		{Type: "history", Name: "log", Path: filepath.Join(t.TempDir(), "h.db"), Modes: []string{"match", "league"}},
		{Type: "kodi", Name: "tv", Address: "10.0.0.5"},
	}
	set, err := BuildSinks(cfgs, "https://discord.example/webhook", logger)
	if err != nil {
		t.Fatalf("BuildSinks: %v", err)
	}
	defer set.Close(context.Background())

	if len(set.Sinks) != 4 {
		t.Fatalf("got %d sinks, want 4", len(set.Sinks))
	}
	wantModes := map[string]events.ModeSet{
		"discord": bothModes,
		"phone":   matchModes,
		"log":     bothModes,
		"tv":      matchModes,
	}
	for _, s := range set.Sinks {
		if want, ok := wantModes[s.Name()]; !ok || s.Modes() != want {
			t.Errorf("sink %s modes = %s, want %s", s.Name(), s.Modes(), want)
		}
	}
	if set.History == nil {
		t.Error("history store not exposed")
	}
}

func TestBuildSinksStartsFanoutAfterHistory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfgs := []config.SinkConfig{
		{Type: "fanout", Name: "stream", Listen: "127.0.0.1:0", Modes: []string{"match", "league"}},
		{Type: "history", Name: "log", Path: filepath.Join(t.TempDir(), "h.db")},
	}
	set, err := BuildSinks(cfgs, "", logger)
	if err != nil {
		t.Fatalf("BuildSinks: %v", err)
	}
	defer set.Close(context.Background())

	if len(set.Sinks) != 2 {
		t.Fatalf("got %d sinks, want 2", len(set.Sinks))
	}
	if _, ok := set.Sinks[0].(*fanout.Server); !ok {
		t.Fatalf("first sink is %T, want *fanout.Server", set.Sinks[0])
	}
	if set.History == nil {
		t.Error("history store not exposed")
	}
}

func TestBuildSinksRejectsBadEntries(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tests := []struct {
		name string
		cfg  config.SinkConfig
		want string
	}{
		{"unsupported mode", config.SinkConfig{Type: "autoremote", Name: "a", Key: "k", Modes: []string{"league"}}, "do not support league"},
		{"unknown type", config.SinkConfig{Type: "pager", Name: "p"}, "unknown sink type"},
		{"unknown mode", config.SinkConfig{Type: "discord", Name: "d", WebhookURL: "x", Modes: []string{"cup"}}, "unknown mode"},
		{"missing setting", config.SinkConfig{Type: "email", Name: "e", Address: "smtp.example.com"}, "required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildSinks([]config.SinkConfig{tt.cfg}, "", logger)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}
