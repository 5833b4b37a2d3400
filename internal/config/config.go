package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Monitored entities
	Teams   []string
	Leagues []string

	// Polling cadence
	LiveInterval time.Duration
	IdleInterval time.Duration

	// Detailed asks the adapter for scorers and other extras.
	Detailed bool

	// Telemetry
	LogFile  string // empty = stderr
	LogLevel string

	// Sinks
	SinksPath         string
	DiscordWebhookURL string // shortcut for a single discord sink without a sinks file

	// GoalServe livescore feed
	GoalserveAPIKey     string
	GoalserveBaseURL    string
	GoalserveFeed       string
	GoalserveRatePerMin int
	GoalserveCacheTTL   time.Duration

	// Shutdown
	StopGrace time.Duration
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Teams:   envList("FN_TEAMS", nil),
		Leagues: envList("FN_LEAGUES", nil),

		LiveInterval: time.Duration(envInt("FN_LIVE_INTERVAL_SEC", 30)) * time.Second,
		IdleInterval: time.Duration(envInt("FN_IDLE_INTERVAL_SEC", 60*60)) * time.Second,

		Detailed: envBool("FN_DETAILED", true),

		LogFile:  envStr("FN_LOG_FILE", ""),
		LogLevel: envStr("FN_LOG_LEVEL", "info"),

		SinksPath:         envStr("FN_SINKS_PATH", "sinks.yaml"),
		DiscordWebhookURL: envStr("FN_DISCORD_WEBHOOK_URL", ""),

		GoalserveAPIKey:     envStr("GOALSERVE_API_KEY", ""),
		GoalserveBaseURL:    envStr("GOALSERVE_BASE_URL", "http://www.goalserve.com/getfeed"),
		GoalserveFeed:       envStr("GOALSERVE_FEED", "soccernew/home"),
		GoalserveRatePerMin: envInt("GOALSERVE_RATE_PER_MIN", 30),
		GoalserveCacheTTL:   time.Duration(envInt("GOALSERVE_CACHE_TTL_SEC", 10)) * time.Second,

		StopGrace: time.Duration(envInt("FN_STOP_GRACE_SEC", 5)) * time.Second,
	}
}

// Validate rejects settings the workers cannot run with.
func (c *Config) Validate() error {
	if c.LiveInterval <= 0 {
		return fmt.Errorf("live interval must be positive, got %s", c.LiveInterval)
	}
	if c.IdleInterval <= 0 {
		return fmt.Errorf("idle interval must be positive, got %s", c.IdleInterval)
	}
	if c.GoalserveRatePerMin <= 0 {
		return fmt.Errorf("goalserve rate must be positive, got %d", c.GoalserveRatePerMin)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
