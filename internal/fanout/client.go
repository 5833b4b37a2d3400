package fanout

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

const (
	minBackoff = 1 * time.Second
	maxBackoff = 30 * time.Second
)

// Client connects to a fanout server and hands every received envelope to
// a callback.
type Client struct {
	addr   string
	entity string
	handle func(Envelope)
	logger *slog.Logger
}

func NewClient(addr, entity string, handle func(Envelope), logger *slog.Logger) *Client {
	return &Client{addr: addr, entity: entity, handle: handle, logger: logger}
}

// ConnectWithRetry connects to the fanout server and reconnects on failure
// with exponential backoff. Blocks until ctx is cancelled.
func (c *Client) ConnectWithRetry(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		connStart := time.Now()
		err := c.connect(ctx)
		if ctx.Err() != nil {
			return
		}

		if time.Since(connStart) > time.Minute {
			attempt = 0
		}

		attempt++
		backoff := time.Duration(float64(minBackoff) * math.Pow(2, float64(min(attempt-1, 5))))
		if backoff > maxBackoff {
			backoff = maxBackoff
		}

		if err != nil {
			c.logger.Warn("fanout: connection lost", "attempt", attempt, "err", err, "retry_in", backoff)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

func (c *Client) wsURL() string {
	u := url.URL{Scheme: "ws", Host: c.addr, Path: "/ws"}
	if c.entity != "" {
		u.RawQuery = url.Values{"entity": {c.entity}}.Encode()
	}
	return u.String()
}

func (c *Client) connect(ctx context.Context) error {
	wsURL := c.wsURL()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close()

	// Unblock ReadMessage on cancellation.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c.logger.Info("fanout: connected", "addr", c.addr, "entity", c.entity)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		env, err := UnmarshalEnvelope(msg)
		if err != nil {
			c.logger.Warn("fanout: unmarshal error", "err", err)
			continue
		}
		c.handle(env)
	}
}
