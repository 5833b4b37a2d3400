// Package autoremote pushes events to Tasker through the AutoRemote
// message API.
package autoremote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charleschow/football-notify/internal/core/notify"
	"github.com/charleschow/football-notify/internal/events"
)

const DefaultBaseURL = "http://autoremotejoaomgcd.appspot.com/sendmessage"

type Notifier struct {
	name       string
	modes      events.ModeSet
	baseURL    string
	key        string
	prefix     string
	httpClient *http.Client
}

// NewNotifier builds a sink for one device key. An empty baseURL uses the
// public AutoRemote endpoint.
func NewNotifier(name, baseURL, key, prefix string, modes events.ModeSet) *Notifier {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Notifier{
		name:       name,
		modes:      modes,
		baseURL:    baseURL,
		key:        key,
		prefix:     prefix,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *Notifier) Name() string          { return n.name }
func (n *Notifier) Modes() events.ModeSet { return n.modes }

// Message renders "<prefix> <code>=:=<summary>", the form Tasker profiles
// match on.
func (n *Notifier) Message(evt events.Event) string {
	return fmt.Sprintf("%s %s=:=%s", n.prefix, evt.Code(), evt.Snapshot.Summary())
}

func (n *Notifier) Notify(ctx context.Context, evt events.Event) notify.Result {
	q := url.Values{}
	q.Set("key", n.key)
	q.Set("message", n.Message(evt))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return notify.Failed(n.name, fmt.Errorf("new request: %w", err))
	}
	resp, err := n.httpClient.Do(req)
	if err != nil {
		return notify.Failed(n.name, fmt.Errorf("autoremote: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return notify.Failed(n.name, fmt.Errorf("autoremote: read body: %w", err))
	}
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != "OK" {
		return notify.Failed(n.name, fmt.Errorf("autoremote: status=%d body=%q", resp.StatusCode, body))
	}
	return notify.Delivered(n.name)
}
