// Package kodi shows events as on-screen notifications through Kodi's
// JSON-RPC interface.
package kodi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/charleschow/football-notify/internal/core/notify"
	"github.com/charleschow/football-notify/internal/events"
)

const defaultDisplayTime = 5000 * time.Millisecond

type Notifier struct {
	name        string
	modes       events.ModeSet
	endpoint    string
	username    string
	password    string
	displayTime time.Duration
	httpClient  *http.Client
	nextID      atomic.Int64
}

type Options struct {
	Address     string
	Port        int
	Username    string
	Password    string
	DisplayTime time.Duration
}

func NewNotifier(name string, opts Options, modes events.ModeSet) *Notifier {
	if opts.DisplayTime <= 0 {
		opts.DisplayTime = defaultDisplayTime
	}
	return &Notifier{
		name:        name,
		modes:       modes,
		endpoint:    fmt.Sprintf("http://%s:%d/jsonrpc", opts.Address, opts.Port),
		username:    opts.Username,
		password:    opts.Password,
		displayTime: opts.DisplayTime,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *Notifier) Name() string          { return n.name }
func (n *Notifier) Modes() events.ModeSet { return n.modes }

type rpcRequest struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      int64      `json:"id"`
	Method  string     `json:"method"`
	Params  showParams `json:"params"`
}

type showParams struct {
	Title       string `json:"title"`
	Message     string `json:"message"`
	DisplayTime int64  `json:"displaytime"`
}

type rpcResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (n *Notifier) Notify(ctx context.Context, evt events.Event) notify.Result {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      n.nextID.Add(1) - 1,
		Method:  "GUI.ShowNotification",
		Params: showParams{
			Title:       evt.Title(),
			Message:     evt.Snapshot.Summary(),
			DisplayTime: n.displayTime.Milliseconds(),
		},
	})
	if err != nil {
		return notify.Failed(n.name, fmt.Errorf("marshal kodi request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return notify.Failed(n.name, fmt.Errorf("new request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if n.username != "" && n.password != "" {
		req.SetBasicAuth(n.username, n.password)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return notify.Failed(n.name, fmt.Errorf("kodi: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return notify.Failed(n.name, fmt.Errorf("kodi: status=%d", resp.StatusCode))
	}
	var out rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return notify.Failed(n.name, fmt.Errorf("kodi: decode response: %w", err))
	}
	if out.Error != nil {
		return notify.Failed(n.name, fmt.Errorf("kodi: rpc error %d: %s", out.Error.Code, out.Error.Message))
	}
	if out.Result != "OK" {
		return notify.Failed(n.name, fmt.Errorf("kodi: unexpected result %q", out.Result))
	}
	return notify.Delivered(n.name)
}
