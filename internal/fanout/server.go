package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	corslib "github.com/rs/cors"

	"github.com/charleschow/football-notify/internal/adapters/outbound/history"
	"github.com/charleschow/football-notify/internal/core/notify"
	"github.com/charleschow/football-notify/internal/events"
)

const (
	clientSendBuf = 256
	writeDeadline = 5 * time.Second
	pongWait      = 30 * time.Second
	pingInterval  = 20 * time.Second

	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// History is the read side of the notification history store.
type History interface {
	Recent(ctx context.Context, entity string, limit int) ([]history.Row, error)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

type wsClient struct {
	entity string // empty subscribes to every entity
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
}

// Server is a notification sink that broadcasts every event it receives to
// connected WebSocket clients.
type Server struct {
	name   string
	modes  events.ModeSet
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	httpSrv *http.Server
	history History
	origins []string
}

func NewServer(name string, modes events.ModeSet, logger *slog.Logger) *Server {
	return &Server{
		name:    name,
		modes:   modes,
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// SetHistory enables GET /history/{entity}. Call before Start.
func (s *Server) SetHistory(h History) {
	s.mu.Lock()
	s.history = h
	s.mu.Unlock()
}

// SetAllowedOrigins restricts CORS on the REST routes. Empty allows any origin.
func (s *Server) SetAllowedOrigins(origins []string) {
	s.mu.Lock()
	s.origins = origins
	s.mu.Unlock()
}

func (s *Server) Name() string          { return s.name }
func (s *Server) Modes() events.ModeSet { return s.modes }

// Notify enqueues the event to every matching client without blocking.
// Slow clients drop messages; the broadcast itself counts as delivered.
func (s *Server) Notify(_ context.Context, evt events.Event) notify.Result {
	data, err := MarshalEvent(evt)
	if err != nil {
		return notify.Failed(s.name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.clients {
		if c.entity != "" && c.entity != evt.EntityID {
			continue
		}
		select {
		case c.send <- data:
		default:
			s.logger.Warn("fanout: dropping message for slow client", "entity", c.entity)
		}
	}
	return notify.Delivered(s.name)
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// HandleWS is the HTTP handler for WebSocket upgrade requests. Clients may
// pass ?entity=<team or league id> to receive a single entity's events.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("fanout: upgrade failed", "err", err)
		return
	}

	c := &wsClient{
		entity: r.URL.Query().Get("entity"),
		conn:   conn,
		send:   make(chan []byte, clientSendBuf),
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	s.logger.Info("Fanout: client connected", "remote", r.RemoteAddr, "entity", c.entity)

	go s.writePump(c)
	go s.readPump(c)
}

// writePump drains the client's send channel and writes to the WS connection.
// It owns the client lifecycle: on exit it removes the client from the map
// (so Notify never sends to a stale channel) and closes the connection.
func (s *Server) writePump(c *wsClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.removeClient(c)
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.logger.Warn("fanout: write error", "err", err)
				return
			}
		case <-c.done:
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump keeps the connection alive by reading pongs / close frames.
// On exit it signals writePump via c.done (never closes c.send).
func (s *Server) readPump(c *wsClient) {
	defer close(c.done)

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) removeClient(c *wsClient) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	s.logger.Info("Fanout: client disconnected", "entity", c.entity)
}

// Router returns the HTTP routes: /ws for the event stream, plus
// /health and /history/{entity} as JSON.
func (s *Server) Router() http.Handler {
	s.mu.Lock()
	origins := s.origins
	s.mu.Unlock()
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/ws", s.HandleWS)

	r.Group(func(r chi.Router) {
		c := corslib.New(corslib.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		})
		r.Use(c.Handler)
		r.Get("/health", s.handleHealth)
		r.Get("/history/{entity}", s.handleHistory)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "clients": s.Clients()})
}

type historyItem struct {
	EventID  string    `json:"event_id"`
	Kind     string    `json:"kind"`
	Mode     string    `json:"mode"`
	Entity   string    `json:"entity"`
	Title    string    `json:"title"`
	Summary  string    `json:"summary"`
	Recorded time.Time `json:"recorded"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	h := s.history
	s.mu.Unlock()
	if h == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "history not configured"})
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	rows, err := h.Recent(r.Context(), chi.URLParam(r, "entity"), limit)
	if err != nil {
		s.logger.Warn("fanout: history query failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history query failed"})
		return
	}
	items := make([]historyItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, historyItem{
			EventID:  row.EventID,
			Kind:     string(row.Kind),
			Mode:     row.Mode.String(),
			Entity:   row.Entity,
			Title:    row.Title,
			Summary:  row.Summary,
			Recorded: row.Recorded,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Start listens on addr and serves Router in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("fanout listen %s: %w", addr, err)
	}

	handler := s.Router()

	s.mu.Lock()
	s.httpSrv = &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	srv := s.httpSrv
	s.mu.Unlock()

	s.logger.Info("fanout: server listening", "addr", ln.Addr().String())
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("fanout: serve failed", "err", err)
		}
	}()
	return nil
}

// Close stops the listener and disconnects every client.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpSrv
	clients := make([]*wsClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.conn.Close()
	}
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
