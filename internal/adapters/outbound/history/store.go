// Package history records every dispatched event in a local SQLite
// database so past notifications can be listed later.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/charleschow/football-notify/internal/core/notify"
	"github.com/charleschow/football-notify/internal/events"
)

const (
	defaultMaxRows = 100_000
	evictBatchSize = 500
	vacuumInterval = 20 // run incremental vacuum every N evictions
)

// Store is a FIFO table of notifications capped at maxRows.
type Store struct {
	name  string
	modes events.ModeSet
	db    *sql.DB

	mu           sync.Mutex
	maxRows      int64
	rows         int64
	evictCounter int
}

// Row is one recorded notification.
type Row struct {
	ID       int64
	EventID  string
	Kind     events.Kind
	Mode     events.Mode
	Entity   string
	Title    string
	Summary  string
	Recorded time.Time
}

func Open(name, path string, modes events.ModeSet) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		`PRAGMA auto_vacuum = INCREMENTAL`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id  TEXT    NOT NULL,
			kind      TEXT    NOT NULL,
			mode      TEXT    NOT NULL,
			entity    TEXT    NOT NULL,
			title     TEXT    NOT NULL,
			summary   TEXT    NOT NULL,
			recorded  TEXT    NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_entity ON notifications(entity, id)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init schema (%s): %w", stmt, err)
		}
	}

	var rows int64
	if err := db.QueryRow(`SELECT COUNT(*) FROM notifications`).Scan(&rows); err != nil {
		db.Close()
		return nil, fmt.Errorf("count rows: %w", err)
	}

	return &Store{name: name, modes: modes, db: db, maxRows: defaultMaxRows, rows: rows}, nil
}

func (s *Store) Name() string          { return s.name }
func (s *Store) Modes() events.ModeSet { return s.modes }

// SetMaxRows changes the retention cap. Values <= 0 keep the default.
func (s *Store) SetMaxRows(n int64) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.maxRows = n
	s.mu.Unlock()
}

func (s *Store) Notify(ctx context.Context, evt events.Event) notify.Result {
	if err := s.Insert(ctx, evt); err != nil {
		return notify.Failed(s.name, err)
	}
	return notify.Delivered(s.name)
}

func (s *Store) Insert(ctx context.Context, evt events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := evt.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (event_id, kind, mode, entity, title, summary, recorded) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		evt.ID,
		string(evt.Kind),
		evt.Mode.String(),
		evt.EntityID,
		evt.Title(),
		evt.Snapshot.Summary(),
		ts.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("history insert: %w", err)
	}

	s.rows++
	if s.rows > s.maxRows {
		s.evict(ctx)
	}
	return nil
}

// evict removes oldest rows until the table is under the cap.
// Must be called with s.mu held.
func (s *Store) evict(ctx context.Context) {
	for s.rows > s.maxRows {
		batch := min(s.rows-s.maxRows, evictBatchSize)
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM notifications WHERE id IN (SELECT id FROM notifications ORDER BY id ASC LIMIT ?)`,
			batch,
		)
		if err != nil {
			break
		}
		n, err := res.RowsAffected()
		if err != nil || n == 0 {
			break
		}
		s.rows -= n
		s.evictCounter++

		if s.evictCounter%vacuumInterval == 0 {
			s.db.ExecContext(ctx, `PRAGMA incremental_vacuum`)
		}
	}
}

// Recent returns up to limit rows, newest first. An empty entity matches
// every entity.
func (s *Store) Recent(ctx context.Context, entity string, limit int) ([]Row, error) {
	q := `SELECT id, event_id, kind, mode, entity, title, summary, recorded FROM notifications`
	var args []any
	if entity != "" {
		q += ` WHERE entity = ?`
		args = append(args, entity)
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("history query: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			r        Row
			kind     string
			mode     string
			recorded string
		)
		if err := rows.Scan(&r.ID, &r.EventID, &kind, &mode, &r.Entity, &r.Title, &r.Summary, &recorded); err != nil {
			return nil, fmt.Errorf("history scan: %w", err)
		}
		r.Kind = events.Kind(kind)
		if m, err := events.ParseMode(mode); err == nil {
			r.Mode = m
		}
		r.Recorded, _ = time.Parse(time.RFC3339Nano, recorded)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
