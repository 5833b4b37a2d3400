package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// WorkerKey is the attribute key that identifies which worker wrote a record.
const WorkerKey = "worker"

// New builds the process logger. It is constructed once and handed down to
// every component; all workers share the same destination.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(&prettyHandler{out: &lockedWriter{w: w}, level: level})
}

// ForWorker tags every record with the worker identifier.
func ForWorker(l *slog.Logger, id string) *slog.Logger {
	return l.With(WorkerKey, id)
}

// OpenLogFile opens path for appending, creating parent dirs. An empty path
// means stderr.
func OpenLogFile(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stderr}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// ParseLogLevel converts a string level name to slog.Level.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// lockedWriter is shared by every handler derived via With, so records from
// different workers never interleave mid-line.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) write(p []byte) error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	_, err := lw.w.Write(p)
	return err
}

// prettyHandler outputs: [2026-02-21 5:10:39 PM PST] WARN: worker(Chelsea): message k=v
// Every record carries its level token.
type prettyHandler struct {
	out    *lockedWriter
	level  slog.Level
	worker string
	attrs  []slog.Attr
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(r.Time.Format("2006-01-02 3:04:05 PM MST"))
	b.WriteString("] ")

	switch {
	case r.Level >= slog.LevelError:
		b.WriteString("ERROR: ")
	case r.Level >= slog.LevelWarn:
		b.WriteString("WARN: ")
	case r.Level >= slog.LevelInfo:
		b.WriteString("INFO: ")
	default:
		b.WriteString("DEBUG: ")
	}

	worker := h.worker
	var extra []slog.Attr
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == WorkerKey {
			worker = a.Value.String()
			return true
		}
		extra = append(extra, a)
		return true
	})
	if worker != "" {
		fmt.Fprintf(&b, "worker(%s): ", worker)
	}
	b.WriteString(r.Message)

	all := make([]slog.Attr, 0, len(h.attrs)+len(extra))
	all = append(all, h.attrs...)
	for _, a := range append(all, extra...) {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value.Any())
	}
	b.WriteByte('\n')

	return h.out.write([]byte(b.String()))
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		if a.Key == WorkerKey {
			nh.worker = a.Value.String()
			continue
		}
		nh.attrs = append(nh.attrs, a)
	}
	return &nh
}

func (h *prettyHandler) WithGroup(_ string) slog.Handler { return h }
