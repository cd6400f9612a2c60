package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"rufas/internal/rufas"
)

// LogFileName is the log file written under the configured log directory.
const LogFileName = "rufas.log"

// rufasHandler is a custom slog.Handler that formats log records as:
//
//	<timestamp>\t<level>\t<sessionID>\t<message>\t<key=value ...>
type rufasHandler struct {
	w         io.Writer
	level     slog.Level
	sessionID string
	attrs     []slog.Attr
}

func (h *rufasHandler) Enabled(_ context.Context, level slog.Level) bool { return level >= h.level }

func (h *rufasHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time.UTC().Format("2006-01-02T15:04:05Z")
	level := r.Level.String()

	_, err := fmt.Fprintf(h.w, "%s\t%s\t%s\t%s", ts, level, h.sessionID, r.Message)
	if err != nil {
		return err
	}

	for _, a := range h.attrs {
		fmt.Fprintf(h.w, "\t%s=%v", a.Key, a.Value)
	}

	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(h.w, "\t%s=%v", a.Key, a.Value)
		return true
	})

	_, err = fmt.Fprintln(h.w)
	return err
}

func (h *rufasHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &rufasHandler{
		w:         h.w,
		level:     h.level,
		sessionID: h.sessionID,
		attrs:     append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *rufasHandler) WithGroup(string) slog.Handler { return h }

// newLogger creates a structured logger that appends to logDir/rufas.log and,
// when mirror is non-nil, copies every line to mirror as well.
// It returns the slog.Logger, the open log file (for cleanup), and any error.
func newLogger(logDir, sessionID string, level slog.Level, mirror io.Writer) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	logPath := filepath.Join(logDir, LogFileName)
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	var w io.Writer = f
	if mirror != nil {
		w = io.MultiWriter(f, mirror)
	}
	handler := &rufasHandler{w: w, level: level, sessionID: sessionID}
	return slog.New(handler), f, nil
}

// slogAdapter wraps *slog.Logger to satisfy the rufas.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

var _ rufas.Logger = (*slogAdapter)(nil)

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
