// Package logger provides a structured, leveled, redacting logger:
// console and/or file sinks, optional time/size rotation, and
// mandatory secret redaction ahead of every sink. Context propagation
// uses a context-scoped *slog.Logger (github.com/rakunlabs/logi), so
// internal/transfer can fetch a per-run logger tagged with its run id.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rakunlabs/logi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level aliases slog.Level: DEBUG < INFO < WARN < ERROR.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// RotateConfig enables time/size-bounded file rotation via lumberjack.
// When nil, the file sink falls back to plain os.OpenFile append.
type RotateConfig struct {
	MaxSizeMB  int // e.g. 10 for "10m"
	MaxBackups int
	MaxAgeDays int
}

// Config controls which sinks are active and at what level.
type Config struct {
	Level          Level
	ConsoleEnabled bool
	FileEnabled    bool
	FilePath       string // default "<workdir>/logs/transfer.log"
	Rotate         *RotateConfig
}

// DefaultFilePath is the default file sink location.
const DefaultFilePath = "logs/transfer.log"

// Logger wraps a *slog.Logger built from the sinks in Config, applying
// redaction to every record before any sink sees it.
type Logger struct {
	*slog.Logger
	closers []io.Closer
}

// New builds a Logger from cfg. At least one sink should be enabled;
// if neither is, records are simply dropped (useful for tests).
func New(cfg Config) (*Logger, error) {
	var handlers []slog.Handler
	var closers []io.Closer

	opts := &slog.HandlerOptions{Level: cfg.Level}

	if cfg.ConsoleEnabled {
		handlers = append(handlers, newConsoleHandler(os.Stdout, opts))
	}

	if cfg.FileEnabled {
		path := cfg.FilePath
		if path == "" {
			path = DefaultFilePath
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("logger: create log directory: %w", err)
		}

		var w io.WriteCloser
		if cfg.Rotate != nil {
			w = &lumberjack.Logger{
				Filename:   path,
				MaxSize:    cfg.Rotate.MaxSizeMB,
				MaxBackups: cfg.Rotate.MaxBackups,
				MaxAge:     cfg.Rotate.MaxAgeDays,
				Compress:   false,
			}
		} else {
			f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, fmt.Errorf("logger: open log file: %w", err)
			}
			w = f
		}

		closers = append(closers, w)
		handlers = append(handlers, slog.NewTextHandler(w, opts))
	}

	var base slog.Handler
	switch len(handlers) {
	case 0:
		base = slog.NewTextHandler(io.Discard, opts)
	case 1:
		base = handlers[0]
	default:
		base = fanoutHandler{handlers: handlers}
	}

	l := slog.New(redactHandler{next: base})
	if err := logi.SetLogLevel(levelName(cfg.Level)); err != nil {
		return nil, fmt.Errorf("logger: set level: %w", err)
	}

	return &Logger{Logger: l, closers: closers}, nil
}

// Close flushes and releases any file handles opened by this Logger.
// TransferManager never calls it: the caller that built the Logger
// closes it.
func (l *Logger) Close() error {
	var firstErr error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// WithContext attaches logger to ctx so downstream code can retrieve it
// with FromContext.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return logi.WithContext(ctx, l)
}

// FromContext retrieves the logger attached to ctx, or a disabled
// default logger if none was attached.
func FromContext(ctx context.Context) *slog.Logger {
	return logi.Ctx(ctx)
}

// ParseLevel maps a CLI-supplied level name to a Level, defaulting to
// LevelInfo for anything unrecognized.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func levelName(l Level) string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

var levelColor = map[slog.Level]lipgloss.Color{
	LevelDebug: lipgloss.Color("245"), // grey
	LevelInfo:  lipgloss.Color("39"),  // blue
	LevelWarn:  lipgloss.Color("214"), // orange
	LevelError: lipgloss.Color("196"), // red
}

func colorForLevel(l slog.Level) lipgloss.Style {
	c, ok := levelColor[l]
	if !ok {
		c = lipgloss.Color("255")
	}
	return lipgloss.NewStyle().Foreground(c).Bold(true)
}

// consoleHandler writes one line per record: an RFC3339 timestamp, the
// level name in color, the message, then the record's own attrs as
// key=value. The embedded text handler only supplies Enabled; attrs
// attached through WithAttrs are not printed on the console.
type consoleHandler struct {
	slog.Handler
	out io.Writer
}

func newConsoleHandler(w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	return &consoleHandler{
		Handler: slog.NewTextHandler(w, opts),
		out:     w,
	}
}

func (h *consoleHandler) Handle(ctx context.Context, r slog.Record) error {
	style := colorForLevel(r.Level)
	ts := r.Time.Format(time.RFC3339)
	fmt.Fprintf(h.out, "%s %s %s", ts, style.Render(r.Level.String()), r.Message)
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(h.out, " %s=%v", a.Key, a.Value)
		return true
	})
	fmt.Fprintln(h.out)
	return nil
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &consoleHandler{Handler: h.Handler.WithAttrs(attrs), out: h.out}
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	return &consoleHandler{Handler: h.Handler.WithGroup(name), out: h.out}
}

// fanoutHandler dispatches one record to every underlying handler.
type fanoutHandler struct {
	handlers []slog.Handler
}

func (f fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return fanoutHandler{handlers: next}
}

func (f fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithGroup(name)
	}
	return fanoutHandler{handlers: next}
}

// redactHandler sanitizes the message and every attribute's serialized
// form before handing the record to next. This is the mandatory
// redaction pass; it runs ahead of all sinks, including the console.
type redactHandler struct {
	next slog.Handler
}

func (h redactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h redactHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, Redact(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(redactAttr(a))
		return true
	})
	return h.next.Handle(ctx, clean)
}

func redactAttr(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, Redact(a.Value.String()))
	default:
		return slog.String(a.Key, Redact(fmt.Sprintf("%v", a.Value.Any())))
	}
}

func (h redactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = redactAttr(a)
	}
	return redactHandler{next: h.next.WithAttrs(clean)}
}

func (h redactHandler) WithGroup(name string) slog.Handler {
	return redactHandler{next: h.next.WithGroup(name)}
}
