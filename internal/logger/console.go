// Package logger provides the console slog handler used by the triagescan
// CLI.
//
// Records are written one per line as "[HH:MM:SS] LEVEL message key=value".
// Color is enabled only when the writer is a terminal.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ParseLevel converts a level name to a slog.Level.
// Valid levels: debug, info, warn, error (case-insensitive).
// Empty names mean info. Unknown names yield info with ok false.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "", "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// ConsoleHandler is a slog.Handler writing human-readable lines.
type ConsoleHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	level slog.Leveler
	color bool
	now   func() time.Time

	attrs  []slog.Attr
	groups []string
}

// NewConsoleHandler creates a ConsoleHandler writing to w.
// If w is nil, output is discarded.
func NewConsoleHandler(w io.Writer, level slog.Leveler) *ConsoleHandler {
	if w == nil {
		w = io.Discard
	}

	if level == nil {
		level = slog.LevelInfo
	}

	return &ConsoleHandler{
		mu:    &sync.Mutex{},
		w:     w,
		level: level,
		color: isTerminal(w),
		now:   time.Now,
	}
}

// New returns a logger writing to w at the named level.
func New(w io.Writer, levelName string) *slog.Logger {
	level, _ := ParseLevel(levelName)

	return slog.New(NewConsoleHandler(w, level))
}

// isTerminal reports whether w is a TTY that should receive colors.
// NO_COLOR (honored by fatih/color) turns colors off everywhere.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || color.NoColor {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Enabled implements slog.Handler.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = h.now()
	}

	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s %s", ts.Format("15:04:05"), h.levelLabel(r.Level), r.Message)

	prefix := strings.Join(h.groups, ".")

	for _, a := range h.attrs {
		h.appendAttr(&b, "", a)
	}

	r.Attrs(func(a slog.Attr) bool {
		h.appendAttr(&b, prefix, a)

		return true
	})

	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := io.WriteString(h.w, b.String())
	if err != nil {
		return fmt.Errorf("write log record: %w", err)
	}

	return nil
}

// WithAttrs implements slog.Handler.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	h2 := *h
	h2.attrs = append(append([]slog.Attr(nil), h.attrs...), h.qualify(attrs)...)

	return &h2
}

// WithGroup implements slog.Handler.
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	h2 := *h
	h2.groups = append(append([]string(nil), h.groups...), name)

	return &h2
}

// qualify bakes the current group prefix into attrs added via WithAttrs so a
// later WithGroup does not rename them.
func (h *ConsoleHandler) qualify(attrs []slog.Attr) []slog.Attr {
	if len(h.groups) == 0 {
		return attrs
	}

	prefix := strings.Join(h.groups, ".")
	out := make([]slog.Attr, 0, len(attrs))

	for _, a := range attrs {
		out = append(out, slog.Attr{Key: prefix + "." + a.Key, Value: a.Value})
	}

	return out
}

func (h *ConsoleHandler) appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			h.appendAttr(b, key, ga)
		}

		return
	}

	b.WriteByte(' ')

	if h.color {
		b.WriteString(color.New(color.FgCyan).Sprint(key))
	} else {
		b.WriteString(key)
	}

	b.WriteByte('=')
	fmt.Fprintf(b, "%q", a.Value.String())
}

func (h *ConsoleHandler) levelLabel(level slog.Level) string {
	label := level.String()
	if !h.color {
		return label
	}

	switch {
	case level >= slog.LevelError:
		return color.New(color.FgRed, color.Bold).Sprint(label)
	case level >= slog.LevelWarn:
		return color.New(color.FgYellow).Sprint(label)
	case level >= slog.LevelInfo:
		return color.New(color.FgGreen).Sprint(label)
	default:
		return color.New(color.FgHiBlack).Sprint(label)
	}
}
