package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// plainHandler is a minimal slog.Handler that prints only the message
// (prefixed by the intention icon, if any) and appends key=value pairs,
// without time/level decorations. Intended for clean console output.
type plainHandler struct {
	w       io.Writer
	attrs   []slog.Attr
	mu      sync.Mutex
	leveler slog.Leveler
}

func newPlainHandler(w io.Writer, leveler slog.Leveler) slog.Handler {
	return &plainHandler{w: w, leveler: leveler}
}

// metaKeys are attributes carried for file logs and consumers but hidden
// from the console line.
var metaKeys = map[string]bool{
	"intention": true,
	"time":      true,
	"level":     true,
	"msg":       true,
	"component": true,
	"session":   true,
}

// Enabled implements slog.Handler by checking level
func (h *plainHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	if h.leveler == nil {
		return true
	}
	return lvl >= h.leveler.Level()
}

// Handle prints the message and key=value pairs without time/level prefixes
func (h *plainHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Extract intention (from bound attrs or record attrs)
	intention := ""
	probe := func(a slog.Attr) {
		if a.Key == "intention" {
			if s, ok := a.Value.Any().(string); ok {
				intention = s
			} else {
				intention = a.Value.String()
			}
		}
	}
	walkAttrs(h.attrs, probe)
	r.Attrs(func(a slog.Attr) bool {
		walkAttrs([]slog.Attr{a}, probe)
		return true
	})

	// Build a single line: icon (from intention) + message plus key=val pairs
	icon := ""
	if intention != "" {
		icon = iconFor(Intention(intention)) + " "
	}
	line := icon + r.Message

	appendAttr := func(a slog.Attr) {
		if !metaKeys[a.Key] {
			line += fmt.Sprintf(" %s=%v", a.Key, a.Value)
		}
	}
	walkAttrs(h.attrs, appendAttr)
	r.Attrs(func(a slog.Attr) bool {
		walkAttrs([]slog.Attr{a}, appendAttr)
		return true
	})

	if _, err := fmt.Fprintln(h.w, line); err != nil {
		return err
	}
	return nil
}

// walkAttrs visits each attribute, flattening one level of grouping.
func walkAttrs(attrs []slog.Attr, visit func(slog.Attr)) {
	for _, a := range attrs {
		if a.Value.Kind() == slog.KindGroup {
			for _, ga := range a.Value.Group() {
				visit(ga)
			}
		} else {
			visit(a)
		}
	}
}

// WithAttrs returns a new handler with additional attributes bound
func (h *plainHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := &plainHandler{w: h.w, leveler: h.leveler}
	nh.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return nh
}

// WithGroup groups attributes; for plain output we encode as a group attr
func (h *plainHandler) WithGroup(name string) slog.Handler {
	nh := &plainHandler{w: h.w, leveler: h.leveler}
	nh.attrs = append(append([]slog.Attr{}, h.attrs...), slog.Group(name))
	return nh
}
