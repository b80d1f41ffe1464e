// Package logger provides slog handlers used by the command line tools and the
// HTTP server.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/soundprediction/mindgraph/pkg/config"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
)

// Info messages containing any of these are highlighted in green.
var persistenceKeywords = []string{"persist", "saved", "snapshot", "loaded from"}

// ColorHandler is a slog.Handler writing single-line records with coloured
// levels. Warnings are yellow, errors red and storage messages green.
type ColorHandler struct {
	w      io.Writer
	level  slog.Leveler
	color  bool
	mu     *sync.Mutex
	prefix string // qualified group prefix, e.g. "request."
	attrs  []byte // preformatted attributes from WithAttrs
}

// NewColorHandler creates a ColorHandler. A nil opts logs at info level.
func NewColorHandler(w io.Writer, opts *slog.HandlerOptions) *ColorHandler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &ColorHandler{
		w:     w,
		level: level,
		color: true,
		mu:    &sync.Mutex{},
	}
}

// WithoutColor disables escape sequences, for files and tests.
func (h *ColorHandler) WithoutColor() *ColorHandler {
	c := *h
	c.color = false
	return &c
}

// Enabled implements slog.Handler
func (h *ColorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler
func (h *ColorHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 256)
	if !r.Time.IsZero() {
		buf = append(buf, r.Time.Format("2006-01-02 15:04:05.000")...)
		buf = append(buf, ' ')
	}

	color := h.colorFor(r)
	if color != "" {
		buf = append(buf, color...)
	}
	buf = append(buf, fmt.Sprintf("%-5s", r.Level.String())...)
	buf = append(buf, ' ')
	buf = append(buf, r.Message...)
	if color != "" {
		buf = append(buf, colorReset...)
	}

	buf = append(buf, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		buf = appendAttr(buf, h.prefix, a)
		return true
	})
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

func (h *ColorHandler) colorFor(r slog.Record) string {
	if !h.color {
		return ""
	}
	switch {
	case r.Level >= slog.LevelError:
		return colorRed
	case r.Level >= slog.LevelWarn:
		return colorYellow
	case r.Level < slog.LevelInfo:
		return colorGray
	}
	msg := strings.ToLower(r.Message)
	for _, kw := range persistenceKeywords {
		if strings.Contains(msg, kw) {
			return colorGreen
		}
	}
	return ""
}

// WithAttrs implements slog.Handler
func (h *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append([]byte(nil), h.attrs...)
	for _, a := range attrs {
		c.attrs = appendAttr(c.attrs, h.prefix, a)
	}
	return &c
}

// WithGroup implements slog.Handler
func (h *ColorHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = h.prefix + name + "."
	return &c
}

func appendAttr(buf []byte, prefix string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return buf
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			buf = appendAttr(buf, p, ga)
		}
		return buf
	}
	buf = append(buf, ' ')
	buf = append(buf, prefix...)
	buf = append(buf, a.Key...)
	buf = append(buf, '=')
	s := a.Value.String()
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		s = strconv.Quote(s)
	}
	return append(buf, s...)
}

// ParseLevel maps a config level name to a slog level. Unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewDefaultLogger returns a coloured logger on stderr.
func NewDefaultLogger(level slog.Level) *slog.Logger {
	return slog.New(NewColorHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewHandler builds the handler selected by cfg.Format: json, text or color.
func NewHandler(w io.Writer, cfg config.LogConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	switch strings.ToLower(cfg.Format) {
	case "json":
		return slog.NewJSONHandler(w, opts)
	case "text":
		return slog.NewTextHandler(w, opts)
	}
	return NewColorHandler(w, opts)
}
