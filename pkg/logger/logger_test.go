package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/soundprediction/mindgraph/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestColorHandlerFormatsRecords(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewColorHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}).WithoutColor())

	log.With("graph_id", "graph_abc").WithGroup("build").Info("graph built", "nodes", 3, "note", "two words")

	line := buf.String()
	assert.Contains(t, line, "INFO  graph built")
	assert.Contains(t, line, " graph_id=graph_abc")
	assert.Contains(t, line, " build.nodes=3")
	assert.Contains(t, line, ` build.note="two words"`)
	assert.True(t, strings.HasSuffix(line, "\n"))
	assert.NotContains(t, line, "\033[")
}

func TestColorHandlerColours(t *testing.T) {
	tests := []struct {
		name  string
		log   func(l *slog.Logger)
		color string
	}{
		{name: "error", log: func(l *slog.Logger) { l.Error("boom") }, color: colorRed},
		{name: "warn", log: func(l *slog.Logger) { l.Warn("careful") }, color: colorYellow},
		{name: "persistence", log: func(l *slog.Logger) { l.Info("Graph persisted") }, color: colorGreen},
		{name: "debug", log: func(l *slog.Logger) { l.Debug("detail") }, color: colorGray},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(slog.New(NewColorHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
			assert.Contains(t, buf.String(), tt.color)
			assert.Contains(t, buf.String(), colorReset)
		})
	}
}

func TestColorHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewColorHandler(&buf, nil))
	log.Debug("hidden")
	assert.Empty(t, buf.String())
	log.Info("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewHandler(t *testing.T) {
	var buf bytes.Buffer
	_, isJSON := NewHandler(&buf, config.LogConfig{Format: "json"}).(*slog.JSONHandler)
	assert.True(t, isJSON)
	_, isText := NewHandler(&buf, config.LogConfig{Format: "text"}).(*slog.TextHandler)
	assert.True(t, isText)
	_, isColor := NewHandler(&buf, config.LogConfig{}).(*ColorHandler)
	assert.True(t, isColor)
}
