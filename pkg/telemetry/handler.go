// Package telemetry persists error-level log records to parquet files for
// offline analysis.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"github.com/soundprediction/mindgraph/pkg/types"
)

// DefaultBatchSize is the number of records buffered before a file is written.
const DefaultBatchSize = 100

// LogRecord represents a single log entry for Parquet storage
type LogRecord struct {
	ID            string    `parquet:"id"`
	Timestamp     time.Time `parquet:"timestamp"`
	Level         string    `parquet:"level"`
	Message       string    `parquet:"message"`
	UserID        string    `parquet:"user_id"`
	SessionID     string    `parquet:"session_id"`
	RequestSource string    `parquet:"request_source"`
	RequestID     string    `parquet:"request_id"`
	GraphID       string    `parquet:"graph_id"`
	SourceFile    string    `parquet:"source_file"`
	LineNumber    int       `parquet:"line_number"`
	Attributes    string    `parquet:"attributes"` // JSON string
}

// sink is the buffer shared by a handler and the handlers derived from it.
type sink struct {
	outputDir string
	batchSize int
	mu        sync.Mutex
	buffer    []LogRecord
}

// ParquetHandler is a slog.Handler that forwards every record to next and
// additionally writes error records to Parquet files.
type ParquetHandler struct {
	next  slog.Handler
	sink  *sink
	attrs []slog.Attr
}

// NewParquetHandler creates a new ParquetHandler
func NewParquetHandler(next slog.Handler, outputDir string) (*ParquetHandler, error) {
	return NewParquetHandlerWithBatch(next, outputDir, DefaultBatchSize)
}

// NewParquetHandlerWithBatch creates a ParquetHandler flushing every batchSize records.
func NewParquetHandlerWithBatch(next slog.Handler, outputDir string, batchSize int) (*ParquetHandler, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &ParquetHandler{
		next: next,
		sink: &sink{
			outputDir: outputDir,
			batchSize: batchSize,
			buffer:    make([]LogRecord, 0, batchSize),
		},
	}, nil
}

// Enabled implements slog.Handler
func (h *ParquetHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler
func (h *ParquetHandler) Handle(ctx context.Context, r slog.Record) error {
	// Always pass to next handler first
	if err := h.next.Handle(ctx, r); err != nil {
		return err
	}

	if r.Level < slog.LevelError {
		return nil
	}

	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Resolve().Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		v := a.Value.Resolve().Any()
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		attrs[a.Key] = v
		return true
	})
	attrsJSON, err := json.Marshal(attrs)
	if err != nil {
		attrsJSON = []byte("{}")
	}

	record := LogRecord{
		ID:            uuid.New().String(),
		Timestamp:     r.Time.UTC(),
		Level:         r.Level.String(),
		Message:       r.Message,
		UserID:        contextString(ctx, types.ContextKeyUserID),
		SessionID:     contextString(ctx, types.ContextKeySessionID),
		RequestSource: contextString(ctx, types.ContextKeyRequestSource),
		RequestID:     contextString(ctx, types.ContextKeyRequestID),
		GraphID:       contextString(ctx, types.ContextKeyGraphID),
		Attributes:    string(attrsJSON),
	}
	if gid, ok := attrs["graph_id"].(string); ok && record.GraphID == "" {
		record.GraphID = gid
	}

	if r.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := fs.Next()
		record.SourceFile = f.File
		record.LineNumber = f.Line
	}

	return h.sink.add(record)
}

// Flush writes buffered records immediately.
func (h *ParquetHandler) Flush() error {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	return h.sink.flush()
}

// Close flushes the remaining records.
func (h *ParquetHandler) Close() error {
	return h.Flush()
}

func (s *sink) add(record LogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffer = append(s.buffer, record)
	if len(s.buffer) >= s.batchSize {
		return s.flush()
	}
	return nil
}

// flush writes the current buffer to a new Parquet file
// Caller must hold the lock
func (s *sink) flush() error {
	if len(s.buffer) == 0 {
		return nil
	}

	now := time.Now()
	filename := fmt.Sprintf("execution_errors_%s_%d.parquet", now.Format("20060102_150405"), now.UnixNano())
	path := filepath.Join(s.outputDir, filename)

	if err := parquet.WriteFile(path, s.buffer); err != nil {
		// The handler must not log through itself here.
		fmt.Fprintf(os.Stderr, "failed to write telemetry parquet file: %v\n", err)
		return err
	}

	s.buffer = s.buffer[:0]
	return nil
}

// WithAttrs implements slog.Handler
func (h *ParquetHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ParquetHandler{
		next:  h.next.WithAttrs(attrs),
		sink:  h.sink,
		attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
}

// WithGroup implements slog.Handler
func (h *ParquetHandler) WithGroup(name string) slog.Handler {
	return &ParquetHandler{
		next:  h.next.WithGroup(name),
		sink:  h.sink,
		attrs: h.attrs,
	}
}

func contextString(ctx context.Context, key any) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}
