package nlp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"github.com/soundprediction/mindgraph/pkg/types"
)

// TokenUsageRecord represents a single log entry for token usage
type TokenUsageRecord struct {
	ID               string    `parquet:"id"`
	Timestamp        time.Time `parquet:"timestamp"`
	Model            string    `parquet:"model"`
	TotalTokens      int       `parquet:"total_tokens"`
	PromptTokens     int       `parquet:"prompt_tokens"`
	CompletionTokens int       `parquet:"completion_tokens"`
	EstimatedCost    float64   `parquet:"estimated_cost"`
	UserID           string    `parquet:"user_id"`
	SessionID        string    `parquet:"session_id"`
	RequestSource    string    `parquet:"request_source"`
	RequestID        string    `parquet:"request_id"`
	GraphID          string    `parquet:"graph_id"`
}

// modelPrice is USD per million prompt and completion tokens.
type modelPrice struct {
	prompt     float64
	completion float64
}

var modelPrices = map[string]modelPrice{
	"gpt-4o":        {prompt: 2.50, completion: 10.00},
	"gpt-4o-mini":   {prompt: 0.15, completion: 0.60},
	"gpt-4.1":       {prompt: 2.00, completion: 8.00},
	"gpt-4.1-mini":  {prompt: 0.40, completion: 1.60},
	"gpt-3.5-turbo": {prompt: 0.50, completion: 1.50},
}

// EstimateCost returns the approximate USD cost of a completion. Unknown
// models, including local ones, cost nothing.
func EstimateCost(model string, promptTokens, completionTokens int) float64 {
	price, ok := modelPrices[model]
	if !ok {
		// Dated snapshots such as gpt-4o-mini-2024-07-18 use the family price.
		best := ""
		for name := range modelPrices {
			if strings.HasPrefix(model, name+"-") && len(name) > len(best) {
				best = name
			}
		}
		if best == "" {
			return 0
		}
		price = modelPrices[best]
	}
	return (float64(promptTokens)*price.prompt + float64(completionTokens)*price.completion) / 1e6
}

// ParquetTokenTracker handles persistence of token usage stats to Parquet files
type ParquetTokenTracker struct {
	outputDir string
	mu        sync.Mutex
	buffer    []TokenUsageRecord
	batchSize int
	logger    *slog.Logger
}

// NewTokenTracker creates a new token tracker writing to a directory
func NewTokenTracker(outputDir string) (*ParquetTokenTracker, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create token tracking directory: %w", err)
	}

	tracker := &ParquetTokenTracker{
		outputDir: outputDir,
		buffer:    make([]TokenUsageRecord, 0, 100),
		batchSize: 100,
		logger:    slog.Default(),
	}

	return tracker, nil
}

// AddUsage adds usage to the tracker
func (t *ParquetTokenTracker) AddUsage(ctx context.Context, usage *types.TokenUsage, model string) error {
	if usage == nil {
		return nil
	}

	record := TokenUsageRecord{
		ID:               uuid.New().String(),
		Timestamp:        time.Now().UTC(),
		Model:            model,
		TotalTokens:      usage.TotalTokens,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		EstimatedCost:    EstimateCost(model, usage.PromptTokens, usage.CompletionTokens),
	}

	// Extract context
	if v, ok := ctx.Value(types.ContextKeyUserID).(string); ok {
		record.UserID = v
	}
	if v, ok := ctx.Value(types.ContextKeySessionID).(string); ok {
		record.SessionID = v
	}
	if v, ok := ctx.Value(types.ContextKeyRequestSource).(string); ok {
		record.RequestSource = v
	}
	if v, ok := ctx.Value(types.ContextKeyRequestID).(string); ok {
		record.RequestID = v
	}
	if v, ok := ctx.Value(types.ContextKeyGraphID).(string); ok {
		record.GraphID = v
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.buffer = append(t.buffer, record)

	if len(t.buffer) >= t.batchSize {
		return t.flush()
	}

	return nil
}

// Close writes any buffered records.
func (t *ParquetTokenTracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flush()
}

// flush writes the current buffer to a new Parquet file
// Caller must hold the lock
func (t *ParquetTokenTracker) flush() error {
	if len(t.buffer) == 0 {
		return nil
	}

	now := time.Now()
	filename := fmt.Sprintf("token_usage_%s_%d.parquet", now.Format("20060102_150405"), now.UnixNano())
	path := filepath.Join(t.outputDir, filename)

	if err := parquet.WriteFile(path, t.buffer); err != nil {
		t.logger.Error("failed to write token usage parquet file", "path", path, "error", err)
		return err
	}

	t.buffer = t.buffer[:0]
	return nil
}

// TokenTrackingClient wraps a Client to track usage
type TokenTrackingClient struct {
	client  Client
	tracker *ParquetTokenTracker
}

// NewTokenTrackingClient creates a wrapper client
func NewTokenTrackingClient(client Client, tracker *ParquetTokenTracker) *TokenTrackingClient {
	return &TokenTrackingClient{
		client:  client,
		tracker: tracker,
	}
}

// Chat implements Client
func (c *TokenTrackingClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	resp, err := c.client.Chat(ctx, messages)
	if err != nil {
		return nil, err
	}
	c.record(ctx, resp)
	return resp, nil
}

// ChatWithStructuredOutput implements Client
func (c *TokenTrackingClient) ChatWithStructuredOutput(ctx context.Context, messages []types.Message, schema any) (*types.Response, error) {
	resp, err := c.client.ChatWithStructuredOutput(ctx, messages, schema)
	if err != nil {
		return nil, err
	}
	c.record(ctx, resp)
	return resp, nil
}

func (c *TokenTrackingClient) record(ctx context.Context, resp *types.Response) {
	if resp == nil || resp.TokensUsed == nil {
		return
	}
	model := resp.Model
	if model == "" {
		model = "unknown"
	}
	if err := c.tracker.AddUsage(ctx, resp.TokensUsed, model); err != nil {
		c.tracker.logger.WarnContext(ctx, "failed to log token usage", "error", err)
	}
}

// GetCapabilities returns the list of capabilities supported by this client.
func (c *TokenTrackingClient) GetCapabilities() []TaskCapability {
	return c.client.GetCapabilities()
}

// Close implements Client
func (c *TokenTrackingClient) Close() error {
	flushErr := c.tracker.Close()
	if err := c.client.Close(); err != nil {
		return err
	}
	return flushErr
}
