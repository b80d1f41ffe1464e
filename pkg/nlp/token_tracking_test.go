package nlp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/soundprediction/mindgraph/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParquetTokenTracker(t *testing.T) {
	tokenDir := filepath.Join(t.TempDir(), "tokens")

	tracker, err := NewTokenTracker(tokenDir)
	require.NoError(t, err)
	tracker.batchSize = 1 // flush on every write

	ctx := context.Background()
	ctx = context.WithValue(ctx, types.ContextKeyUserID, "test-user")
	ctx = context.WithValue(ctx, types.ContextKeySessionID, "test-session")
	ctx = context.WithValue(ctx, types.ContextKeyRequestSource, "test-source")
	ctx = context.WithValue(ctx, types.ContextKeyGraphID, "graph_0123456789ab")

	usage := &types.TokenUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30}
	require.NoError(t, tracker.AddUsage(ctx, usage, "gpt-4o-mini"))

	entries, err := os.ReadDir(tokenDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "token_usage_"))
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".parquet"))

	rows, err := parquet.ReadFile[TokenUsageRecord](filepath.Join(tokenDir, entries[0].Name()))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "test-user", rows[0].UserID)
	assert.Equal(t, "graph_0123456789ab", rows[0].GraphID)
	assert.Equal(t, 30, rows[0].TotalTokens)
	assert.Greater(t, rows[0].EstimatedCost, 0.0)
}

func TestTokenTrackerCloseFlushes(t *testing.T) {
	dir := t.TempDir()
	tracker, err := NewTokenTracker(dir)
	require.NoError(t, err)

	require.NoError(t, tracker.AddUsage(context.Background(), &types.TokenUsage{TotalTokens: 5}, "local"))
	require.NoError(t, tracker.AddUsage(context.Background(), nil, "local"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, tracker.Close())
	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestTokenTrackingClient(t *testing.T) {
	dir := t.TempDir()
	tracker, err := NewTokenTracker(dir)
	require.NoError(t, err)

	mock := &mockClient{responseToReturn: &types.Response{
		Content:    "ok",
		Model:      "gpt-4o",
		TokensUsed: &types.TokenUsage{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2},
	}}
	client := NewTokenTrackingClient(mock, tracker)

	resp, err := client.Chat(context.Background(), testMessages)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Len(t, tracker.buffer, 1)

	require.NoError(t, client.Close())
	assert.True(t, mock.closed)
	assert.Empty(t, tracker.buffer)
}

func TestEstimateCost(t *testing.T) {
	tests := []struct {
		model string
		want  float64
	}{
		{model: "gpt-4o-mini", want: (1000*0.15 + 1000*0.60) / 1e6},
		{model: "gpt-4o-mini-2024-07-18", want: (1000*0.15 + 1000*0.60) / 1e6},
		{model: "gpt-4o", want: (1000*2.50 + 1000*10.00) / 1e6},
		{model: "all-MiniLM-L6-v2", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.InDelta(t, tt.want, EstimateCost(tt.model, 1000, 1000), 1e-12)
		})
	}
}
