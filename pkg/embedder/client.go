package embedder

import (
	"context"
)

// Client embeds text.
type Client interface {
	// Embed returns one vector per text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle is a convenience wrapper around Embed.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector length, or 0 when unknown until first use.
	Dimensions() int

	// Close releases resources.
	Close() error
}

// Config holds embedder settings shared by providers.
type Config struct {
	Model      string `json:"model"`
	BaseURL    string `json:"base_url,omitempty"`
	Dimensions int    `json:"dimensions,omitempty"`
	BatchSize  int    `json:"batch_size,omitempty"`
}

// DefaultBatchSize is the number of texts sent per request.
const DefaultBatchSize = 100

var knownDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
	"all-MiniLM-L6-v2":       384,
	"all-mpnet-base-v2":      768,
	"bge-small-en-v1.5":      384,
	"bge-base-en-v1.5":       768,
}

// KnownDimensions returns the native vector length of a model, or 0.
func KnownDimensions(model string) int {
	return knownDimensions[model]
}

func (c Config) withDefaults(defaultModel string) Config {
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Dimensions <= 0 {
		c.Dimensions = KnownDimensions(c.Model)
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	return c
}
