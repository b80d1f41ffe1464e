package embedder

import (
	"context"
	"fmt"
	"sync"

	"github.com/soundprediction/go-embedeverything/pkg/embedder"
)

// EmbedEverythingClient implements the Client interface with a local model.
type EmbedEverythingClient struct {
	mu     sync.Mutex
	client *embedder.Embedder
	config Config
	dims   int
}

// NewEmbedEverythingClient loads the model named in config. An empty model
// uses all-MiniLM-L6-v2.
func NewEmbedEverythingClient(config Config) (*EmbedEverythingClient, error) {
	config = config.withDefaults("all-MiniLM-L6-v2")

	client, err := embedder.NewEmbedder(config.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return &EmbedEverythingClient{
		client: client,
		config: config,
		dims:   config.Dimensions,
	}, nil
}

// Embed generates embeddings for the given texts. The model is not safe for
// concurrent use, so calls are serialised.
func (e *EmbedEverythingClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	// go-embedeverything does not support context yet
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	embeddings, err := e.client.Embed(texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embeddings) > 0 && e.dims == 0 {
		e.dims = len(embeddings[0])
	}
	return embeddings, nil
}

// EmbedSingle generates an embedding for a single text.
func (e *EmbedEverythingClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return embeddings[0], nil
}

// Dimensions returns the number of dimensions in the embeddings.
func (e *EmbedEverythingClient) Dimensions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dims
}

// Close cleans up any resources.
func (e *EmbedEverythingClient) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.client.Close()
	return nil
}
