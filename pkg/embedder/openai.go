package embedder

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder implements Client with the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	config Config
}

// NewOpenAIEmbedder creates an embedder. An empty model uses text-embedding-3-small.
func NewOpenAIEmbedder(apiKey string, config Config) *OpenAIEmbedder {
	config = config.withDefaults(string(openai.SmallEmbedding3))
	if config.Dimensions <= 0 {
		config.Dimensions = 1536
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if config.BaseURL != "" {
		base := strings.TrimRight(config.BaseURL, "/")
		if !strings.HasSuffix(base, "/v1") {
			base += "/v1"
		}
		clientConfig.BaseURL = base
	}

	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}
}

// Embed generates embeddings for the given texts.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.config.BatchSize {
		end := min(start+e.config.BatchSize, len(texts))
		req := openai.EmbeddingRequest{
			Input: texts[start:end],
			Model: openai.EmbeddingModel(e.config.Model),
		}
		// Only the v3 models accept a reduced dimension.
		if strings.HasPrefix(e.config.Model, "text-embedding-3") && e.config.Dimensions != KnownDimensions(e.config.Model) {
			req.Dimensions = e.config.Dimensions
		}

		resp, err := e.client.CreateEmbeddings(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("openai embeddings failed: %w", err)
		}
		if len(resp.Data) != end-start {
			return nil, fmt.Errorf("openai embeddings returned %d vectors for %d texts", len(resp.Data), end-start)
		}

		data := resp.Data
		sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })
		for _, d := range data {
			out = append(out, d.Embedding)
		}
	}
	return out, nil
}

// EmbedSingle generates an embedding for a single text.
func (e *OpenAIEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
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
func (e *OpenAIEmbedder) Dimensions() int {
	return e.config.Dimensions
}

// Close cleans up resources (no-op for OpenAI).
func (e *OpenAIEmbedder) Close() error {
	return nil
}
