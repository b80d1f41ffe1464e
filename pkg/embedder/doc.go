// Package embedder provides text embedding clients used to place concepts in
// vector space.
//
// # Supported Providers
//
//   - OpenAI: text-embedding-3-small, text-embedding-3-large, text-embedding-ada-002
//     and OpenAI-compatible services through BaseURL
//   - EmbedEverything: local models through go-embedeverything
//
// # Wrappers
//
//   - CachedClient: LRU cache keyed by text
//   - CircuitBreakerClient: gobreaker protection with alerting
//
// # Usage
//
//	client := embedder.NewOpenAIEmbedder(apiKey, embedder.Config{
//	    Model:     "text-embedding-3-small",
//	    BatchSize: 100,
//	})
//	svc := embedder.NewService(embedder.NewCachedClient(client, 4096), embedder.ServiceOptions{})
//	vectors, err := svc.BatchEmbed(ctx, texts)
//
// Service failures are reported as types.ErrEmbeddingUnavailable so callers
// can fall back to text-only concepts.
package embedder
