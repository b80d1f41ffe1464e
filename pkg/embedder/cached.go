package embedder

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedClient memoises embeddings by text. Cached vectors are shared, so
// callers must not modify them.
type CachedClient struct {
	client Client
	cache  *lru.Cache[string, []float32]
}

// NewCachedClient wraps client with an LRU cache of size entries. A size of
// zero or less returns client unchanged.
func NewCachedClient(client Client, size int) Client {
	if size <= 0 {
		return client
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return client
	}
	return &CachedClient{client: client, cache: cache}
}

// Embed returns cached vectors and embeds the misses in one call.
func (c *CachedClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	seen := make(map[string][]int)

	for i, text := range texts {
		if v, ok := c.cache.Get(text); ok {
			out[i] = v
			continue
		}
		if idx, dup := seen[text]; dup {
			seen[text] = append(idx, i)
			continue
		}
		seen[text] = []int{i}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := c.client.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(missTexts))
	}
	for j, v := range vectors {
		text := texts[missIdx[j]]
		c.cache.Add(text, v)
		for _, i := range seen[text] {
			out[i] = v
		}
	}
	return out, nil
}

// EmbedSingle implements Client.
func (c *CachedClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Dimensions implements Client.
func (c *CachedClient) Dimensions() int {
	return c.client.Dimensions()
}

// Len returns the number of cached vectors.
func (c *CachedClient) Len() int {
	return c.cache.Len()
}

// Close purges the cache and closes the wrapped client.
func (c *CachedClient) Close() error {
	c.cache.Purge()
	return c.client.Close()
}
