package embedder

import (
	"context"
	"log/slog"

	"github.com/sony/gobreaker"
	"github.com/soundprediction/mindgraph/pkg/alert"
	"github.com/soundprediction/mindgraph/pkg/config"
	"github.com/soundprediction/mindgraph/pkg/nlp"
)

// CircuitBreakerClient wraps a Client with circuit breaking logic
type CircuitBreakerClient struct {
	client Client
	cb     *gobreaker.CircuitBreaker
}

// NewCircuitBreakerClient creates a new circuit breaker client
func NewCircuitBreakerClient(client Client, cfg config.CircuitBreakerConfig, alerter alert.Alerter, logger *slog.Logger) *CircuitBreakerClient {
	return &CircuitBreakerClient{
		client: client,
		cb:     gobreaker.NewCircuitBreaker(nlp.NewBreakerSettings("embedding", cfg, alerter, logger)),
	}
}

// Embed implements Client
func (c *CircuitBreakerClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.cb.Execute(func() (interface{}, error) {
		return c.client.Embed(ctx, texts)
	})
	if err != nil {
		return nil, nlp.BreakerError(err)
	}
	return resp.([][]float32), nil
}

// EmbedSingle implements Client
func (c *CircuitBreakerClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.cb.Execute(func() (interface{}, error) {
		return c.client.EmbedSingle(ctx, text)
	})
	if err != nil {
		return nil, nlp.BreakerError(err)
	}
	return resp.([]float32), nil
}

// State returns the current breaker state.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.cb.State()
}

// Dimensions implements Client
func (c *CircuitBreakerClient) Dimensions() int {
	return c.client.Dimensions()
}

// Close implements Client
func (c *CircuitBreakerClient) Close() error {
	return c.client.Close()
}
