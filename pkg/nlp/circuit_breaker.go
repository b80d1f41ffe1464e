package nlp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"github.com/soundprediction/mindgraph/pkg/alert"
	"github.com/soundprediction/mindgraph/pkg/config"
	"github.com/soundprediction/mindgraph/pkg/types"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// NewBreakerSettings builds gobreaker settings from configuration. When the
// breaker opens the alerter is notified.
func NewBreakerSettings(name string, cfg config.CircuitBreakerConfig, alerter alert.Alerter, logger *slog.Logger) gobreaker.Settings {
	if logger == nil {
		logger = slog.Default()
	}
	ratio := cfg.ReadyToTripRatio
	if ratio <= 0 {
		ratio = 0.6
	}
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.Interval) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= ratio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			if to == gobreaker.StateOpen && alerter != nil {
				msg := fmt.Sprintf("Circuit Breaker '%s' changed status from %s to %s. Too many failures detected.", name, from, to)
				if err := alerter.Alert(fmt.Sprintf("URGENT: Circuit Breaker Tripped - %s", name), msg); err != nil {
					logger.Error("failed to send breaker alert", "breaker", name, "error", err)
				}
			}
		},
	}
}

// BreakerError normalises gobreaker rejections to ErrCircuitOpen.
func BreakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	return err
}

// CircuitBreakerClient wraps a Client with circuit breaking logic
type CircuitBreakerClient struct {
	client Client
	cb     *gobreaker.CircuitBreaker
	name   string
}

// NewCircuitBreakerClient creates a new circuit breaker client
func NewCircuitBreakerClient(client Client, cfg config.CircuitBreakerConfig, alerter alert.Alerter, name string) *CircuitBreakerClient {
	return &CircuitBreakerClient{
		client: client,
		cb:     gobreaker.NewCircuitBreaker(NewBreakerSettings(name, cfg, alerter, nil)),
		name:   name,
	}
}

// State returns the current breaker state.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.cb.State()
}

// Chat implements Client
func (c *CircuitBreakerClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	resp, err := c.cb.Execute(func() (interface{}, error) {
		return c.client.Chat(ctx, messages)
	})
	if err != nil {
		return nil, BreakerError(err)
	}
	return resp.(*types.Response), nil
}

// ChatWithStructuredOutput implements Client
func (c *CircuitBreakerClient) ChatWithStructuredOutput(ctx context.Context, messages []types.Message, schema any) (*types.Response, error) {
	resp, err := c.cb.Execute(func() (interface{}, error) {
		return c.client.ChatWithStructuredOutput(ctx, messages, schema)
	})
	if err != nil {
		return nil, BreakerError(err)
	}
	return resp.(*types.Response), nil
}

// Close implements Client
func (c *CircuitBreakerClient) Close() error {
	return c.client.Close()
}

// GetCapabilities returns the list of capabilities supported by this client.
func (c *CircuitBreakerClient) GetCapabilities() []TaskCapability {
	return c.client.GetCapabilities()
}
