package nlp

import (
	"log/slog"

	"github.com/soundprediction/mindgraph/pkg/alert"
	"github.com/soundprediction/mindgraph/pkg/config"
)

// WrapOptions selects the wrappers applied by Wrap. Nil fields are skipped.
type WrapOptions struct {
	Name           string
	Retry          *RetryConfig
	CircuitBreaker *config.CircuitBreakerConfig
	Alerter        alert.Alerter
	Tracker        *ParquetTokenTracker
	Logger         *slog.Logger
}

// Wrap decorates client with token tracking, retries and circuit breaking,
// innermost first. The breaker sees one failure per exhausted retry loop.
func Wrap(client Client, opts WrapOptions) Client {
	if client == nil {
		return nil
	}
	if opts.Tracker != nil {
		client = NewTokenTrackingClient(client, opts.Tracker)
	}
	if opts.Retry != nil {
		client = NewRetryClient(client, opts.Retry).WithLogger(opts.Logger)
	}
	if opts.CircuitBreaker != nil && opts.CircuitBreaker.Enabled {
		name := opts.Name
		if name == "" {
			name = "nlp"
		}
		client = NewCircuitBreakerClient(client, *opts.CircuitBreaker, opts.Alerter, name)
	}
	return client
}
