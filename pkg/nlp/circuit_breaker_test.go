package nlp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/soundprediction/mindgraph/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAlerter struct {
	mu       sync.Mutex
	subjects []string
}

func (a *recordingAlerter) Alert(subject, message string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subjects = append(a.subjects, subject)
	return nil
}

func breakerConfig() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         60,
		Timeout:          60,
		ReadyToTripRatio: 0.5,
	}
}

func TestCircuitBreakerOpensAndAlerts(t *testing.T) {
	mock := &mockClient{failUntilCall: 100, errorToReturn: errors.New("400 bad request")}
	alerter := &recordingAlerter{}
	client := NewCircuitBreakerClient(mock, breakerConfig(), alerter, "extraction")

	for i := 0; i < 3; i++ {
		_, err := client.Chat(context.Background(), testMessages)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, client.State())
	require.Len(t, alerter.subjects, 1)
	assert.Contains(t, alerter.subjects[0], "extraction")

	_, err := client.Chat(context.Background(), testMessages)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, mock.calls(), "open breaker must not reach the client")
}

func TestCircuitBreakerPassesThrough(t *testing.T) {
	mock := &mockClient{}
	client := NewCircuitBreakerClient(mock, breakerConfig(), nil, "explainer")

	resp, err := client.ChatWithStructuredOutput(context.Background(), testMessages, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"status": "success"}`, resp.Content)
	assert.Equal(t, gobreaker.StateClosed, client.State())
	assert.Equal(t, []TaskCapability{TaskTextGeneration}, client.GetCapabilities())
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, WrapOptions{}))

	mock := &mockClient{}
	assert.Same(t, Client(mock), Wrap(mock, WrapOptions{}))

	cb := breakerConfig()
	wrapped := Wrap(mock, WrapOptions{
		Name:           "extraction",
		Retry:          &RetryConfig{MaxRetries: 1, InitialDelay: time.Millisecond},
		CircuitBreaker: &cb,
	})
	_, isBreaker := wrapped.(*CircuitBreakerClient)
	assert.True(t, isBreaker)

	cb.Enabled = false
	wrapped = Wrap(mock, WrapOptions{Retry: DefaultRetryConfig(), CircuitBreaker: &cb})
	_, isRetry := wrapped.(*RetryClient)
	assert.True(t, isRetry)
	assert.True(t, Supports(wrapped, TaskTextGeneration))
	assert.False(t, Supports(wrapped, TaskEmbedding))
}
