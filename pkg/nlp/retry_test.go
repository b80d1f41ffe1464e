package nlp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/soundprediction/mindgraph/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClient fails the first failUntilCall calls with errorToReturn.
type mockClient struct {
	mu               sync.Mutex
	callCount        int
	failUntilCall    int
	errorToReturn    error
	responseToReturn *types.Response
	closed           bool
}

func (m *mockClient) next() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	if m.callCount <= m.failUntilCall {
		return m.errorToReturn
	}
	return nil
}

func (m *mockClient) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

func (m *mockClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	if err := m.next(); err != nil {
		return nil, err
	}
	if m.responseToReturn != nil {
		return m.responseToReturn, nil
	}
	return &types.Response{Content: "success"}, nil
}

func (m *mockClient) ChatWithStructuredOutput(ctx context.Context, messages []types.Message, schema any) (*types.Response, error) {
	if err := m.next(); err != nil {
		return nil, err
	}
	return &types.Response{Content: `{"status": "success"}`}, nil
}

func (m *mockClient) Close() error {
	m.closed = true
	return nil
}

func (m *mockClient) GetCapabilities() []TaskCapability {
	return []TaskCapability{TaskTextGeneration}
}

func fastRetry(maxRetries int) *RetryConfig {
	return &RetryConfig{
		MaxRetries:        maxRetries,
		InitialDelay:      10 * time.Millisecond,
		MaxDelay:          100 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

var testMessages = []types.Message{{Role: RoleUser, Content: "test"}}

func TestRetryClientChat(t *testing.T) {
	tests := []struct {
		name      string
		failUntil int
		err       error
		wantErr   bool
		wantCalls int
	}{
		{name: "success on first attempt", wantCalls: 1},
		{name: "success after server errors", failUntil: 2, err: errors.New("500 internal server error"), wantCalls: 3},
		{name: "rate limit is retried", failUntil: 2, err: NewRateLimitError("slow down"), wantCalls: 3},
		{name: "gives up after max retries", failUntil: 10, err: errors.New("503 service unavailable"), wantErr: true, wantCalls: 4},
		{name: "non retryable fails fast", failUntil: 10, err: errors.New("400 bad request"), wantErr: true, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockClient{failUntilCall: tt.failUntil, errorToReturn: tt.err}
			resp, err := NewRetryClient(mock, fastRetry(3)).Chat(context.Background(), testMessages)

			assert.Equal(t, tt.wantCalls, mock.calls())
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "success", resp.Content)
		})
	}
}

func TestRetryClientWaitsForBackoff(t *testing.T) {
	mock := &mockClient{failUntilCall: 2, errorToReturn: errors.New("502 bad gateway")}

	start := time.Now()
	_, err := NewRetryClient(mock, fastRetry(3)).Chat(context.Background(), testMessages)
	require.NoError(t, err)

	// 10ms then 20ms
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestRetryClientContextCancellation(t *testing.T) {
	mock := &mockClient{failUntilCall: 10, errorToReturn: errors.New("500 internal server error")}
	cfg := &RetryConfig{MaxRetries: 5, InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, BackoffMultiplier: 2}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewRetryClient(mock, cfg).Chat(ctx, testMessages)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, mock.calls(), 6)
}

func TestRetryClientStructuredOutput(t *testing.T) {
	mock := &mockClient{failUntilCall: 2, errorToReturn: errors.New("500 internal server error")}

	result, err := NewRetryClient(mock, fastRetry(3)).ChatWithStructuredOutput(
		context.Background(), testMessages, map[string]any{"type": "object"})
	require.NoError(t, err)
	assert.Equal(t, `{"status": "success"}`, result.Content)
	assert.Equal(t, 3, mock.calls())
}

func TestRetryClientExponentialBackoff(t *testing.T) {
	retryClient := NewRetryClient(nil, &RetryConfig{
		MaxRetries:        5,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          1 * time.Second,
		BackoffMultiplier: 2.0,
	})

	expected := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		1000 * time.Millisecond, // capped
	}
	for i, want := range expected {
		assert.Equal(t, want, retryClient.calculateDelay(i+1), "attempt %d", i+1)
	}
}

func TestNewRetryClientDefaults(t *testing.T) {
	config := DefaultRetryConfig()
	assert.Equal(t, 3, config.MaxRetries)
	assert.Equal(t, 1*time.Second, config.InitialDelay)
	assert.Equal(t, 60*time.Second, config.MaxDelay)
	assert.Equal(t, 2.0, config.BackoffMultiplier)

	rc := NewRetryClient(&mockClient{}, &RetryConfig{MaxRetries: -1})
	assert.Equal(t, 3, rc.config.MaxRetries)
	assert.Equal(t, time.Second, rc.config.InitialDelay)
}

// httpError exposes a status code the way provider SDK errors do.
type httpError struct {
	statusCode int
	message    string
}

func (e httpError) Error() string {
	return fmt.Sprintf("%d: %s", e.statusCode, e.message)
}

func (e httpError) HTTPStatusCode() int {
	return e.statusCode
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil error", nil, false},
		{"500 error", errors.New("500 internal server error"), true},
		{"502 error", errors.New("502 bad gateway"), true},
		{"503 error", errors.New("503 service unavailable"), true},
		{"504 error", errors.New("504 gateway timeout"), true},
		{"timeout", errors.New("connection timeout"), true},
		{"rate limit", errors.New("rate limit exceeded"), true},
		{"429 error", errors.New("429 too many requests"), true},
		{"400 error", errors.New("400 bad request"), false},
		{"401 error", errors.New("401 unauthorized"), false},
		{"404 error", errors.New("404 not found"), false},
		{"rate limit error type", NewRateLimitError(), true},
		{"wrapped rate limit", fmt.Errorf("openai: %w", NewRateLimitError()), true},
		{"refusal error", NewRefusalError("refused"), false},
		{"connection reset", errors.New("connection reset by peer"), true},
		{"deadline", context.DeadlineExceeded, false},
		{"cancelled", fmt.Errorf("call: %w", context.Canceled), false},
		{"status 503", httpError{statusCode: 503, message: "unavailable"}, true},
		{"status 429", httpError{statusCode: 429, message: "slow"}, true},
		{"status 400", httpError{statusCode: 400, message: "bad"}, false},
		{"status 403", httpError{statusCode: 403, message: "forbidden"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}
