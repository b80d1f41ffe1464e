package nlp

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/soundprediction/mindgraph/pkg/types"
)

// Common LLM client errors
var (
	// ErrRateLimit indicates the rate limit has been exceeded
	ErrRateLimit = errors.New("rate limit exceeded. Please try again later")

	// ErrRefusal indicates the LLM refused to respond to the prompt
	ErrRefusal = errors.New("the LLM refused to respond to this prompt")

	// ErrEmptyResponse indicates the LLM returned an empty response
	ErrEmptyResponse = errors.New("the LLM returned an empty response")

	// ErrInvalidModel indicates an invalid model was specified
	ErrInvalidModel = errors.New("invalid model specified")
)

// RateLimitError represents a rate limit error with optional custom message
type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string {
	if e.Message == "" {
		return "rate limit exceeded. Please try again later"
	}
	return e.Message
}

// Is implements errors.Is support for RateLimitError.
// This allows errors.Is(err, &RateLimitError{}) to work with wrapped errors.
func (e *RateLimitError) Is(target error) bool {
	_, ok := target.(*RateLimitError)
	return ok
}

// NewRateLimitError creates a new rate limit error with optional custom message
func NewRateLimitError(message ...string) *RateLimitError {
	err := &RateLimitError{}
	if len(message) > 0 {
		err.Message = message[0]
	}
	return err
}

// RefusalError represents an LLM refusal error
type RefusalError struct {
	Message string
}

func (e *RefusalError) Error() string {
	return e.Message
}

// Is implements errors.Is support for RefusalError.
// This allows errors.Is(err, &RefusalError{}) to work with wrapped errors.
func (e *RefusalError) Is(target error) bool {
	_, ok := target.(*RefusalError)
	return ok
}

// NewRefusalError creates a new refusal error (message is required)
func NewRefusalError(message string) *RefusalError {
	return &RefusalError{Message: message}
}

// EmptyResponseError represents an empty response error
type EmptyResponseError struct {
	Message string
}

func (e *EmptyResponseError) Error() string {
	return e.Message
}

// Is implements errors.Is support for EmptyResponseError.
// This allows errors.Is(err, &EmptyResponseError{}) to work with wrapped errors.
func (e *EmptyResponseError) Is(target error) bool {
	_, ok := target.(*EmptyResponseError)
	return ok
}

// NewEmptyResponseError creates a new empty response error (message is required)
func NewEmptyResponseError(message string) *EmptyResponseError {
	return &EmptyResponseError{Message: message}
}

// AsCollaboratorError wraps err as a types.CollaboratorError naming the collaborator.
// Deadline and cancellation failures also match types.ErrCollaboratorTimeout.
func AsCollaboratorError(collaborator string, err error) error {
	if err == nil {
		return nil
	}
	var ce *types.CollaboratorError
	if errors.As(err, &ce) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		err = errors.Join(types.ErrCollaboratorTimeout, err)
	}
	return &types.CollaboratorError{Collaborator: collaborator, Err: err}
}

// IsRetryable determines if an error is worth retrying
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Cancellation is the caller's decision, never retried
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// Rate limit errors should be retried
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}
	if errors.Is(err, ErrRateLimit) {
		return true
	}

	// Check for HTTP status codes if available
	type httpErrorWithStatusCode interface {
		HTTPStatusCode() int
	}
	var httpErr httpErrorWithStatusCode
	if errors.As(err, &httpErr) {
		statusCode := httpErr.HTTPStatusCode()
		return statusCode >= 500 || statusCode == http.StatusTooManyRequests
	}

	// Check error message for common retryable patterns
	errMsg := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}

	return false
}

var retryablePatterns = []string{
	"500", "internal server error",
	"502", "bad gateway",
	"503", "service unavailable",
	"504", "gateway timeout",
	"timeout",
	"connection reset",
	"connection refused",
	"temporary failure",
	"rate limit",
	"too many requests",
	"429",
}
