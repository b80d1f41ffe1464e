package nlp_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/soundprediction/mindgraph/pkg/nlp"
	"github.com/soundprediction/mindgraph/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitError(t *testing.T) {
	t.Run("default message", func(t *testing.T) {
		err := nlp.NewRateLimitError()
		assert.Equal(t, "rate limit exceeded. Please try again later", err.Error())
	})

	t.Run("custom message", func(t *testing.T) {
		err := nlp.NewRateLimitError("Custom rate limit message")
		assert.Equal(t, "Custom rate limit message", err.Error())
	})

	t.Run("matches through wrapping", func(t *testing.T) {
		err := fmt.Errorf("chat: %w", nlp.NewRateLimitError())
		assert.ErrorIs(t, err, &nlp.RateLimitError{})
	})
}

func TestRefusalAndEmptyErrors(t *testing.T) {
	refusal := nlp.NewRefusalError("The LLM refused to respond to this prompt.")
	assert.Equal(t, "The LLM refused to respond to this prompt.", refusal.Error())
	assert.ErrorIs(t, fmt.Errorf("x: %w", refusal), &nlp.RefusalError{})

	empty := nlp.NewEmptyResponseError("The LLM returned an empty response.")
	assert.Equal(t, "The LLM returned an empty response.", empty.Error())
	assert.ErrorIs(t, empty, &nlp.EmptyResponseError{})
}

func TestAsCollaboratorError(t *testing.T) {
	assert.NoError(t, nlp.AsCollaboratorError("extraction", nil))

	t.Run("plain failure", func(t *testing.T) {
		err := nlp.AsCollaboratorError("extraction", errors.New("boom"))
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrCollaboratorFailed)
		assert.NotErrorIs(t, err, types.ErrCollaboratorTimeout)
		assert.Equal(t, types.KindCollaborator, types.Classify(err))
		assert.Contains(t, err.Error(), "extraction")
	})

	t.Run("deadline becomes timeout", func(t *testing.T) {
		err := nlp.AsCollaboratorError("embedding", fmt.Errorf("post: %w", context.DeadlineExceeded))
		assert.ErrorIs(t, err, types.ErrCollaboratorTimeout)
		assert.ErrorIs(t, err, types.ErrCollaboratorFailed)
		assert.True(t, types.Classify(err).Retryable())
	})

	t.Run("already wrapped is kept", func(t *testing.T) {
		inner := &types.CollaboratorError{Collaborator: "explainer", Err: errors.New("x")}
		err := nlp.AsCollaboratorError("extraction", fmt.Errorf("outer: %w", inner))
		var ce *types.CollaboratorError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "explainer", ce.Collaborator)
	})
}

func TestCommonErrors(t *testing.T) {
	assert.Contains(t, nlp.ErrRateLimit.Error(), "rate limit")
	assert.Contains(t, nlp.ErrRefusal.Error(), "refused")
	assert.Contains(t, nlp.ErrEmptyResponse.Error(), "empty")
	assert.Contains(t, nlp.ErrInvalidModel.Error(), "invalid model")
}
