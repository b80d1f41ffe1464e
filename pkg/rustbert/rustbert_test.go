package rustbert

import (
	"context"
	"testing"

	"github.com/soundprediction/mindgraph/pkg/extraction"
	"github.com/soundprediction/mindgraph/pkg/nlp"
	"github.com/soundprediction/mindgraph/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMAdapter(t *testing.T) {
	client := NewClient(Config{})

	a, err := NewLLMAdapter(client, nlp.TaskSummarization)
	require.NoError(t, err)
	assert.Equal(t, []nlp.TaskCapability{nlp.TaskSummarization}, a.GetCapabilities())
	assert.True(t, nlp.Supports(a, nlp.TaskSummarization))

	_, err = NewLLMAdapter(client, nlp.TaskEmbedding)
	assert.Error(t, err)
}

func TestLLMAdapterRejectsEmptyInput(t *testing.T) {
	a, err := NewLLMAdapter(NewClient(Config{}), nlp.TaskTextGeneration)
	require.NoError(t, err)

	_, err = a.Chat(context.Background(), []types.Message{nlp.NewSystemMessage("only system")})
	assert.ErrorIs(t, err, &nlp.EmptyResponseError{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.Chat(ctx, []types.Message{nlp.NewUserMessage("hi")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUserInput(t *testing.T) {
	got := userInput([]types.Message{
		nlp.NewSystemMessage("sys"),
		nlp.NewUserMessage("first"),
		nlp.NewAssistantMessage("reply"),
		nlp.NewUserMessage("second"),
	})
	assert.Equal(t, "first\nsecond", got)
}

func TestEntitiesToConcepts(t *testing.T) {
	got := entitiesToConcepts([]Entity{
		{Text: "Steve", Label: "B-PER", Score: 0.99},
		{Text: "Jobs", Label: "I-PER", Score: 0.95},
		{Text: "App", Label: "B-ORG", Score: 0.9},
		{Text: "##le", Label: "I-ORG", Score: 0.97},
		{Text: "Cupertino", Label: "I-LOC", Score: 0.8},
		{Text: " ", Label: "O", Score: 0.1},
	})

	require.Len(t, got, 3)
	assert.Equal(t, "Steve Jobs", got[0].Label)
	assert.InDelta(t, 0.95, got[0].Importance, 1e-9)
	assert.Equal(t, "Steve Jobs (PER)", got[0].Description)
	assert.Equal(t, "Apple", got[1].Label)
	assert.Equal(t, "Cupertino", got[2].Label)
	assert.Equal(t, "LOC", got[2].Metadata["entity_type"])
}

func TestNERExtractorCancelled(t *testing.T) {
	ex := NewNERExtractor(NewClient(Config{}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ex.ExtractConcepts(ctx, "text", extraction.Options{})
	assert.ErrorIs(t, err, types.ErrCollaboratorTimeout)

	rels, err := ex.ExtractRelationships(context.Background(), "text", nil, extraction.Options{})
	require.NoError(t, err)
	assert.Nil(t, rels)
	assert.NoError(t, ex.Close())
}
