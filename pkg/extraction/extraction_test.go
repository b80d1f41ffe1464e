package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/soundprediction/mindgraph/pkg/nlp"
	"github.com/soundprediction/mindgraph/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient answers each Chat call with the next scripted reply.
type scriptedClient struct {
	replies  []string
	err      error
	requests [][]types.Message
	closed   bool
}

func (c *scriptedClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	c.requests = append(c.requests, messages)
	if c.err != nil {
		return nil, c.err
	}
	if len(c.replies) == 0 {
		return &types.Response{}, nil
	}
	reply := c.replies[0]
	c.replies = c.replies[1:]
	return &types.Response{Content: reply, Model: "scripted"}, nil
}

func (c *scriptedClient) ChatWithStructuredOutput(ctx context.Context, messages []types.Message, schema any) (*types.Response, error) {
	return c.Chat(ctx, messages)
}

func (c *scriptedClient) GetCapabilities() []nlp.TaskCapability {
	return []nlp.TaskCapability{nlp.TaskTextGeneration}
}

func (c *scriptedClient) Close() error {
	c.closed = true
	return nil
}

func TestValidateText(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{name: "too short", text: strings.Repeat("a", 99), wantErr: true},
		{name: "lower bound", text: strings.Repeat("a", 100)},
		{name: "upper bound", text: strings.Repeat("a", 50000)},
		{name: "too long", text: strings.Repeat("a", 50001), wantErr: true},
		{name: "counts runes", text: strings.Repeat("é", 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateText(tt.text, 0, 0)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestParseConcepts(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []types.Concept
		wantErr bool
	}{
		{
			name:    "wrapped object",
			content: `{"concepts": [{"name": "Photosynthesis", "description": "light to sugar", "importance": 0.9, "source_text": "plants"}]}`,
			want:    []types.Concept{{Label: "Photosynthesis", Description: "light to sugar", Importance: 0.9, SourceExcerpt: "plants"}},
		},
		{
			name:    "fenced bare list with defaults",
			content: "Here you go:\n```json\n[{\"name\": \"Chlorophyll\"}]\n```",
			want:    []types.Concept{{Label: "Chlorophyll", Importance: 0.5}},
		},
		{
			name:    "trailing comma is repaired",
			content: `{"concepts": [{"name": "Leaf", "importance": 0.7},]}`,
			want:    []types.Concept{{Label: "Leaf", Importance: 0.7}},
		},
		{
			name:    "importance clamped and unnamed skipped",
			content: `{"concepts": [{"name": "Sun", "importance": 1.5}, {"description": "no name"}]}`,
			want:    []types.Concept{{Label: "Sun", Importance: 1}},
		},
		{
			name:    "think tags removed",
			content: `<think>let me see</think>{"concepts": [{"label": "Root", "importance": 0.6}]}`,
			want:    []types.Concept{{Label: "Root", Importance: 0.6}},
		},
		{name: "not a list", content: `{"concepts": "none"}`, wantErr: true},
		{name: "item is not an object", content: `{"concepts": [{"name": "Sun"}, "Moon"]}`, wantErr: true},
		{name: "importance is not a number", content: `{"concepts": [{"name": "Sun", "importance": "high"}]}`, wantErr: true},
		{name: "missing key", content: `{"ideas": []}`, wantErr: true},
		{name: "empty", content: "  ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConcepts(tt.content)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrMalformedExtraction)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRelationships(t *testing.T) {
	got, err := ParseRelationships(`{"relationships": [
		{"source": "A", "target": "B", "type": "causes", "strength": 0.8, "description": "A causes B"},
		{"source": "B", "target": "C"},
		{"source": "", "target": "C", "type": "uses"}
	]}`)
	require.NoError(t, err)
	assert.Equal(t, []types.Relationship{
		{SourceLabel: "A", TargetLabel: "B", Type: "causes", Strength: 0.8, Description: "A causes B"},
		{SourceLabel: "B", TargetLabel: "C", Type: types.RelRelatedTo, Strength: 0.5},
	}, got)

	_, err = ParseRelationships(`{"relationships": {"source": "A"}}`)
	assert.ErrorIs(t, err, types.ErrMalformedExtraction)

	_, err = ParseRelationships(`{"relationships": [{"source": "A", "target": "B"}, ["A", "B"]]}`)
	assert.ErrorIs(t, err, types.ErrMalformedExtraction)
}

func TestFilterConcepts(t *testing.T) {
	in := []types.Concept{
		{Label: "Low", Importance: 0.2},
		{Label: "Mid", Importance: 0.6},
		{Label: "mid ", Importance: 0.8},
		{Label: "High", Importance: 0.95},
		{Label: "Other", Importance: 0.7},
	}
	got := FilterConcepts(in, 0.5, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "High", got[0].Label)
	assert.Equal(t, "mid ", got[1].Label)
}

func TestResolveRelationships(t *testing.T) {
	concepts := []types.Concept{{Label: "Neural Network"}, {Label: "Backpropagation"}}
	rels := []types.Relationship{
		{SourceLabel: "neural  network", TargetLabel: "BACKPROPAGATION", Type: "uses", Strength: 0.9},
		{SourceLabel: "Neural Network", TargetLabel: "Gradient", Type: "uses", Strength: 0.9},
		{SourceLabel: "Neural Network", TargetLabel: "Backpropagation", Type: "uses", Strength: 0.1},
		{SourceLabel: "Neural Network", TargetLabel: "neural network", Type: "is-a", Strength: 0.9},
	}
	got := ResolveRelationships(rels, concepts, 0.5)
	require.Len(t, got, 1)
	assert.Equal(t, "Neural Network", got[0].SourceLabel)
	assert.Equal(t, "Backpropagation", got[0].TargetLabel)
}

func TestLLMExtractorExtractConcepts(t *testing.T) {
	client := &scriptedClient{replies: []string{"```json\n" + `{"concepts": [
		{"name": "Photosynthesis", "description": "process", "importance": 0.9},
		{"name": "Glucose", "importance": 0.3},
		{"name": "Chlorophyll", "importance": 0.7}
	]}` + "\n```"}}
	ex := NewLLMExtractor(client, nil)

	concepts, err := ex.ExtractConcepts(context.Background(), "plants make food", Options{})
	require.NoError(t, err)
	require.Len(t, concepts, 2)
	assert.Equal(t, "Photosynthesis", concepts[0].Label)
	assert.Equal(t, "Chlorophyll", concepts[1].Label)

	require.Len(t, client.requests, 1)
	assert.Contains(t, client.requests[0][1].Content, "plants make food")
}

func TestLLMExtractorMalformedResponse(t *testing.T) {
	ex := NewLLMExtractor(&scriptedClient{replies: []string{`{"concepts": 42}`}}, nil)

	_, err := ex.ExtractConcepts(context.Background(), "text", Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrMalformedExtraction)
	assert.Equal(t, types.KindCollaborator, types.Classify(err))
}

func TestLLMExtractorClientFailure(t *testing.T) {
	ex := NewLLMExtractor(&scriptedClient{err: errors.New("503 service unavailable")}, nil)

	_, err := ex.ExtractConcepts(context.Background(), "text", Options{})
	assert.ErrorIs(t, err, types.ErrCollaboratorFailed)

	ex = NewLLMExtractor(&scriptedClient{err: context.DeadlineExceeded}, nil)
	_, err = ex.ExtractRelationships(context.Background(), "text",
		[]types.Concept{{Label: "A"}, {Label: "B"}}, Options{})
	assert.ErrorIs(t, err, types.ErrCollaboratorTimeout)
}

func TestLLMExtractorExtractRelationships(t *testing.T) {
	client := &scriptedClient{replies: []string{`{"relationships": [
		{"source": "a", "target": "B", "type": "causes", "strength": 0.9},
		{"source": "A", "target": "Z", "type": "causes", "strength": 0.9}
	]}`}}
	ex := NewLLMExtractor(client, nil).WithYAMLConceptList(true)

	concepts := []types.Concept{{Label: "A", Description: "first"}, {Label: "B"}}
	rels, err := ex.ExtractRelationships(context.Background(), "A causes B", concepts, Options{RelationTypes: []string{"causes"}})
	require.NoError(t, err)
	assert.Equal(t, []types.Relationship{{SourceLabel: "A", TargetLabel: "B", Type: "causes", Strength: 0.9}}, rels)
	assert.Contains(t, client.requests[0][1].Content, "description: first")

	rels, err = ex.ExtractRelationships(context.Background(), "text", concepts[:1], Options{})
	require.NoError(t, err)
	assert.Empty(t, rels)
	assert.Len(t, client.requests, 1)

	require.NoError(t, ex.Close())
	assert.True(t, client.closed)
}
