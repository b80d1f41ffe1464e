package gliner

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/soundprediction/mindgraph/pkg/extraction"
	"github.com/soundprediction/mindgraph/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// modelID returns the model to test against; the tests download it, so they
// only run when GLINER_TEST_MODEL is set.
func modelID(t *testing.T) string {
	id := os.Getenv("GLINER_TEST_MODEL")
	if id == "" {
		t.Skip("GLINER_TEST_MODEL not set")
	}
	return id
}

func TestClient(t *testing.T) {
	c, err := NewClient(modelID(t))
	require.NoError(t, err)
	defer c.Close()

	ents, err := c.ExtractEntities("Apple was founded by Steve Jobs in California.", []string{"person", "organization", "location"})
	require.NoError(t, err)

	foundOrg := false
	for _, e := range ents {
		if e.Label == "organization" && e.Text == "Apple" {
			foundOrg = true
		}
	}
	assert.True(t, foundOrg, "expected Apple as organization, got %+v", ents)
	assert.False(t, c.HasRelationModel())
}

func TestExtractorConcepts(t *testing.T) {
	c, err := NewClient(modelID(t))
	require.NoError(t, err)
	ex := NewExtractor(c, []string{"person", "organization"}, nil)
	defer ex.Close()

	concepts, err := ex.ExtractConcepts(context.Background(),
		"Steve Jobs and Steve Wozniak founded Apple in a garage.", extraction.Options{MinImportance: 0.1})
	require.NoError(t, err)
	assert.NotEmpty(t, concepts)

	rels, err := ex.ExtractRelationships(context.Background(), "text", concepts, extraction.Options{})
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestEntitiesToConcepts(t *testing.T) {
	text := "Steve Jobs founded Apple. Later, steve jobs returned to Apple."
	got := entitiesToConcepts(text, []Entity{
		{Text: "Steve Jobs", Label: "person", Score: 0.8},
		{Text: "Apple", Label: "organization", Score: 0.6},
		{Text: "steve jobs", Label: "person", Score: 0.9},
		{Text: "  ", Label: "person", Score: 0.9},
	})

	require.Len(t, got, 2)
	assert.Equal(t, "steve jobs", got[0].Label)
	assert.InDelta(t, 0.9, got[0].Importance, 1e-6)
	assert.Equal(t, "person", got[0].Metadata["entity_type"])
	assert.Equal(t, "Apple", got[1].Label)
	assert.Contains(t, got[1].SourceExcerpt, "founded Apple")
}

func TestExcerpt(t *testing.T) {
	long := strings.Repeat("word ", 50) + "TARGET" + strings.Repeat(" word", 50)
	got := excerpt(long, "TARGET")
	assert.Contains(t, got, "TARGET")
	assert.Less(t, len(got), len(long))
	assert.False(t, strings.HasPrefix(got, "ord"))

	assert.Equal(t, "", excerpt("abc", "zzz"))
	assert.Equal(t, "short text", excerpt("short text", "short"))
}

func TestExtractorWithoutContext(t *testing.T) {
	ex := NewExtractor(&Client{}, nil, nil)
	assert.Equal(t, DefaultLabels, ex.labels)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ex.ExtractConcepts(ctx, "text", extraction.Options{})
	assert.ErrorIs(t, err, types.ErrCollaboratorTimeout)

	rels, err := ex.ExtractRelationships(context.Background(), "text", []types.Concept{{Label: "A"}, {Label: "B"}}, extraction.Options{})
	require.NoError(t, err)
	assert.Nil(t, rels)
}
