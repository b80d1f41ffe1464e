package dedupe

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/soundprediction/mindgraph/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unit returns a 2-d unit vector at the given cosine to [1, 0].
func unit(cos float64) []float32 {
	return []float32{float32(cos), float32(math.Sqrt(1 - cos*cos))}
}

func basis(dim, i int, noise float32) []float32 {
	v := make([]float32, dim)
	v[i] = 1
	v[(i+1)%dim] = noise
	return v
}

func TestMergeAboveThreshold(t *testing.T) {
	t.Parallel()
	d := New(Config{}, nil)
	res, err := d.Dedupe([]types.Concept{
		{Label: "Neural network", Description: "short", Importance: 0.6, SourceExcerpt: "neural networks learn", Embedding: unit(1)},
		{Label: "Neural networks", Description: "longer description", Importance: 0.9, SourceExcerpt: "networks of neurons", Embedding: unit(0.97)},
	})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, 1, res.Merged)

	e := res.Entries[0]
	assert.Equal(t, "Neural networks", e.Concept.Label, "higher importance label wins")
	assert.Equal(t, "longer description", e.Concept.Description)
	assert.Equal(t, []string{"neural networks learn", "networks of neurons"}, e.Excerpts)
	assert.Equal(t, unit(1), e.Concept.Embedding, "representative embedding is stable")

	byOld, ok := res.Resolve("neural NETWORK")
	require.True(t, ok)
	assert.Same(t, e, byOld)
}

func TestBelowThresholdStaysDistinct(t *testing.T) {
	t.Parallel()
	d := New(Config{}, nil)
	res, err := d.Dedupe([]types.Concept{
		{Label: "a", Importance: 0.5, Embedding: unit(1)},
		{Label: "b", Importance: 0.5, Embedding: unit(0.9)},
	})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 2)
	assert.Equal(t, "concept_1", res.Entries[0].Key)
	assert.Equal(t, "concept_2", res.Entries[1].Key)
}

func TestLowerImportanceKeepsExistingLabelAndUnionsMetadata(t *testing.T) {
	t.Parallel()
	d := New(Config{}, nil)
	res, err := d.Dedupe([]types.Concept{
		{Label: "Keep", Importance: 0.9, Embedding: unit(1), Metadata: map[string]any{"a": 1, "shared": "first"}},
		{Label: "Drop", Description: "fills the gap", Importance: 0.2, Embedding: unit(0.99), Metadata: map[string]any{"b": 2, "shared": "second"}},
	})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	c := res.Entries[0].Concept
	assert.Equal(t, "Keep", c.Label)
	assert.Equal(t, "fills the gap", c.Description)
	assert.Equal(t, map[string]any{"a": 1, "b": 2, "shared": "first"}, c.Metadata)
	assert.Equal(t, []string{"Keep", "Drop"}, res.Entries[0].Labels)
}

func TestMissingEmbeddingNeverMerges(t *testing.T) {
	t.Parallel()
	d := New(Config{}, nil)
	res, err := d.Dedupe([]types.Concept{
		{Label: "Gravity", Importance: 0.8, Embedding: unit(1)},
		{Label: "Gravity", Importance: 0.8},
		{Label: "Gravity", Importance: 0.8},
	})
	require.NoError(t, err)
	require.Len(t, res.Entries, 3)
	assert.False(t, res.Entries[0].TextOnly)
	for _, e := range res.Entries[1:] {
		assert.True(t, e.TextOnly)
		assert.InDelta(t, 0.4, e.Confidence, 1e-9)
	}
	first, ok := res.Resolve("gravity")
	require.True(t, ok)
	assert.Same(t, res.Entries[0], first)
}

func TestIdempotentOnOwnOutput(t *testing.T) {
	t.Parallel()
	d := New(Config{}, nil)
	input := []types.Concept{
		{Label: "a", Importance: 0.3, Embedding: unit(1)},
		{Label: "b", Importance: 0.9, Embedding: unit(0.95)},
		{Label: "c", Importance: 0.5, Embedding: unit(0.90)},
		{Label: "d", Importance: 0.7, Embedding: unit(0.5)},
		{Label: "e", Importance: 0.5, Embedding: unit(0.47)},
		{Label: "f", Importance: 0.5},
	}
	first, err := d.Dedupe(input)
	require.NoError(t, err)
	require.Greater(t, first.Merged, 0)

	var merged []types.Concept
	for _, e := range first.Entries {
		merged = append(merged, e.Concept)
	}
	second, err := d.Dedupe(merged)
	require.NoError(t, err)
	assert.Zero(t, second.Merged)
	assert.Len(t, second.Entries, len(first.Entries))
}

func TestBucketedFallbackStillMerges(t *testing.T) {
	t.Parallel()
	const dim = 10
	d := New(Config{BatchCeiling: 4}, nil)
	var input []types.Concept
	for i := 0; i < dim; i++ {
		input = append(input, types.Concept{Label: string(rune('a' + i)), Importance: 0.5, Embedding: basis(dim, i, 0)})
	}
	for i := 0; i < dim; i++ {
		input = append(input, types.Concept{Label: string(rune('A'+i)) + "2", Importance: 0.4, Embedding: basis(dim, i, 0.05)})
	}

	res, err := d.Dedupe(input)
	require.NoError(t, err)
	assert.True(t, res.Bucketed)
	assert.Len(t, res.Entries, dim)
	assert.Equal(t, dim, res.Merged)
}

func randomConcepts(n, dim int) []types.Concept {
	rng := rand.New(rand.NewSource(7))
	out := make([]types.Concept, n)
	for i := range out {
		emb := make([]float32, dim)
		for j := range emb {
			emb[j] = rng.Float32()*2 - 1
		}
		out[i] = types.Concept{Label: fmt.Sprintf("concept %d", i), Importance: 0.5, Embedding: emb}
	}
	return out
}

func TestBucketedFallbackIsSubQuadratic(t *testing.T) {
	t.Parallel()
	d := New(Config{}, nil)
	for _, n := range []int{500, 2000} {
		res, err := d.Dedupe(randomConcepts(n, 32))
		require.NoError(t, err)
		require.True(t, res.Bucketed)

		b := int(math.Ceil(math.Sqrt(float64(n))))
		// per candidate: b centroids to look up, at most 2b members, b centroids to place
		assert.LessOrEqual(t, res.comparisons, 4*b*n, "n=%d", n)
		assert.Less(t, res.comparisons, n*(n-1)/2, "n=%d", n)
	}
}

func TestBucketCountStaysAtSqrtN(t *testing.T) {
	t.Parallel()
	const n = 400
	ix := newIndex(n, true)
	for i, c := range randomConcepts(n, 16) {
		ix.add(&Entry{Key: fmt.Sprintf("concept_%d", i), Concept: c})
	}
	assert.Len(t, ix.buckets, 20)
	total := 0
	for _, b := range ix.buckets {
		assert.LessOrEqual(t, len(b.members), ix.capacity)
		total += len(b.members)
		assert.InDelta(t, meanOf(b.members, 0), b.centroid[0], 1e-5)
	}
	assert.Equal(t, n, total)
}

func meanOf(entries []*Entry, dim int) float64 {
	var sum float64
	for _, e := range entries {
		sum += float64(e.Concept.Embedding[dim])
	}
	return sum / float64(len(entries))
}

func TestDimensionMismatch(t *testing.T) {
	t.Parallel()
	d := New(Config{}, nil)
	_, err := d.Dedupe([]types.Concept{
		{Label: "a", Embedding: []float32{1, 0}},
		{Label: "b", Embedding: []float32{1, 0, 0}},
	})
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)
}

func TestBlankLabelsAreDroppedAndScoresClamped(t *testing.T) {
	t.Parallel()
	d := New(Config{}, nil)
	res, err := d.Dedupe([]types.Concept{
		{Label: "   "},
		{Label: "  spaced   out  ", Importance: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Dropped)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "spaced out", res.Entries[0].Concept.Label)
	assert.Equal(t, 1.0, res.Entries[0].Concept.Importance)
}

func TestDedupeAgainstSeeds(t *testing.T) {
	t.Parallel()
	d := New(Config{}, nil)
	seed := &Entry{
		Key:        "node_1",
		NodeID:     "node_1",
		Concept:    types.Concept{Label: "Existing", Importance: 0.9, Embedding: unit(1)},
		Labels:     []string{"Existing"},
		Confidence: 0.9,
	}
	res, err := d.DedupeAgainst([]*Entry{seed}, []types.Concept{
		{Label: "Existing again", Importance: 0.5, SourceExcerpt: "new text", Embedding: unit(0.99)},
		{Label: "Fresh", Importance: 0.5, Embedding: unit(0.1)},
	})
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)
	assert.True(t, seed.Changed)
	assert.Equal(t, []string{"new text"}, seed.Excerpts)

	fresh := res.Entries[1]
	assert.Empty(t, fresh.NodeID)
	assert.Equal(t, "Fresh", fresh.Concept.Label)
	assert.Equal(t, "concept_1", fresh.Key)
}
