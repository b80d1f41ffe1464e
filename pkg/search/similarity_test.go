package search

import (
	"testing"

	"github.com/soundprediction/mindgraph/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindSimilar(t *testing.T) {
	t.Parallel()
	st, id := newStore(t, []string{"q", "near", "mid", "far", "plain"}, nil, map[string][]float32{
		"q":    {1, 0, 0},
		"near": {0.9, 0.1, 0},
		"mid":  {0.5, 0.5, 0},
		"far":  {0, 0, 1},
	})
	s := NewSearcher(st, nil)

	res, err := s.FindSimilar(id, "q", 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "near", res[0].NodeID)
	assert.Equal(t, "mid", res[1].NodeID)

	all, err := s.FindSimilar(id, "q", 10)
	require.NoError(t, err)
	require.Len(t, all, 3, "self and text-only nodes are excluded")
	for i, r := range all {
		assert.NotEqual(t, "q", r.NodeID)
		if i > 0 {
			assert.GreaterOrEqual(t, all[i-1].Score, r.Score)
		}
	}
}

func TestFindSimilarWithoutEmbedding(t *testing.T) {
	t.Parallel()
	st, id := newStore(t, []string{"a", "b"}, nil, map[string][]float32{"b": {1, 0}})
	s := NewSearcher(st, nil)

	res, err := s.FindSimilar(id, "a", 5)
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, res)

	_, err = s.FindSimilar(id, "missing", 5)
	assert.ErrorIs(t, err, types.ErrNodeNotFound)
}

func TestMatchLabels(t *testing.T) {
	t.Parallel()
	st, id := newStore(t, []string{"1", "2", "3"}, nil, nil)
	s := NewSearcher(st, nil)

	// labels are "Label 1", "Label 2", "Label 3"
	res, err := s.MatchLabels(id, "What does label 2 mean?", 5)
	require.NoError(t, err)
	require.NotEmpty(t, res)
	assert.Equal(t, "2", res[0].NodeID)
	assert.Equal(t, 1.0, res[0].Score)
}
