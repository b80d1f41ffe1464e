package utils

import (
	"math"
	"testing"

	"github.com/soundprediction/mindgraph/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float64
	}{
		{name: "identical vectors", a: []float32{1, 0, 0}, b: []float32{1, 0, 0}, expected: 1.0},
		{name: "opposite vectors", a: []float32{1, 0, 0}, b: []float32{-1, 0, 0}, expected: -1.0},
		{name: "orthogonal vectors", a: []float32{1, 0, 0}, b: []float32{0, 1, 0}, expected: 0.0},
		{name: "scaled vectors", a: []float32{1, 2, 3}, b: []float32{2, 4, 6}, expected: 1.0},
		{name: "different lengths", a: []float32{1, 2, 3}, b: []float32{1, 2}, expected: 0.0},
		{name: "zero vector", a: []float32{0, 0, 0}, b: []float32{1, 2, 3}, expected: 0.0},
		{name: "nil vectors", a: nil, b: nil, expected: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CosineSimilarity(tt.a, tt.b)
			if math.Abs(result-tt.expected) > 1e-6 {
				t.Errorf("CosineSimilarity(%v, %v) = %v, expected %v", tt.a, tt.b, result, tt.expected)
			}
		})
	}
}

func TestCheckedCosineSimilarity(t *testing.T) {
	t.Parallel()
	_, err := CheckedCosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)

	score, err := CheckedCosineSimilarity([]float32{1, 0}, []float32{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestTopKByScore(t *testing.T) {
	t.Parallel()
	items := []ScoredItem[string]{
		{Item: "a", Score: 0.1},
		{Item: "b", Score: 0.9},
		{Item: "c", Score: 0.5},
		{Item: "d", Score: 0.9},
		{Item: "e", Score: 0.7},
	}

	top := TopKByScore(items, 3)
	require.Len(t, top, 3)
	assert.Equal(t, "b", top[0].Item)
	assert.Equal(t, "d", top[1].Item)
	assert.Equal(t, "e", top[2].Item)

	all := TopKByScore(items, 10)
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].Score, all[i].Score)
	}

	assert.Nil(t, TopKByScore(items, 0))
	assert.Nil(t, TopKByScore[string](nil, 3))
}

func TestTopKByScoreTiesAreStable(t *testing.T) {
	t.Parallel()
	items := []ScoredItem[int]{{Item: 1, Score: 1}, {Item: 2, Score: 1}, {Item: 3, Score: 1}, {Item: 4, Score: 1}}
	top := TopKByScore(items, 2)
	assert.Equal(t, 1, top[0].Item)
	assert.Equal(t, 2, top[1].Item)
}
