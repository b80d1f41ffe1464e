package utils

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/soundprediction/mindgraph/pkg/types"
)

// CosineSimilarity calculates the cosine similarity between two float32 vectors.
// Returns 0 if vectors have different lengths, are empty, or either has zero magnitude.
// Use CheckedCosineSimilarity when a length mismatch must be reported.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CheckedCosineSimilarity is CosineSimilarity that fails with
// types.ErrDimensionMismatch when the vectors differ in length.
func CheckedCosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", types.ErrDimensionMismatch, len(a), len(b))
	}
	return CosineSimilarity(a, b), nil
}

// ScoredItem represents an item with a score for top-K selection.
type ScoredItem[T any] struct {
	Item  T
	Score float64
	// seq is the input position, used to break score ties.
	seq int
}

// scoredHeap is a min-heap; the weakest candidate is at the root. Among
// equal scores the later input position is weaker.
type scoredHeap[T any] []ScoredItem[T]

func (h scoredHeap[T]) Len() int { return len(h) }
func (h scoredHeap[T]) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].seq > h[j].seq
}
func (h scoredHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredHeap[T]) Push(x any) {
	*h = append(*h, x.(ScoredItem[T]))
}

func (h *scoredHeap[T]) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

// TopKByScore returns the top K items with the highest scores using a bounded heap.
// This is O(n log k). The result is sorted descending by score; ties keep input order.
func TopKByScore[T any](items []ScoredItem[T], k int) []ScoredItem[T] {
	if k <= 0 || len(items) == 0 {
		return nil
	}

	h := make(scoredHeap[T], 0, min(k, len(items)))
	for i, item := range items {
		item.seq = i
		if h.Len() < k {
			heap.Push(&h, item)
			continue
		}
		if stronger(item, h[0]) {
			h[0] = item
			heap.Fix(&h, 0)
		}
	}

	result := make([]ScoredItem[T], h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&h).(ScoredItem[T])
	}
	return result
}

func stronger[T any](a, b ScoredItem[T]) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.seq < b.seq
}
