package search

import (
	"slices"
	"sort"
	"strings"

	"github.com/soundprediction/mindgraph/pkg/store"
	"github.com/soundprediction/mindgraph/pkg/types"
	"github.com/soundprediction/mindgraph/pkg/utils"
)

// DefaultTopK is used when callers pass a non-positive k.
const DefaultTopK = 5

// FindSimilar ranks the nodes closest in meaning to nodeID, excluding the
// node itself. It returns an empty list when nodeID has no embedding.
func (s *Searcher) FindSimilar(graphID, nodeID string, topK int) ([]types.SimilarNode, error) {
	out := []types.SimilarNode{}
	err := s.view(graphID, []string{nodeID}, func(g *store.Graph) error {
		n, _ := g.Node(nodeID)
		if !n.HasEmbedding() {
			return nil
		}
		out = FindSimilar(g, n.Embedding, topK, nodeID)
		return nil
	})
	return out, err
}

// FindSimilar scans every embedded node of g and keeps the topK best by
// cosine similarity, descending. Nodes listed in exclude are skipped.
func FindSimilar(g *store.Graph, query []float32, topK int, exclude ...string) []types.SimilarNode {
	if topK <= 0 {
		topK = DefaultTopK
	}
	items := make([]utils.ScoredItem[*types.Node], 0, g.NodeCount())
	for _, n := range g.Nodes() {
		if !n.HasEmbedding() || slices.Contains(exclude, n.ID) {
			continue
		}
		items = append(items, utils.ScoredItem[*types.Node]{
			Item:  n,
			Score: utils.CosineSimilarity(query, n.Embedding),
		})
	}

	top := utils.TopKByScore(items, topK)
	out := make([]types.SimilarNode, 0, len(top))
	for _, it := range top {
		out = append(out, types.SimilarNode{NodeID: it.Item.ID, Label: it.Item.Label, Score: it.Score})
	}
	return out
}

// MatchLabels returns nodes whose label appears in text, or shares words with
// it, ranked by the fraction of label words found. It serves graphs or
// questions without embeddings.
func (s *Searcher) MatchLabels(graphID, text string, limit int) ([]types.SimilarNode, error) {
	out := []types.SimilarNode{}
	err := s.store.View(graphID, func(g *store.Graph) error {
		out = MatchLabels(g, text, limit)
		return nil
	})
	return out, err
}

// MatchLabels is the lock-free form of Searcher.MatchLabels.
func MatchLabels(g *store.Graph, text string, limit int) []types.SimilarNode {
	if limit <= 0 {
		limit = DefaultTopK
	}
	haystack := types.NormalizeLabel(text)
	words := make(map[string]bool)
	for _, w := range strings.Fields(haystack) {
		words[strings.Trim(w, ".,;:!?\"'()")] = true
	}

	var hits []types.SimilarNode
	for _, n := range g.Nodes() {
		label := types.NormalizeLabel(n.Label)
		if label == "" {
			continue
		}
		var score float64
		if strings.Contains(haystack, label) {
			score = 1
		} else {
			parts := strings.Fields(label)
			found := 0
			for _, p := range parts {
				if len(p) > 2 && words[p] {
					found++
				}
			}
			score = float64(found) / float64(len(parts))
		}
		if score > 0 {
			hits = append(hits, types.SimilarNode{NodeID: n.ID, Label: n.Label, Score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}
