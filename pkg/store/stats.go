package store

import (
	"github.com/soundprediction/mindgraph/pkg/types"
	"github.com/soundprediction/mindgraph/pkg/utils"
)

// Components returns the weakly connected components of the graph, each in
// node insertion order, ordered by their first node.
func (g *Graph) Components() [][]string {
	uf := utils.NewUnionFind(g.nodeOrder)
	for _, id := range g.edgeOrder {
		e := g.edges[id]
		uf.Union(e.SourceID, e.TargetID)
	}
	return uf.Components()
}

// Stats computes the graph statistics. Density treats the graph as directed.
func (g *Graph) Stats() types.GraphStats {
	n, m := g.NodeCount(), g.EdgeCount()
	stats := types.GraphStats{NodeCount: n, EdgeCount: m}
	if n == 0 {
		return stats
	}
	if n > 1 {
		stats.Density = float64(m) / float64(n*(n-1))
	}

	total := 0
	for i, id := range g.nodeOrder {
		d := g.Degree(id)
		total += d
		if i == 0 || d < stats.MinDegree {
			stats.MinDegree = d
		}
		if d > stats.MaxDegree {
			stats.MaxDegree = d
		}
		if g.nodes[id].IsTextOnly() {
			stats.TextOnlyNodeCount++
		}
	}
	stats.AverageDegree = float64(total) / float64(n)

	for _, id := range g.edgeOrder {
		if g.edges[id].Inferred() {
			stats.InferredEdgeCount++
		}
	}

	stats.ComponentCount = len(g.Components())
	stats.IsConnected = stats.ComponentCount == 1
	return stats
}
