package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/soundprediction/mindgraph/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(id string, emb ...float32) *types.Node {
	return &types.Node{ID: id, Label: "label " + id, Confidence: 0.8, Importance: 0.5, Embedding: emb}
}

func edge(id, src, tgt, typ string) *types.Edge {
	return &types.Edge{ID: id, SourceID: src, TargetID: tgt, Type: typ, Weight: 0.8, Confidence: 0.8}
}

func TestCreateAndGetGraph(t *testing.T) {
	t.Parallel()
	s := New(Options{}, nil)
	id := s.CreateGraph()
	assert.Regexp(t, `^graph_[0-9a-f]{12}$`, id)

	require.NoError(t, s.AddNodes(id, []*types.Node{node("a"), node("b"), node("c")}))
	added, err := s.AddEdges(id, []*types.Edge{edge("e1", "a", "b", "causes"), edge("e2", "b", "c", "part-of")})
	require.NoError(t, err)
	assert.Len(t, added, 2)

	g, err := s.GetGraph(id)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Edges, 2)
	assert.Equal(t, 3, g.Stats.NodeCount)
	assert.Equal(t, 2, g.Stats.EdgeCount)
	assert.InDelta(t, 2.0/6.0, g.Stats.Density, 1e-9)
	assert.InDelta(t, 4.0/3.0, g.Stats.AverageDegree, 1e-9)
	assert.Equal(t, 1, g.Stats.MinDegree)
	assert.Equal(t, 2, g.Stats.MaxDegree)
	assert.True(t, g.Stats.IsConnected)
	assert.Equal(t, uint64(3), g.Version)
}

func TestUnknownGraph(t *testing.T) {
	t.Parallel()
	s := New(Options{}, nil)

	assert.ErrorIs(t, s.AddNodes("graph_missing", []*types.Node{node("a")}), types.ErrUnknownGraph)
	_, err := s.AddEdges("graph_missing", nil)
	assert.ErrorIs(t, err, types.ErrUnknownGraph)
	_, err = s.GetGraph("graph_missing")
	assert.ErrorIs(t, err, types.ErrGraphNotFound)
	_, err = s.GetNode("graph_missing", "a")
	assert.ErrorIs(t, err, types.ErrGraphNotFound)
}

func TestDanglingEdgeIsRejectedAtomically(t *testing.T) {
	t.Parallel()
	s := New(Options{}, nil)
	id := s.CreateGraph()
	require.NoError(t, s.AddNodes(id, []*types.Node{node("a"), node("b")}))

	_, err := s.AddEdges(id, []*types.Edge{edge("e1", "a", "b", "causes"), edge("e2", "a", "ghost", "causes")})
	assert.ErrorIs(t, err, types.ErrDanglingEdge)

	g, err := s.GetGraph(id)
	require.NoError(t, err)
	assert.Empty(t, g.Edges, "a failed batch must not be partially applied")
}

func TestEdgeInvariants(t *testing.T) {
	t.Parallel()
	s := New(Options{}, nil)
	id := s.CreateGraph()
	require.NoError(t, s.AddNodes(id, []*types.Node{node("a"), node("b")}))

	_, err := s.AddEdges(id, []*types.Edge{edge("e1", "a", "a", "causes")})
	assert.ErrorIs(t, err, types.ErrSelfLoop)

	added, err := s.AddEdges(id, []*types.Edge{
		edge("e1", "a", "b", "Part Of"),
		edge("e2", "a", "b", "part_of"),
		edge("e3", "b", "a", "part-of"),
		edge("e4", "a", "b", "causes"),
	})
	require.NoError(t, err)
	require.Len(t, added, 3)
	assert.Equal(t, "part-of", added[0].Type)

	added, err = s.AddEdges(id, []*types.Edge{edge("e5", "a", "b", "causes")})
	require.NoError(t, err)
	assert.Empty(t, added)

	_, err = s.AddEdges(id, []*types.Edge{edge("e1", "b", "a", "uses")})
	assert.ErrorIs(t, err, types.ErrDuplicateID)

	bad := edge("e9", "a", "b", "uses")
	bad.Confidence = 1.5
	_, err = s.AddEdges(id, []*types.Edge{bad})
	assert.ErrorIs(t, err, types.ErrInvalidScore)
}

func TestSelfLoopsWhenPermitted(t *testing.T) {
	t.Parallel()
	s := New(Options{AllowSelfLoops: true}, nil)
	id := s.CreateGraph()
	require.NoError(t, s.AddNodes(id, []*types.Node{node("a")}))
	_, err := s.AddEdges(id, []*types.Edge{edge("e1", "a", "a", "related-to")})
	require.NoError(t, err)

	edges, err := s.GetEdgesForNode(id, "a")
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}

func TestEmbeddingDimensionIsConstant(t *testing.T) {
	t.Parallel()
	s := New(Options{}, nil)
	id := s.CreateGraph()
	require.NoError(t, s.AddNodes(id, []*types.Node{node("a", 1, 0, 0), node("b")}))

	err := s.AddNodes(id, []*types.Node{node("c", 1, 0)})
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)

	err = s.AddNodes(id, []*types.Node{node("d", 1, 1, 1), node("e", 1)})
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)
	_, err = s.GetNode(id, "d")
	assert.ErrorIs(t, err, types.ErrNodeNotFound)

	err = s.AddNodes(id, []*types.Node{node("a")})
	assert.ErrorIs(t, err, types.ErrDuplicateID)
}

func TestGetEdgesForNodeIncludesBothDirections(t *testing.T) {
	t.Parallel()
	s := New(Options{}, nil)
	id := s.CreateGraph()
	require.NoError(t, s.AddNodes(id, []*types.Node{node("a"), node("b"), node("c")}))
	_, err := s.AddEdges(id, []*types.Edge{edge("e1", "a", "b", "uses"), edge("e2", "c", "b", "uses")})
	require.NoError(t, err)

	edges, err := s.GetEdgesForNode(id, "b")
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, "e1", edges[0].ID)
	assert.Equal(t, "e2", edges[1].ID)

	_, err = s.GetEdgesForNode(id, "zzz")
	assert.ErrorIs(t, err, types.ErrNodeNotFound)
}

func TestDeleteNodeCascades(t *testing.T) {
	t.Parallel()
	s := New(Options{}, nil)
	id := s.CreateGraph()
	require.NoError(t, s.AddNodes(id, []*types.Node{node("a"), node("b"), node("c")}))
	_, err := s.AddEdges(id, []*types.Edge{edge("e1", "a", "b", "uses"), edge("e2", "b", "c", "uses"), edge("e3", "a", "c", "uses")})
	require.NoError(t, err)

	removed, err := s.DeleteNode(id, "b")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"e1", "e2"}, removed)

	g, err := s.GetGraph(id)
	require.NoError(t, err)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "e3", g.Edges[0].ID)
	for _, e := range g.Edges {
		assert.NotEqual(t, "b", e.SourceID)
		assert.NotEqual(t, "b", e.TargetID)
	}

	// the triple freed by the cascade may be inserted again
	require.NoError(t, s.AddNodes(id, []*types.Node{node("b")}))
	added, err := s.AddEdges(id, []*types.Edge{edge("e4", "a", "b", "uses")})
	require.NoError(t, err)
	assert.Len(t, added, 1)

	_, err = s.DeleteNode(id, "ghost")
	assert.ErrorIs(t, err, types.ErrNodeNotFound)
}

func TestDeleteGraph(t *testing.T) {
	t.Parallel()
	s := New(Options{}, nil)
	id := s.CreateGraph()
	assert.True(t, s.Has(id))
	assert.True(t, s.DeleteGraph(id))
	assert.False(t, s.DeleteGraph(id))
	_, err := s.GetGraph(id)
	assert.ErrorIs(t, err, types.ErrGraphNotFound)
}

func TestSnapshotsAreDetached(t *testing.T) {
	t.Parallel()
	s := New(Options{}, nil)
	id := s.CreateGraph()
	require.NoError(t, s.AddNodes(id, []*types.Node{node("a", 1, 2)}))

	n, err := s.GetNode(id, "a")
	require.NoError(t, err)
	n.Label = "mutated"
	n.Embedding[0] = 42

	again, err := s.GetNode(id, "a")
	require.NoError(t, err)
	assert.Equal(t, "label a", again.Label)
	assert.Equal(t, float32(1), again.Embedding[0])
}

func TestUpdateRollsBackOnError(t *testing.T) {
	t.Parallel()
	s := New(Options{}, nil)
	id := s.CreateGraph()
	boom := errors.New("boom")

	_, err := s.Update(id, func(g *Graph) error {
		if err := g.AddNodes([]*types.Node{node("a")}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	g, err := s.GetGraph(id)
	require.NoError(t, err)
	assert.Empty(t, g.Nodes)
	assert.Equal(t, uint64(1), g.Version)
}

func TestCommitRejectsDuplicateID(t *testing.T) {
	t.Parallel()
	s := New(Options{}, nil)
	g := s.NewGraph("graph_fixed")
	require.NoError(t, s.Commit(g))
	assert.ErrorIs(t, s.Commit(s.NewGraph("graph_fixed")), types.ErrDuplicateID)
}

func TestFromSnapshotRoundTrip(t *testing.T) {
	t.Parallel()
	g := NewGraph("graph_a", false)
	require.NoError(t, g.AddNodes([]*types.Node{node("node_1"), node("node_2")}))
	_, err := g.AddEdges([]*types.Edge{edge("edge_1", "node_1", "node_2", "uses")})
	require.NoError(t, err)

	restored, err := FromSnapshot(g.Snapshot(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, restored.NodeCount())
	assert.Equal(t, 1, restored.EdgeCount())
	assert.Equal(t, "node_3", restored.NewID("node"))
	assert.Equal(t, "edge_2", restored.NewID("edge"))
}

func TestComponents(t *testing.T) {
	t.Parallel()
	g := NewGraph("g", false)
	require.NoError(t, g.AddNodes([]*types.Node{node("a"), node("b"), node("c"), node("d")}))
	_, err := g.AddEdges([]*types.Edge{edge("e1", "b", "a", "uses")})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}, {"d"}}, g.Components())
	assert.Equal(t, []string{"a"}, g.Neighbors("b"))
}

func TestConcurrentReadersNeverSeePartialBatches(t *testing.T) {
	t.Parallel()
	s := New(Options{}, nil)
	id := s.CreateGraph()

	const batches = 50
	const batchSize = 4
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for b := 0; b < batches; b++ {
			nodes := make([]*types.Node, batchSize)
			for i := range nodes {
				nodes[i] = node(fmt.Sprintf("n%d_%d", b, i))
			}
			assert.NoError(t, s.AddNodes(id, nodes))
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				g, err := s.GetGraph(id)
				if !assert.NoError(t, err) {
					return
				}
				assert.Zero(t, len(g.Nodes)%batchSize)
			}
		}()
	}
	wg.Wait()

	g, err := s.GetGraph(id)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, batches*batchSize)
}

func TestListIsNewestFirst(t *testing.T) {
	t.Parallel()
	s := New(Options{}, nil)
	a := s.NewGraph("graph_a")
	b := s.NewGraph("graph_b")
	b.CreatedAt = a.CreatedAt.Add(1)
	require.NoError(t, s.Commit(a))
	require.NoError(t, s.Commit(b))

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "graph_b", list[0].ID)
	assert.Equal(t, 2, s.Len())
}
