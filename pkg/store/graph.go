package store

import (
	"fmt"
	"slices"
	"time"

	"github.com/soundprediction/mindgraph/pkg/types"
	"github.com/soundprediction/mindgraph/pkg/utils"
)

// Graph is a directed multigraph with adjacency indices. It is not safe for
// concurrent use on its own; the Store serializes access.
type Graph struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   uint64
	Metadata  map[string]any

	allowSelfLoops bool
	dimension      int

	nodes     map[string]*types.Node
	nodeOrder []string
	edges     map[string]*types.Edge
	edgeOrder []string
	// incident lists edge ids touching a node in insertion order, both directions.
	incident map[string][]string
	edgeKeys map[types.EdgeKey]string

	ids *utils.IDGenerator
}

// NewGraph creates an empty detached graph. It becomes visible to readers
// only once committed to a Store.
func NewGraph(id string, allowSelfLoops bool) *Graph {
	now := time.Now().UTC()
	return &Graph{
		ID:             id,
		CreatedAt:      now,
		UpdatedAt:      now,
		Metadata:       make(map[string]any),
		allowSelfLoops: allowSelfLoops,
		nodes:          make(map[string]*types.Node),
		edges:          make(map[string]*types.Edge),
		incident:       make(map[string][]string),
		edgeKeys:       make(map[types.EdgeKey]string),
		ids:            utils.NewIDGenerator(0, 0),
	}
}

// NewID mints a node or edge id unique within this graph.
func (g *Graph) NewID(kind string) string {
	return g.ids.NewID(kind)
}

// AllowsSelfLoops reports whether edges may start and end on the same node.
func (g *Graph) AllowsSelfLoops() bool { return g.allowSelfLoops }

// Dimension returns the embedding length shared by the graph's nodes, or 0
// when no node carries an embedding yet.
func (g *Graph) Dimension() int { return g.dimension }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodeOrder) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edgeOrder) }

// Node returns the live node with id. The result must not be mutated.
func (g *Graph) Node(id string) (*types.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Edge returns the live edge with id. The result must not be mutated.
func (g *Graph) Edge(id string) (*types.Edge, bool) {
	e, ok := g.edges[id]
	return e, ok
}

// HasNode reports whether id is a node of the graph.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// NodeIDs returns node ids in insertion order.
func (g *Graph) NodeIDs() []string {
	return slices.Clone(g.nodeOrder)
}

// Nodes returns the live nodes in insertion order.
func (g *Graph) Nodes() []*types.Node {
	out := make([]*types.Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		out = append(out, g.nodes[id])
	}
	return out
}

// Edges returns the live edges in insertion order.
func (g *Graph) Edges() []*types.Edge {
	out := make([]*types.Edge, 0, len(g.edgeOrder))
	for _, id := range g.edgeOrder {
		out = append(out, g.edges[id])
	}
	return out
}

// IncidentEdges returns the edges touching id, incoming and outgoing, in
// insertion order.
func (g *Graph) IncidentEdges(id string) []*types.Edge {
	ids := g.incident[id]
	out := make([]*types.Edge, 0, len(ids))
	for _, eid := range ids {
		out = append(out, g.edges[eid])
	}
	return out
}

// Neighbors returns the distinct nodes adjacent to id ignoring direction, in
// the order their connecting edges were inserted.
func (g *Graph) Neighbors(id string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range g.IncidentEdges(id) {
		other := e.Other(id)
		if other == id || seen[other] {
			continue
		}
		seen[other] = true
		out = append(out, other)
	}
	return out
}

// Degree returns the number of edge endpoints at id.
func (g *Graph) Degree(id string) int {
	d := 0
	for _, e := range g.IncidentEdges(id) {
		if e.SourceID == id {
			d++
		}
		if e.TargetID == id {
			d++
		}
	}
	return d
}

// AddNodes validates and appends nodes. The batch is applied entirely or not at all.
func (g *Graph) AddNodes(nodes []*types.Node) error {
	dimension := g.dimension
	batch := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if n == nil {
			return fmt.Errorf("%w: nil node", types.ErrInvalidInput)
		}
		if err := n.Validate(); err != nil {
			return err
		}
		if g.HasNode(n.ID) || batch[n.ID] {
			return fmt.Errorf("%w: node %s", types.ErrDuplicateID, n.ID)
		}
		batch[n.ID] = true
		if !n.HasEmbedding() {
			continue
		}
		if dimension == 0 {
			dimension = len(n.Embedding)
		} else if len(n.Embedding) != dimension {
			return fmt.Errorf("%w: node %s has %d dimensions, graph uses %d",
				types.ErrDimensionMismatch, n.ID, len(n.Embedding), dimension)
		}
	}

	now := time.Now().UTC()
	for _, n := range nodes {
		c := n.Clone()
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		g.nodes[c.ID] = c
		g.nodeOrder = append(g.nodeOrder, c.ID)
		g.ids.Observe(c.ID)
	}
	g.dimension = dimension
	return nil
}

// AddEdges validates and appends edges. Edges identical in (source, target,
// type) to an existing or earlier edge are skipped. It returns the edges that
// were inserted. The batch is applied entirely or not at all.
func (g *Graph) AddEdges(edges []*types.Edge) ([]*types.Edge, error) {
	batchIDs := make(map[string]bool, len(edges))
	batchKeys := make(map[types.EdgeKey]bool, len(edges))
	accepted := make([]*types.Edge, 0, len(edges))
	for _, e := range edges {
		if e == nil {
			return nil, fmt.Errorf("%w: nil edge", types.ErrInvalidInput)
		}
		if err := e.Validate(g.allowSelfLoops); err != nil {
			return nil, err
		}
		if !g.HasNode(e.SourceID) {
			return nil, fmt.Errorf("%w: edge %s source %s", types.ErrDanglingEdge, e.ID, e.SourceID)
		}
		if !g.HasNode(e.TargetID) {
			return nil, fmt.Errorf("%w: edge %s target %s", types.ErrDanglingEdge, e.ID, e.TargetID)
		}
		if _, exists := g.edges[e.ID]; exists || batchIDs[e.ID] {
			return nil, fmt.Errorf("%w: edge %s", types.ErrDuplicateID, e.ID)
		}
		key := e.Key()
		if _, exists := g.edgeKeys[key]; exists || batchKeys[key] {
			continue
		}
		batchIDs[e.ID] = true
		batchKeys[key] = true
		accepted = append(accepted, e)
	}

	now := time.Now().UTC()
	out := make([]*types.Edge, 0, len(accepted))
	for _, e := range accepted {
		c := e.Clone()
		c.Type = types.NormalizeRelationType(c.Type)
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		g.edges[c.ID] = c
		g.edgeOrder = append(g.edgeOrder, c.ID)
		g.edgeKeys[c.Key()] = c.ID
		g.incident[c.SourceID] = append(g.incident[c.SourceID], c.ID)
		if c.TargetID != c.SourceID {
			g.incident[c.TargetID] = append(g.incident[c.TargetID], c.ID)
		}
		g.ids.Observe(c.ID)
		out = append(out, c.Clone())
	}
	return out, nil
}

// UpdateNode replaces the stored attributes of an existing node. The id and
// embedding length must be preserved.
func (g *Graph) UpdateNode(n *types.Node) error {
	old, ok := g.nodes[n.ID]
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrNodeNotFound, n.ID)
	}
	if err := n.Validate(); err != nil {
		return err
	}
	if n.HasEmbedding() && g.dimension != 0 && len(n.Embedding) != g.dimension {
		return fmt.Errorf("%w: node %s has %d dimensions, graph uses %d",
			types.ErrDimensionMismatch, n.ID, len(n.Embedding), g.dimension)
	}
	c := n.Clone()
	c.CreatedAt = old.CreatedAt
	g.nodes[n.ID] = c
	if g.dimension == 0 && c.HasEmbedding() {
		g.dimension = len(c.Embedding)
	}
	return nil
}

// DeleteNode removes a node and every edge incident to it. It returns the ids
// of the removed edges.
func (g *Graph) DeleteNode(id string) ([]string, error) {
	if !g.HasNode(id) {
		return nil, fmt.Errorf("%w: %s", types.ErrNodeNotFound, id)
	}
	removed := slices.Clone(g.incident[id])
	drop := make(map[string]bool, len(removed))
	for _, eid := range removed {
		drop[eid] = true
		e := g.edges[eid]
		delete(g.edgeKeys, e.Key())
		delete(g.edges, eid)
		other := e.Other(id)
		if other != id {
			g.incident[other] = slices.DeleteFunc(g.incident[other], func(x string) bool { return x == eid })
		}
	}
	g.edgeOrder = slices.DeleteFunc(g.edgeOrder, func(x string) bool { return drop[x] })
	delete(g.incident, id)
	delete(g.nodes, id)
	g.nodeOrder = slices.DeleteFunc(g.nodeOrder, func(x string) bool { return x == id })
	if len(g.nodeOrder) == 0 {
		g.dimension = 0
	}
	return removed, nil
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	lastNode, lastEdge := g.ids.Counters()
	c := &Graph{
		ID:             g.ID,
		CreatedAt:      g.CreatedAt,
		UpdatedAt:      g.UpdatedAt,
		Version:        g.Version,
		Metadata:       types.CloneMetadata(g.Metadata),
		allowSelfLoops: g.allowSelfLoops,
		dimension:      g.dimension,
		nodes:          make(map[string]*types.Node, len(g.nodes)),
		nodeOrder:      slices.Clone(g.nodeOrder),
		edges:          make(map[string]*types.Edge, len(g.edges)),
		edgeOrder:      slices.Clone(g.edgeOrder),
		incident:       make(map[string][]string, len(g.incident)),
		edgeKeys:       make(map[types.EdgeKey]string, len(g.edgeKeys)),
		ids:            utils.NewIDGenerator(lastNode, lastEdge),
	}
	if c.Metadata == nil {
		c.Metadata = make(map[string]any)
	}
	for id, n := range g.nodes {
		c.nodes[id] = n.Clone()
	}
	for id, e := range g.edges {
		c.edges[id] = e.Clone()
	}
	for id, list := range g.incident {
		c.incident[id] = slices.Clone(list)
	}
	for k, v := range g.edgeKeys {
		c.edgeKeys[k] = v
	}
	return c
}

// Snapshot returns a detached copy of the graph for callers outside the store.
func (g *Graph) Snapshot() *types.Graph {
	nodes := make([]*types.Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		nodes = append(nodes, g.nodes[id].Clone())
	}
	edges := make([]*types.Edge, 0, len(g.edgeOrder))
	for _, id := range g.edgeOrder {
		edges = append(edges, g.edges[id].Clone())
	}
	return &types.Graph{
		ID:        g.ID,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
		Version:   g.Version,
		Dimension: g.dimension,
		Metadata:  types.CloneMetadata(g.Metadata),
		Stats:     g.Stats(),
		Nodes:     nodes,
		Edges:     edges,
	}
}

// Summary returns the listing form of the graph.
func (g *Graph) Summary() types.GraphSummary {
	return types.GraphSummary{
		ID:        g.ID,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
		Version:   g.Version,
		NodeCount: g.NodeCount(),
		EdgeCount: g.EdgeCount(),
	}
}

// FromSnapshot rebuilds a graph from a snapshot, for example one loaded from
// persistent storage. The snapshot must satisfy every graph invariant.
func FromSnapshot(s *types.Graph, allowSelfLoops bool) (*Graph, error) {
	g := NewGraph(s.ID, allowSelfLoops)
	if !s.CreatedAt.IsZero() {
		g.CreatedAt = s.CreatedAt
	}
	g.UpdatedAt = s.UpdatedAt
	if g.UpdatedAt.IsZero() {
		g.UpdatedAt = g.CreatedAt
	}
	g.Version = s.Version
	if s.Metadata != nil {
		g.Metadata = types.CloneMetadata(s.Metadata)
	}
	if err := g.AddNodes(s.Nodes); err != nil {
		return nil, fmt.Errorf("restore graph %s nodes: %w", s.ID, err)
	}
	if _, err := g.AddEdges(s.Edges); err != nil {
		return nil, fmt.Errorf("restore graph %s edges: %w", s.ID, err)
	}
	return g, nil
}
