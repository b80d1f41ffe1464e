package search

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/soundprediction/mindgraph/pkg/store"
	"github.com/soundprediction/mindgraph/pkg/types"
)

const (
	// DefaultMaxHops bounds path enumeration.
	DefaultMaxHops = 3
	// DefaultMaxPaths bounds the number of paths returned by enumeration.
	DefaultMaxPaths = 100
	// MaxExpandDepth bounds node expansion.
	MaxExpandDepth = 5
)

// Direction selects which edges a walk may follow.
type Direction string

const (
	Outgoing Direction = "out"
	Incoming Direction = "in"
	Both     Direction = "both"
)

// ParseDirection converts a user supplied direction, defaulting to Outgoing.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case "", Outgoing:
		return Outgoing, nil
	case Incoming, Both:
		return Direction(s), nil
	}
	return "", fmt.Errorf("%w: direction %q", types.ErrInvalidInput, s)
}

// Searcher runs traversal and similarity queries against a store.
type Searcher struct {
	store    *store.Store
	maxPaths int
	logger   *slog.Logger
}

// NewSearcher creates a Searcher.
func NewSearcher(st *store.Store, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{store: st, maxPaths: DefaultMaxPaths, logger: logger}
}

// WithMaxPaths overrides the path enumeration limit.
func (s *Searcher) WithMaxPaths(n int) *Searcher {
	if n > 0 {
		s.maxPaths = n
	}
	return s
}

func (s *Searcher) view(graphID string, nodeIDs []string, fn func(g *store.Graph) error) error {
	return s.store.View(graphID, func(g *store.Graph) error {
		for _, id := range nodeIDs {
			if !g.HasNode(id) {
				return fmt.Errorf("%w: %s", types.ErrNodeNotFound, id)
			}
		}
		return fn(g)
	})
}

// BFS returns node ids in breadth-first order from start.
func (s *Searcher) BFS(graphID, start string, dir Direction) ([]string, error) {
	var order []string
	err := s.view(graphID, []string{start}, func(g *store.Graph) error {
		order = BFS(g, start, dir)
		return nil
	})
	return order, err
}

// DFS returns node ids in depth-first preorder from start.
func (s *Searcher) DFS(graphID, start string, dir Direction) ([]string, error) {
	var order []string
	err := s.view(graphID, []string{start}, func(g *store.Graph) error {
		order = DFS(g, start, dir)
		return nil
	})
	return order, err
}

// ShortestPath returns an unweighted shortest path treating edges as undirected.
func (s *Searcher) ShortestPath(graphID, from, to string) (*types.Path, error) {
	var path *types.Path
	err := s.view(graphID, []string{from, to}, func(g *store.Graph) error {
		var err error
		path, err = ShortestPath(g, from, to)
		return err
	})
	return path, err
}

// PathsWithinHops enumerates simple paths starting at from with at most
// maxHops edges. maxHops == 0 uses DefaultMaxHops.
func (s *Searcher) PathsWithinHops(graphID, from string, maxHops int) ([]types.Path, error) {
	maxHops, err := HopLimit(maxHops)
	if err != nil {
		return nil, err
	}
	var paths []types.Path
	err = s.view(graphID, []string{from}, func(g *store.Graph) error {
		paths = PathsWithinHops(g, from, "", maxHops, s.maxPaths)
		return nil
	})
	return paths, err
}

// HopLimit resolves a requested path length bound. Zero selects
// DefaultMaxHops; anything else outside [1, DefaultMaxHops] is invalid.
func HopLimit(maxHops int) (int, error) {
	if maxHops == 0 {
		return DefaultMaxHops, nil
	}
	if maxHops < 0 || maxHops > DefaultMaxHops {
		return 0, fmt.Errorf("%w: max_hops must be between 1 and %d", types.ErrInvalidInput, DefaultMaxHops)
	}
	return maxHops, nil
}

// ExpandNode returns the subgraph induced by every node within depth hops of
// nodeID, ignoring edge direction.
func (s *Searcher) ExpandNode(graphID, nodeID string, depth int) (*types.Subgraph, error) {
	if depth < 1 || depth > MaxExpandDepth {
		return nil, fmt.Errorf("%w: depth must be between 1 and %d", types.ErrInvalidInput, MaxExpandDepth)
	}
	var sub *types.Subgraph
	err := s.view(graphID, []string{nodeID}, func(g *store.Graph) error {
		sub = Expand(g, nodeID, depth)
		return nil
	})
	return sub, err
}

// Neighbors returns copies of the nodes adjacent to nodeID in the given direction.
func (s *Searcher) Neighbors(graphID, nodeID string, dir Direction) ([]*types.Node, error) {
	var out []*types.Node
	err := s.view(graphID, []string{nodeID}, func(g *store.Graph) error {
		for _, id := range neighbors(g, nodeID, dir) {
			n, _ := g.Node(id)
			out = append(out, n.Clone())
		}
		return nil
	})
	return out, err
}

// neighbors lists adjacent node ids in edge insertion order without repeats.
func neighbors(g *store.Graph, id string, dir Direction) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range g.IncidentEdges(id) {
		var next string
		switch {
		case e.SourceID == id && (dir == Outgoing || dir == Both):
			next = e.TargetID
		case e.TargetID == id && (dir == Incoming || dir == Both):
			next = e.SourceID
		default:
			continue
		}
		if next == id || seen[next] {
			continue
		}
		seen[next] = true
		out = append(out, next)
	}
	return out
}

// BFS returns node ids in breadth-first order from start.
func BFS(g *store.Graph, start string, dir Direction) []string {
	visited := map[string]bool{start: true}
	order := []string{start}
	for i := 0; i < len(order); i++ {
		for _, next := range neighbors(g, order[i], dir) {
			if !visited[next] {
				visited[next] = true
				order = append(order, next)
			}
		}
	}
	return order
}

// DFS returns node ids in depth-first preorder from start.
func DFS(g *store.Graph, start string, dir Direction) []string {
	visited := make(map[string]bool)
	var order []string
	stack := []string{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		visited[id] = true
		order = append(order, id)
		next := neighbors(g, id, dir)
		// push in reverse so the first neighbour is explored first
		for i := len(next) - 1; i >= 0; i-- {
			if !visited[next[i]] {
				stack = append(stack, next[i])
			}
		}
	}
	return order
}

// ShortestPath finds an undirected unit-cost shortest path with BFS. Among
// equally short paths the one discovered first wins.
func ShortestPath(g *store.Graph, from, to string) (*types.Path, error) {
	if from == to {
		return &types.Path{NodeIDs: []string{from}}, nil
	}
	type hop struct {
		prev string
		edge *types.Edge
	}
	parent := map[string]hop{from: {}}
	queue := []string{from}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, e := range g.IncidentEdges(id) {
			next := e.Other(id)
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = hop{prev: id, edge: e}
			if next == to {
				var nodes []string
				var edges []*types.Edge
				for cur := to; cur != from; cur = parent[cur].prev {
					nodes = append(nodes, cur)
					edges = append(edges, parent[cur].edge)
				}
				nodes = append(nodes, from)
				slices.Reverse(nodes)
				slices.Reverse(edges)
				p := newPath(nodes, edges)
				return &p, nil
			}
			queue = append(queue, next)
		}
	}
	return nil, fmt.Errorf("%w: %s to %s", types.ErrNoPathFound, from, to)
}

// PathsWithinHops enumerates simple paths from `from` using up to maxHops
// edges, ignoring direction. When to is non-empty only paths ending there are
// kept. At most limit paths are returned, shortest first. maxHops is clamped
// to DefaultMaxHops.
func PathsWithinHops(g *store.Graph, from, to string, maxHops, limit int) []types.Path {
	paths, _ := enumeratePaths(g, from, to, maxHops, limit)
	return paths
}

// enumeratePaths is PathsWithinHops that also reports how many edges the walk
// stepped over.
func enumeratePaths(g *store.Graph, from, to string, maxHops, limit int) ([]types.Path, int) {
	if maxHops <= 0 || maxHops > DefaultMaxHops {
		maxHops = DefaultMaxHops
	}
	if limit <= 0 {
		limit = DefaultMaxPaths
	}

	// collect per length so shorter paths are never crowded out by longer ones
	byLength := make([][]types.Path, maxHops+1)
	onPath := map[string]bool{from: true}
	nodes := []string{from}
	var edges []*types.Edge
	steps := 0

	// settled reports whether no path of length n or longer can still reach
	// the output: every such length is either full or shadowed by limit
	// shorter paths.
	settled := func(n int) bool {
		shorter := 0
		for l := 1; l < n; l++ {
			shorter += len(byLength[l])
		}
		for l := n; l <= maxHops; l++ {
			if shorter < limit && len(byLength[l]) < limit {
				return false
			}
			shorter += len(byLength[l])
		}
		return true
	}

	var walk func(id string)
	walk = func(id string) {
		depth := len(edges) + 1
		if depth > maxHops {
			return
		}
		for _, e := range g.IncidentEdges(id) {
			if settled(depth) {
				return
			}
			steps++
			next := e.Other(id)
			if onPath[next] {
				continue
			}
			nodes = append(nodes, next)
			edges = append(edges, e)
			if to == "" || next == to {
				if len(byLength[depth]) < limit {
					byLength[depth] = append(byLength[depth], newPath(nodes, edges))
				}
			}
			if next != to && !settled(depth+1) {
				onPath[next] = true
				walk(next)
				onPath[next] = false
			}
			nodes = nodes[:len(nodes)-1]
			edges = edges[:len(edges)-1]
		}
	}
	walk(from)

	out := make([]types.Path, 0, limit)
	for _, group := range byLength {
		for _, p := range group {
			if len(out) == limit {
				return out, steps
			}
			out = append(out, p)
		}
	}
	return out, steps
}

func newPath(nodes []string, edges []*types.Edge) types.Path {
	p := types.Path{
		NodeIDs:       slices.Clone(nodes),
		EdgeIDs:       make([]string, len(edges)),
		RelationTypes: make([]string, len(edges)),
		Length:        len(edges),
	}
	for i, e := range edges {
		p.EdgeIDs[i] = e.ID
		p.RelationTypes[i] = e.Type
	}
	return p
}

// Expand returns the induced subgraph within depth undirected hops of id.
func Expand(g *store.Graph, id string, depth int) *types.Subgraph {
	dist := map[string]int{id: 0}
	frontier := []string{id}
	for d := 1; d <= depth && len(frontier) > 0; d++ {
		var next []string
		for _, cur := range frontier {
			for _, n := range neighbors(g, cur, Both) {
				if _, seen := dist[n]; !seen {
					dist[n] = d
					next = append(next, n)
				}
			}
		}
		frontier = next
	}

	sub := &types.Subgraph{CenterID: id, Depth: depth}
	for _, nid := range g.NodeIDs() {
		if _, ok := dist[nid]; ok {
			n, _ := g.Node(nid)
			sub.Nodes = append(sub.Nodes, n.Clone())
		}
	}
	for _, e := range g.Edges() {
		_, srcIn := dist[e.SourceID]
		_, tgtIn := dist[e.TargetID]
		if srcIn && tgtIn {
			sub.Edges = append(sub.Edges, e.Clone())
		}
	}
	return sub
}
