package store

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/soundprediction/mindgraph/pkg/types"
	"github.com/soundprediction/mindgraph/pkg/utils"
)

// Options configures a Store.
type Options struct {
	// AllowSelfLoops permits edges whose source equals their target.
	AllowSelfLoops bool
}

type entry struct {
	mu    sync.RWMutex
	graph *Graph
}

// Store is a registry of graphs with per-graph read/write locking.
type Store struct {
	mu     sync.RWMutex
	graphs map[string]*entry
	opts   Options
	logger *slog.Logger
}

// New creates an empty store.
func New(opts Options, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		graphs: make(map[string]*entry),
		opts:   opts,
		logger: logger,
	}
}

// NewGraph creates a detached graph configured like the store's graphs.
func (s *Store) NewGraph(id string) *Graph {
	return NewGraph(id, s.opts.AllowSelfLoops)
}

// CreateGraph allocates a new empty graph and returns its id.
func (s *Store) CreateGraph() string {
	for {
		id := utils.NewGraphID()
		if err := s.Commit(s.NewGraph(id)); err == nil {
			return id
		}
	}
}

// Commit makes a fully built graph visible. It fails if the id is taken.
func (s *Store) Commit(g *Graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.graphs[g.ID]; exists {
		return fmt.Errorf("%w: graph %s", types.ErrDuplicateID, g.ID)
	}
	if g.Version == 0 {
		g.Version = 1
	}
	s.graphs[g.ID] = &entry{graph: g}
	s.logger.Debug("graph committed", "graph_id", g.ID, "nodes", g.NodeCount(), "edges", g.EdgeCount())
	return nil
}

func (s *Store) lookup(id string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.graphs[id]
	return e, ok
}

// Has reports whether a graph exists.
func (s *Store) Has(id string) bool {
	_, ok := s.lookup(id)
	return ok
}

// Len returns the number of live graphs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.graphs)
}

// View runs fn with shared access to the graph. fn must not mutate g or
// retain it after returning.
func (s *Store) View(id string, fn func(g *Graph) error) error {
	e, ok := s.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrGraphNotFound, id)
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return fn(e.graph)
}

// Update applies fn to a private copy of the graph and publishes the copy
// only if fn succeeds. It returns the new version.
func (s *Store) Update(id string, fn func(g *Graph) error) (uint64, error) {
	e, ok := s.lookup(id)
	if !ok {
		return 0, fmt.Errorf("%w: %s", types.ErrUnknownGraph, id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	draft := e.graph.Clone()
	if err := fn(draft); err != nil {
		return 0, err
	}
	draft.Version = e.graph.Version + 1
	draft.UpdatedAt = time.Now().UTC()
	e.graph = draft
	return draft.Version, nil
}

// AddNodes appends nodes to a graph atomically.
func (s *Store) AddNodes(id string, nodes []*types.Node) error {
	_, err := s.Update(id, func(g *Graph) error {
		return g.AddNodes(nodes)
	})
	return err
}

// AddEdges appends edges to a graph atomically, skipping duplicates of
// existing (source, target, type) triples.
func (s *Store) AddEdges(id string, edges []*types.Edge) ([]*types.Edge, error) {
	var added []*types.Edge
	_, err := s.Update(id, func(g *Graph) error {
		var err error
		added, err = g.AddEdges(edges)
		return err
	})
	return added, err
}

// GetGraph returns a snapshot of the graph with its statistics.
func (s *Store) GetGraph(id string) (*types.Graph, error) {
	var snap *types.Graph
	err := s.View(id, func(g *Graph) error {
		snap = g.Snapshot()
		return nil
	})
	return snap, err
}

// GetNode returns a copy of one node.
func (s *Store) GetNode(graphID, nodeID string) (*types.Node, error) {
	var node *types.Node
	err := s.View(graphID, func(g *Graph) error {
		n, ok := g.Node(nodeID)
		if !ok {
			return fmt.Errorf("%w: %s", types.ErrNodeNotFound, nodeID)
		}
		node = n.Clone()
		return nil
	})
	return node, err
}

// GetEdgesForNode returns copies of the incoming and outgoing edges of a node.
func (s *Store) GetEdgesForNode(graphID, nodeID string) ([]*types.Edge, error) {
	var edges []*types.Edge
	err := s.View(graphID, func(g *Graph) error {
		if !g.HasNode(nodeID) {
			return fmt.Errorf("%w: %s", types.ErrNodeNotFound, nodeID)
		}
		for _, e := range g.IncidentEdges(nodeID) {
			edges = append(edges, e.Clone())
		}
		return nil
	})
	return edges, err
}

// DeleteNode removes a node and its incident edges.
func (s *Store) DeleteNode(graphID, nodeID string) ([]string, error) {
	var removed []string
	_, err := s.Update(graphID, func(g *Graph) error {
		var err error
		removed, err = g.DeleteNode(nodeID)
		return err
	})
	return removed, err
}

// DeleteGraph releases a graph. It reports whether the graph existed.
func (s *Store) DeleteGraph(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.graphs[id]; !ok {
		return false
	}
	delete(s.graphs, id)
	s.logger.Debug("graph deleted", "graph_id", id)
	return true
}

// List returns summaries of every graph, newest first.
func (s *Store) List() []types.GraphSummary {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.graphs))
	for _, e := range s.graphs {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]types.GraphSummary, 0, len(entries))
	for _, e := range entries {
		e.mu.RLock()
		out = append(out, e.graph.Summary())
		e.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
