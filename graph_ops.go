package mindgraph

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/soundprediction/mindgraph/pkg/search"
	"github.com/soundprediction/mindgraph/pkg/store"
	"github.com/soundprediction/mindgraph/pkg/types"
)

// GetGraph returns a snapshot of a graph with its statistics, including the
// number of clusters the clustering engine finds in it.
func (c *Client) GetGraph(ctx context.Context, graphID string) (*types.Graph, error) {
	if err := c.ensureLoaded(ctx, graphID); err != nil {
		return nil, err
	}
	var snap *types.Graph
	err := c.store.View(graphID, func(g *store.Graph) error {
		snap = g.Snapshot()
		snap.Stats.ClusterCount = c.community.Detect(g).ClusterCount
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// ListGraphs summarizes resident and persisted graphs, newest first. A graph
// present in both is reported from memory.
func (c *Client) ListGraphs(ctx context.Context) ([]types.GraphSummary, error) {
	summaries := c.store.List()
	if c.driver == nil {
		return summaries, nil
	}

	stored, err := c.driver.ListGraphs(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "listing resident graphs only", "provider", c.driver.Provider(), "error", err)
		return summaries, nil
	}
	seen := make(map[string]bool, len(summaries))
	for _, s := range summaries {
		seen[s.ID] = true
	}
	for _, s := range stored {
		if !seen[s.ID] {
			summaries = append(summaries, s)
		}
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		if !summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
		}
		return summaries[i].ID < summaries[j].ID
	})
	return summaries, nil
}

// DeleteGraph removes a graph from memory and from the driver.
func (c *Client) DeleteGraph(ctx context.Context, graphID string) error {
	existed := c.store.DeleteGraph(graphID)
	c.resident.Remove(graphID)

	if c.driver != nil {
		if !existed {
			_, err := c.driver.LoadGraph(ctx, graphID)
			switch {
			case err == nil:
				existed = true
			case !errors.Is(err, types.ErrGraphNotFound) && !errors.Is(err, types.ErrInvalidInput):
				return fmt.Errorf("failed to look up graph %s: %w", graphID, err)
			}
		}
		if existed {
			if err := c.driver.DeleteGraph(ctx, graphID); err != nil {
				return fmt.Errorf("failed to delete stored graph %s: %w", graphID, err)
			}
		}
	}
	if !existed {
		return fmt.Errorf("%w: %s", types.ErrGraphNotFound, graphID)
	}

	c.logger.InfoContext(ctx, "graph deleted", "graph_id", graphID)
	c.events.publish(GraphEvent{Type: EventDeleted, GraphID: graphID})
	return nil
}

// DeleteNode removes a node and its incident edges and returns the ids of the
// removed edges. The connectivity pass is not rerun, so the graph may split.
func (c *Client) DeleteNode(ctx context.Context, graphID, nodeID string) ([]string, error) {
	if err := c.ensureLoaded(ctx, graphID); err != nil {
		return nil, err
	}
	var removed []string
	version, err := c.store.Update(graphID, func(g *store.Graph) error {
		var err error
		removed, err = g.DeleteNode(nodeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if w := c.persist(ctx, graphID); w != "" {
		c.logger.WarnContext(ctx, "node deleted in memory only", "graph_id", graphID, "node_id", nodeID)
	}
	c.logger.InfoContext(ctx, "node deleted", "graph_id", graphID, "node_id", nodeID, "edges_removed", len(removed))
	c.events.publish(GraphEvent{Type: EventUpdated, GraphID: graphID, Version: version})
	return removed, nil
}

// GetNode returns a copy of one node.
func (c *Client) GetNode(ctx context.Context, graphID, nodeID string) (*types.Node, error) {
	if err := c.ensureLoaded(ctx, graphID); err != nil {
		return nil, err
	}
	return c.store.GetNode(graphID, nodeID)
}

// GetEdgesForNode returns the incoming and outgoing edges of a node.
func (c *Client) GetEdgesForNode(ctx context.Context, graphID, nodeID string) ([]*types.Edge, error) {
	if err := c.ensureLoaded(ctx, graphID); err != nil {
		return nil, err
	}
	return c.store.GetEdgesForNode(graphID, nodeID)
}

// GetNeighbors returns the nodes adjacent to nodeID in the given direction.
func (c *Client) GetNeighbors(ctx context.Context, graphID, nodeID string, dir search.Direction) ([]*types.Node, error) {
	if err := c.ensureLoaded(ctx, graphID); err != nil {
		return nil, err
	}
	return c.searcher.Neighbors(graphID, nodeID, dir)
}

// ExpandNode returns the subgraph within depth hops of nodeID.
func (c *Client) ExpandNode(ctx context.Context, graphID, nodeID string, depth int) (*types.Subgraph, error) {
	if err := c.ensureLoaded(ctx, graphID); err != nil {
		return nil, err
	}
	if depth == 0 {
		depth = 1
	}
	return c.searcher.ExpandNode(graphID, nodeID, depth)
}

func (c *Client) BFS(ctx context.Context, graphID, start string, dir search.Direction) ([]string, error) {
	if err := c.ensureLoaded(ctx, graphID); err != nil {
		return nil, err
	}
	return c.searcher.BFS(graphID, start, dir)
}

func (c *Client) DFS(ctx context.Context, graphID, start string, dir search.Direction) ([]string, error) {
	if err := c.ensureLoaded(ctx, graphID); err != nil {
		return nil, err
	}
	return c.searcher.DFS(graphID, start, dir)
}

// ShortestPath returns an unweighted shortest path between two nodes,
// ignoring edge direction.
func (c *Client) ShortestPath(ctx context.Context, graphID, from, to string) (*types.Path, error) {
	if err := c.ensureLoaded(ctx, graphID); err != nil {
		return nil, err
	}
	return c.searcher.ShortestPath(graphID, from, to)
}

// PathsWithinHops enumerates simple paths leaving from.
func (c *Client) PathsWithinHops(ctx context.Context, graphID, from string, maxHops int) ([]types.Path, error) {
	if err := c.ensureLoaded(ctx, graphID); err != nil {
		return nil, err
	}
	return c.searcher.PathsWithinHops(graphID, from, maxHops)
}

// FindSimilarNodes ranks nodes by embedding similarity to nodeID. A node
// without an embedding has no similar nodes.
func (c *Client) FindSimilarNodes(ctx context.Context, graphID, nodeID string, topK int) ([]types.SimilarNode, error) {
	if err := c.ensureLoaded(ctx, graphID); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = search.DefaultTopK
	}
	return c.searcher.FindSimilar(graphID, nodeID, topK)
}

// ClusterGraph assigns every node a cluster label.
func (c *Client) ClusterGraph(ctx context.Context, graphID string) (*types.Clustering, error) {
	if err := c.ensureLoaded(ctx, graphID); err != nil {
		return nil, err
	}
	return c.community.ClusterGraph(c.store, graphID)
}
