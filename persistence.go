package mindgraph

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/soundprediction/mindgraph/pkg/store"
	"github.com/soundprediction/mindgraph/pkg/types"
)

// residentSet tracks which graphs stay in memory.
type residentSet interface {
	Add(graphID string, v struct{}) (evicted bool)
	Remove(graphID string) (present bool)
}

// unbounded keeps every graph resident.
type unbounded struct{}

func (unbounded) Add(string, struct{}) bool { return false }
func (unbounded) Remove(string) bool        { return false }

// newResidentSet picks the cheapest set for the limits. Only a positive ttl
// needs the expiring LRU, whose cleanup goroutine lives as long as the process.
func newResidentSet(maxGraphs int, ttl time.Duration, onEvict func(string, struct{})) residentSet {
	switch {
	case ttl > 0:
		return expirable.NewLRU[string, struct{}](maxGraphs, onEvict, ttl)
	case maxGraphs > 0:
		cache, err := lru.NewWithEvict[string, struct{}](maxGraphs, onEvict)
		if err != nil {
			return unbounded{}
		}
		return cache
	default:
		return unbounded{}
	}
}

// onEvict runs when the resident set drops a graph for size or age. Graphs
// removed through DeleteGraph are already gone from the store by then.
func (c *Client) onEvict(graphID string, _ struct{}) {
	if !c.store.DeleteGraph(graphID) {
		return
	}
	c.logger.Info("graph evicted", "graph_id", graphID, "persisted", c.driver != nil)
	c.events.publish(GraphEvent{Type: EventEvicted, GraphID: graphID})
}

// touch marks a graph as recently used and restarts its idle timer.
func (c *Client) touch(graphID string) {
	c.resident.Add(graphID, struct{}{})
}

// ensureLoaded makes graphID resident, reloading it from the driver when it
// was evicted or lost on restart. A graph the driver does not know is left
// absent so the caller reports it as not found.
func (c *Client) ensureLoaded(ctx context.Context, graphID string) error {
	if c.store.Has(graphID) {
		c.touch(graphID)
		return nil
	}
	if c.driver == nil {
		return nil
	}

	_, err, _ := c.loads.Do(graphID, func() (any, error) {
		if c.store.Has(graphID) {
			return nil, nil
		}
		snapshot, err := c.driver.LoadGraph(ctx, graphID)
		if err != nil {
			return nil, err
		}
		g, err := store.FromSnapshot(snapshot, c.config.AllowSelfLoops)
		if err != nil {
			return nil, &types.InvariantError{GraphID: graphID, Detail: fmt.Sprintf("stored copy is inconsistent: %v", err)}
		}
		if err := c.store.Commit(g); err != nil && !errors.Is(err, types.ErrDuplicateID) {
			return nil, err
		}
		c.logger.Info("graph reloaded", "graph_id", graphID, "provider", c.driver.Provider(),
			"nodes", g.NodeCount(), "edges", g.EdgeCount())
		return nil, nil
	})
	switch {
	case errors.Is(err, types.ErrGraphNotFound), errors.Is(err, types.ErrInvalidInput):
		return nil
	case err != nil:
		return fmt.Errorf("failed to load graph %s: %w", graphID, err)
	}
	c.touch(graphID)
	return nil
}

// persist writes the current state of graphID through to the driver. Failures
// are logged and returned as a warning; the in-memory graph stays authoritative.
func (c *Client) persist(ctx context.Context, graphID string) string {
	if c.driver == nil {
		return ""
	}
	snapshot, err := c.store.GetGraph(graphID)
	if err != nil {
		return ""
	}
	if err := c.driver.SaveGraph(ctx, snapshot); err != nil {
		c.logger.ErrorContext(ctx, "failed to persist graph", "graph_id", graphID,
			"provider", c.driver.Provider(), "error", err)
		return fmt.Sprintf("graph was not persisted: %v", err)
	}
	c.logger.Debug("graph persisted", "graph_id", graphID, "version", snapshot.Version)
	return ""
}
