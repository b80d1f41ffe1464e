package utils

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// Id kinds.
const (
	KindNode = "node"
	KindEdge = "edge"
)

// IDGenerator hands out ids scoped to a single graph. Ids are a kind prefix
// plus a monotonic counter, so they are unique within the graph only.
type IDGenerator struct {
	nodes atomic.Uint64
	edges atomic.Uint64
}

// NewIDGenerator creates a generator whose counters continue after the given
// values, so a reloaded graph keeps minting fresh ids.
func NewIDGenerator(lastNode, lastEdge uint64) *IDGenerator {
	g := &IDGenerator{}
	g.nodes.Store(lastNode)
	g.edges.Store(lastEdge)
	return g
}

// NewID returns the next id for kind.
func (g *IDGenerator) NewID(kind string) string {
	switch kind {
	case KindNode:
		return fmt.Sprintf("%s_%d", KindNode, g.nodes.Add(1))
	case KindEdge:
		return fmt.Sprintf("%s_%d", KindEdge, g.edges.Add(1))
	}
	panic(fmt.Sprintf("unknown id kind %q", kind))
}

// Observe advances the counter of the id's kind past id when id was minted by
// a generator. Foreign ids are ignored.
func (g *IDGenerator) Observe(id string) {
	kind, n, ok := ParseID(id)
	if !ok {
		return
	}
	counter := &g.nodes
	if kind == KindEdge {
		counter = &g.edges
	}
	for {
		cur := counter.Load()
		if n <= cur || counter.CompareAndSwap(cur, n) {
			return
		}
	}
}

// Counters returns the last node and edge sequence numbers handed out.
func (g *IDGenerator) Counters() (uint64, uint64) {
	return g.nodes.Load(), g.edges.Load()
}

// ParseID splits a generated id into kind and sequence number.
func ParseID(id string) (string, uint64, bool) {
	kind, num, found := strings.Cut(id, "_")
	if !found || (kind != KindNode && kind != KindEdge) {
		return "", 0, false
	}
	var n uint64
	if _, err := fmt.Sscanf(num, "%d", &n); err != nil {
		return "", 0, false
	}
	return kind, n, true
}

// NewGraphID returns a process-unique graph id of the form graph_<12 hex>.
func NewGraphID() string {
	return "graph_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
