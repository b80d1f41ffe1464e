// Package connectivity makes a freshly built graph a single connected component.
package connectivity

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/soundprediction/mindgraph/pkg/store"
	"github.com/soundprediction/mindgraph/pkg/types"
)

const (
	DefaultSyntheticWeight     = 0.3
	DefaultSyntheticConfidence = 0.3
	DefaultMaxSyntheticEdges   = 50
)

// Config tunes the enforcer.
type Config struct {
	// MaxSyntheticEdges caps the edges added per pass. Components beyond the
	// cap stay disconnected and are flagged.
	MaxSyntheticEdges int     `mapstructure:"max_synthetic_edges"`
	SyntheticWeight   float64 `mapstructure:"synthetic_weight"`
	// Disabled skips the pass while still reporting components.
	Disabled bool `mapstructure:"disabled"`
}

// DefaultConfig returns the default connectivity settings.
func DefaultConfig() Config {
	return Config{
		MaxSyntheticEdges: DefaultMaxSyntheticEdges,
		SyntheticWeight:   DefaultSyntheticWeight,
	}
}

// Enforcer links disconnected components to the main component.
type Enforcer struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an Enforcer. A negative MaxSyntheticEdges means no edges may be added.
func New(cfg Config, logger *slog.Logger) *Enforcer {
	if cfg.MaxSyntheticEdges == 0 {
		cfg.MaxSyntheticEdges = DefaultMaxSyntheticEdges
	}
	if cfg.MaxSyntheticEdges < 0 {
		cfg.MaxSyntheticEdges = 0
	}
	if cfg.SyntheticWeight <= 0 || cfg.SyntheticWeight > 1 {
		cfg.SyntheticWeight = DefaultSyntheticWeight
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Enforcer{cfg: cfg, logger: logger}
}

// Enforce connects g in place. It must run inside a store update so the
// synthetic edges land in the same atomic batch as the construction. It never
// fails; problems are reported through the returned report and the graph's
// connectivity_warning metadata.
func (e *Enforcer) Enforce(g *store.Graph) types.ConnectivityReport {
	comps := g.Components()
	report := types.ConnectivityReport{ComponentsBefore: len(comps), ComponentsAfter: len(comps)}
	delete(g.Metadata, types.MetaConnectivityWarning)
	if len(comps) <= 1 {
		return report
	}

	// largest component first; earlier components win ties
	sort.SliceStable(comps, func(i, j int) bool { return len(comps[i]) > len(comps[j]) })
	hub := e.representative(g, comps[0])
	report.HubID = hub

	for _, comp := range comps[1:] {
		rep := e.representative(g, comp)
		if e.cfg.Disabled || report.SyntheticEdges >= e.cfg.MaxSyntheticEdges {
			report.CapReached = !e.cfg.Disabled
			report.FlaggedIsolates = append(report.FlaggedIsolates, rep)
			flagIsolated(g, comp)
			continue
		}
		edge := &types.Edge{
			ID:          g.NewID("edge"),
			SourceID:    rep,
			TargetID:    hub,
			Type:        types.RelRelatedTo,
			Description: "inferred link between disconnected components",
			Weight:      e.cfg.SyntheticWeight,
			Confidence:  DefaultSyntheticConfidence,
			Metadata:    map[string]any{types.MetaInferred: true},
		}
		added, err := g.AddEdges([]*types.Edge{edge})
		if err != nil || len(added) == 0 {
			// the endpoints were validated above, so this is a bug
			e.logger.Error("synthetic edge rejected", "graph_id", g.ID, "source", rep, "target", hub, "error", err)
			report.FlaggedIsolates = append(report.FlaggedIsolates, rep)
			flagIsolated(g, comp)
			continue
		}
		report.SyntheticEdges++
	}

	report.ComponentsAfter = len(report.FlaggedIsolates) + 1
	if len(report.FlaggedIsolates) > 0 {
		report.Warning = fmt.Sprintf("%d component(s) remain disconnected after adding %d synthetic edge(s)",
			len(report.FlaggedIsolates), report.SyntheticEdges)
		g.Metadata[types.MetaConnectivityWarning] = map[string]any{
			"remaining_components": report.ComponentsAfter,
			"synthetic_edges":      report.SyntheticEdges,
			"flagged_isolates":     append([]string(nil), report.FlaggedIsolates...),
			"message":              report.Warning,
		}
		e.logger.Warn("graph left disconnected", "graph_id", g.ID, "components", report.ComponentsAfter, "synthetic_edges", report.SyntheticEdges)
	}
	return report
}

// representative picks the node a component is linked through: highest
// confidence, then highest degree, then earliest inserted.
func (e *Enforcer) representative(g *store.Graph, comp []string) string {
	best := comp[0]
	bestNode, _ := g.Node(best)
	bestDegree := g.Degree(best)
	for _, id := range comp[1:] {
		n, _ := g.Node(id)
		d := g.Degree(id)
		if n.Confidence > bestNode.Confidence || (n.Confidence == bestNode.Confidence && d > bestDegree) {
			best, bestNode, bestDegree = id, n, d
		}
	}
	return best
}

func flagIsolated(g *store.Graph, comp []string) {
	for _, id := range comp {
		n, ok := g.Node(id)
		if !ok {
			continue
		}
		c := n.Clone()
		if c.Metadata == nil {
			c.Metadata = make(map[string]any)
		}
		c.Metadata[types.MetaIsolated] = true
		_ = g.UpdateNode(c)
	}
}
