package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"time"

	"github.com/soundprediction/mindgraph/pkg/config"
	"github.com/soundprediction/mindgraph/pkg/types"
)

// GraphProvider names a storage backend.
type GraphProvider string

const (
	GraphProviderNone     GraphProvider = "none"
	GraphProviderFile     GraphProvider = "file"
	GraphProviderBadger   GraphProvider = "badger"
	GraphProviderNeo4j    GraphProvider = "neo4j"
	GraphProviderMemgraph GraphProvider = "memgraph"
	GraphProviderLadybug  GraphProvider = "ladybug"
)

// GraphDriver stores whole graph snapshots.
type GraphDriver interface {
	// SaveGraph replaces the stored copy of g.
	SaveGraph(ctx context.Context, g *types.Graph) error

	// LoadGraph returns a stored graph or an error matching types.ErrGraphNotFound.
	LoadGraph(ctx context.Context, graphID string) (*types.Graph, error)

	// DeleteGraph removes a stored graph. Deleting a missing graph is not an error.
	DeleteGraph(ctx context.Context, graphID string) error

	// ListGraphs summarizes every stored graph, newest first.
	ListGraphs(ctx context.Context) ([]types.GraphSummary, error)

	// Provider returns the backend type.
	Provider() GraphProvider

	// Close releases all resources held by the driver.
	Close() error
}

// New creates the driver selected by cfg. It returns nil, nil when
// persistence is disabled.
func New(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (GraphDriver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch GraphProvider(cfg.Driver) {
	case GraphProviderNone, "":
		return nil, nil
	case GraphProviderFile:
		d, err := NewFileDriver(cfg.Path)
		if err != nil {
			return nil, err
		}
		return d, nil
	case GraphProviderBadger:
		d, err := NewBadgerDriver(BadgerOptions{Dir: cfg.Path, Logger: logger})
		if err != nil {
			return nil, err
		}
		return d, nil
	case GraphProviderNeo4j, GraphProviderMemgraph:
		d, err := NewNeo4jDriver(cfg.URI, cfg.Username, cfg.Password, cfg.Database)
		if err != nil {
			return nil, err
		}
		d.provider = GraphProvider(cfg.Driver)
		if err := d.VerifyConnectivity(ctx); err != nil {
			d.Close()
			return nil, fmt.Errorf("failed to reach %s at %s: %w", cfg.Driver, cfg.URI, err)
		}
		if err := d.CreateIndices(ctx); err != nil {
			logger.Warn("failed to create graph indices", "provider", cfg.Driver, "error", err)
		}
		return d, nil
	case GraphProviderLadybug:
		d, err := NewLadybugDriver(cfg.Path, logger)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, fmt.Errorf("%w: unknown storage driver %q", types.ErrInvalidInput, cfg.Driver)
}

var graphIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ValidateGraphID rejects ids that are unsafe as file names or keys.
func ValidateGraphID(graphID string) error {
	if !graphIDPattern.MatchString(graphID) {
		return fmt.Errorf("%w: invalid graph id %q", types.ErrInvalidInput, graphID)
	}
	return nil
}

func notFound(graphID string) error {
	return fmt.Errorf("%w: %s", types.ErrGraphNotFound, graphID)
}

// graphHeader is the graph level record stored next to nodes and edges by
// the graph database drivers.
type graphHeader struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Version   uint64         `json:"version"`
	Dimension int            `json:"embedding_dimension"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func headerOf(g *types.Graph) graphHeader {
	return graphHeader{
		ID:        g.ID,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
		Version:   g.Version,
		Dimension: g.Dimension,
		Metadata:  g.Metadata,
	}
}

func (h graphHeader) graph() *types.Graph {
	return &types.Graph{
		ID:        h.ID,
		CreatedAt: h.CreatedAt,
		UpdatedAt: h.UpdatedAt,
		Version:   h.Version,
		Dimension: h.Dimension,
		Metadata:  h.Metadata,
		Nodes:     []*types.Node{},
		Edges:     []*types.Edge{},
	}
}

func encodeGraph(g *types.Graph) ([]byte, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal graph %s: %w", g.ID, err)
	}
	return data, nil
}

func decodeGraph(data []byte) (*types.Graph, error) {
	var g types.Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal graph: %w", err)
	}
	return &g, nil
}

func summarize(g *types.Graph) types.GraphSummary {
	return types.GraphSummary{
		ID:        g.ID,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
		Version:   g.Version,
		NodeCount: len(g.Nodes),
		EdgeCount: len(g.Edges),
	}
}

func sortSummaries(out []types.GraphSummary) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
}
