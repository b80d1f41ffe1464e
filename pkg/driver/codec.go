package driver

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/soundprediction/mindgraph/pkg/types"
)

// conceptRow is the stored form of a node.
type conceptRow struct {
	Key     string
	ID      string
	Label   string
	Seq     int64
	Payload string
}

// relatesRow is the stored form of an edge.
type relatesRow struct {
	SourceKey string
	TargetKey string
	ID        string
	Type      string
	Seq       int64
	Payload   string
}

// graphRows flattens a graph into the rows written by the graph database drivers.
func graphRows(g *types.Graph) (string, []conceptRow, []relatesRow, error) {
	header, err := json.Marshal(headerOf(g))
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to marshal graph header: %w", err)
	}

	concepts := make([]conceptRow, len(g.Nodes))
	for i, n := range g.Nodes {
		payload, err := json.Marshal(n)
		if err != nil {
			return "", nil, nil, fmt.Errorf("failed to marshal node %s: %w", n.ID, err)
		}
		concepts[i] = conceptRow{
			Key:     conceptKey(g.ID, n.ID),
			ID:      n.ID,
			Label:   n.Label,
			Seq:     int64(i),
			Payload: string(payload),
		}
	}

	relates := make([]relatesRow, len(g.Edges))
	for i, e := range g.Edges {
		payload, err := json.Marshal(e)
		if err != nil {
			return "", nil, nil, fmt.Errorf("failed to marshal edge %s: %w", e.ID, err)
		}
		relates[i] = relatesRow{
			SourceKey: conceptKey(g.ID, e.SourceID),
			TargetKey: conceptKey(g.ID, e.TargetID),
			ID:        e.ID,
			Type:      e.Type,
			Seq:       int64(i),
			Payload:   string(payload),
		}
	}
	return string(header), concepts, relates, nil
}

// assembleGraph rebuilds a graph from its stored header and payloads.
func assembleGraph(header string, nodePayloads, edgePayloads []string) (*types.Graph, error) {
	var h graphHeader
	if err := json.Unmarshal([]byte(header), &h); err != nil {
		return nil, fmt.Errorf("failed to unmarshal graph header: %w", err)
	}
	g := h.graph()
	for _, p := range nodePayloads {
		var n types.Node
		if err := json.Unmarshal([]byte(p), &n); err != nil {
			return nil, fmt.Errorf("failed to unmarshal node of graph %s: %w", h.ID, err)
		}
		g.Nodes = append(g.Nodes, &n)
	}
	for _, p := range edgePayloads {
		var e types.Edge
		if err := json.Unmarshal([]byte(p), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal edge of graph %s: %w", h.ID, err)
		}
		g.Edges = append(g.Edges, &e)
	}
	return g, nil
}

// summaryFromHeader builds a listing entry from a stored header and counts.
func summaryFromHeader(header string, nodes, edges int64) (types.GraphSummary, error) {
	var h graphHeader
	if err := json.Unmarshal([]byte(header), &h); err != nil {
		return types.GraphSummary{}, fmt.Errorf("failed to unmarshal graph header: %w", err)
	}
	return types.GraphSummary{
		ID:        h.ID,
		CreatedAt: h.CreatedAt,
		UpdatedAt: h.UpdatedAt,
		Version:   h.Version,
		NodeCount: int(nodes),
		EdgeCount: int(edges),
	}, nil
}

func conceptKey(graphID, nodeID string) string {
	return graphID + "/" + nodeID
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
