package driver

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/soundprediction/mindgraph/pkg/types"
)

// Neo4jDriver stores graphs in Neo4j or Memgraph over Bolt.
type Neo4jDriver struct {
	client   neo4j.DriverWithContext
	database string
	provider GraphProvider
}

var _ GraphDriver = (*Neo4jDriver)(nil)

// NewNeo4jDriver creates a new Neo4j driver instance.
func NewNeo4jDriver(uri, username, password, database string) (*Neo4jDriver, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	return &Neo4jDriver{
		client:   driver,
		database: database,
		provider: GraphProviderNeo4j,
	}, nil
}

func (n *Neo4jDriver) session(ctx context.Context) neo4j.SessionWithContext {
	return n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
}

// CreateIndices creates the schema indices. Statements run outside explicit
// transactions because Memgraph rejects index creation inside them.
func (n *Neo4jDriver) CreateIndices(ctx context.Context) error {
	session := n.session(ctx)
	defer session.Close(ctx)

	for _, query := range GetIndexQueries(n.provider) {
		result, err := session.Run(ctx, query, nil)
		if err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
		if _, err := result.Consume(ctx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// SaveGraph replaces the graph in a single write transaction.
func (n *Neo4jDriver) SaveGraph(ctx context.Context, g *types.Graph) error {
	if err := ValidateGraphID(g.ID); err != nil {
		return err
	}
	header, concepts, relates, err := graphRows(g)
	if err != nil {
		return err
	}

	nodeParams := make([]map[string]any, len(concepts))
	for i, c := range concepts {
		nodeParams[i] = map[string]any{
			"graph_id": g.ID,
			"id":       c.ID,
			"label":    c.Label,
			"seq":      c.Seq,
			"payload":  c.Payload,
		}
	}
	edgeParams := make([]map[string]any, len(relates))
	for i, r := range relates {
		edgeParams[i] = map[string]any{
			"source_id": g.Edges[i].SourceID,
			"target_id": g.Edges[i].TargetID,
			"props": map[string]any{
				"graph_id": g.ID,
				"id":       r.ID,
				"type":     r.Type,
				"seq":      r.Seq,
				"payload":  r.Payload,
			},
		}
	}

	session := n.session(ctx)
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		params := map[string]any{"graph_id": g.ID}
		if _, err := tx.Run(ctx, deleteConceptsQuery, params); err != nil {
			return nil, err
		}
		if _, err := tx.Run(ctx, upsertHeaderQuery, map[string]any{
			"graph_id":   g.ID,
			"header":     header,
			"created_at": formatTime(g.CreatedAt),
			"node_count": int64(len(concepts)),
			"edge_count": int64(len(relates)),
		}); err != nil {
			return nil, err
		}
		if len(nodeParams) > 0 {
			if _, err := tx.Run(ctx, `
				UNWIND $nodes AS node
				CREATE (c:Concept)
				SET c = node
			`, map[string]any{"nodes": nodeParams}); err != nil {
				return nil, err
			}
		}
		if len(edgeParams) > 0 {
			if _, err := tx.Run(ctx, `
				UNWIND $edges AS edge
				MATCH (s:Concept {graph_id: $graph_id, id: edge.source_id})
				MATCH (t:Concept {graph_id: $graph_id, id: edge.target_id})
				CREATE (s)-[r:RELATES]->(t)
				SET r = edge.props
			`, map[string]any{"graph_id": g.ID, "edges": edgeParams}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to save graph %s: %w", g.ID, err)
	}
	return nil
}

// LoadGraph implements GraphDriver.
func (n *Neo4jDriver) LoadGraph(ctx context.Context, graphID string) (*types.Graph, error) {
	if err := ValidateGraphID(graphID); err != nil {
		return nil, err
	}

	session := n.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		params := map[string]any{"graph_id": graphID}

		headers, err := collectStrings(ctx, tx, selectHeaderQuery, params, "header")
		if err != nil || len(headers) == 0 {
			return nil, err
		}
		nodes, err := collectStrings(ctx, tx, selectConceptsQuery, params, "payload")
		if err != nil {
			return nil, err
		}
		edges, err := collectStrings(ctx, tx, selectRelatesQuery, params, "payload")
		if err != nil {
			return nil, err
		}
		return assembleGraph(headers[0], nodes, edges)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load graph %s: %w", graphID, err)
	}
	g, ok := result.(*types.Graph)
	if !ok || g == nil {
		return nil, notFound(graphID)
	}
	return g, nil
}

func collectStrings(ctx context.Context, tx neo4j.ManagedTransaction, query string, params map[string]any, key string) ([]string, error) {
	res, err := tx.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	records, err := res.Collect(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(records))
	for _, record := range records {
		value, _ := record.Get(key)
		s, err := MustString(value, key)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// DeleteGraph implements GraphDriver.
func (n *Neo4jDriver) DeleteGraph(ctx context.Context, graphID string) error {
	if err := ValidateGraphID(graphID); err != nil {
		return err
	}

	session := n.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		params := map[string]any{"graph_id": graphID}
		if _, err := tx.Run(ctx, deleteConceptsQuery, params); err != nil {
			return nil, err
		}
		_, err := tx.Run(ctx, deleteHeaderQuery, params)
		return nil, err
	})
	return err
}

// ListGraphs implements GraphDriver.
func (n *Neo4jDriver) ListGraphs(ctx context.Context) ([]types.GraphSummary, error) {
	session := n.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, listHeadersQuery, nil)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}

		out := make([]types.GraphSummary, 0, len(records))
		for _, record := range records {
			header, _ := record.Get("header")
			nodes, _ := record.Get("node_count")
			edges, _ := record.Get("edge_count")
			h, err := MustString(header, "header")
			if err != nil {
				return nil, err
			}
			nodeCount, _ := AsInt64(nodes)
			edgeCount, _ := AsInt64(edges)
			summary, err := summaryFromHeader(h, nodeCount, edgeCount)
			if err != nil {
				return nil, err
			}
			out = append(out, summary)
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}
	out := result.([]types.GraphSummary)
	sortSummaries(out)
	return out, nil
}

// Provider implements GraphDriver.
func (n *Neo4jDriver) Provider() GraphProvider {
	return n.provider
}

// Close implements GraphDriver.
func (n *Neo4jDriver) Close() error {
	return n.client.Close(context.Background())
}

// VerifyConnectivity checks if the driver can connect to the database.
func (n *Neo4jDriver) VerifyConnectivity(ctx context.Context) error {
	return n.client.VerifyConnectivity(ctx)
}
