package driver

// Cypher shared by the graph database drivers. A graph is stored as one
// MindGraph node holding the header, Concept nodes holding node payloads
// and RELATES relationships holding edge payloads. seq preserves insertion
// order across a round trip.

// GetIndexQueries returns provider specific schema and index statements.
func GetIndexQueries(provider GraphProvider) []string {
	switch provider {
	case GraphProviderLadybug:
		return []string{
			`CREATE NODE TABLE IF NOT EXISTS MindGraph (
				id STRING PRIMARY KEY,
				header STRING,
				created_at STRING,
				node_count INT64,
				edge_count INT64
			);`,
			`CREATE NODE TABLE IF NOT EXISTS Concept (
				key STRING PRIMARY KEY,
				graph_id STRING,
				id STRING,
				label STRING,
				seq INT64,
				payload STRING
			);`,
			`CREATE REL TABLE IF NOT EXISTS RELATES (
				FROM Concept TO Concept,
				graph_id STRING,
				id STRING,
				type STRING,
				seq INT64,
				payload STRING
			);`,
		}
	case GraphProviderMemgraph:
		return []string{
			"CREATE INDEX ON :MindGraph(id)",
			"CREATE INDEX ON :Concept(graph_id)",
			"CREATE INDEX ON :Concept(graph_id, id)",
		}
	default: // Neo4j
		return []string{
			"CREATE CONSTRAINT mindgraph_id IF NOT EXISTS FOR (g:MindGraph) REQUIRE g.id IS UNIQUE",
			"CREATE INDEX concept_graph_id IF NOT EXISTS FOR (c:Concept) ON (c.graph_id, c.id)",
			"CREATE INDEX concept_label IF NOT EXISTS FOR (c:Concept) ON (c.label)",
			"CREATE INDEX relates_graph_id IF NOT EXISTS FOR ()-[r:RELATES]-() ON (r.graph_id)",
		}
	}
}

const (
	deleteConceptsQuery = `
		MATCH (c:Concept {graph_id: $graph_id})
		DETACH DELETE c
	`
	deleteHeaderQuery = `
		MATCH (g:MindGraph {id: $graph_id})
		DELETE g
	`
	upsertHeaderQuery = `
		MERGE (g:MindGraph {id: $graph_id})
		SET g.header = $header,
			g.created_at = $created_at,
			g.node_count = $node_count,
			g.edge_count = $edge_count
	`
	selectHeaderQuery = `
		MATCH (g:MindGraph {id: $graph_id})
		RETURN g.header AS header
	`
	listHeadersQuery = `
		MATCH (g:MindGraph)
		RETURN g.header AS header, g.node_count AS node_count, g.edge_count AS edge_count
	`
	selectConceptsQuery = `
		MATCH (c:Concept {graph_id: $graph_id})
		RETURN c.payload AS payload, c.seq AS seq
		ORDER BY seq
	`
	selectRelatesQuery = `
		MATCH (:Concept {graph_id: $graph_id})-[r:RELATES]->(:Concept)
		RETURN r.payload AS payload, r.seq AS seq
		ORDER BY seq
	`
)
