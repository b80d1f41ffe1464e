package types

import "time"

// GraphStats summarizes the shape of a graph.
type GraphStats struct {
	NodeCount         int     `json:"node_count"`
	EdgeCount         int     `json:"edge_count"`
	Density           float64 `json:"density"`
	AverageDegree     float64 `json:"average_degree"`
	MinDegree         int     `json:"min_degree"`
	MaxDegree         int     `json:"max_degree"`
	ComponentCount    int     `json:"component_count"`
	IsConnected       bool    `json:"is_connected"`
	InferredEdgeCount int     `json:"inferred_edge_count"`
	TextOnlyNodeCount int     `json:"text_only_node_count"`
	ClusterCount      int     `json:"cluster_count,omitempty"`
}

// Graph is a detached snapshot of a graph. Mutating it does not affect the store.
type Graph struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Version   uint64         `json:"version"`
	Dimension int            `json:"embedding_dimension"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Stats     GraphStats     `json:"stats"`
	Nodes     []*Node        `json:"nodes"`
	Edges     []*Edge        `json:"edges"`
}

// GraphSummary is the listing form of a graph.
type GraphSummary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   uint64    `json:"version"`
	NodeCount int       `json:"node_count"`
	EdgeCount int       `json:"edge_count"`
}

// Subgraph is the induced neighbourhood of a node.
type Subgraph struct {
	CenterID string  `json:"center_id"`
	Depth    int     `json:"depth"`
	Nodes    []*Node `json:"nodes"`
	Edges    []*Edge `json:"edges"`
}

// Path is a walk through the graph.
type Path struct {
	NodeIDs       []string `json:"node_ids"`
	EdgeIDs       []string `json:"edge_ids"`
	RelationTypes []string `json:"relation_types"`
	Length        int      `json:"length"`
}

// Ends returns the first and last node of the path.
func (p Path) Ends() (string, string) {
	if len(p.NodeIDs) == 0 {
		return "", ""
	}
	return p.NodeIDs[0], p.NodeIDs[len(p.NodeIDs)-1]
}

// SimilarNode is a similarity search hit.
type SimilarNode struct {
	NodeID string  `json:"node_id"`
	Label  string  `json:"label"`
	Score  float64 `json:"score"`
}

// Clustering maps node ids to cluster labels.
type Clustering struct {
	Assignments  map[string]int `json:"assignments"`
	ClusterCount int            `json:"cluster_count"`
	Modularity   float64        `json:"modularity"`
	// Partitioned is false when the graph was at or below the threshold.
	Partitioned bool `json:"partitioned"`
}

// Members returns the node ids of every cluster, indexed by label.
func (c *Clustering) Members() map[int][]string {
	out := make(map[int][]string, c.ClusterCount)
	for id, label := range c.Assignments {
		out[label] = append(out[label], id)
	}
	return out
}

// ConnectivityReport describes what the connectivity pass did to a graph.
type ConnectivityReport struct {
	ComponentsBefore int  `json:"components_before"`
	ComponentsAfter  int  `json:"components_after"`
	SyntheticEdges   int  `json:"synthetic_edges"`
	CapReached       bool `json:"cap_reached"`
	// FlaggedIsolates holds one representative node per component left
	// disconnected, so ComponentsAfter == len(FlaggedIsolates)+1.
	FlaggedIsolates []string `json:"flagged_isolates,omitempty"`
	HubID           string   `json:"hub_id,omitempty"`
	Warning         string   `json:"warning,omitempty"`
}

// BuildResult is returned by graph construction.
type BuildResult struct {
	GraphID              string             `json:"graph_id"`
	Stats                GraphStats         `json:"stats"`
	Connectivity         ConnectivityReport `json:"connectivity"`
	MergedConcepts       int                `json:"merged_concepts"`
	DroppedRelationships int                `json:"dropped_relationships"`
	TextOnlyNodes        int                `json:"text_only_nodes"`
	Warnings             []string           `json:"warnings,omitempty"`
}

// Explanation is the answer to "how are these nodes related".
type Explanation struct {
	GraphID       string  `json:"graph_id"`
	SourceID      string  `json:"source_id"`
	TargetID      string  `json:"target_id,omitempty"`
	Paths         []Path  `json:"paths"`
	Nodes         []*Node `json:"nodes"`
	SourceCluster int     `json:"source_cluster"`
	TargetCluster int     `json:"target_cluster,omitempty"`
	SameCluster   bool    `json:"same_cluster"`
	Narrative     string  `json:"narrative,omitempty"`
}

// Answer is a question answered from graph context.
type Answer struct {
	Text      string   `json:"answer"`
	Sources   []string `json:"sources"`
	Citations []string `json:"citations"`
}

// Exchange is one question/answer turn of a conversation.
type Exchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
