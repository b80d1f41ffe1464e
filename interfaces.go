package mindgraph

import (
	"context"

	"github.com/soundprediction/mindgraph/pkg/search"
	"github.com/soundprediction/mindgraph/pkg/types"
)

// The MindGraph interface is composed from these smaller interfaces.
// Consumers should depend on the smallest interface that meets their needs.

// GraphBuilder constructs graphs and appends to them.
type GraphBuilder interface {
	// BuildGraph turns extracted concepts and relationships into a new graph.
	// Nothing is created when it fails.
	BuildGraph(ctx context.Context, concepts []types.Concept, relationships []types.Relationship) (*types.BuildResult, error)

	// BuildGraphFromText runs extraction, embedding and BuildGraph on a text.
	BuildGraphFromText(ctx context.Context, text string, opts *BuildOptions) (*types.BuildResult, error)

	// AddConcepts appends concepts to an existing graph as one atomic update.
	// parentID may be empty.
	AddConcepts(ctx context.Context, graphID, parentID string, concepts []types.Concept, relationships []types.Relationship) (*types.BuildResult, error)
}

// GraphReader provides read-only access to stored graphs.
type GraphReader interface {
	GetGraph(ctx context.Context, graphID string) (*types.Graph, error)
	ListGraphs(ctx context.Context) ([]types.GraphSummary, error)
	GetNode(ctx context.Context, graphID, nodeID string) (*types.Node, error)
	GetEdgesForNode(ctx context.Context, graphID, nodeID string) ([]*types.Edge, error)
	GetNeighbors(ctx context.Context, graphID, nodeID string, dir search.Direction) ([]*types.Node, error)
	GraphVersion(ctx context.Context, graphID string) (uint64, error)
}

// GraphNavigator walks and ranks graph contents.
type GraphNavigator interface {
	ExpandNode(ctx context.Context, graphID, nodeID string, depth int) (*types.Subgraph, error)
	BFS(ctx context.Context, graphID, start string, dir search.Direction) ([]string, error)
	DFS(ctx context.Context, graphID, start string, dir search.Direction) ([]string, error)
	ShortestPath(ctx context.Context, graphID, from, to string) (*types.Path, error)
	PathsWithinHops(ctx context.Context, graphID, from string, maxHops int) ([]types.Path, error)
	FindSimilarNodes(ctx context.Context, graphID, nodeID string, topK int) ([]types.SimilarNode, error)
	ClusterGraph(ctx context.Context, graphID string) (*types.Clustering, error)
}

// GraphReasoner answers questions about a graph with a language model.
type GraphReasoner interface {
	// ExplainRelationship describes how two nodes are connected. targetID
	// may be empty to list every path leaving sourceID.
	ExplainRelationship(ctx context.Context, graphID, sourceID, targetID string, opts *ExplainOptions) (*types.Explanation, error)

	AnswerQuestion(ctx context.Context, graphID, question string, history []types.Exchange) (*types.Answer, error)

	SummarizeGraph(ctx context.Context, graphID string) (string, error)
}

// GraphMutator removes graph contents.
type GraphMutator interface {
	DeleteGraph(ctx context.Context, graphID string) error
	// DeleteNode removes a node with its incident edges and returns the ids
	// of the removed edges.
	DeleteNode(ctx context.Context, graphID, nodeID string) ([]string, error)
}

// EventSource publishes graph lifecycle events.
type EventSource interface {
	// Subscribe returns a channel of events and a function that ends the
	// subscription and closes the channel.
	Subscribe(buffer int) (<-chan GraphEvent, func())
}
