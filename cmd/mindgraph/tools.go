package mindgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"text/tabwriter"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/spf13/cobra"

	"github.com/soundprediction/mindgraph"
	"github.com/soundprediction/mindgraph/pkg/search"
	"github.com/soundprediction/mindgraph/pkg/types"
)

// Tool request/response types

// BuildGraphInput carries pre-extracted concepts.
type BuildGraphInput struct {
	Concepts      []types.Concept      `json:"concepts"`
	Relationships []types.Relationship `json:"relationships,omitempty"`
}

// BuildFromTextInput carries raw text for extraction.
type BuildFromTextInput struct {
	Text          string   `json:"text"`
	MaxConcepts   int      `json:"max_concepts,omitempty"`
	MinImportance float64  `json:"min_importance,omitempty"`
	RelationTypes []string `json:"relation_types,omitempty"`
}

// GraphInput names a graph.
type GraphInput struct {
	GraphID string `json:"graph_id"`
}

// NodeInput names a node and tunes the expansion or similarity search.
type NodeInput struct {
	GraphID string `json:"graph_id"`
	NodeID  string `json:"node_id"`
	Depth   int    `json:"depth,omitempty"`
	TopK    int    `json:"top_k,omitempty"`
}

// PathInput names two nodes.
type PathInput struct {
	GraphID  string `json:"graph_id"`
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id,omitempty"`
	MaxHops  int    `json:"max_hops,omitempty"`
}

// QuestionInput carries a question and the prior exchanges.
type QuestionInput struct {
	GraphID  string           `json:"graph_id"`
	Question string           `json:"question"`
	History  []types.Exchange `json:"history,omitempty"`
}

// ToolResponse is a generic response wrapper
type ToolResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// graphTools exposes graph operations as model-callable tools.
type graphTools struct {
	graphs mindgraph.MindGraph
	logger *slog.Logger
}

func newGraphTools(graphs mindgraph.MindGraph, logger *slog.Logger) *graphTools {
	if logger == nil {
		logger = slog.Default()
	}
	return &graphTools{graphs: graphs, logger: logger}
}

func (t *graphTools) respond(tool string, data any, err error) *ToolResponse {
	if err != nil {
		t.logger.Warn("tool failed", "tool", tool, "error", err)
		return &ToolResponse{Success: false, Error: err.Error()}
	}
	return &ToolResponse{Success: true, Data: data}
}

func (t *graphTools) buildGraph(ctx context.Context, in *BuildGraphInput) *ToolResponse {
	if len(in.Concepts) == 0 {
		return &ToolResponse{Success: false, Error: "concepts are required"}
	}
	res, err := t.graphs.BuildGraph(ctx, in.Concepts, in.Relationships)
	return t.respond("build_graph", res, err)
}

func (t *graphTools) buildFromText(ctx context.Context, in *BuildFromTextInput) *ToolResponse {
	if in.Text == "" {
		return &ToolResponse{Success: false, Error: "text is required"}
	}
	res, err := t.graphs.BuildGraphFromText(ctx, in.Text, &mindgraph.BuildOptions{
		MaxConcepts:   in.MaxConcepts,
		MinImportance: in.MinImportance,
		RelationTypes: in.RelationTypes,
	})
	return t.respond("build_graph_from_text", res, err)
}

func (t *graphTools) listGraphs(ctx context.Context) *ToolResponse {
	graphs, err := t.graphs.ListGraphs(ctx)
	return t.respond("list_graphs", graphs, err)
}

func (t *graphTools) expandNode(ctx context.Context, in *NodeInput) *ToolResponse {
	depth := in.Depth
	if depth == 0 {
		depth = 1
	}
	sub, err := t.graphs.ExpandNode(ctx, in.GraphID, in.NodeID, depth)
	return t.respond("expand_node", sub, err)
}

func (t *graphTools) similarNodes(ctx context.Context, in *NodeInput) *ToolResponse {
	topK := in.TopK
	if topK == 0 {
		topK = search.DefaultTopK
	}
	similar, err := t.graphs.FindSimilarNodes(ctx, in.GraphID, in.NodeID, topK)
	return t.respond("find_similar_nodes", similar, err)
}

func (t *graphTools) shortestPath(ctx context.Context, in *PathInput) *ToolResponse {
	if in.TargetID == "" {
		return &ToolResponse{Success: false, Error: "target_id is required"}
	}
	path, err := t.graphs.ShortestPath(ctx, in.GraphID, in.SourceID, in.TargetID)
	return t.respond("shortest_path", path, err)
}

func (t *graphTools) explain(ctx context.Context, in *PathInput) *ToolResponse {
	exp, err := t.graphs.ExplainRelationship(ctx, in.GraphID, in.SourceID, in.TargetID, &mindgraph.ExplainOptions{MaxHops: in.MaxHops})
	return t.respond("explain_relationship", exp, err)
}

func (t *graphTools) answer(ctx context.Context, in *QuestionInput) *ToolResponse {
	if in.Question == "" {
		return &ToolResponse{Success: false, Error: "question is required"}
	}
	ans, err := t.graphs.AnswerQuestion(ctx, in.GraphID, in.Question, in.History)
	return t.respond("answer_question", ans, err)
}

func (t *graphTools) summarize(ctx context.Context, in *GraphInput) *ToolResponse {
	summary, err := t.graphs.SummarizeGraph(ctx, in.GraphID)
	if err != nil {
		return t.respond("summarize_graph", nil, err)
	}
	return &ToolResponse{Success: true, Message: summary}
}

// Register defines every tool on g and returns them by name.
func (t *graphTools) Register(g *genkit.Genkit) map[string]ai.Tool {
	tools := map[string]ai.Tool{}
	add := func(tool ai.Tool) { tools[tool.Name()] = tool }

	add(genkit.DefineTool(g, "build_graph",
		"Build a connected concept graph from concepts and relationships.",
		func(ctx *ai.ToolContext, in *BuildGraphInput) (*ToolResponse, error) {
			return t.buildGraph(ctx, in), nil
		}))
	add(genkit.DefineTool(g, "build_graph_from_text",
		"Extract concepts from text and build a graph from them.",
		func(ctx *ai.ToolContext, in *BuildFromTextInput) (*ToolResponse, error) {
			return t.buildFromText(ctx, in), nil
		}))
	add(genkit.DefineTool(g, "list_graphs",
		"List the stored graphs with their sizes.",
		func(ctx *ai.ToolContext, _ *GraphInput) (*ToolResponse, error) {
			return t.listGraphs(ctx), nil
		}))
	add(genkit.DefineTool(g, "expand_node",
		"Return the neighbourhood of a node up to a depth.",
		func(ctx *ai.ToolContext, in *NodeInput) (*ToolResponse, error) {
			return t.expandNode(ctx, in), nil
		}))
	add(genkit.DefineTool(g, "find_similar_nodes",
		"Rank the nodes most similar to a node by embedding.",
		func(ctx *ai.ToolContext, in *NodeInput) (*ToolResponse, error) {
			return t.similarNodes(ctx, in), nil
		}))
	add(genkit.DefineTool(g, "shortest_path",
		"Find the shortest path between two nodes.",
		func(ctx *ai.ToolContext, in *PathInput) (*ToolResponse, error) {
			return t.shortestPath(ctx, in), nil
		}))
	add(genkit.DefineTool(g, "explain_relationship",
		"Explain how two nodes are connected.",
		func(ctx *ai.ToolContext, in *PathInput) (*ToolResponse, error) {
			return t.explain(ctx, in), nil
		}))
	add(genkit.DefineTool(g, "answer_question",
		"Answer a question using the contents of a graph.",
		func(ctx *ai.ToolContext, in *QuestionInput) (*ToolResponse, error) {
			return t.answer(ctx, in), nil
		}))
	add(genkit.DefineTool(g, "summarize_graph",
		"Summarize a graph in a few sentences.",
		func(ctx *ai.ToolContext, in *GraphInput) (*ToolResponse, error) {
			return t.summarize(ctx, in), nil
		}))
	return tools
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List or invoke the graph tools offered to language models",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the registered tools",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(client *mindgraph.Client) error {
			g := genkit.Init(cmd.Context())
			tools := newGraphTools(client, nil).Register(g)

			names := make([]string, 0, len(tools))
			for name := range tools {
				names = append(names, name)
			}
			sort.Strings(names)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tDESCRIPTION")
			for _, name := range names {
				fmt.Fprintf(tw, "%s\t%s\n", name, tools[name].Definition().Description)
			}
			return tw.Flush()
		})
	},
}

var toolsCallCmd = &cobra.Command{
	Use:   "call <tool> [json-input]",
	Short: "Invoke a tool with a JSON input",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var input any = map[string]any{}
		if len(args) == 2 {
			if err := json.Unmarshal([]byte(args[1]), &input); err != nil {
				return fmt.Errorf("invalid tool input: %w", err)
			}
		}
		return withClient(cmd, func(client *mindgraph.Client) error {
			g := genkit.Init(cmd.Context())
			tools := newGraphTools(client, nil).Register(g)

			tool, ok := tools[args[0]]
			if !ok {
				return fmt.Errorf("unknown tool %q", args[0])
			}
			out, err := tool.RunRaw(cmd.Context(), input)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), "json", out)
		})
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.AddCommand(toolsListCmd, toolsCallCmd)
}
