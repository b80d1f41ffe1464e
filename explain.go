package mindgraph

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/soundprediction/mindgraph/pkg/extraction"
	"github.com/soundprediction/mindgraph/pkg/nlp"
	"github.com/soundprediction/mindgraph/pkg/prompts"
	"github.com/soundprediction/mindgraph/pkg/search"
	"github.com/soundprediction/mindgraph/pkg/store"
	"github.com/soundprediction/mindgraph/pkg/types"
)

// ExplainRelationship lists the paths connecting two nodes together with
// their cluster context. When an explainer model is configured and a target
// is given, a short narrative is added. No connecting path is not an error:
// the explanation then has no paths.
func (c *Client) ExplainRelationship(ctx context.Context, graphID, sourceID, targetID string, opts *ExplainOptions) (*types.Explanation, error) {
	if opts == nil {
		opts = &ExplainOptions{}
	}
	maxHops, err := search.HopLimit(opts.MaxHops)
	if err != nil {
		return nil, err
	}
	if err := c.ensureLoaded(ctx, graphID); err != nil {
		return nil, err
	}

	exp := &types.Explanation{GraphID: graphID, SourceID: sourceID, TargetID: targetID}
	var promptCtx map[string]any
	err = c.store.View(graphID, func(g *store.Graph) error {
		source, ok := g.Node(sourceID)
		if !ok {
			return fmt.Errorf("%w: %s", types.ErrNodeNotFound, sourceID)
		}
		var target *types.Node
		if targetID != "" {
			if target, ok = g.Node(targetID); !ok {
				return fmt.Errorf("%w: %s", types.ErrNodeNotFound, targetID)
			}
		}

		exp.Paths = search.PathsWithinHops(g, sourceID, targetID, maxHops, c.config.MaxPaths)
		exp.Nodes = pathNodes(g, exp.Paths)

		clusters := c.community.Detect(g)
		exp.SourceCluster = clusters.Assignments[sourceID]
		if target != nil {
			exp.TargetCluster = clusters.Assignments[targetID]
			exp.SameCluster = exp.SourceCluster == exp.TargetCluster
			promptCtx = explainContext(g, source, target, exp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if promptCtx != nil && !opts.SkipNarrative && c.languageModels.Explainer != nil {
		narrative, err := c.complete(ctx, "explainer", c.prompts.ExplainRelationship, promptCtx)
		if err != nil {
			c.logger.WarnContext(ctx, "explanation without narrative", "graph_id", graphID,
				"source_id", sourceID, "target_id", targetID, "error", err)
		}
		exp.Narrative = narrative
	}
	c.touch(graphID)
	return exp, nil
}

// pathNodes returns copies of every node visited by paths, in first visit order.
func pathNodes(g *store.Graph, paths []types.Path) []*types.Node {
	seen := make(map[string]bool)
	out := []*types.Node{}
	for _, p := range paths {
		for _, id := range p.NodeIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			if n, ok := g.Node(id); ok {
				out = append(out, n.Clone())
			}
		}
	}
	return out
}

func explainContext(g *store.Graph, source, target *types.Node, exp *types.Explanation) map[string]any {
	ctx := map[string]any{
		prompts.KeySource:      conceptContext(source),
		prompts.KeyTarget:      conceptContext(target),
		prompts.KeySameCluster: exp.SameCluster,
	}
	if len(exp.Paths) == 0 {
		return ctx
	}
	best := exp.Paths[0]
	ctx[prompts.KeyPath] = pathLabels(g, best)
	if best.Length == 1 {
		ctx[prompts.KeyRelationshipType] = best.RelationTypes[0]
	}
	return ctx
}

// pathLabels renders a path as labels interleaved with relation types.
func pathLabels(g *store.Graph, p types.Path) []string {
	out := make([]string, 0, 2*len(p.NodeIDs))
	for i, id := range p.NodeIDs {
		if i > 0 {
			out = append(out, "["+p.RelationTypes[i-1]+"]")
		}
		if n, ok := g.Node(id); ok {
			out = append(out, n.Label)
		} else {
			out = append(out, id)
		}
	}
	return out
}

func conceptContext(n *types.Node) prompts.ConceptContext {
	return prompts.ConceptContext{ID: n.ID, Label: n.Label, Description: n.Description}
}

func relationContext(g *store.Graph, e *types.Edge) prompts.RelationContext {
	rc := prompts.RelationContext{Source: e.SourceID, Type: e.Type, Target: e.TargetID}
	if n, ok := g.Node(e.SourceID); ok {
		rc.Source = n.Label
	}
	if n, ok := g.Node(e.TargetID); ok {
		rc.Target = n.Label
	}
	return rc
}

// SummarizeGraph asks the explainer model for an overview of a graph. The most
// important concepts are listed first.
func (c *Client) SummarizeGraph(ctx context.Context, graphID string) (string, error) {
	if err := c.ensureLoaded(ctx, graphID); err != nil {
		return "", err
	}
	var promptCtx map[string]any
	err = c.store.View(graphID, func(g *store.Graph) error {
		nodes := g.Nodes()
		slices.SortStableFunc(nodes, func(a, b *types.Node) int {
			return cmp.Compare(b.Importance, a.Importance)
		})
		concepts := make([]prompts.ConceptContext, 0, len(nodes))
		for _, n := range nodes {
			concepts = append(concepts, conceptContext(n))
		}
		var relations []prompts.RelationContext
		for _, e := range g.Edges() {
			if e.Inferred() {
				continue
			}
			relations = append(relations, relationContext(g, e))
		}
		promptCtx = map[string]any{prompts.KeyNodes: concepts, prompts.KeyEdges: relations}
		return nil
	})
	if err != nil {
		return "", err
	}
	return c.complete(ctx, "summarizer", c.prompts.SummarizeGraph, promptCtx)
}

// complete renders a prompt and returns the explainer model's cleaned reply.
func (c *Client) complete(ctx context.Context, name string, prompt prompts.PromptVersion, promptCtx map[string]any) (string, error) {
	model, err := c.explainer(name)
	if err != nil {
		return "", err
	}
	messages, err := prompt.Call(promptCtx)
	if err != nil {
		return "", err
	}
	resp, err := model.Chat(ctx, messages)
	if err != nil {
		return "", nlp.AsCollaboratorError(name, err)
	}
	text := extraction.CleanResponse(resp.Content)
	if text == "" {
		return "", nlp.AsCollaboratorError(name, nlp.ErrEmptyResponse)
	}
	return text, nil
}
