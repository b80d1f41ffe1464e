package mindgraph

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/soundprediction/mindgraph/pkg/prompts"
	"github.com/soundprediction/mindgraph/pkg/search"
	"github.com/soundprediction/mindgraph/pkg/store"
	"github.com/soundprediction/mindgraph/pkg/types"
)

const (
	// qaSeedLimit is the number of nodes picked as most relevant to a question.
	qaSeedLimit = 5
	// qaContextDepth is the neighbourhood radius around each relevant node.
	qaContextDepth = 2
	// qaContextLimit caps the nodes sent to the model.
	qaContextLimit = 40
	// qaPathLimit caps the connection paths sent to the model.
	qaPathLimit = 5
)

// AnswerQuestion answers a question from the graph's content. The nodes most
// relevant to the question are found by embedding similarity and label
// matching; they and their two-hop neighbourhood form the model's context.
// Sources are the context labels the answer mentions, citations their ids.
func (c *Client) AnswerQuestion(ctx context.Context, graphID, question string, history []types.Exchange) (*types.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", types.ErrInvalidInput)
	}
	if err := c.ensureLoaded(ctx, graphID); err != nil {
		return nil, err
	}
	if _, err := c.explainer("answerer"); err != nil {
		return nil, err
	}

	var query []float32
	if c.embedder.Available() {
		vec, err := c.embedder.Embed(ctx, question)
		if err != nil {
			c.logger.WarnContext(ctx, "matching question by label only", "graph_id", graphID, "error", err)
		} else {
			query = vec
		}
	}

	var (
		contextNodes []*types.Node
		promptCtx    map[string]any
	)
	err := c.store.View(graphID, func(g *store.Graph) error {
		seeds := relevantNodes(g, question, query)
		contextNodes, promptCtx = questionContext(g, seeds)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(history) > c.config.HistoryLimit {
		history = history[len(history)-c.config.HistoryLimit:]
	}
	promptCtx[prompts.KeyQuestion] = question
	promptCtx[prompts.KeyHistory] = history

	text, err := c.complete(ctx, "answerer", c.prompts.AnswerQuestion, promptCtx)
	if err != nil {
		return nil, err
	}

	answer := &types.Answer{Text: text, Sources: []string{}, Citations: []string{}}
	lower := strings.ToLower(text)
	for _, n := range contextNodes {
		label := strings.TrimSpace(n.Label)
		if label == "" || !strings.Contains(lower, strings.ToLower(label)) {
			continue
		}
		answer.Sources = append(answer.Sources, n.Label)
		answer.Citations = append(answer.Citations, n.ID)
	}
	c.logger.InfoContext(ctx, "question answered", "graph_id", graphID,
		"context_nodes", len(contextNodes), "citations", len(answer.Citations))
	return answer, nil
}

// relevantNodes ranks nodes against a question, merging embedding and label
// scores. Without any hit the most important nodes are used.
func relevantNodes(g *store.Graph, question string, query []float32) []string {
	scores := make(map[string]float64)
	if len(query) > 0 && len(query) == g.Dimension() {
		for _, hit := range search.FindSimilar(g, query, qaSeedLimit) {
			scores[hit.NodeID] = max(scores[hit.NodeID], hit.Score)
		}
	}
	for _, hit := range search.MatchLabels(g, question, qaSeedLimit) {
		scores[hit.NodeID] = max(scores[hit.NodeID], hit.Score)
	}

	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		nodes := g.Nodes()
		slices.SortStableFunc(nodes, func(a, b *types.Node) int {
			return cmp.Compare(b.Importance, a.Importance)
		})
		for _, n := range nodes[:min(len(nodes), qaSeedLimit)] {
			ids = append(ids, n.ID)
		}
		return ids
	}
	slices.SortFunc(ids, func(a, b string) int {
		if c := cmp.Compare(scores[b], scores[a]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return ids[:min(len(ids), qaSeedLimit)]
}

// questionContext gathers the neighbourhoods of seeds and the paths between
// them into a prompt context.
func questionContext(g *store.Graph, seeds []string) ([]*types.Node, map[string]any) {
	var nodes []*types.Node
	included := make(map[string]bool)
	edgeSeen := make(map[string]bool)
	var relations []prompts.RelationContext

	for _, id := range seeds {
		sub := search.Expand(g, id, qaContextDepth)
		for _, n := range sub.Nodes {
			if included[n.ID] || len(nodes) >= qaContextLimit {
				continue
			}
			included[n.ID] = true
			nodes = append(nodes, n)
		}
		for _, e := range sub.Edges {
			if edgeSeen[e.ID] || !included[e.SourceID] || !included[e.TargetID] {
				continue
			}
			edgeSeen[e.ID] = true
			relations = append(relations, relationContext(g, e))
		}
	}

	var paths [][]string
	for i := 0; i < len(seeds) && len(paths) < qaPathLimit; i++ {
		for j := i + 1; j < len(seeds) && len(paths) < qaPathLimit; j++ {
			if p, err := search.ShortestPath(g, seeds[i], seeds[j]); err == nil && p.Length > 1 {
				paths = append(paths, pathLabels(g, *p))
			}
		}
	}

	concepts := make([]prompts.ConceptContext, 0, len(nodes))
	for _, n := range nodes {
		concepts = append(concepts, conceptContext(n))
	}
	return nodes, map[string]any{
		prompts.KeyNodes: concepts,
		prompts.KeyEdges: relations,
		prompts.KeyPaths: paths,
	}
}
