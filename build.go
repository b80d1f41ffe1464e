package mindgraph

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/soundprediction/mindgraph/pkg/dedupe"
	"github.com/soundprediction/mindgraph/pkg/extraction"
	"github.com/soundprediction/mindgraph/pkg/nlp"
	"github.com/soundprediction/mindgraph/pkg/store"
	"github.com/soundprediction/mindgraph/pkg/types"
	"github.com/soundprediction/mindgraph/pkg/utils"
)

// maxGraphIDAttempts bounds retries after a graph id collision.
const maxGraphIDAttempts = 3

// BuildGraph deduplicates concepts, inserts them with the relationships that
// resolve to them and connects the result. The graph becomes visible only
// once it is complete; on error nothing is created.
func (c *Client) BuildGraph(ctx context.Context, concepts []types.Concept, relationships []types.Relationship) (*types.BuildResult, error) {
	return c.buildGraph(ctx, concepts, relationships, nil)
}

// BuildGraphFromText validates text, extracts concepts and relationships from
// it and builds a graph from them.
func (c *Client) BuildGraphFromText(ctx context.Context, text string, opts *BuildOptions) (*types.BuildResult, error) {
	if c.extractor == nil {
		return nil, fmt.Errorf("%w: no concept extractor configured", types.ErrInvalidInput)
	}
	if err := extraction.ValidateText(text, c.config.MinTextLength, c.config.MaxTextLength); err != nil {
		return nil, err
	}

	eopts, timeout := c.extractionOptions(opts)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	concepts, err := c.extractor.ExtractConcepts(ctx, text, eopts)
	if err != nil {
		return nil, err
	}
	extracted := len(concepts)
	concepts = extraction.FilterConcepts(concepts, eopts.MinImportance, eopts.MaxConcepts)
	if len(concepts) < c.config.MinConcepts {
		return nil, types.NewInsufficientConceptsError(len(concepts), c.config.MinConcepts)
	}

	rels, err := c.extractor.ExtractRelationships(ctx, text, concepts, eopts)
	if err != nil {
		return nil, err
	}
	proposed := len(rels)
	rels = extraction.ResolveRelationships(rels, concepts, eopts.MinStrength)

	c.logger.InfoContext(ctx, "extraction complete",
		"concepts_extracted", extracted,
		"concepts_kept", len(concepts),
		"relationships_proposed", proposed,
		"relationships_kept", len(rels))

	result, err := c.buildGraph(ctx, concepts, rels, map[string]any{
		"source":         "text",
		"text_length":    utf8.RuneCountInString(text),
		"max_concepts":   eopts.MaxConcepts,
		"min_importance": eopts.MinImportance,
		"min_strength":   eopts.MinStrength,
	})
	if err != nil {
		return nil, err
	}
	result.DroppedRelationships += proposed - len(rels)
	return result, nil
}

func (c *Client) extractionOptions(opts *BuildOptions) (extraction.Options, time.Duration) {
	eopts := c.config.Extraction
	timeout := c.config.ExtractionTimeout
	if opts != nil {
		if opts.MaxConcepts > 0 {
			eopts.MaxConcepts = opts.MaxConcepts
		}
		if opts.MinImportance > 0 {
			eopts.MinImportance = opts.MinImportance
		}
		if opts.MinStrength > 0 {
			eopts.MinStrength = opts.MinStrength
		}
		if len(opts.RelationTypes) > 0 {
			eopts.RelationTypes = opts.RelationTypes
		}
		if opts.Timeout > 0 {
			timeout = opts.Timeout
		}
	}
	return eopts.WithDefaults(), timeout
}

func (c *Client) buildGraph(ctx context.Context, concepts []types.Concept, relationships []types.Relationship, metadata map[string]any) (*types.BuildResult, error) {
	concepts, warning, err := c.embedConcepts(ctx, concepts)
	if err != nil {
		return nil, err
	}

	deduped, err := c.dedupe.Dedupe(concepts)
	if err != nil {
		return nil, err
	}
	if len(deduped.Entries) < c.config.MinConcepts {
		return nil, types.NewInsufficientConceptsError(len(deduped.Entries), c.config.MinConcepts)
	}
	if err := ctx.Err(); err != nil {
		return nil, nlp.AsCollaboratorError("construction", err)
	}

	var (
		g      *store.Graph
		report types.ConnectivityReport
		pop    population
	)
	for attempt := 1; ; attempt++ {
		g = c.store.NewGraph(utils.NewGraphID())
		for k, v := range metadata {
			g.Metadata[k] = v
		}
		pop, err = c.populate(g, deduped, relationships, "")
		if err != nil {
			return nil, err
		}
		report = c.enforcer.Enforce(g)

		err = c.store.Commit(g)
		if err == nil {
			break
		}
		if !errors.Is(err, types.ErrDuplicateID) || attempt >= maxGraphIDAttempts {
			return nil, err
		}
	}
	c.touch(g.ID)

	result := &types.BuildResult{
		GraphID:              g.ID,
		Connectivity:         report,
		MergedConcepts:       deduped.Merged,
		DroppedRelationships: pop.dropped,
	}
	result.Warnings = appendWarning(result.Warnings, warning)
	result.Warnings = appendWarning(result.Warnings, report.Warning)
	result.Warnings = appendWarning(result.Warnings, c.persist(ctx, g.ID))
	c.finishResult(result)

	c.logger.InfoContext(ctx, "graph built",
		"graph_id", g.ID,
		"nodes", result.Stats.NodeCount,
		"edges", result.Stats.EdgeCount,
		"merged", result.MergedConcepts,
		"synthetic_edges", report.SyntheticEdges,
		"text_only", result.TextOnlyNodes)
	c.events.publish(GraphEvent{Type: EventCreated, GraphID: g.ID, Version: g.Version})
	return result, nil
}

// AddConcepts deduplicates concepts against the graph's nodes and each other,
// inserts what remains new together with the resolvable relationships and
// reconnects the graph, all as one update. With a parentID every new node is
// linked to the parent, which is marked as having children.
func (c *Client) AddConcepts(ctx context.Context, graphID, parentID string, concepts []types.Concept, relationships []types.Relationship) (*types.BuildResult, error) {
	if len(concepts) == 0 && len(relationships) == 0 {
		return nil, fmt.Errorf("%w: no concepts or relationships to add", types.ErrInvalidInput)
	}
	if err := c.ensureLoaded(ctx, graphID); err != nil {
		return nil, err
	}

	concepts, warning, err := c.embedConcepts(ctx, concepts)
	if err != nil {
		return nil, err
	}

	var (
		deduped *dedupe.Result
		report  types.ConnectivityReport
		pop     population
	)
	version, err := c.store.Update(graphID, func(g *store.Graph) error {
		if parentID != "" && !g.HasNode(parentID) {
			return fmt.Errorf("%w: %s", types.ErrNodeNotFound, parentID)
		}
		seeds := make([]*dedupe.Entry, 0, g.NodeCount())
		for _, n := range g.Nodes() {
			seeds = append(seeds, seedEntry(n))
		}
		var err error
		deduped, err = c.dedupe.DedupeAgainst(seeds, concepts)
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return nlp.AsCollaboratorError("construction", err)
		}
		pop, err = c.populate(g, deduped, relationships, parentID)
		if err != nil {
			return err
		}
		report = c.enforcer.Enforce(g)
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &types.BuildResult{
		GraphID:              graphID,
		Connectivity:         report,
		MergedConcepts:       deduped.Merged,
		DroppedRelationships: pop.dropped,
	}
	result.Warnings = appendWarning(result.Warnings, warning)
	result.Warnings = appendWarning(result.Warnings, report.Warning)
	result.Warnings = appendWarning(result.Warnings, c.persist(ctx, graphID))
	c.finishResult(result)

	c.logger.InfoContext(ctx, "concepts added",
		"graph_id", graphID,
		"parent_id", parentID,
		"new_nodes", pop.added,
		"merged", result.MergedConcepts,
		"version", version)
	c.events.publish(GraphEvent{Type: EventUpdated, GraphID: graphID, Version: version})
	return result, nil
}

// finishResult fills the statistics of a committed graph.
func (c *Client) finishResult(result *types.BuildResult) {
	_ = c.store.View(result.GraphID, func(g *store.Graph) error {
		result.Stats = g.Stats()
		return nil
	})
	result.TextOnlyNodes = result.Stats.TextOnlyNodeCount
}

// embedConcepts fills missing embeddings. An embedding failure is not fatal:
// the affected concepts stay text-only and a warning is returned. Timeouts
// and cancellation are returned as errors.
func (c *Client) embedConcepts(ctx context.Context, concepts []types.Concept) ([]types.Concept, string, error) {
	var (
		texts []string
		idx   []int
	)
	for i := range concepts {
		if len(concepts[i].Embedding) == 0 && strings.TrimSpace(concepts[i].Label) != "" {
			texts = append(texts, concepts[i].EmbeddingText())
			idx = append(idx, i)
		}
	}
	if len(texts) == 0 || !c.embedder.Available() {
		return concepts, "", nil
	}

	vectors, err := c.embedder.BatchEmbed(ctx, texts)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, types.ErrCollaboratorTimeout) {
			return nil, "", err
		}
		c.logger.WarnContext(ctx, "continuing without embeddings", "concepts", len(texts), "error", err)
		return concepts, fmt.Sprintf("embedding unavailable, %d concept(s) stored text-only: %v", len(texts), err), nil
	}

	out := slices.Clone(concepts)
	for j, i := range idx {
		out[i].Embedding = vectors[j]
	}
	return out, "", nil
}

type population struct {
	added   int
	dropped int
}

// populate writes deduplicated entries and their relationships into g.
// Entries standing for existing nodes update them when a merge changed them.
func (c *Client) populate(g *store.Graph, deduped *dedupe.Result, relationships []types.Relationship, parentID string) (population, error) {
	var pop population
	nodeIDs := make(map[*dedupe.Entry]string, len(deduped.Entries))

	var fresh []*types.Node
	for _, e := range deduped.Entries {
		if e.NodeID != "" {
			nodeIDs[e] = e.NodeID
			if !e.Changed {
				continue
			}
			existing, ok := g.Node(e.NodeID)
			if !ok {
				return pop, &types.InvariantError{GraphID: g.ID, Detail: "merged into missing node " + e.NodeID}
			}
			if err := g.UpdateNode(mergedNode(existing, e)); err != nil {
				return pop, err
			}
			continue
		}
		n := entryNode(e, g.NewID(utils.KindNode))
		if parentID != "" {
			n.Metadata = setMeta(n.Metadata, types.MetaParentID, parentID)
		}
		nodeIDs[e] = n.ID
		fresh = append(fresh, n)
	}
	if err := g.AddNodes(fresh); err != nil {
		return pop, err
	}
	pop.added = len(fresh)

	var edges []*types.Edge
	for _, r := range relationships {
		source, okSource := deduped.Resolve(r.SourceLabel)
		target, okTarget := deduped.Resolve(r.TargetLabel)
		if !okSource || !okTarget {
			pop.dropped++
			continue
		}
		sourceID, targetID := nodeIDs[source], nodeIDs[target]
		if sourceID == targetID && !g.AllowsSelfLoops() {
			pop.dropped++
			continue
		}
		strength := types.ClampUnit(r.Strength)
		edges = append(edges, &types.Edge{
			ID:          g.NewID(utils.KindEdge),
			SourceID:    sourceID,
			TargetID:    targetID,
			Type:        types.NormalizeRelationType(r.Type),
			Description: strings.TrimSpace(r.Description),
			Weight:      strength,
			Confidence:  strength,
		})
	}
	if parentID != "" {
		for _, n := range fresh {
			edges = append(edges, &types.Edge{
				ID:         g.NewID(utils.KindEdge),
				SourceID:   parentID,
				TargetID:   n.ID,
				Type:       types.RelRelatedTo,
				Weight:     n.Importance,
				Confidence: n.Confidence,
			})
		}
	}
	if _, err := g.AddEdges(edges); err != nil {
		return pop, err
	}

	if parentID != "" && len(fresh) > 0 {
		parent, _ := g.Node(parentID)
		if !parent.HasChildren {
			p := parent.Clone()
			p.HasChildren = true
			if err := g.UpdateNode(p); err != nil {
				return pop, err
			}
		}
	}
	return pop, nil
}

// entryNode converts a new dedupe entry into a node.
func entryNode(e *dedupe.Entry, id string) *types.Node {
	concept := e.Concept
	tier := concept.Tier
	if tier < types.TierUnset || tier > types.TierSupporting {
		tier = types.TierUnset
	}
	n := &types.Node{
		ID:          id,
		Label:       concept.Label,
		Description: concept.Description,
		Embedding:   concept.Embedding,
		Importance:  types.ClampUnit(concept.Importance),
		Confidence:  types.ClampUnit(e.Confidence),
		Metadata:    types.CloneMetadata(concept.Metadata),
		Tier:        tier,
	}
	annotate(n, e)
	return n
}

// mergedNode applies a merge recorded on a seeded entry to its node.
func mergedNode(existing *types.Node, e *dedupe.Entry) *types.Node {
	n := existing.Clone()
	n.Label = e.Concept.Label
	n.Description = e.Concept.Description
	n.Importance = types.ClampUnit(e.Concept.Importance)
	n.Confidence = types.ClampUnit(e.Confidence)
	n.Metadata = types.CloneMetadata(e.Concept.Metadata)
	if e.Concept.Tier >= types.TierUnset && e.Concept.Tier <= types.TierSupporting {
		n.Tier = e.Concept.Tier
	}
	annotate(n, e)
	return n
}

// annotate records provenance gathered during deduplication.
func annotate(n *types.Node, e *dedupe.Entry) {
	if len(e.Excerpts) > 0 {
		n.SourceExcerpt = e.Excerpts[0]
		n.Metadata = setMeta(n.Metadata, types.MetaSourceExcerpts, slices.Clone(e.Excerpts))
	}
	if len(e.Labels) > 1 {
		n.Metadata = setMeta(n.Metadata, types.MetaMergedLabels, slices.Clone(e.Labels))
	}
	if e.TextOnly {
		n.Metadata = setMeta(n.Metadata, types.MetaTextOnly, true)
	}
}

// seedEntry describes an existing node to the deduplicator.
func seedEntry(n *types.Node) *dedupe.Entry {
	labels := metaStrings(n.Metadata, types.MetaMergedLabels)
	if !slices.Contains(labels, n.Label) {
		labels = append([]string{n.Label}, labels...)
	}
	return &dedupe.Entry{
		Key:    n.ID,
		NodeID: n.ID,
		Concept: types.Concept{
			Label:         n.Label,
			Description:   n.Description,
			Importance:    n.Importance,
			SourceExcerpt: n.SourceExcerpt,
			Tier:          n.Tier,
			Embedding:     n.Embedding,
			Metadata:      types.CloneMetadata(n.Metadata),
		},
		Labels:     labels,
		Excerpts:   n.SourceExcerpts(),
		Confidence: n.Confidence,
		TextOnly:   !n.HasEmbedding(),
	}
}

func setMeta(m map[string]any, key string, value any) map[string]any {
	if m == nil {
		m = make(map[string]any)
	}
	m[key] = value
	return m
}

// metaStrings reads a string list that may have been decoded from JSON.
func metaStrings(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case []string:
		return slices.Clone(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, s := range v {
			if str, ok := s.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

func appendWarning(warnings []string, w string) []string {
	if w == "" {
		return warnings
	}
	return append(warnings, w)
}
