package gliner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/soundprediction/mindgraph/pkg/extraction"
	"github.com/soundprediction/mindgraph/pkg/nlp"
	"github.com/soundprediction/mindgraph/pkg/types"
)

// DefaultLabels are the entity classes searched for when none are configured.
var DefaultLabels = []string{"concept", "technology", "process", "person", "organization", "location", "event"}

// excerptRadius is the number of characters kept on each side of a span.
const excerptRadius = 80

// Extractor implements extraction.Extractor with local GLiNER models.
// Entity spans become concepts and the span score becomes the importance.
type Extractor struct {
	client *Client
	labels []string
	logger *slog.Logger
}

var _ extraction.Extractor = (*Extractor)(nil)

// NewExtractor creates an extractor over client.
func NewExtractor(client *Client, labels []string, logger *slog.Logger) *Extractor {
	if len(labels) == 0 {
		labels = DefaultLabels
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{client: client, labels: labels, logger: logger}
}

// ExtractConcepts implements extraction.Extractor.
func (e *Extractor) ExtractConcepts(ctx context.Context, text string, opts extraction.Options) ([]types.Concept, error) {
	if err := ctx.Err(); err != nil {
		return nil, nlp.AsCollaboratorError("extraction", err)
	}
	opts = opts.WithDefaults()

	entities, err := e.client.ExtractEntities(text, e.labels)
	if err != nil {
		return nil, nlp.AsCollaboratorError("extraction", fmt.Errorf("GLiNER entity extraction failed: %w", err))
	}

	concepts := entitiesToConcepts(text, entities)
	filtered := extraction.FilterConcepts(concepts, opts.MinImportance, opts.MaxConcepts)
	e.logger.Debug("GLiNER extracted concepts", "entities", len(entities), "kept", len(filtered))
	return filtered, nil
}

// ExtractRelationships implements extraction.Extractor. Without a relation
// model it returns no relationships and leaves connectivity to the graph.
func (e *Extractor) ExtractRelationships(ctx context.Context, text string, concepts []types.Concept, opts extraction.Options) ([]types.Relationship, error) {
	if len(concepts) < 2 || !e.client.HasRelationModel() {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, nlp.AsCollaboratorError("extraction", err)
	}
	opts = opts.WithDefaults()

	schema := make(map[string][2][]string, len(opts.RelationTypes))
	for _, rt := range opts.RelationTypes {
		schema[rt] = [2][]string{e.labels, e.labels}
	}

	relations, err := e.client.ExtractRelations(text, e.labels, schema)
	if err != nil {
		return nil, nlp.AsCollaboratorError("extraction", fmt.Errorf("GLiNER relation extraction failed: %w", err))
	}

	rels := make([]types.Relationship, 0, len(relations))
	for _, r := range relations {
		rels = append(rels, types.Relationship{
			SourceLabel: r.Source,
			TargetLabel: r.Target,
			Type:        r.Type,
			Strength:    types.ClampUnit(float64(r.Score)),
			Description: fmt.Sprintf("%s %s %s", r.Source, r.Type, r.Target),
		})
	}
	return extraction.ResolveRelationships(rels, concepts, opts.MinStrength), nil
}

// Close frees the models.
func (e *Extractor) Close() error {
	return e.client.Close()
}

// entitiesToConcepts keeps the best scoring span for each label.
func entitiesToConcepts(text string, entities []Entity) []types.Concept {
	index := make(map[string]int, len(entities))
	concepts := make([]types.Concept, 0, len(entities))
	for _, ent := range entities {
		label := strings.TrimSpace(ent.Text)
		if label == "" {
			continue
		}
		c := types.Concept{
			Label:         label,
			Importance:    types.ClampUnit(float64(ent.Score)),
			SourceExcerpt: excerpt(text, label),
			Metadata:      map[string]any{"entity_type": ent.Label},
		}
		key := types.NormalizeLabel(label)
		if i, ok := index[key]; ok {
			if c.Importance > concepts[i].Importance {
				concepts[i] = c
			}
			continue
		}
		index[key] = len(concepts)
		concepts = append(concepts, c)
	}
	return concepts
}

// excerpt returns the text surrounding the first occurrence of span.
func excerpt(text, span string) string {
	i := strings.Index(text, span)
	if i < 0 {
		return ""
	}
	start := max(0, i-excerptRadius)
	end := min(len(text), i+len(span)+excerptRadius)
	for start > 0 && !isBoundary(text[start]) {
		start--
	}
	for end < len(text) && !isBoundary(text[end-1]) {
		end++
	}
	return strings.TrimSpace(text[start:end])
}

func isBoundary(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t'
}
