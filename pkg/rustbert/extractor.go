package rustbert

import (
	"context"
	"fmt"
	"strings"

	"github.com/soundprediction/mindgraph/pkg/extraction"
	"github.com/soundprediction/mindgraph/pkg/nlp"
	"github.com/soundprediction/mindgraph/pkg/types"
)

// NERExtractor proposes named entities as concepts. It finds no
// relationships; the graph's connectivity pass links the concepts.
type NERExtractor struct {
	client *Client
}

var _ extraction.Extractor = (*NERExtractor)(nil)

// NewNERExtractor creates an extractor over the client's NER pipeline.
func NewNERExtractor(client *Client) *NERExtractor {
	return &NERExtractor{client: client}
}

// ExtractConcepts implements extraction.Extractor.
func (e *NERExtractor) ExtractConcepts(ctx context.Context, text string, opts extraction.Options) ([]types.Concept, error) {
	if err := ctx.Err(); err != nil {
		return nil, nlp.AsCollaboratorError("extraction", err)
	}
	opts = opts.WithDefaults()

	entities, err := e.client.ExtractEntities(text)
	if err != nil {
		return nil, nlp.AsCollaboratorError("extraction", err)
	}
	return extraction.FilterConcepts(entitiesToConcepts(entities), opts.MinImportance, opts.MaxConcepts), nil
}

// ExtractRelationships implements extraction.Extractor.
func (e *NERExtractor) ExtractRelationships(ctx context.Context, text string, concepts []types.Concept, opts extraction.Options) ([]types.Relationship, error) {
	return nil, nil
}

// Close frees the loaded models.
func (e *NERExtractor) Close() error {
	return e.client.Close()
}

// entitiesToConcepts merges word pieces tagged I-* into the preceding entity
// and describes each concept by its entity class.
func entitiesToConcepts(entities []Entity) []types.Concept {
	var concepts []types.Concept
	for _, ent := range entities {
		word := strings.TrimSpace(ent.Text)
		if word == "" {
			continue
		}
		class := strings.TrimPrefix(strings.TrimPrefix(ent.Label, "B-"), "I-")
		if strings.HasPrefix(ent.Label, "I-") && len(concepts) > 0 {
			last := &concepts[len(concepts)-1]
			if last.Metadata["entity_type"] == class {
				if strings.HasPrefix(word, "##") {
					last.Label += strings.TrimPrefix(word, "##")
				} else {
					last.Label += " " + word
				}
				last.Importance = min(last.Importance, ent.Score)
				continue
			}
		}
		concepts = append(concepts, types.Concept{
			Label:      word,
			Importance: types.ClampUnit(ent.Score),
			Metadata:   map[string]any{"entity_type": class},
		})
	}
	for i := range concepts {
		concepts[i].Description = fmt.Sprintf("%s (%s)", concepts[i].Label, concepts[i].Metadata["entity_type"])
	}
	return concepts
}
