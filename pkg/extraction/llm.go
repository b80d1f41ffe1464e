package extraction

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/soundprediction/mindgraph/pkg/nlp"
	"github.com/soundprediction/mindgraph/pkg/prompts"
	"github.com/soundprediction/mindgraph/pkg/types"
)

const collaboratorName = "extraction"

// LLMExtractor extracts concepts and relationships with a chat model.
type LLMExtractor struct {
	client  nlp.Client
	prompts *prompts.Library
	logger  *slog.Logger
	useYAML bool
}

// NewLLMExtractor creates an extractor backed by client.
func NewLLMExtractor(client nlp.Client, logger *slog.Logger) *LLMExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMExtractor{
		client:  client,
		prompts: prompts.NewLibrary(),
		logger:  logger,
	}
}

// WithYAMLConceptList renders the concept list of relationship prompts as YAML.
func (e *LLMExtractor) WithYAMLConceptList(enabled bool) *LLMExtractor {
	e.useYAML = enabled
	return e
}

// ExtractConcepts implements Extractor.
func (e *LLMExtractor) ExtractConcepts(ctx context.Context, text string, opts Options) ([]types.Concept, error) {
	opts = opts.WithDefaults()

	messages, err := e.prompts.ExtractConcepts.Call(map[string]any{
		prompts.KeyText:          text,
		prompts.KeyMaxConcepts:   opts.MaxConcepts,
		prompts.KeyMinImportance: opts.MinImportance,
		"logger":                 e.logger,
	})
	if err != nil {
		return nil, err
	}

	resp, err := e.complete(ctx, messages)
	if err != nil {
		return nil, err
	}

	concepts, err := ParseConcepts(resp.Content)
	if err != nil {
		e.logger.Warn("unreadable concept extraction response", "error", err, "model", resp.Model)
		return nil, nlp.AsCollaboratorError(collaboratorName, err)
	}

	filtered := FilterConcepts(concepts, opts.MinImportance, opts.MaxConcepts)
	e.logger.Debug("extracted concepts", "returned", len(concepts), "kept", len(filtered))
	return filtered, nil
}

// ExtractRelationships implements Extractor.
func (e *LLMExtractor) ExtractRelationships(ctx context.Context, text string, concepts []types.Concept, opts Options) ([]types.Relationship, error) {
	if len(concepts) < 2 {
		return nil, nil
	}
	opts = opts.WithDefaults()

	conceptCtx := make([]prompts.ConceptContext, len(concepts))
	for i, c := range concepts {
		conceptCtx[i] = prompts.ConceptContext{Label: c.Label, Description: c.Description}
	}

	messages, err := e.prompts.ExtractRelationships.Call(map[string]any{
		prompts.KeyText:          text,
		prompts.KeyConcepts:      conceptCtx,
		prompts.KeyMinStrength:   opts.MinStrength,
		prompts.KeyRelationTypes: opts.RelationTypes,
		prompts.KeyUseYAML:       e.useYAML,
		"logger":                 e.logger,
	})
	if err != nil {
		return nil, err
	}

	resp, err := e.complete(ctx, messages)
	if err != nil {
		return nil, err
	}

	rels, err := ParseRelationships(resp.Content)
	if err != nil {
		e.logger.Warn("unreadable relationship extraction response", "error", err, "model", resp.Model)
		return nil, nlp.AsCollaboratorError(collaboratorName, err)
	}

	resolved := ResolveRelationships(rels, concepts, opts.MinStrength)
	if dropped := len(rels) - len(resolved); dropped > 0 {
		e.logger.Debug("dropped relationships", "count", dropped)
	}
	return resolved, nil
}

func (e *LLMExtractor) complete(ctx context.Context, messages []types.Message) (*types.Response, error) {
	resp, err := e.client.Chat(ctx, messages)
	if err != nil {
		return nil, nlp.AsCollaboratorError(collaboratorName, err)
	}
	if resp == nil {
		return nil, nlp.AsCollaboratorError(collaboratorName, fmt.Errorf("%w: no response", types.ErrMalformedExtraction))
	}
	prompts.LogResponse(e.logger, *resp)
	return resp, nil
}

// Close closes the underlying client.
func (e *LLMExtractor) Close() error {
	if e.client == nil {
		return nil
	}
	return e.client.Close()
}
