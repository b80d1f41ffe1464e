package dto

import (
	"fmt"
	"strings"

	"github.com/soundprediction/mindgraph/pkg/types"
)

// BuildGraphRequest builds a graph from already extracted concepts.
type BuildGraphRequest struct {
	Concepts      []types.Concept      `json:"concepts" binding:"required"`
	Relationships []types.Relationship `json:"relationships"`
}

// Validate performs validation on BuildGraphRequest
func (r *BuildGraphRequest) Validate() error {
	if len(r.Concepts) == 0 {
		return ErrEmptyConcepts
	}
	if err := validateConcepts(r.Concepts); err != nil {
		return err
	}
	return validateRelationships(r.Relationships)
}

// BuildFromTextRequest builds a graph from raw text. Zero options use the
// server defaults.
type BuildFromTextRequest struct {
	Text           string   `json:"text" binding:"required"`
	MaxConcepts    int      `json:"max_concepts,omitempty"`
	MinImportance  float64  `json:"min_importance,omitempty"`
	MinStrength    float64  `json:"min_strength,omitempty"`
	RelationTypes  []string `json:"relation_types,omitempty"`
	TimeoutSeconds int      `json:"timeout_seconds,omitempty"`
}

// Validate performs validation on BuildFromTextRequest. Text length limits
// are enforced by the engine.
func (r *BuildFromTextRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("text cannot be empty")
	}
	if r.MaxConcepts < 0 || r.TimeoutSeconds < 0 {
		return fmt.Errorf("max_concepts and timeout_seconds cannot be negative")
	}
	if r.MinImportance < 0 || r.MinImportance > 1 || r.MinStrength < 0 || r.MinStrength > 1 {
		return fmt.Errorf("min_importance and min_strength must be within [0,1]")
	}
	return nil
}

// AddConceptsRequest appends concepts to a graph, optionally under a parent node.
type AddConceptsRequest struct {
	ParentID      string               `json:"parent_id,omitempty"`
	Concepts      []types.Concept      `json:"concepts"`
	Relationships []types.Relationship `json:"relationships"`
}

// Validate performs validation on AddConceptsRequest
func (r *AddConceptsRequest) Validate() error {
	if len(r.Concepts) == 0 && len(r.Relationships) == 0 {
		return ErrEmptyConcepts
	}
	if err := validateConcepts(r.Concepts); err != nil {
		return err
	}
	return validateRelationships(r.Relationships)
}

// GraphListResponse lists stored graphs.
type GraphListResponse struct {
	Graphs []types.GraphSummary `json:"graphs"`
	Total  int                  `json:"total"`
}

// VersionResponse reports a graph's version counter.
type VersionResponse struct {
	GraphID string `json:"graph_id"`
	Version uint64 `json:"version"`
}

// SummaryResponse carries a generated graph summary.
type SummaryResponse struct {
	GraphID string `json:"graph_id"`
	Summary string `json:"summary"`
}
