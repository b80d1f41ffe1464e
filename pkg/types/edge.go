package types

import (
	"fmt"
	"strings"
	"time"
)

// Relationship types conventionally produced by extraction.
const (
	RelIsA           = "is-a"
	RelPartOf        = "part-of"
	RelRelatedTo     = "related-to"
	RelCauses        = "causes"
	RelEnables       = "enables"
	RelRequires      = "requires"
	RelUses          = "uses"
	RelImplements    = "implements"
	RelContrastsWith = "contrasts-with"
)

// RelationshipTypes lists the conventional vocabulary. It is not exhaustive.
var RelationshipTypes = []string{
	RelIsA, RelPartOf, RelRelatedTo, RelCauses, RelEnables,
	RelRequires, RelUses, RelImplements, RelContrastsWith,
}

// Edge represents a directed relationship between two nodes of a graph.
type Edge struct {
	ID          string         `json:"id" mapstructure:"id"`
	SourceID    string         `json:"source_id" mapstructure:"source_id"`
	TargetID    string         `json:"target_id" mapstructure:"target_id"`
	Type        string         `json:"type" mapstructure:"type"`
	Description string         `json:"description,omitempty" mapstructure:"description"`
	Weight      float64        `json:"weight" mapstructure:"weight"`
	Confidence  float64        `json:"confidence" mapstructure:"confidence"`
	Metadata    map[string]any `json:"metadata,omitempty" mapstructure:"metadata"`
	CreatedAt   time.Time      `json:"created_at" mapstructure:"created_at"`
}

// Validate checks the edge level invariants. allowSelfLoops relaxes the
// source != target rule.
func (e *Edge) Validate(allowSelfLoops bool) error {
	if e.ID == "" {
		return fmt.Errorf("%w: edge id cannot be empty", ErrInvalidInput)
	}
	if e.SourceID == "" || e.TargetID == "" {
		return fmt.Errorf("%w: edge %s is missing an endpoint", ErrInvalidInput, e.ID)
	}
	if !allowSelfLoops && e.SourceID == e.TargetID {
		return fmt.Errorf("%w: edge %s on node %s", ErrSelfLoop, e.ID, e.SourceID)
	}
	if strings.TrimSpace(e.Type) == "" {
		return fmt.Errorf("%w: edge %s has no relationship type", ErrInvalidInput, e.ID)
	}
	if !inUnitRange(e.Weight) {
		return fmt.Errorf("%w: edge %s weight %v", ErrInvalidScore, e.ID, e.Weight)
	}
	if !inUnitRange(e.Confidence) {
		return fmt.Errorf("%w: edge %s confidence %v", ErrInvalidScore, e.ID, e.Confidence)
	}
	return nil
}

// Key returns the (source, target, type) identity used for deduplication.
func (e *Edge) Key() EdgeKey {
	return EdgeKey{Source: e.SourceID, Target: e.TargetID, Type: NormalizeRelationType(e.Type)}
}

// Inferred reports whether the edge was synthesized by the engine.
func (e *Edge) Inferred() bool {
	v, _ := e.Metadata[MetaInferred].(bool)
	return v
}

// Other returns the endpoint opposite to id.
func (e *Edge) Other(id string) string {
	if e.SourceID == id {
		return e.TargetID
	}
	return e.SourceID
}

// Clone returns a deep copy of the edge.
func (e *Edge) Clone() *Edge {
	if e == nil {
		return nil
	}
	c := *e
	c.Metadata = CloneMetadata(e.Metadata)
	return &c
}

// EdgeKey identifies an edge for deduplication purposes.
type EdgeKey struct {
	Source string
	Target string
	Type   string
}

// NormalizeRelationType lower-cases a relationship type and joins words with
// hyphens so "Part Of" and "part_of" collapse to "part-of".
func NormalizeRelationType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	t = strings.NewReplacer("_", "-", " ", "-").Replace(t)
	for strings.Contains(t, "--") {
		t = strings.ReplaceAll(t, "--", "-")
	}
	if t == "" {
		return RelRelatedTo
	}
	return t
}
