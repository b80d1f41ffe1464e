package types

import "strings"

// DefaultImportance is applied to concepts that arrive without a score.
const DefaultImportance = 0.5

// Concept is a candidate node proposed by the extraction collaborator.
type Concept struct {
	Label         string         `json:"label"`
	Description   string         `json:"description,omitempty"`
	Importance    float64        `json:"importance"`
	SourceExcerpt string         `json:"source_excerpt,omitempty"`
	Tier          Tier           `json:"tier,omitempty"`
	Embedding     []float32      `json:"embedding,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Relationship is a candidate edge that refers to concepts by label.
type Relationship struct {
	SourceLabel string  `json:"source_label"`
	TargetLabel string  `json:"target_label"`
	Type        string  `json:"type"`
	Strength    float64 `json:"strength"`
	Description string  `json:"description,omitempty"`
}

// EmbeddingText is the text sent to the embedding collaborator for a concept.
func (c *Concept) EmbeddingText() string {
	if c.Description == "" {
		return c.Label
	}
	return c.Label + ": " + c.Description
}

// NormalizeLabel folds a label for case and whitespace insensitive matching.
func NormalizeLabel(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), " ")
}

// ClampUnit limits v to [0,1].
func ClampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
