package types

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Tier ranks a node within its graph.
type Tier int

const (
	// TierUnset means the extractor did not rank the concept.
	TierUnset Tier = 0
	// TierCore marks a core concept.
	TierCore Tier = 1
	// TierSupporting marks a supporting detail.
	TierSupporting Tier = 2
)

// Well known metadata keys written by the engine.
const (
	MetaInferred            = "inferred"
	MetaSourceExcerpts      = "source_excerpts"
	MetaMergedLabels        = "merged_labels"
	MetaTextOnly            = "text_only"
	MetaIsolated            = "isolated"
	MetaConnectivityWarning = "connectivity_warning"
	MetaParentID            = "parent_id"
)

// Node represents a concept in a knowledge graph.
type Node struct {
	ID            string         `json:"id" mapstructure:"id"`
	Label         string         `json:"label" mapstructure:"label"`
	Description   string         `json:"description,omitempty" mapstructure:"description"`
	SourceExcerpt string         `json:"source_excerpt,omitempty" mapstructure:"source_excerpt"`
	Embedding     []float32      `json:"embedding,omitempty" mapstructure:"embedding"`
	Importance    float64        `json:"importance" mapstructure:"importance"`
	Confidence    float64        `json:"confidence" mapstructure:"confidence"`
	Metadata      map[string]any `json:"metadata,omitempty" mapstructure:"metadata"`
	HasChildren   bool           `json:"has_children" mapstructure:"has_children"`
	Tier          Tier           `json:"tier,omitempty" mapstructure:"tier"`
	CreatedAt     time.Time      `json:"created_at" mapstructure:"created_at"`
}

// Validate checks the node level invariants.
func (n *Node) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("%w: node id cannot be empty", ErrInvalidInput)
	}
	if strings.TrimSpace(n.Label) == "" {
		return fmt.Errorf("%w: node %s has an empty label", ErrInvalidInput, n.ID)
	}
	if !inUnitRange(n.Confidence) {
		return fmt.Errorf("%w: node %s confidence %v", ErrInvalidScore, n.ID, n.Confidence)
	}
	if !inUnitRange(n.Importance) {
		return fmt.Errorf("%w: node %s importance %v", ErrInvalidScore, n.ID, n.Importance)
	}
	if n.Tier < TierUnset || n.Tier > TierSupporting {
		return fmt.Errorf("%w: node %s tier %d", ErrInvalidInput, n.ID, n.Tier)
	}
	return nil
}

// HasEmbedding reports whether the node carries a usable embedding.
func (n *Node) HasEmbedding() bool {
	return len(n.Embedding) > 0
}

// IsTextOnly reports whether the node was created without an embedding.
func (n *Node) IsTextOnly() bool {
	v, _ := n.Metadata[MetaTextOnly].(bool)
	return v || !n.HasEmbedding()
}

// SourceExcerpts returns every provenance excerpt recorded for the node.
func (n *Node) SourceExcerpts() []string {
	switch v := n.Metadata[MetaSourceExcerpts].(type) {
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
	if n.SourceExcerpt != "" {
		return []string{n.SourceExcerpt}
	}
	return nil
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	c.Embedding = slices.Clone(n.Embedding)
	c.Metadata = CloneMetadata(n.Metadata)
	return &c
}

// CloneMetadata copies a metadata map, duplicating nested string slices.
func CloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := maps.Clone(m)
	for k, v := range out {
		switch vv := v.(type) {
		case []string:
			out[k] = slices.Clone(vv)
		case []any:
			out[k] = slices.Clone(vv)
		case map[string]any:
			out[k] = CloneMetadata(vv)
		}
	}
	return out
}

func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}
