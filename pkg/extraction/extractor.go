package extraction

import (
	"context"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/soundprediction/mindgraph/pkg/types"
)

// Text length limits applied before any model is called.
const (
	DefaultMinTextLength = 100
	DefaultMaxTextLength = 50000
)

// Defaults used when Options leaves a field unset.
const (
	DefaultMaxConcepts   = 10
	DefaultMinImportance = 0.5
	DefaultMinStrength   = 0.5
)

// Extractor proposes concepts and relationships for a text.
type Extractor interface {
	// ExtractConcepts returns candidate concepts ordered by importance.
	ExtractConcepts(ctx context.Context, text string, opts Options) ([]types.Concept, error)

	// ExtractRelationships returns relationships between the given concepts.
	// Relationships naming a label outside concepts are dropped.
	ExtractRelationships(ctx context.Context, text string, concepts []types.Concept, opts Options) ([]types.Relationship, error)

	// Close releases model resources.
	Close() error
}

// Options tunes a single extraction call.
type Options struct {
	MaxConcepts   int
	MinImportance float64
	MinStrength   float64
	RelationTypes []string
}

// WithDefaults fills unset fields.
func (o Options) WithDefaults() Options {
	if o.MaxConcepts <= 0 {
		o.MaxConcepts = DefaultMaxConcepts
	}
	if o.MinImportance <= 0 {
		o.MinImportance = DefaultMinImportance
	}
	if o.MinStrength <= 0 {
		o.MinStrength = DefaultMinStrength
	}
	if len(o.RelationTypes) == 0 {
		o.RelationTypes = types.RelationshipTypes
	}
	return o
}

// ValidateText checks that text is within [minLen, maxLen] characters.
// Non-positive limits fall back to the package defaults.
func ValidateText(text string, minLen, maxLen int) error {
	if minLen <= 0 {
		minLen = DefaultMinTextLength
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxTextLength
	}
	n := utf8.RuneCountInString(text)
	switch {
	case n < minLen:
		return fmt.Errorf("%w: text must be at least %d characters, got %d", types.ErrInvalidInput, minLen, n)
	case n > maxLen:
		return fmt.Errorf("%w: text must be at most %d characters, got %d", types.ErrInvalidInput, maxLen, n)
	}
	return nil
}

// FilterConcepts drops concepts below minImportance, merges repeated labels
// and keeps the maxConcepts most important ones.
func FilterConcepts(concepts []types.Concept, minImportance float64, maxConcepts int) []types.Concept {
	seen := make(map[string]int, len(concepts))
	out := make([]types.Concept, 0, len(concepts))
	for _, c := range concepts {
		if c.Importance < minImportance {
			continue
		}
		key := types.NormalizeLabel(c.Label)
		if i, ok := seen[key]; ok {
			if c.Importance > out[i].Importance {
				out[i] = c
			}
			continue
		}
		seen[key] = len(out)
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Importance > out[j].Importance
	})
	if maxConcepts > 0 && len(out) > maxConcepts {
		out = out[:maxConcepts]
	}
	return out
}

// ResolveRelationships maps relationship labels onto the concept list,
// ignoring case and whitespace, and drops weak, unresolved and reflexive
// relationships. Resolved labels are rewritten to the concept's own spelling.
func ResolveRelationships(rels []types.Relationship, concepts []types.Concept, minStrength float64) []types.Relationship {
	labels := make(map[string]string, len(concepts))
	for _, c := range concepts {
		labels[types.NormalizeLabel(c.Label)] = c.Label
	}

	out := make([]types.Relationship, 0, len(rels))
	for _, r := range rels {
		if r.Strength < minStrength {
			continue
		}
		source, okSource := labels[types.NormalizeLabel(r.SourceLabel)]
		target, okTarget := labels[types.NormalizeLabel(r.TargetLabel)]
		if !okSource || !okTarget || source == target {
			continue
		}
		r.SourceLabel = source
		r.TargetLabel = target
		out = append(out, r)
	}
	return out
}
