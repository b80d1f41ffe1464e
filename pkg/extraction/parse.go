package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	jsonrepair "github.com/kaptinlin/jsonrepair"

	"github.com/soundprediction/mindgraph/pkg/prompts"
	"github.com/soundprediction/mindgraph/pkg/types"
)

var (
	thinkTags = regexp.MustCompile(`(?s)<think>.*?</think>`)
	codeFence = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)\\s*```")
)

// CleanResponse removes reasoning tags and markdown code fences around a
// JSON payload.
func CleanResponse(content string) string {
	content = thinkTags.ReplaceAllString(content, "")
	if m := codeFence.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}
	return strings.TrimSpace(content)
}

// decodeList repairs content and returns the raw items stored under key.
// A bare JSON array is accepted as well.
func decodeList(content, key string) ([]json.RawMessage, error) {
	cleaned := CleanResponse(content)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty response", types.ErrMalformedExtraction)
	}
	repaired, err := jsonrepair.JSONRepair(cleaned)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMalformedExtraction, err)
	}

	raw := bytes.TrimSpace([]byte(repaired))
	if len(raw) > 0 && raw[0] == '{' {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrMalformedExtraction, err)
		}
		inner, ok := wrapper[key]
		if !ok {
			return nil, fmt.Errorf("%w: missing %q list", types.ErrMalformedExtraction, key)
		}
		raw = bytes.TrimSpace(inner)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %q is not a list", types.ErrMalformedExtraction, key)
	}
	return items, nil
}

// ParseConcepts reads a concept extraction response. Items without a name
// are skipped and missing importance becomes types.DefaultImportance. An item
// that is not a concept object fails the whole response.
func ParseConcepts(content string) ([]types.Concept, error) {
	items, err := decodeList(content, "concepts")
	if err != nil {
		return nil, err
	}

	concepts := make([]types.Concept, 0, len(items))
	for i, item := range items {
		var ec prompts.ExtractedConcept
		if err := json.Unmarshal(item, &ec); err != nil {
			return nil, fmt.Errorf("%w: concept %d: %v", types.ErrMalformedExtraction, i, err)
		}
		label := strings.TrimSpace(ec.DisplayName())
		if label == "" {
			continue
		}
		importance := types.DefaultImportance
		if ec.Importance != nil {
			importance = types.ClampUnit(*ec.Importance)
		}
		concepts = append(concepts, types.Concept{
			Label:         label,
			Description:   strings.TrimSpace(ec.Description),
			Importance:    importance,
			SourceExcerpt: strings.TrimSpace(ec.SourceText),
		})
	}
	return concepts, nil
}

// ParseRelationships reads a relationship extraction response. Missing
// strength defaults to types.DefaultImportance and missing type to related-to.
func ParseRelationships(content string) ([]types.Relationship, error) {
	items, err := decodeList(content, "relationships")
	if err != nil {
		return nil, err
	}

	rels := make([]types.Relationship, 0, len(items))
	for i, item := range items {
		var er prompts.ExtractedRelationship
		if err := json.Unmarshal(item, &er); err != nil {
			return nil, fmt.Errorf("%w: relationship %d: %v", types.ErrMalformedExtraction, i, err)
		}
		if er.Source == "" || er.Target == "" {
			continue
		}
		strength := types.DefaultImportance
		if er.Strength != nil {
			strength = types.ClampUnit(*er.Strength)
		}
		relType := strings.TrimSpace(er.Type)
		if relType == "" {
			relType = types.RelRelatedTo
		}
		rels = append(rels, types.Relationship{
			SourceLabel: strings.TrimSpace(er.Source),
			TargetLabel: strings.TrimSpace(er.Target),
			Type:        relType,
			Strength:    strength,
			Description: strings.TrimSpace(er.Description),
		})
	}
	return rels, nil
}
