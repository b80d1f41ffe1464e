package prompts

import (
	"fmt"
	"strings"

	"github.com/soundprediction/mindgraph/pkg/nlp"
	"github.com/soundprediction/mindgraph/pkg/types"
)

// Context keys understood by the extraction prompts.
const (
	KeyText          = "text"
	KeyMaxConcepts   = "max_concepts"
	KeyMinImportance = "min_importance"
	KeyMinStrength   = "min_strength"
	KeyConcepts      = "concepts"
	KeyRelationTypes = "relationship_types"
	KeyUseYAML       = "use_yaml"
)

const conceptSystemPrompt = `You are an expert at analyzing text and extracting key concepts.
Your task is to identify the most important concepts, ideas, or topics from the given text.

For each concept:
- name: A clear, concise name (2-5 words)
- description: A brief explanation of what this concept means (1-2 sentences)
- importance: A score from 0.0 to 1.0 indicating how central this concept is to the text
- source_text: A relevant quote or excerpt from the original text that supports this concept

Return ONLY valid JSON in this exact format:
{
  "concepts": [
    {
      "name": "Concept Name",
      "description": "Brief description of the concept",
      "importance": 0.95,
      "source_text": "Relevant excerpt from the text"
    }
  ]
}

Be selective - focus on the most important and distinct concepts.
Avoid redundant or overlapping concepts.`

func extractConceptsPrompt(context map[string]any) ([]types.Message, error) {
	text := stringValue(context, KeyText)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is required", types.ErrInvalidInput)
	}
	maxConcepts := intValue(context, KeyMaxConcepts, 10)
	minImportance := floatValue(context, KeyMinImportance, 0.5)

	userPrompt := fmt.Sprintf(`Analyze the following text and extract the %d most important concepts.
Only include concepts with importance >= %.2f.

TEXT:
%s

Remember: Return ONLY the JSON object, no additional text.`, maxConcepts, minImportance, text)

	return []types.Message{
		nlp.NewSystemMessage(conceptSystemPrompt),
		nlp.NewUserMessage(userPrompt),
	}, nil
}

func relationshipSystemPrompt(relationTypes []string) string {
	var b strings.Builder
	b.WriteString("You are an expert at identifying relationships between concepts in text.\n")
	b.WriteString("Your task is to analyze concepts extracted from text and identify meaningful relationships between them.\n\n")
	b.WriteString("Relationship types:\n")
	for _, rt := range relationTypes {
		fmt.Fprintf(&b, "- %q\n", rt)
	}
	b.WriteString(`
For each relationship:
- source: The source concept name (must match exactly from the concept list)
- target: The target concept name (must match exactly from the concept list)
- type: One of the relationship types above
- strength: A score from 0.0 to 1.0 indicating relationship strength
- description: A brief explanation of why these concepts are related (1 sentence)

Return ONLY valid JSON in this exact format:
{
  "relationships": [
    {
      "source": "Concept A",
      "target": "Concept B",
      "type": "is-a",
      "strength": 0.9,
      "description": "Concept A is a type of Concept B"
    }
  ]
}

Only identify strong, meaningful relationships. Avoid weak or speculative connections.`)
	return b.String()
}

func extractRelationshipsPrompt(context map[string]any) ([]types.Message, error) {
	concepts, _ := context[KeyConcepts].([]ConceptContext)
	if len(concepts) == 0 {
		return nil, fmt.Errorf("%w: concepts list cannot be empty", types.ErrInvalidInput)
	}
	relationTypes, _ := context[KeyRelationTypes].([]string)
	if len(relationTypes) == 0 {
		relationTypes = types.RelationshipTypes
	}
	minStrength := floatValue(context, KeyMinStrength, 0.5)

	var conceptList string
	if boolValue(context, KeyUseYAML) {
		out, err := ToPromptYAML(concepts)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal concepts to YAML: %w", err)
		}
		conceptList = out
	} else {
		lines := make([]string, len(concepts))
		for i, c := range concepts {
			lines[i] = "- " + c.Label
		}
		conceptList = strings.Join(lines, "\n")
	}

	userPrompt := fmt.Sprintf(`Analyze the following text and identify relationships between the extracted concepts.
Only include relationships with strength >= %.2f.

ORIGINAL TEXT:
%s

EXTRACTED CONCEPTS:
%s

Identify the relationships between these concepts based on the text.
Remember: Return ONLY the JSON object, no additional text.`, minStrength, stringValue(context, KeyText), conceptList)

	return []types.Message{
		nlp.NewSystemMessage(relationshipSystemPrompt(relationTypes)),
		nlp.NewUserMessage(userPrompt),
	}, nil
}
