package prompts

import (
	"fmt"
	"strings"

	"github.com/soundprediction/mindgraph/pkg/nlp"
	"github.com/soundprediction/mindgraph/pkg/types"
)

// Context keys understood by the explanation prompt.
const (
	KeySource           = "source"
	KeyTarget           = "target"
	KeyRelationshipType = "relationship_type"
	KeyPath             = "path"
	KeySameCluster      = "same_cluster"
)

func explainRelationshipPrompt(context map[string]any) ([]types.Message, error) {
	source, okSource := context[KeySource].(ConceptContext)
	target, okTarget := context[KeyTarget].(ConceptContext)
	if !okSource || !okTarget {
		return nil, fmt.Errorf("%w: source and target concepts are required", types.ErrInvalidInput)
	}

	var b strings.Builder
	b.WriteString("Explain the relationship between these two concepts:\n\n")
	fmt.Fprintf(&b, "**Concept 1: %s**\n", source.Label)
	if source.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", source.Description)
	}
	fmt.Fprintf(&b, "\n**Concept 2: %s**\n", target.Label)
	if target.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", target.Description)
	}
	if rt := stringValue(context, KeyRelationshipType); rt != "" {
		fmt.Fprintf(&b, "\nRelationship type: %s\n", rt)
	}
	if path, _ := context[KeyPath].([]string); len(path) > 0 {
		b.WriteString("\n**Connection path:**\n")
		b.WriteString(strings.Join(path, " → "))
		b.WriteString("\n")
	}
	if same, ok := context[KeySameCluster].(bool); ok {
		if same {
			b.WriteString("\nBoth concepts belong to the same topic cluster.\n")
		} else {
			b.WriteString("\nThe concepts belong to different topic clusters.\n")
		}
	}
	b.WriteString("\nProvide a clear, 2-3 sentence explanation of how these concepts are related. ")
	b.WriteString("Focus on practical understanding and real-world connections.")

	return []types.Message{
		nlp.NewSystemMessage("You are an expert at explaining connections between ideas in a knowledge graph. Be concise and concrete."),
		nlp.NewUserMessage(b.String()),
	}, nil
}
