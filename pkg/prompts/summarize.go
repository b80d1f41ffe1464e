package prompts

import (
	"fmt"
	"strings"

	"github.com/soundprediction/mindgraph/pkg/nlp"
	"github.com/soundprediction/mindgraph/pkg/types"
)

// summaryListLimit caps the concepts and relationships listed in a summary prompt.
const summaryListLimit = 15

func summarizeGraphPrompt(context map[string]any) ([]types.Message, error) {
	nodes, _ := context[KeyNodes].([]ConceptContext)
	edges, _ := context[KeyEdges].([]RelationContext)
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: graph has no concepts to summarize", types.ErrInvalidInput)
	}

	var b strings.Builder
	b.WriteString("Summarize this knowledge graph in 2-3 paragraphs:\n\n")

	fmt.Fprintf(&b, "**Key Concepts (%d total):**\n", len(nodes))
	for _, n := range nodes[:min(len(nodes), summaryListLimit)] {
		fmt.Fprintf(&b, "- %s", n.Label)
		if n.Description != "" {
			desc := []rune(n.Description)
			fmt.Fprintf(&b, ": %s", string(desc[:min(len(desc), 100)]))
		}
		b.WriteString("\n")
	}
	if len(nodes) > summaryListLimit {
		fmt.Fprintf(&b, "... and %d more concepts\n", len(nodes)-summaryListLimit)
	}

	fmt.Fprintf(&b, "\n**Key Relationships (%d total):**\n", len(edges))
	for _, e := range edges[:min(len(edges), summaryListLimit)] {
		fmt.Fprintf(&b, "- %s %s %s\n", e.Source, e.Type, e.Target)
	}
	if len(edges) > summaryListLimit {
		fmt.Fprintf(&b, "... and %d more relationships\n", len(edges)-summaryListLimit)
	}

	b.WriteString("\nProvide an overview that:\n")
	b.WriteString("1. Identifies the main themes and topics\n")
	b.WriteString("2. Highlights the most important concepts\n")
	b.WriteString("3. Explains how the concepts are interconnected")

	return []types.Message{
		nlp.NewSystemMessage("You are an expert at summarizing complex information. Create clear, concise summaries that highlight key concepts and relationships."),
		nlp.NewUserMessage(b.String()),
	}, nil
}
