package prompts

import (
	"fmt"
	"strings"

	"github.com/soundprediction/mindgraph/pkg/nlp"
	"github.com/soundprediction/mindgraph/pkg/types"
)

// Context keys understood by the question answering prompt.
const (
	KeyQuestion = "question"
	KeyNodes    = "nodes"
	KeyEdges    = "edges"
	KeyPaths    = "paths"
	KeyHistory  = "history"
)

// DefaultHistoryLimit is the number of previous exchanges replayed to the model.
const DefaultHistoryLimit = 5

const answerSystemPrompt = `You are a helpful assistant that answers questions based on a knowledge graph. ` +
	`Use the provided graph data to give accurate, well-sourced answers. ` +
	`If the graph doesn't contain enough information, say so clearly. ` +
	`Always cite specific concepts when answering.`

func answerQuestionPrompt(context map[string]any) ([]types.Message, error) {
	question := strings.TrimSpace(stringValue(context, KeyQuestion))
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", types.ErrInvalidInput)
	}

	messages := []types.Message{nlp.NewSystemMessage(answerSystemPrompt)}

	history, _ := context[KeyHistory].([]types.Exchange)
	if len(history) > DefaultHistoryLimit {
		history = history[len(history)-DefaultHistoryLimit:]
	}
	for _, ex := range history {
		if ex.Question != "" {
			messages = append(messages, nlp.NewUserMessage(ex.Question))
		}
		if ex.Answer != "" {
			messages = append(messages, nlp.NewAssistantMessage(ex.Answer))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	b.WriteString("**Available Knowledge Graph Data:**\n\n")

	if nodes, _ := context[KeyNodes].([]ConceptContext); len(nodes) > 0 {
		b.WriteString("**Concepts:**\n")
		for _, n := range nodes {
			fmt.Fprintf(&b, "- %s", n.Label)
			if n.Description != "" {
				fmt.Fprintf(&b, ": %s", n.Description)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if edges, _ := context[KeyEdges].([]RelationContext); len(edges) > 0 {
		b.WriteString("**Relationships:**\n")
		for _, e := range edges {
			fmt.Fprintf(&b, "- %s %s %s\n", e.Source, e.Type, e.Target)
		}
		b.WriteString("\n")
	}

	if paths, _ := context[KeyPaths].([][]string); len(paths) > 0 {
		b.WriteString("**Connection Paths:**\n")
		for i, p := range paths {
			fmt.Fprintf(&b, "%d. %s\n", i+1, strings.Join(p, " → "))
		}
		b.WriteString("\n")
	}

	b.WriteString("Based on this knowledge graph, please answer the question. ")
	b.WriteString("Reference specific concepts and relationships in your answer. ")
	b.WriteString("If the graph doesn't contain enough information to answer fully, say so.")

	return append(messages, nlp.NewUserMessage(b.String())), nil
}
