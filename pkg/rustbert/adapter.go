package rustbert

import (
	"context"
	"fmt"
	"strings"

	"github.com/soundprediction/mindgraph/pkg/nlp"
	"github.com/soundprediction/mindgraph/pkg/types"
)

// LLMAdapter exposes one RustBert pipeline as an nlp.Client so local models
// can write explanations and summaries.
type LLMAdapter struct {
	client *Client
	task   nlp.TaskCapability
	model  string
}

var _ nlp.Client = (*LLMAdapter)(nil)

// NewLLMAdapter creates an adapter running task on client. Only
// summarization and text generation are supported.
func NewLLMAdapter(client *Client, task nlp.TaskCapability) (*LLMAdapter, error) {
	switch task {
	case nlp.TaskSummarization, nlp.TaskTextGeneration:
	default:
		return nil, fmt.Errorf("rustbert: unsupported task %q", task)
	}
	return &LLMAdapter{client: client, task: task, model: "rustbert-" + string(task)}, nil
}

// Chat runs the pipeline over the user messages joined by newlines.
func (a *LLMAdapter) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	input := userInput(messages)
	if input == "" {
		return nil, nlp.NewEmptyResponseError("no user input for rustbert pipeline")
	}

	var output string
	switch a.task {
	case nlp.TaskSummarization:
		summaries, err := a.client.Summarize(input)
		if err != nil {
			return nil, err
		}
		output = strings.Join(summaries, "\n\n")
	default:
		var err error
		output, err = a.client.GenerateText(input)
		if err != nil {
			return nil, err
		}
	}

	output = strings.TrimSpace(output)
	if output == "" {
		return nil, nlp.NewEmptyResponseError("rustbert pipeline returned no text")
	}
	return &types.Response{Content: output, Model: a.model, FinishReason: "stop"}, nil
}

// ChatWithStructuredOutput falls back to Chat; the pipelines cannot follow a schema.
func (a *LLMAdapter) ChatWithStructuredOutput(ctx context.Context, messages []types.Message, schema any) (*types.Response, error) {
	return a.Chat(ctx, messages)
}

// GetCapabilities implements nlp.Client.
func (a *LLMAdapter) GetCapabilities() []nlp.TaskCapability {
	return []nlp.TaskCapability{a.task}
}

// Close is a no-op; the Client may be shared between adapters.
func (a *LLMAdapter) Close() error {
	return nil
}

func userInput(messages []types.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		if msg.Role != nlp.RoleUser {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(msg.Content)
	}
	return b.String()
}
