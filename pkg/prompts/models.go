package prompts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/soundprediction/mindgraph/pkg/nlp"
	"github.com/soundprediction/mindgraph/pkg/types"
)

// ExtractedConcept is one concept in an extraction response. Importance is a
// pointer so a missing score can be told apart from zero.
type ExtractedConcept struct {
	Name        string   `json:"name" yaml:"name"`
	Label       string   `json:"label,omitempty" yaml:"label,omitempty"`
	Description string   `json:"description" yaml:"description"`
	Importance  *float64 `json:"importance,omitempty" yaml:"importance,omitempty"`
	SourceText  string   `json:"source_text,omitempty" yaml:"source_text,omitempty"`
}

// DisplayName returns Name, falling back to Label.
func (c ExtractedConcept) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Label
}

// ExtractedConcepts is the concept extraction response.
type ExtractedConcepts struct {
	Concepts []ExtractedConcept `json:"concepts"`
}

// ExtractedRelationship is one relationship in an extraction response.
type ExtractedRelationship struct {
	Source      string   `json:"source" yaml:"source"`
	Target      string   `json:"target" yaml:"target"`
	Type        string   `json:"type" yaml:"type"`
	Strength    *float64 `json:"strength,omitempty" yaml:"strength,omitempty"`
	Description string   `json:"description" yaml:"description"`
}

// ExtractedRelationships is the relationship extraction response.
type ExtractedRelationships struct {
	Relationships []ExtractedRelationship `json:"relationships"`
}

// ConceptContext describes a node inside a prompt.
type ConceptContext struct {
	ID          string `json:"id,omitempty" yaml:"id,omitempty"`
	Label       string `json:"label" yaml:"label"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// RelationContext describes an edge inside a prompt.
type RelationContext struct {
	Source string `json:"source" yaml:"source"`
	Type   string `json:"type" yaml:"type"`
	Target string `json:"target" yaml:"target"`
}

// PromptFunction renders chat messages from a prompt context.
type PromptFunction func(context map[string]any) ([]types.Message, error)

// PromptVersion is a callable prompt.
type PromptVersion interface {
	Call(context map[string]any) ([]types.Message, error)
}

// promptVersionImpl implements PromptVersion.
type promptVersionImpl struct {
	fn PromptFunction
}

// Call executes the prompt function with the given context.
func (p *promptVersionImpl) Call(context map[string]any) ([]types.Message, error) {
	messages, err := p.fn(context)
	if err != nil {
		return nil, err
	}

	// Add unicode preservation instruction to system messages
	for i, msg := range messages {
		if msg.Role == nlp.RoleSystem {
			messages[i].Content += "\nDo not escape unicode characters.\n"
		}
	}

	if logger, ok := context["logger"].(*slog.Logger); ok && len(messages) >= 2 {
		logPrompts(logger, messages[0].Content, messages[len(messages)-1].Content)
	}

	return messages, nil
}

// NewPromptVersion creates a new PromptVersion from a function.
func NewPromptVersion(fn PromptFunction) PromptVersion {
	return &promptVersionImpl{fn: fn}
}

// Library groups the prompts used by the graph client.
type Library struct {
	ExtractConcepts      PromptVersion
	ExtractRelationships PromptVersion
	ExplainRelationship  PromptVersion
	AnswerQuestion       PromptVersion
	SummarizeGraph       PromptVersion
}

// NewLibrary returns the default prompt library.
func NewLibrary() *Library {
	return &Library{
		ExtractConcepts:      NewPromptVersion(extractConceptsPrompt),
		ExtractRelationships: NewPromptVersion(extractRelationshipsPrompt),
		ExplainRelationship:  NewPromptVersion(explainRelationshipPrompt),
		AnswerQuestion:       NewPromptVersion(answerQuestionPrompt),
		SummarizeGraph:       NewPromptVersion(summarizeGraphPrompt),
	}
}

// ToPromptJSON serializes data to JSON for use in prompts.
func ToPromptJSON(data any, indent int) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent > 0 {
		enc.SetIndent("", fmt.Sprintf("%*s", indent, ""))
	}
	if err := enc.Encode(data); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// ToPromptYAML serializes data to YAML for use in prompts.
func ToPromptYAML(data any) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// logPrompts logs both prompts at debug level when DEBUG_LLM_PROMPTS=true.
func logPrompts(logger *slog.Logger, sysPrompt, userPrompt string) {
	if os.Getenv("DEBUG_LLM_PROMPTS") != "true" {
		return
	}
	logger.Debug("generated prompts", "system", sysPrompt, "user", userPrompt)
}

// LogResponse logs a model response at debug level when DEBUG_LLM_PROMPTS=true.
func LogResponse(logger *slog.Logger, response types.Response) {
	if os.Getenv("DEBUG_LLM_PROMPTS") != "true" {
		return
	}
	logger.Debug("model response", "model", response.Model, "content", response.Content)
}

func stringValue(context map[string]any, key string) string {
	switch v := context[key].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func intValue(context map[string]any, key string, def int) int {
	switch v := context[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatValue(context map[string]any, key string, def float64) float64 {
	switch v := context[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	}
	return def
}

func boolValue(context map[string]any, key string) bool {
	b, _ := context[key].(bool)
	return b
}
