package nlp

import "slices"

// TaskCapability represents a specific NLP task that a model can perform.
type TaskCapability string

const (
	// TaskEmbedding represents text embedding generation.
	TaskEmbedding TaskCapability = "embedding"
	// TaskNamedEntityRecognition represents span extraction used for local concept extraction.
	TaskNamedEntityRecognition TaskCapability = "ner"
	// TaskRelationExtraction represents relation extraction between concepts.
	TaskRelationExtraction TaskCapability = "relation_extraction"
	// TaskSummarization represents text summarization.
	TaskSummarization TaskCapability = "summarization"
	// TaskTextGeneration represents open-ended text generation (chat/completion).
	TaskTextGeneration TaskCapability = "text_generation"
	// TaskStructuredOutput represents JSON constrained generation.
	TaskStructuredOutput TaskCapability = "structured_output"
)

// ProviderID represents a unique identifier for a model provider.
type ProviderID string

const (
	// ProviderOpenAI is the ID for OpenAI.
	ProviderOpenAI ProviderID = "openai"
	// ProviderOpenAICompatible is the ID for generic OpenAI-compatible providers.
	ProviderOpenAICompatible ProviderID = "openai_compatible"
	// ProviderRustBert is the ID for the RustBert local provider.
	ProviderRustBert ProviderID = "rustbert"
	// ProviderGLiNER is the ID for the GLiNER local provider.
	ProviderGLiNER ProviderID = "gliner"
	// ProviderEmbedEverything is the ID for the EmbedEverything local provider.
	ProviderEmbedEverything ProviderID = "embedeverything"
)

// IsLocal reports whether the provider runs in-process.
func (p ProviderID) IsLocal() bool {
	switch p {
	case ProviderRustBert, ProviderGLiNER, ProviderEmbedEverything:
		return true
	}
	return false
}

// Supports reports whether c lists capability.
func Supports(c Client, capability TaskCapability) bool {
	if c == nil {
		return false
	}
	return slices.Contains(c.GetCapabilities(), capability)
}
