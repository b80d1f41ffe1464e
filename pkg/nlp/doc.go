// Package nlp provides the language model clients used for concept extraction,
// relationship extraction, relationship explanations and question answering.
//
// This package defines the Client interface and an implementation for OpenAI
// and OpenAI-compatible APIs (Ollama, vLLM, LM Studio, etc.). Local generation
// through rust-bert is provided by pkg/rustbert, which satisfies the same
// interface.
//
// # Client Wrappers
//
// The package provides several wrapper clients for enhanced functionality:
//   - RetryClient: Automatic retry with exponential backoff
//   - TokenTrackingClient: Persist token usage to parquet files
//   - CircuitBreakerClient: Circuit breaker pattern for fault tolerance
//
// Wrap combines them in the order used by the graph client:
//
//	base, err := nlp.NewOpenAIClient(apiKey, nlp.Config{Model: "gpt-4o-mini"})
//	client := nlp.Wrap(base, nlp.WrapOptions{
//	    Retry:          nlp.DefaultRetryConfig(),
//	    CircuitBreaker: &cfg.CircuitBreaker,
//	    Alerter:        alerter,
//	    Name:           "extraction",
//	})
//	resp, err := client.Chat(ctx, messages)
//
// # Error Handling
//
// The package defines specific error types for common failure modes:
//   - RateLimitError: API rate limit exceeded
//   - RefusalError: Model refused to generate content
//   - EmptyResponseError: Model returned empty response
//
// These errors support errors.Is() for type checking. AsCollaboratorError
// converts any provider failure into a types.CollaboratorError so callers can
// classify it as recoverable.
package nlp
