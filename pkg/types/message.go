package types

// Role is the author of a chat message.
type Role string

// Message is a single chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// TokenUsage reports token consumption for a completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a chat completion result.
type Response struct {
	Content      string      `json:"content"`
	Model        string      `json:"model,omitempty"`
	FinishReason string      `json:"finish_reason,omitempty"`
	TokensUsed   *TokenUsage `json:"tokens_used,omitempty"`
}

type contextKey string

// Context keys propagated from the HTTP layer into telemetry.
const (
	ContextKeyUserID        contextKey = "user_id"
	ContextKeySessionID     contextKey = "session_id"
	ContextKeyRequestSource contextKey = "request_source"
	ContextKeyRequestID     contextKey = "request_id"
	ContextKeyGraphID       contextKey = "graph_id"
)
