// Package llm defines the Provider interface for chat-completion backends.
//
// A provider wraps a remote or local model API (an OpenAI-compatible server
// such as LM Studio or Ollama, or any vendor reachable through any-llm-go) and
// exposes a single blocking completion call. The summarization pipeline is
// the only consumer; it never depends on a specific SDK.
//
// Implementors must be safe for concurrent use.
package llm

import "context"

// Message roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a chat-completion request.
type Message struct {
	// Role is one of RoleSystem, RoleUser or RoleAssistant.
	Role string

	// Content is the text content of the message.
	Content string
}

// Usage holds token accounting information returned by the backend.
// Counts are in the model's native token unit; local servers often report zeros.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest carries everything the model needs to produce a response.
// Messages must be non-empty.
type CompletionRequest struct {
	// SystemPrompt is sent as a leading "system" message when non-empty.
	SystemPrompt string

	// Messages is the ordered conversation. The pipeline sends exactly one
	// user message per request.
	Messages []Message

	// Temperature controls output randomness. Zero leaves the provider default.
	Temperature float64

	// MaxTokens caps the number of completion tokens. Zero means no explicit cap.
	MaxTokens int
}

// CompletionResponse is the full reply to a CompletionRequest.
type CompletionResponse struct {
	// Content is the text of the assistant's reply, exactly as returned.
	Content string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any chat-completion backend.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	// Returns an error if the request fails, the backend returns no choices,
	// or ctx is cancelled before the completion arrives.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
