package llms

import "context"

// Message roles understood by chat models.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamChunk is one increment of a streaming chat response.
//
// Type is one of "text", "done" or "error".
type StreamChunk struct {
	Type   string
	Text   string
	Tokens int
	Error  error
}

// Provider abstracts a chat model runtime.
type Provider interface {
	// ChatStream sends messages to the model and streams back text
	// increments in generation order.
	ChatStream(ctx context.Context, model string, messages []Message) (<-chan StreamChunk, error)

	// ListModels returns the model names available in the runtime.
	ListModels(ctx context.Context) ([]string, error)

	Close() error
}
