package provider

import "context"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatOptions tunes one request. Zero values leave the provider default.
type ChatOptions struct {
	Temperature float64
	MaxTokens   int
}

type StreamChunk struct {
	Delta    string
	Thinking string // reasoning text from <think> blocks or thinking deltas
	Done     bool
	Error    error
}

type Provider interface {
	Chat(ctx context.Context, msgs []Message, opts ChatOptions) (<-chan StreamChunk, error)
	Name() string
	ModelName() string
	Models(ctx context.Context) ([]string, error)
}
