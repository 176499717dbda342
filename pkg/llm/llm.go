// Package llm defines the narrow completion-client interface used by the
// compression service to produce conversation summaries.
package llm

import "context"

// Role identifies who authored a completion message.
type Role string

const (
	// RoleSystem carries instructions for the model.
	RoleSystem Role = "system"
	// RoleUser carries the content to act on.
	RoleUser Role = "user"
	// RoleAssistant carries a prior model reply.
	RoleAssistant Role = "assistant"
)

// Message is one turn in a completion request.
type Message struct {
	Role    Role
	Content string
}

// Request asks a provider for a completion.
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature float32
}

// Response is a provider's completion.
type Response struct {
	Content string
}

// Client is implemented by each provider adapter.
type Client interface {
	// Complete generates a completion synchronously.
	Complete(ctx context.Context, in Request) (Response, error)

	// ModelName reports the configured model.
	ModelName() string
}

// NewSystemMessage builds a system-role message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage builds a user-role message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}
