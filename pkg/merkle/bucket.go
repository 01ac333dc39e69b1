package merkle

import "github.com/papercomputeco/promptgate/pkg/llm"

// Bucket is the hashable payload of a node: one message of a recorded conversation.
type Bucket struct {
	Type     string `json:"type"`
	Role     string `json:"role"`
	Content  string `json:"content"`
	Model    string `json:"model"`
	Provider string `json:"provider,omitempty"`

	// Usage is only set on assistant messages.
	Usage *Usage `json:"usage,omitempty"`
}

// Usage records token accounting reported for a generated message.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// MessageBucket builds the bucket for a conversation message.
func MessageBucket(msg llm.Message, model, provider string) Bucket {
	return Bucket{
		Type:     "message",
		Role:     msg.Role,
		Content:  msg.Content,
		Model:    model,
		Provider: provider,
	}
}
