// Package completion defines the chat-completion capability promptgate delegates to,
// and the error model shared by every provider.
package completion

import (
	"context"

	"github.com/papercomputeco/promptgate/pkg/llm"
)

// Request is a chat-completion call.
type Request struct {
	Model    string
	Messages []llm.Message
}

// Response is the part of a provider's reply promptgate reads.
type Response struct {
	// ID is the provider's request identifier, empty when it reports none.
	ID      string
	Model   string
	Choices []Choice
	Usage   Usage
}

// Choice is one generated candidate.
type Choice struct {
	Index        int
	Message      llm.Message
	FinishReason string
}

// Usage is token accounting. Zero means the provider did not report it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// FirstText returns the content of the first choice.
func (r *Response) FirstText() (string, error) {
	if r == nil || len(r.Choices) == 0 {
		return "", ErrNoChoices
	}
	return r.Choices[0].Message.Content, nil
}

// Completer performs one chat-completion call against a provider.
// Implementations make a single attempt and must be safe for concurrent use.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)

	// Provider names the provider selector this completer serves.
	Provider() string
}
