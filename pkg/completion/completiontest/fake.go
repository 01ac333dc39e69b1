// Package completiontest provides a scripted completion.Completer for tests.
package completiontest

import (
	"context"
	"sync"

	"github.com/papercomputeco/promptgate/pkg/completion"
	"github.com/papercomputeco/promptgate/pkg/llm"
)

// Completer returns a fixed answer or error and records every request.
type Completer struct {
	Name     string
	Response *completion.Response
	Err      error

	// Panic, when set, is raised from Complete.
	Panic any

	mu       sync.Mutex
	requests []completion.Request
}

// Reply returns a Completer answering every request with text.
func Reply(text string) *Completer {
	return &Completer{
		Name: "fake",
		Response: &completion.Response{
			ID:    "fake-request",
			Model: "fake-model",
			Choices: []completion.Choice{{
				Message:      llm.Message{Role: llm.RoleAssistant, Content: text},
				FinishReason: "stop",
			}},
		},
	}
}

// Fail returns a Completer failing every request with err.
func Fail(err error) *Completer {
	return &Completer{Name: "fake", Err: err}
}

func (c *Completer) Provider() string {
	if c.Name == "" {
		return "fake"
	}
	return c.Name
}

func (c *Completer) Complete(_ context.Context, req completion.Request) (*completion.Response, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()

	if c.Panic != nil {
		panic(c.Panic)
	}
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Response, nil
}

// Requests returns a copy of the requests received so far.
func (c *Completer) Requests() []completion.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]completion.Request(nil), c.requests...)
}

var _ completion.Completer = (*Completer)(nil)
