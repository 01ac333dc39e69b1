// Package monitor defines the monitoring callbacks attached to completion calls.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/papercomputeco/promptgate/pkg/completion"
	"github.com/papercomputeco/promptgate/pkg/llm"
)

// Event describes one finished completion call.
type Event struct {
	RequestID string
	Provider  string
	Model     string
	Messages  []llm.Message
	StartTime time.Time
	Latency   time.Duration

	// Set on success.
	Text             string
	PromptTokens     int
	CompletionTokens int

	// Set on failure.
	Err *completion.Error
}

// Prompt returns the content of the last user message.
func (e *Event) Prompt() string {
	for i := len(e.Messages) - 1; i >= 0; i-- {
		if e.Messages[i].Role == llm.RoleUser {
			return e.Messages[i].Content
		}
	}
	return ""
}

// Callback observes completion calls. Implementations are shared across
// concurrent calls and must not affect the call's result.
type Callback interface {
	LogSuccess(ctx context.Context, e *Event)
	LogFailure(ctx context.Context, e *Event)
}

var defaultCallback = sync.OnceValue(func() Callback {
	return &Logging{}
})

// Default returns the process-wide logging callback. It is built on first
// use and logs through zap.L(), so it follows zap.ReplaceGlobals.
func Default() Callback {
	return defaultCallback()
}
