package gateway

import (
	"time"

	"github.com/papercomputeco/promptgate/pkg/completion"
)

// ErrorPrefix starts the string form of a failed result.
const ErrorPrefix = "Error: "

// Result is the outcome of one completion call: either generated text or an error.
type Result struct {
	Text      string
	RequestID string
	Model     string
	Provider  string
	Latency   time.Duration

	PromptTokens     int
	CompletionTokens int

	// Err is nil on success.
	Err *completion.Error
}

// OK reports whether the call produced text.
func (r Result) OK() bool {
	return r.Err == nil
}

// String returns the generated text, or "Error: " followed by the raw error message.
func (r Result) String() string {
	if r.Err != nil {
		return ErrorPrefix + r.Err.Error()
	}
	return r.Text
}

// Display is like String but replaces the raw error with a message safe to
// show to end users.
func (r Result) Display() string {
	if r.Err != nil {
		return r.Err.Display()
	}
	return r.Text
}
