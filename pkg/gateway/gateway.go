// Package gateway forwards prompts to a chat-completion provider and turns the
// outcome into a Result. Every failure becomes a value; nothing escapes as a
// panic or an error return.
package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/promptgate/pkg/completion"
	"github.com/papercomputeco/promptgate/pkg/llm"
	"github.com/papercomputeco/promptgate/pkg/monitor"
)

// Gateway sends each prompt as a single user turn to a completer.
// It holds no per-call state and is safe for concurrent use.
type Gateway struct {
	completer completion.Completer
	model     string
	callbacks []monitor.Callback
	counter   completion.TokenCounter
	logger    *zap.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithCallbacks attaches monitoring callbacks, invoked once per call.
func WithCallbacks(callbacks ...monitor.Callback) Option {
	return func(g *Gateway) {
		g.callbacks = append(g.callbacks, callbacks...)
	}
}

// WithTokenCounter estimates generated tokens when the provider reports none.
func WithTokenCounter(counter completion.TokenCounter) Option {
	return func(g *Gateway) {
		g.counter = counter
	}
}

// New creates a Gateway calling model through completer.
func New(completer completion.Completer, model string, logger *zap.Logger, opts ...Option) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gateway{
		completer: completer,
		model:     model,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Model returns the configured model identifier.
func (g *Gateway) Model() string {
	return g.model
}

// Provider returns the provider selector of the underlying completer.
func (g *Gateway) Provider() string {
	return g.completer.Provider()
}

// GetCompletion returns the generated text, or "Error: <message>" when the
// call failed.
func (g *Gateway) GetCompletion(ctx context.Context, prompt string) string {
	return g.Complete(ctx, prompt).String()
}

// Complete makes exactly one completion call for prompt.
func (g *Gateway) Complete(ctx context.Context, prompt string) Result {
	req := completion.Request{
		Model:    g.model,
		Messages: llm.SingleTurn(prompt),
	}
	provider := g.completer.Provider()

	g.logger.Debug("sending completion request",
		zap.String("provider", provider),
		zap.String("model", g.model),
		zap.String("prompt", truncate(prompt, 100)),
	)

	start := time.Now()
	resp, text, cerr := g.call(ctx, provider, req)
	latency := time.Since(start)

	result := Result{
		Model:    g.model,
		Provider: provider,
		Latency:  latency,
	}
	event := &monitor.Event{
		Provider:  provider,
		Model:     g.model,
		Messages:  req.Messages,
		StartTime: start,
		Latency:   latency,
	}

	if cerr != nil {
		result.Err = cerr
		result.RequestID = uuid.NewString()
		event.RequestID = result.RequestID
		event.Err = result.Err

		g.logger.Info("completion failed",
			zap.String("request_id", result.RequestID),
			zap.String("category", string(result.Err.Category)),
			zap.Int64("latency_ms", latency.Milliseconds()),
			zap.Error(result.Err),
		)
		g.dispatch(ctx, event, false)
		return result
	}

	result.Text = text
	result.RequestID = resp.ID
	if result.RequestID == "" {
		result.RequestID = uuid.NewString()
	}
	if resp.Model != "" {
		result.Model = resp.Model
	}
	result.PromptTokens = resp.Usage.PromptTokens
	result.CompletionTokens = resp.Usage.CompletionTokens
	if result.CompletionTokens == 0 && g.counter != nil {
		result.CompletionTokens = g.counter.Count(text)
	}

	event.RequestID = result.RequestID
	event.Model = result.Model
	event.Text = text
	event.PromptTokens = result.PromptTokens
	event.CompletionTokens = result.CompletionTokens

	g.logger.Info("completion received",
		zap.String("request_id", result.RequestID),
		zap.String("prompt", truncate(prompt, 100)),
		zap.Int64("latency_ms", latency.Milliseconds()),
		zap.Int("completion_tokens", result.CompletionTokens),
	)
	g.dispatch(ctx, event, true)
	return result
}

// call invokes the completer and classifies any failure. A panic, whether from
// the completer or from inspecting what it returned, becomes an error too.
func (g *Gateway) call(ctx context.Context, provider string, req completion.Request) (resp *completion.Response, text string, cerr *completion.Error) {
	defer func() {
		if r := recover(); r != nil {
			resp, text = nil, ""
			cerr = completion.NewError(completion.CategoryUnknown, provider, fmt.Errorf("completer panicked: %v", r))
		}
	}()

	resp, err := g.completer.Complete(ctx, req)
	if err == nil {
		text, err = resp.FirstText()
	}
	if err != nil {
		return nil, "", completion.Classify(provider, err)
	}
	return resp, text, nil
}

func (g *Gateway) dispatch(ctx context.Context, event *monitor.Event, success bool) {
	for _, cb := range g.callbacks {
		g.notify(ctx, cb, event, success)
	}
}

// notify isolates the call from a misbehaving callback.
func (g *Gateway) notify(ctx context.Context, cb monitor.Callback, event *monitor.Event, success bool) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("monitoring callback panicked",
				zap.String("request_id", event.RequestID),
				zap.Any("panic", r),
			)
		}
	}()
	if success {
		cb.LogSuccess(ctx, event)
	} else {
		cb.LogFailure(ctx, event)
	}
}

// truncate shortens s for log lines without splitting a character.
func truncate(s string, maxLen int) string {
	return ansi.Truncate(strings.ReplaceAll(s, "\n", " "), maxLen, "...")
}
