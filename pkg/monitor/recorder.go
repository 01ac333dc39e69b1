package monitor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/promptgate/pkg/llm"
	"github.com/papercomputeco/promptgate/pkg/merkle"
)

// Recorder stores successful exchanges as chains in a Merkle DAG.
// Identical conversations deduplicate, and different answers to the same
// prompt branch from the shared prefix.
type Recorder struct {
	storer merkle.Storer
	logger *zap.Logger
}

// NewRecorder creates a Recorder writing to storer.
func NewRecorder(storer merkle.Storer, logger *zap.Logger) *Recorder {
	return &Recorder{storer: storer, logger: logger}
}

func (r *Recorder) LogSuccess(ctx context.Context, e *Event) {
	head, err := r.Record(ctx, e)
	if err != nil {
		r.logger.Error("failed to record conversation",
			zap.String("request_id", e.RequestID),
			zap.Error(err),
		)
		return
	}
	r.logger.Debug("conversation recorded",
		zap.String("request_id", e.RequestID),
		zap.String("head_hash", head),
	)
}

// LogFailure is a no-op: only completed exchanges are recorded.
func (r *Recorder) LogFailure(context.Context, *Event) {}

// Record stores the event's messages and answer, returning the head hash.
func (r *Recorder) Record(ctx context.Context, e *Event) (string, error) {
	var parent *merkle.Node

	for _, msg := range e.Messages {
		node := merkle.NewNode(merkle.MessageBucket(msg, e.Model, e.Provider), parent)
		if _, err := r.storer.Put(ctx, node); err != nil {
			return "", fmt.Errorf("storing message node: %w", err)
		}
		parent = node
	}

	answer := merkle.MessageBucket(llm.Message{Role: llm.RoleAssistant, Content: e.Text}, e.Model, e.Provider)
	answer.Usage = &merkle.Usage{
		PromptTokens:     e.PromptTokens,
		CompletionTokens: e.CompletionTokens,
	}

	node := merkle.NewNode(answer, parent)
	if _, err := r.storer.Put(ctx, node); err != nil {
		return "", fmt.Errorf("storing response node: %w", err)
	}

	return node.Hash, nil
}

var _ Callback = (*Recorder)(nil)
