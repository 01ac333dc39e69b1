package monitor

import (
	"context"

	"go.uber.org/zap"
)

// Logging writes a human-readable summary of every call.
// A zero Logging uses the global zap logger.
type Logging struct {
	Logger *zap.Logger
}

// NewLogging returns a Logging callback writing to logger.
func NewLogging(logger *zap.Logger) *Logging {
	return &Logging{Logger: logger}
}

func (l *Logging) LogSuccess(_ context.Context, e *Event) {
	l.logger().Info("completion succeeded",
		zap.String("request_id", e.RequestID),
		zap.String("provider", e.Provider),
		zap.String("model", e.Model),
		zap.String("prompt", e.Prompt()),
		zap.Int64("latency_ms", e.Latency.Milliseconds()),
		zap.Int("completion_tokens", e.CompletionTokens),
	)
}

func (l *Logging) LogFailure(_ context.Context, e *Event) {
	fields := []zap.Field{
		zap.String("request_id", e.RequestID),
		zap.String("provider", e.Provider),
		zap.String("model", e.Model),
		zap.String("prompt", e.Prompt()),
		zap.Int64("latency_ms", e.Latency.Milliseconds()),
	}
	if e.Err != nil {
		fields = append(fields,
			zap.String("category", string(e.Err.Category)),
			zap.Error(e.Err),
		)
		if e.Err.StatusCode != 0 {
			fields = append(fields, zap.Int("status", e.Err.StatusCode))
		}
	}
	l.logger().Warn("completion failed", fields...)
}

func (l *Logging) logger() *zap.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return zap.L()
}

var _ Callback = (*Logging)(nil)
