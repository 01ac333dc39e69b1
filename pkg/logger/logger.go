// Package logger provides opinionated logging capabilities for promptgate
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type options struct {
	json bool
	out  io.Writer
}

// Option customizes the logger built by NewLogger.
type Option func(*options)

// WithJSON switches the console encoder for the JSON encoder.
func WithJSON(enabled bool) Option {
	return func(o *options) { o.json = enabled }
}

// WithOutput redirects log output, which defaults to stdout.
// The stdio MCP server needs this since stdout carries the protocol.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

func NewLogger(debug bool, opts ...Option) *zap.Logger {
	o := &options{out: os.Stdout}
	for _, opt := range opts {
		opt(o)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if o.json {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	// Set log level
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(o.out)), level)

	return zap.New(core, zap.AddCaller())
}
