// Package setup turns command-line flags and configuration into the objects
// shared by promptgate's subcommands.
package setup

import (
	"errors"
	"fmt"
	"io"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/promptgate/pkg/completion"
	"github.com/papercomputeco/promptgate/pkg/config"
	"github.com/papercomputeco/promptgate/pkg/gateway"
	"github.com/papercomputeco/promptgate/pkg/logger"
	"github.com/papercomputeco/promptgate/pkg/merkle"
	"github.com/papercomputeco/promptgate/pkg/monitor"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// ErrReported means the command already told the user what went wrong and
// only the exit status remains to be set.
var ErrReported = errors.New("failure already reported")

var tokenCounter = &completion.TiktokenCounter{}

// Options are the persistent flags of the root command.
type Options struct {
	ConfigPath string
	Model      string
	Provider   string
	BaseURL    string
	Debug      bool
	JSONLogs   bool
}

// AddFlags registers the persistent flags on root.
func (o *Options) AddFlags(root *cobra.Command) {
	flags := root.PersistentFlags()
	flags.StringVarP(&o.ConfigPath, "config", "c", "", "Path to a TOML config file")
	flags.StringVarP(&o.Model, "model", "m", "", "Model identifier (overrides config)")
	flags.StringVarP(&o.Provider, "provider", "p", "", fmt.Sprintf("Provider selector %v (overrides config)", gateway.Providers))
	flags.StringVar(&o.BaseURL, "base-url", "", "Inference server base URL (overrides config)")
	flags.BoolVar(&o.Debug, "debug", false, "Enable debug logging")
	flags.BoolVar(&o.JSONLogs, "json-logs", false, "Write logs as JSON")
}

// Load reads the configuration and applies the flags the user set.
func (o *Options) Load(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	o.Apply(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// Apply overwrites cfg with explicitly set flags. It is also used on config reload.
func (o *Options) Apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.Model = o.Model
	}
	if flags.Changed("provider") {
		cfg.Provider = o.Provider
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = o.BaseURL
	}
	if flags.Changed("debug") {
		cfg.Debug = o.Debug
	}
	if flags.Changed("json-logs") {
		cfg.JSONLogs = o.JSONLogs
	}
}

// NewLogger builds the logger for cfg, writing to out, and installs it as the
// global zap logger used by monitor.Default.
func NewLogger(cfg config.Config, out io.Writer) *zap.Logger {
	log := logger.NewLogger(cfg.Debug, logger.WithJSON(cfg.JSONLogs), logger.WithOutput(out))
	zap.ReplaceGlobals(log)
	return log
}

// Runtime holds what a command needs to serve completions.
type Runtime struct {
	Config  config.Config
	Logger  *zap.Logger
	Gateway *gateway.Gateway

	// Storer is nil unless conversations are recorded.
	Storer merkle.Storer
}

// Build opens the conversation store, if recording is enabled, and builds the gateway.
func Build(cfg config.Config, logger *zap.Logger) (*Runtime, error) {
	storer, err := OpenStorer(cfg, logger)
	if err != nil {
		return nil, err
	}

	gw, err := BuildGateway(cfg, logger, storer)
	if err != nil {
		if storer != nil {
			storer.Close()
		}
		return nil, err
	}

	return &Runtime{Config: cfg, Logger: logger, Gateway: gw, Storer: storer}, nil
}

// Close releases the store.
func (r *Runtime) Close() error {
	if r.Storer == nil {
		return nil
	}
	return r.Storer.Close()
}

// OpenStorer returns the conversation store, or nil when the record callback is off.
func OpenStorer(cfg config.Config, logger *zap.Logger) (merkle.Storer, error) {
	if !lo.Contains(cfg.Callbacks, config.CallbackRecord) {
		return nil, nil
	}
	if cfg.DBPath == "" {
		logger.Info("recording conversations in memory")
		return merkle.NewMemoryStorer(), nil
	}

	storer, err := merkle.NewSQLiteStorer(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite storer: %w", err)
	}
	logger.Info("recording conversations in SQLite", zap.String("path", cfg.DBPath))
	return storer, nil
}

// BuildGateway creates the completer and callbacks configured by cfg.
func BuildGateway(cfg config.Config, logger *zap.Logger, storer merkle.Storer) (*gateway.Gateway, error) {
	completer, err := gateway.NewCompleter(cfg.ProviderConfig())
	if err != nil {
		return nil, err
	}

	var callbacks []monitor.Callback
	for _, name := range lo.Uniq(cfg.Callbacks) {
		switch name {
		case config.CallbackLog:
			callbacks = append(callbacks, monitor.Default())
		case config.CallbackRecord:
			if storer == nil {
				return nil, errors.New("record callback requires a conversation store")
			}
			callbacks = append(callbacks, monitor.NewRecorder(storer, logger))
		}
	}

	logger.Debug("gateway configured",
		zap.String("provider", completer.Provider()),
		zap.String("model", cfg.Model),
		zap.String("base_url", cfg.EffectiveBaseURL()),
		zap.Strings("callbacks", cfg.Callbacks),
	)

	return gateway.New(completer, cfg.Model, logger,
		gateway.WithCallbacks(callbacks...),
		gateway.WithTokenCounter(tokenCounter),
	), nil
}
