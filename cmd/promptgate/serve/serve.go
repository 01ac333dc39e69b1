package servecmder

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/promptgate/cmd/promptgate/setup"
	"github.com/papercomputeco/promptgate/pkg/config"
	"github.com/papercomputeco/promptgate/server"
)

const serveLongDesc string = `Serve completions over HTTP.

Endpoints:
  POST /v1/completions   {"prompt": "..."} -> text, or a structured error (502)
  POST /api/completion   {"prompt": "..."} -> {"completion": "<text or Error: ...>"}
  GET  /health
  GET  /dag/...          recorded conversations (with the "record" callback)
  /mcp                   MCP streamable HTTP endpoint

With --watch, edits to the config file swap the model, provider and
callbacks without restarting.

Examples:
  promptgate serve --listen :8080
  promptgate serve --config promptgate.toml --watch`

const serveShortDesc string = "Run the HTTP server"

type serveCommander struct {
	opts   *setup.Options
	listen string
	watch  bool
}

func NewServeCmd(opts *setup.Options) *cobra.Command {
	cmder := &serveCommander{opts: opts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address to listen on (overrides config)")
	cmd.Flags().BoolVarP(&cmder.watch, "watch", "w", false, "Reload the config file when it changes")

	return cmd
}

func (c *serveCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := c.opts.Load(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("listen") {
		cfg.ListenAddr = c.listen
	}

	logger := setup.NewLogger(cfg, cmd.OutOrStdout())
	defer logger.Sync()

	logger.Info("promptgate starting",
		zap.String("listen", cfg.ListenAddr),
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.String("base_url", cfg.EffectiveBaseURL()),
		zap.Bool("debug", cfg.Debug),
	)

	rt, err := setup.Build(cfg, logger)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		ListenAddr: cfg.ListenAddr,
		Version:    setup.Version,
	}, rt.Gateway, rt.Storer, logger)
	defer srv.Close()

	if c.watch {
		if c.opts.ConfigPath == "" {
			return errors.New("--watch requires --config")
		}
		go c.watchConfig(ctx, cmd, srv, rt)
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		if err := srv.Shutdown(); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	return srv.Run()
}

// watchConfig rebuilds the gateway on every config change. The conversation
// store and listen address are fixed for the process lifetime.
func (c *serveCommander) watchConfig(ctx context.Context, cmd *cobra.Command, srv *server.Server, rt *setup.Runtime) {
	logger := rt.Logger

	err := config.Watch(ctx, c.opts.ConfigPath, func(cfg config.Config) {
		c.opts.Apply(cmd, &cfg)
		if err := cfg.Validate(); err != nil {
			logger.Error("ignoring invalid config", zap.Error(err))
			return
		}
		gw, err := setup.BuildGateway(cfg, logger, rt.Storer)
		if err != nil {
			logger.Error("ignoring config reload", zap.Error(err))
			return
		}
		srv.SetGateway(gw)
	}, func(err error) {
		logger.Error("config reload failed", zap.Error(err))
	})
	if err != nil {
		logger.Error("config watcher stopped", zap.Error(err))
	}
}
