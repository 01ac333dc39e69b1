package mcpcmder

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/promptgate/cmd/promptgate/setup"
	"github.com/papercomputeco/promptgate/pkg/mcptool"
)

const mcpLongDesc string = `Serve the "complete" tool over MCP on stdin/stdout.

Logs are written to stderr so they do not corrupt the protocol stream.

Example MCP client configuration:
  {"command": "promptgate", "args": ["mcp", "--provider", "ollama", "--model", "llama3"]}`

const mcpShortDesc string = "Run an MCP server on stdio"

type mcpCommander struct {
	opts *setup.Options
}

func NewMCPCmd(opts *setup.Options) *cobra.Command {
	cmder := &mcpCommander{opts: opts}

	return &cobra.Command{
		Use:   "mcp",
		Short: mcpShortDesc,
		Long:  mcpLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}
}

func (c *mcpCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := c.opts.Load(cmd)
	if err != nil {
		return err
	}

	logger := setup.NewLogger(cfg, cmd.ErrOrStderr())
	defer logger.Sync()

	rt, err := setup.Build(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	return mcptool.ServeStdio(ctx, mcptool.NewServer(rt.Gateway.Complete, setup.Version))
}
