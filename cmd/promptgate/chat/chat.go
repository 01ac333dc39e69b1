package chatcmder

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/promptgate/cmd/promptgate/setup"
)

const chatLongDesc string = `Chat with the configured model in the terminal.

Every message is sent as its own single-turn prompt; earlier messages are
shown for reference but not sent back to the model.

Logs are discarded unless --log-file is set.

Keys:
  enter      send
  pgup/pgdn  scroll
  esc/ctrl+c quit`

const chatShortDesc string = "Interactive terminal chat"

type chatCommander struct {
	opts    *setup.Options
	logFile string
}

func NewChatCmd(opts *setup.Options) *cobra.Command {
	cmder := &chatCommander{opts: opts}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Append logs to this file")

	return cmd
}

func (c *chatCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := c.opts.Load(cmd)
	if err != nil {
		return err
	}

	var out io.Writer = io.Discard
	if c.logFile != "" {
		f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		out = f
	}

	logger := setup.NewLogger(cfg, out)
	defer logger.Sync()

	rt, err := setup.Build(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	m := newModel(ctx, rt.Gateway.Complete, rt.Gateway.Provider(), rt.Gateway.Model())
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	_, err = p.Run()
	return err
}
