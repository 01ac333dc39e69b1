package askcmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/promptgate/cmd/promptgate/setup"
)

const askLongDesc string = `Send a prompt to the configured model and print the answer.

The prompt is taken from the arguments, or from stdin when there are none.
On failure the output is "Error: <message>" and the exit status is 1.

Examples:
  promptgate ask "What is a Merkle DAG?"
  echo "Hello" | promptgate ask --provider ollama --model llama3
  promptgate ask --render "Write a haiku about Go in markdown"`

const askShortDesc string = "Send a single prompt"

var errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

type askCommander struct {
	opts   *setup.Options
	render bool
}

func NewAskCmd(opts *setup.Options) *cobra.Command {
	cmder := &askCommander{opts: opts}

	cmd := &cobra.Command{
		Use:   "ask [prompt...]",
		Short: askShortDesc,
		Long:  askLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, args)
		},
	}

	cmd.Flags().BoolVarP(&cmder.render, "render", "r", false, "Render the answer as markdown when writing to a terminal")

	return cmd
}

func (c *askCommander) run(ctx context.Context, cmd *cobra.Command, args []string) error {
	cfg, err := c.opts.Load(cmd)
	if err != nil {
		return err
	}

	// stdout carries the answer, so logs go to stderr.
	logger := setup.NewLogger(cfg, cmd.ErrOrStderr())
	defer logger.Sync()

	rt, err := setup.Build(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	prompt, err := readPrompt(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	result := rt.Gateway.Complete(ctx, prompt)
	out := cmd.OutOrStdout()

	if !result.OK() {
		fmt.Fprintln(out, errorStyle.Render(result.String()))
		return setup.ErrReported
	}

	text := result.Text
	if fd, ok := terminalFd(out); c.render && ok {
		text = renderMarkdown(text, fd)
	}
	fmt.Fprintln(out, text)
	return nil
}

func readPrompt(in io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("could not read prompt from stdin: %w", err)
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}

func terminalFd(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0, false
	}
	return int(f.Fd()), true
}

// renderMarkdown falls back to the plain text if rendering fails.
func renderMarkdown(text string, fd int) string {
	style := "light"
	if termenv.HasDarkBackground() {
		style = "dark"
	}
	width := 80
	if w, _, err := term.GetSize(fd); err == nil && w > 0 {
		width = w
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}
	rendered, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n")
}
