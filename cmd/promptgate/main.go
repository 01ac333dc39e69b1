package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/promptgate/cmd/promptgate/ask"
	chatcmder "github.com/papercomputeco/promptgate/cmd/promptgate/chat"
	mcpcmder "github.com/papercomputeco/promptgate/cmd/promptgate/mcp"
	mergecmder "github.com/papercomputeco/promptgate/cmd/promptgate/merge"
	pushcmder "github.com/papercomputeco/promptgate/cmd/promptgate/push"
	servecmder "github.com/papercomputeco/promptgate/cmd/promptgate/serve"
	"github.com/papercomputeco/promptgate/cmd/promptgate/setup"
)

const rootLongDesc string = `promptgate sends prompts to an LLM inference endpoint and returns the text.

Configuration is read from defaults, a TOML file (--config), .env,
PROMPTGATE_* environment variables and finally the flags below.

Providers: openai, hosted_vllm, openai_compatible, ollama.`

func newRootCmd() *cobra.Command {
	opts := &setup.Options{}

	root := &cobra.Command{
		Use:           "promptgate",
		Short:         "LLM completion gateway",
		Long:          rootLongDesc,
		Version:       setup.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	opts.AddFlags(root)

	root.AddCommand(
		askcmder.NewAskCmd(opts),
		servecmder.NewServeCmd(opts),
		chatcmder.NewChatCmd(opts),
		mcpcmder.NewMCPCmd(opts),
		mergecmder.NewMergeCmd(),
		pushcmder.NewPushCmd(),
	)

	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		if !errors.Is(err, setup.ErrReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
