package mergecmder

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/promptgate/pkg/merkle"
)

const mergeLongDesc string = `Merge recorded-conversation databases into a target.

Content-addressing makes this a simple union: nodes that already
exist in the target are skipped (deduped by hash), and nodes whose
hash does not match their content are rejected.

Examples:
  promptgate merge --db merged.db gpu-box.db laptop.db`

const mergeShortDesc string = "Merge recorded-conversation databases"

type mergeCommander struct {
	dbPath string
}

func NewMergeCmd() *cobra.Command {
	cmder := &mergeCommander{}

	cmd := &cobra.Command{
		Use:   "merge [sources...]",
		Short: mergeShortDesc,
		Long:  mergeLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, args)
		},
	}

	cmd.Flags().StringVar(&cmder.dbPath, "db", "", "Path to the target SQLite database")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func (c *mergeCommander) run(ctx context.Context, cmd *cobra.Command, sources []string) error {
	if c.dbPath == "" {
		return errors.New("target database path must not be empty")
	}

	target, err := merkle.NewSQLiteStorer(c.dbPath)
	if err != nil {
		return fmt.Errorf("could not open target database %s: %w", c.dbPath, err)
	}
	defer target.Close()

	var totalNew, totalDuped, totalRejected int

	for _, srcPath := range sources {
		srcNew, srcDuped, srcRejected, err := mergeSource(ctx, target, srcPath)
		if err != nil {
			return err
		}

		totalNew += srcNew
		totalDuped += srcDuped
		totalRejected += srcRejected

		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d new, %d already existed, %d rejected\n", srcPath, srcNew, srcDuped, srcRejected)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Merged %d new nodes from %d sources (%d already existed, %d rejected) into %s\n",
		totalNew, len(sources), totalDuped, totalRejected, c.dbPath)

	return nil
}

func mergeSource(ctx context.Context, target merkle.Storer, srcPath string) (added, duped, rejected int, err error) {
	source, err := merkle.NewSQLiteStorer(srcPath)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("could not open source database %s: %w", srcPath, err)
	}
	defer source.Close()

	nodes, err := source.List(ctx)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("could not list nodes from %s: %w", srcPath, err)
	}

	for _, n := range nodes {
		if !n.Verify() {
			rejected++
			continue
		}
		isNew, err := target.Put(ctx, n)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("could not put node %s: %w", n.Hash, err)
		}
		if isNew {
			added++
		} else {
			duped++
		}
	}

	return added, duped, rejected, nil
}
