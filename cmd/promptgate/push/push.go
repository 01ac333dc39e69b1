package pushcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/promptgate/pkg/merkle"
	"github.com/papercomputeco/promptgate/server"
)

const pushLongDesc string = `Push recorded conversations to a running promptgate server.

Reads all nodes from a local SQLite database and POSTs them to the
server's /dag/nodes endpoint. The server must run with the "record"
callback. Content-addressing makes duplicates a no-op.

Examples:
  promptgate push --db ~/.promptgate/conversations.db http://gpu-box:8080`

const pushShortDesc string = "Push recorded conversations to a server"

type pushCommander struct {
	dbPath    string
	batchSize int
	client    *http.Client
}

func NewPushCmd() *cobra.Command {
	cmder := &pushCommander{client: http.DefaultClient}

	cmd := &cobra.Command{
		Use:   "push <server-url>",
		Short: pushShortDesc,
		Long:  pushLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&cmder.dbPath, "db", "", "Path to the local SQLite database")
	cmd.Flags().IntVar(&cmder.batchSize, "batch-size", 500, "Nodes per HTTP request")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func (c *pushCommander) run(ctx context.Context, cmd *cobra.Command, serverURL string) error {
	if c.batchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.batchSize)
	}
	serverURL = strings.TrimRight(serverURL, "/")

	local, err := merkle.NewSQLiteStorer(c.dbPath)
	if err != nil {
		return fmt.Errorf("could not open local database %s: %w", c.dbPath, err)
	}
	defer local.Close()

	nodes, err := local.List(ctx)
	if err != nil {
		return fmt.Errorf("could not list local nodes: %w", err)
	}

	if len(nodes) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No local nodes to push.")
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Pushing %d nodes from %s to %s\n", len(nodes), c.dbPath, serverURL)

	var total server.IngestResponse
	for i := 0; i < len(nodes); i += c.batchSize {
		end := min(i+c.batchSize, len(nodes))

		resp, err := c.postBatch(ctx, serverURL, nodes[i:end])
		if err != nil {
			return fmt.Errorf("push failed on batch %d-%d: %w", i, end-1, err)
		}

		total.New += resp.New
		total.Duplicate += resp.Duplicate
		total.Errors += resp.Errors
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Pushed %d new nodes (%d already existed, %d errors)\n",
		total.New, total.Duplicate, total.Errors)

	return nil
}

func (c *pushCommander) postBatch(ctx context.Context, serverURL string, nodes []*merkle.Node) (*server.IngestResponse, error) {
	body, err := json.Marshal(nodes)
	if err != nil {
		return nil, fmt.Errorf("could not marshal nodes: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serverURL+"/dag/nodes", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result server.IngestResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("could not decode response: %w", err)
	}

	return &result, nil
}
