// Package mcptool exposes the completion gateway as a Model Context Protocol tool.
package mcptool

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/promptgate/pkg/gateway"
)

// ToolName is the name of the completion tool.
const ToolName = "complete"

// CompleteFunc performs one completion. It is usually Gateway.Complete, or a
// function reading the current gateway when the configuration can be reloaded.
type CompleteFunc func(ctx context.Context, prompt string) gateway.Result

// Input is the tool's argument.
type Input struct {
	Prompt string `json:"prompt" jsonschema:"the text sent to the model as a single user message"`
}

// Output is the tool's structured result.
type Output struct {
	Text             string `json:"text,omitempty" jsonschema:"the generated text"`
	RequestID        string `json:"request_id" jsonschema:"identifier of the completion request"`
	Model            string `json:"model,omitempty"`
	CompletionTokens int    `json:"completion_tokens,omitempty"`
	Error            string `json:"error,omitempty" jsonschema:"raw error message when the call failed"`
	Category         string `json:"category,omitempty" jsonschema:"error category when the call failed"`
}

// NewServer returns an MCP server with the completion tool registered.
func NewServer(complete CompleteFunc, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "promptgate", Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolName,
		Description: "Send a prompt to the configured language model and return the generated text.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in Input) (*mcp.CallToolResult, Output, error) {
		result := complete(ctx, in.Prompt)

		out := Output{
			RequestID:        result.RequestID,
			Model:            result.Model,
			CompletionTokens: result.CompletionTokens,
		}
		if !result.OK() {
			out.Error = result.Err.Error()
			out.Category = string(result.Err.Category)
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: result.Display()}},
			}, out, nil
		}

		out.Text = result.Text
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: result.Text}},
		}, out, nil
	})

	return server
}

// HTTPHandler serves server over the streamable HTTP transport.
func HTTPHandler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)
}

// ServeStdio runs server on stdin/stdout until the client disconnects or ctx is done.
func ServeStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}
