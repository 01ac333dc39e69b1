// Package ollama implements completion.Completer against the Ollama /api/chat endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/promptgate/pkg/completion"
	"github.com/papercomputeco/promptgate/pkg/llm"
)

// DefaultBaseURL is the address of a local Ollama server.
const DefaultBaseURL = "http://localhost:11434"

// ProviderName is the provider selector served by this package.
const ProviderName = "ollama"

// Client is a completion.Completer that talks to Ollama.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for baseURL, falling back to DefaultBaseURL when empty.
// A nil httpClient gets a client with a generous timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	u := strings.TrimSuffix(baseURL, "/")
	if u == "" {
		u = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{
			// Local models can be slow, especially with thinking blocks
			Timeout: 5 * time.Minute,
		}
	}
	return &Client{baseURL: u, httpClient: httpClient}
}

func (c *Client) Provider() string {
	return ProviderName
}

// Complete sends a non-streaming chat request and returns the assistant message.
func (c *Client) Complete(ctx context.Context, req completion.Request) (*completion.Response, error) {
	streaming := false
	reqBody, err := json.Marshal(llm.ChatRequest{
		Model:    req.Model,
		Messages: req.Messages,
		Stream:   &streaming,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, completion.Classify(ProviderName, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, completion.NewError(completion.CategoryNetwork, ProviderName, fmt.Errorf("read response: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, &completion.Error{
			Category:   completion.CategoryProvider,
			Provider:   ProviderName,
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf("upstream returned %d: %s", httpResp.StatusCode, upstreamMessage(body)),
		}
	}

	var resp llm.ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, completion.NewError(completion.CategoryMalformedResponse, ProviderName, fmt.Errorf("unmarshal response: %w", err))
	}

	return &completion.Response{
		Model: resp.Model,
		Choices: []completion.Choice{{
			Message:      llm.Message{Role: llm.RoleAssistant, Content: resp.Message.Content},
			FinishReason: doneReason(resp.Done),
		}},
		Usage: completion.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
	}, nil
}

// upstreamMessage extracts {"error": "..."} bodies and falls back to the raw body.
func upstreamMessage(body []byte) string {
	var e llm.ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}

func doneReason(done bool) string {
	if done {
		return "stop"
	}
	return ""
}

var _ completion.Completer = (*Client)(nil)
