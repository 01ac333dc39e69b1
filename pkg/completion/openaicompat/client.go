// Package openaicompat implements completion.Completer on top of the OpenAI
// chat-completions API. It serves both the hosted API and OpenAI-compatible
// local inference servers such as vLLM.
package openaicompat

import (
	"context"
	"errors"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/samber/lo"

	"github.com/papercomputeco/promptgate/pkg/completion"
	"github.com/papercomputeco/promptgate/pkg/llm"
)

// Config configures a Client.
type Config struct {
	// Provider is the selector reported on results (e.g. "openai", "hosted_vllm").
	Provider string

	// BaseURL of the inference server. Empty uses the hosted OpenAI API.
	BaseURL string

	// APIKey is optional for local servers.
	APIKey string

	HTTPClient *http.Client
}

// Client is a completion.Completer backed by openai-go.
type Client struct {
	client   openai.Client
	provider string
}

// New creates a Client. The SDK's automatic retries are disabled so each
// Complete call makes exactly one attempt.
func New(cfg Config) *Client {
	opts := []option.RequestOption{
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	provider := cfg.Provider
	if provider == "" {
		provider = "openai"
	}

	return &Client{
		client:   openai.NewClient(opts...),
		provider: provider,
	}
}

func (c *Client) Provider() string {
	return c.provider
}

// Complete sends the conversation to /chat/completions.
func (c *Client) Complete(ctx context.Context, req completion.Request) (*completion.Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model),
		Messages: lo.Map(req.Messages, func(m llm.Message, _ int) openai.ChatCompletionMessageParamUnion { return toParam(m) }),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, c.classify(err)
	}

	out := &completion.Response{
		ID:    resp.ID,
		Model: resp.Model,
		Usage: completion.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
	for _, choice := range resp.Choices {
		out.Choices = append(out.Choices, completion.Choice{
			Index:        int(choice.Index),
			Message:      llm.Message{Role: llm.RoleAssistant, Content: choice.Message.Content},
			FinishReason: string(choice.FinishReason),
		})
	}

	return out, nil
}

func toParam(m llm.Message) openai.ChatCompletionMessageParamUnion {
	switch m.Role {
	case llm.RoleSystem:
		return openai.SystemMessage(m.Content)
	case llm.RoleAssistant:
		return openai.AssistantMessage(m.Content)
	default:
		return openai.UserMessage(m.Content)
	}
}

func (c *Client) classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr != nil {
		return &completion.Error{
			Category:   completion.CategoryProvider,
			Provider:   c.provider,
			StatusCode: apiErr.StatusCode,
			Err:        err,
		}
	}

	cerr := completion.Classify(c.provider, err)
	if cerr.Category == completion.CategoryUnknown {
		// Transport and context failures are already categorized, so what
		// remains is a body the SDK could not decode.
		cerr.Category = completion.CategoryMalformedResponse
	}
	return cerr
}

var _ completion.Completer = (*Client)(nil)
