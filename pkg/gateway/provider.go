package gateway

import (
	"errors"
	"fmt"
	"slices"

	"github.com/papercomputeco/promptgate/pkg/completion"
	"github.com/papercomputeco/promptgate/pkg/completion/ollama"
	"github.com/papercomputeco/promptgate/pkg/completion/openaicompat"
)

// Provider selectors.
const (
	ProviderOpenAI           = "openai"
	ProviderHostedVLLM       = "hosted_vllm"
	ProviderOpenAICompatible = "openai_compatible"
	ProviderOllama           = ollama.ProviderName
)

// Providers lists every supported provider selector.
var Providers = []string{ProviderOpenAI, ProviderHostedVLLM, ProviderOpenAICompatible, ProviderOllama}

// ErrBaseURLRequired is returned for self-hosted providers configured without an address.
var ErrBaseURLRequired = errors.New("base URL is required for this provider")

// ProviderConfig selects and addresses a provider.
type ProviderConfig struct {
	Provider string
	BaseURL  string
	APIKey   string
}

// KnownProvider reports whether name is a supported provider selector.
func KnownProvider(name string) bool {
	return slices.Contains(Providers, name)
}

// NewCompleter builds the completer for cfg.Provider. An empty selector means openai.
func NewCompleter(cfg ProviderConfig) (completion.Completer, error) {
	switch cfg.Provider {
	case "", ProviderOpenAI:
		return openaicompat.New(openaicompat.Config{
			Provider: ProviderOpenAI,
			BaseURL:  cfg.BaseURL,
			APIKey:   cfg.APIKey,
		}), nil
	case ProviderHostedVLLM, ProviderOpenAICompatible:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("%s: %w", cfg.Provider, ErrBaseURLRequired)
		}
		return openaicompat.New(openaicompat.Config{
			Provider: cfg.Provider,
			BaseURL:  cfg.BaseURL,
			APIKey:   cfg.APIKey,
		}), nil
	case ProviderOllama:
		return ollama.New(cfg.BaseURL, nil), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (supported: %v)", cfg.Provider, Providers)
	}
}
