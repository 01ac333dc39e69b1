// Package config loads promptgate settings from defaults, a TOML file, a .env
// file and PROMPTGATE_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/codingconcepts/env"
	"github.com/joho/godotenv"

	"github.com/papercomputeco/promptgate/pkg/gateway"
)

const (
	DefaultModel      = "deepseek-ai/DeepSeek-R1-Distill-Llama-8B"
	DefaultProvider   = gateway.ProviderHostedVLLM
	// DefaultBaseURL is where a hosted_vllm server is expected when no base URL is set.
	DefaultBaseURL    = "http://localhost:8000/v1"
	DefaultListenAddr = ":8080"
)

// Callback names accepted in Config.Callbacks.
const (
	CallbackLog    = "log"
	CallbackRecord = "record"
)

// Config is the promptgate configuration.
type Config struct {
	// Model identifier sent with every request
	Model string `toml:"model" env:"PROMPTGATE_MODEL"`

	// Provider selector, see gateway.Providers
	Provider string `toml:"provider" env:"PROMPTGATE_PROVIDER"`

	// BaseURL of the inference server. Empty selects the hosted API for openai,
	// DefaultBaseURL for hosted_vllm and the local daemon for ollama.
	BaseURL string `toml:"base_url" env:"PROMPTGATE_BASE_URL"`

	APIKey string `toml:"api_key" env:"PROMPTGATE_API_KEY"`

	// Address the HTTP server listens on (e.g., ":8080")
	ListenAddr string `toml:"listen" env:"PROMPTGATE_LISTEN"`

	// DBPath is the SQLite database recorded conversations are stored in.
	// Empty keeps them in memory.
	DBPath string `toml:"db" env:"PROMPTGATE_DB"`

	Debug    bool `toml:"debug" env:"PROMPTGATE_DEBUG"`
	JSONLogs bool `toml:"json_logs" env:"PROMPTGATE_JSON_LOGS"`

	// Callbacks names the monitoring callbacks attached to every call.
	Callbacks []string `toml:"callbacks"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Model:      DefaultModel,
		Provider:   DefaultProvider,
		ListenAddr: DefaultListenAddr,
		Callbacks:  []string{CallbackLog},
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment apply. A missing .env file is not an error.
// The result is not validated, since command-line flags may still override
// it; call Validate once every source is applied.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("reading .env: %w", err)
	}

	if err := env.Set(&cfg); err != nil {
		return Config{}, fmt.Errorf("reading environment: %w", err)
	}

	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Model == "" {
		return errors.New("model must not be empty")
	}
	if !gateway.KnownProvider(c.Provider) {
		return fmt.Errorf("unknown provider %q (supported: %v)", c.Provider, gateway.Providers)
	}
	for _, name := range c.Callbacks {
		if name != CallbackLog && name != CallbackRecord {
			return fmt.Errorf("unknown callback %q", name)
		}
	}
	return nil
}

// ProviderConfig returns the provider part of the configuration.
func (c Config) ProviderConfig() gateway.ProviderConfig {
	return gateway.ProviderConfig{
		Provider: c.Provider,
		BaseURL:  c.EffectiveBaseURL(),
		APIKey:   c.APIKey,
	}
}

// EffectiveBaseURL is BaseURL, or DefaultBaseURL for hosted_vllm when none is set.
func (c Config) EffectiveBaseURL() string {
	if c.BaseURL == "" && c.Provider == gateway.ProviderHostedVLLM {
		return DefaultBaseURL
	}
	return c.BaseURL
}
