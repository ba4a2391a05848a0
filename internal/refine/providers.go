package refine

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const defaultOllamaURL = "http://127.0.0.1:11434"

// ProviderConfig selects and authenticates a model.
type ProviderConfig struct {
	Provider string // openai, anthropic or ollama
	Model    string
	APIKey   string
	BaseURL  string
}

// NewModel creates the langchaingo model for cfg. An empty provider returns
// nil, which disables refinement.
func NewModel(cfg ProviderConfig) (llms.Model, error) {
	switch strings.ToLower(cfg.Provider) {
	case "":
		return nil, nil
	case "openai":
		return createOpenAIClient(cfg)
	case "anthropic":
		return createAnthropicClient(cfg)
	case "ollama":
		return createOllamaClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

func createOpenAIClient(cfg ProviderConfig) (llms.Model, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is not set")
	}
	opts := []openai.Option{
		openai.WithModel(cfg.Model),
		openai.WithToken(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	return openai.New(opts...)
}

func createAnthropicClient(cfg ProviderConfig) (llms.Model, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is not set")
	}
	return anthropic.New(
		anthropic.WithModel(cfg.Model),
		anthropic.WithToken(cfg.APIKey),
	)
}

func createOllamaClient(cfg ProviderConfig) (llms.Model, error) {
	host := cfg.BaseURL
	if host == "" {
		host = defaultOllamaURL
	}
	return ollama.New(
		ollama.WithModel(cfg.Model),
		ollama.WithServerURL(host),
	)
}
