package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seoforge/internal/common"
	"github.com/ternarybob/seoforge/internal/interfaces"
)

// KV keys holding provider API keys
const (
	GeminiAPIKeyName    = "gemini_api_key"
	AnthropicAPIKeyName = "anthropic_api_key"
)

// Factory builds content generators from configuration and stored credentials
type Factory struct {
	config *common.Config
	kv     interfaces.KeyValueStorage
	topics TopicResolver
	logger arbor.ILogger
}

// NewFactory creates a generator factory
func NewFactory(config *common.Config, kv interfaces.KeyValueStorage, topics TopicResolver, logger arbor.ILogger) *Factory {
	return &Factory{
		config: config,
		kv:     kv,
		topics: topics,
		logger: logger,
	}
}

// DefaultProvider returns the configured provider
func (f *Factory) DefaultProvider() common.LLMProvider {
	if f.config.LLM.DefaultProvider == "" {
		return common.LLMProviderGemini
	}
	return f.config.LLM.DefaultProvider
}

// DetectProvider infers the provider from a model name, falling back to the default.
// Accepts "claude-...", "claude/...", "anthropic/...", "gemini-...", "gemini/..." and "google/...".
func (f *Factory) DetectProvider(model string) common.LLMProvider {
	model = strings.ToLower(strings.TrimSpace(model))
	switch {
	case strings.HasPrefix(model, "claude/"), strings.HasPrefix(model, "anthropic/"), strings.HasPrefix(model, "claude-"):
		return common.LLMProviderClaude
	case strings.HasPrefix(model, "gemini/"), strings.HasPrefix(model, "google/"), strings.HasPrefix(model, "gemini-"):
		return common.LLMProviderGemini
	default:
		return f.DefaultProvider()
	}
}

// NormalizeModel removes a provider prefix from a model name
func NormalizeModel(model string) string {
	for _, prefix := range []string{"claude/", "anthropic/", "gemini/", "google/"} {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

// APIKeyName returns the KV key holding the API key for provider
func APIKeyName(provider common.LLMProvider) string {
	if provider == common.LLMProviderClaude {
		return AnthropicAPIKeyName
	}
	return GeminiAPIKeyName
}

// New builds a generator for the default provider, resolving its API key from
// the environment, the KV store or the config file in that order
func (f *Factory) New(ctx context.Context) (interfaces.ContentGenerator, error) {
	provider := f.DefaultProvider()

	fallback := f.config.Gemini.APIKey
	if provider == common.LLMProviderClaude {
		fallback = f.config.Claude.APIKey
	}

	apiKey, err := common.ResolveAPIKey(ctx, f.kv, APIKeyName(provider), fallback)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s API key: %w", provider, err)
	}
	return f.NewWithKey(ctx, provider, apiKey)
}

// NewWithKey builds a generator for provider using apiKey
func (f *Factory) NewWithKey(ctx context.Context, provider common.LLMProvider, apiKey string) (interfaces.ContentGenerator, error) {
	opts, err := f.Options(provider, apiKey)
	if err != nil {
		return nil, err
	}

	f.logger.Info().
		Str("provider", string(provider)).
		Str("model", opts.Model).
		Msg("Creating content generator")

	switch provider {
	case common.LLMProviderClaude:
		return NewClaudeGenerator(opts, f.topics, f.logger)
	case common.LLMProviderGemini:
		return NewGeminiGenerator(ctx, opts, f.topics, f.logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

// Options converts the provider section of the config into generator options
func (f *Factory) Options(provider common.LLMProvider, apiKey string) (Options, error) {
	var (
		opts       Options
		timeout    string
		rateLimit  string
		maxRetries int
	)

	switch provider {
	case common.LLMProviderClaude:
		c := f.config.Claude
		opts = Options{Model: NormalizeModel(c.Model), Temperature: c.Temperature, MaxTokens: c.MaxTokens}
		timeout, rateLimit, maxRetries = c.Timeout, c.RateLimit, c.MaxRetries
	default:
		g := f.config.Gemini
		opts = Options{Model: NormalizeModel(g.Model), Temperature: g.Temperature, Grounding: g.Grounding}
		timeout, rateLimit, maxRetries = g.Timeout, g.RateLimit, g.MaxRetries
	}
	opts.APIKey = apiKey

	var err error
	if opts.Timeout, err = parseOptionalDuration(timeout); err != nil {
		return Options{}, fmt.Errorf("invalid %s timeout: %w", provider, err)
	}
	if opts.RateLimit, err = parseOptionalDuration(rateLimit); err != nil {
		return Options{}, fmt.Errorf("invalid %s rate_limit: %w", provider, err)
	}

	opts.Retry = NewDefaultRetryConfig()
	if maxRetries >= 0 {
		opts.Retry.MaxRetries = maxRetries
	}

	return opts, nil
}

func parseOptionalDuration(s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
