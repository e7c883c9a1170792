package generator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seoforge/internal/common"
	"github.com/ternarybob/seoforge/internal/services/topics"
)

func newTestFactory(t *testing.T, mutate func(*common.Config)) *Factory {
	t.Helper()
	cfg := common.NewDefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	return NewFactory(cfg, nil, topics.NewRegistry(arbor.NewLogger()), arbor.NewLogger())
}

func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"SEOFORGE_GEMINI_API_KEY", "GEMINI_API_KEY", "API_KEY", "SEOFORGE_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"} {
		t.Setenv(name, "")
	}
}

func TestDetectProvider(t *testing.T) {
	f := newTestFactory(t, nil)

	tests := map[string]common.LLMProvider{
		"claude-sonnet-4-5":      common.LLMProviderClaude,
		"anthropic/claude-opus":  common.LLMProviderClaude,
		"gemini-3-flash-preview": common.LLMProviderGemini,
		"google/gemini-2.5-pro":  common.LLMProviderGemini,
		"":                       common.LLMProviderGemini,
		"some-other-model":       common.LLMProviderGemini,
	}
	for model, want := range tests {
		assert.Equal(t, want, f.DetectProvider(model), model)
	}

	claudeDefault := newTestFactory(t, func(c *common.Config) { c.LLM.DefaultProvider = common.LLMProviderClaude })
	assert.Equal(t, common.LLMProviderClaude, claudeDefault.DetectProvider("unknown"))
}

func TestNormalizeModel(t *testing.T) {
	assert.Equal(t, "claude-sonnet-4-5", NormalizeModel("claude/claude-sonnet-4-5"))
	assert.Equal(t, "gemini-3-flash-preview", NormalizeModel("Gemini/gemini-3-flash-preview"))
	assert.Equal(t, "gemini-3-flash-preview", NormalizeModel("gemini-3-flash-preview"))
}

func TestFactoryOptions(t *testing.T) {
	f := newTestFactory(t, func(c *common.Config) {
		c.Gemini.Timeout = "2m"
		c.Gemini.RateLimit = "4s"
		c.Gemini.MaxRetries = 1
	})

	opts, err := f.Options(common.LLMProviderGemini, "key")
	require.NoError(t, err)
	assert.Equal(t, "key", opts.APIKey)
	assert.Equal(t, 2*time.Minute, opts.Timeout)
	assert.Equal(t, 4*time.Second, opts.RateLimit)
	assert.Equal(t, 1, opts.Retry.MaxRetries)
	assert.True(t, opts.Grounding)

	opts, err = f.Options(common.LLMProviderClaude, "key")
	require.NoError(t, err)
	assert.Equal(t, 16000, opts.MaxTokens)

	bad := newTestFactory(t, func(c *common.Config) { c.Gemini.RateLimit = "soon" })
	_, err = bad.Options(common.LLMProviderGemini, "key")
	assert.Error(t, err)
}

func TestFactoryNew(t *testing.T) {
	clearKeyEnv(t)

	_, err := newTestFactory(t, nil).New(context.Background())
	require.Error(t, err)

	gen, err := newTestFactory(t, func(c *common.Config) { c.Gemini.APIKey = "from-config" }).New(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &GeminiGenerator{}, gen)

	t.Setenv("ANTHROPIC_API_KEY", "from-env")
	gen, err = newTestFactory(t, func(c *common.Config) { c.LLM.DefaultProvider = common.LLMProviderClaude }).New(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &ClaudeGenerator{}, gen)
}

func TestAPIKeyName(t *testing.T) {
	assert.Equal(t, "gemini_api_key", APIKeyName(common.LLMProviderGemini))
	assert.Equal(t, "anthropic_api_key", APIKeyName(common.LLMProviderClaude))
}
