package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seoforge/internal/models"
	"golang.org/x/time/rate"
)

const defaultClaudeMaxTokens = 16000

// ClaudeGenerator generates content with the Anthropic Messages API. Claude has
// no structured output mode here, so the JSON object is parsed out of the text.
type ClaudeGenerator struct {
	client  anthropic.Client
	opts    Options
	retry   *RetryConfig
	limiter *rate.Limiter
	topics  TopicResolver
	logger  arbor.ILogger
}

// NewClaudeGenerator creates an Anthropic client for opts.APIKey
func NewClaudeGenerator(opts Options, topics TopicResolver, logger arbor.ILogger) (*ClaudeGenerator, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: Anthropic API key is empty", ErrAuthorization)
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultClaudeMaxTokens
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0), // withRetry owns backoff
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	logger.Debug().
		Str("model", opts.Model).
		Int("max_tokens", opts.MaxTokens).
		Msg("Claude generator created")

	return &ClaudeGenerator{
		client:  anthropic.NewClient(clientOpts...),
		opts:    opts,
		retry:   opts.retryConfig(),
		limiter: opts.limiter(),
		topics:  topics,
		logger:  logger,
	}, nil
}

// Name identifies the provider and model
func (g *ClaudeGenerator) Name() string {
	return "claude/" + g.opts.Model
}

// Generate produces content fields for one request
func (g *ClaudeGenerator) Generate(ctx context.Context, req *models.GenerationRequest) (*models.ContentFields, error) {
	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	profile := g.topics.Resolve(req.Topic, req.CustomInstructions)
	prompt := BuildPrompt(req, profile)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.opts.Model),
		MaxTokens: int64(g.opts.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.User)),
		},
		System: []anthropic.TextBlockParam{
			{Text: prompt.System},
		},
	}
	if g.opts.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(g.opts.Temperature))
	}

	resp, err := withRetry(ctx, g.retry, g.logger, "claude", func(ctx context.Context) (*anthropic.Message, error) {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return g.client.Messages.New(ctx, params)
	})
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	content, err := ParseContent(text.String(), req, nil)
	if err != nil {
		return nil, err
	}

	g.logger.Debug().
		Str("keyword", req.Keyword).
		Str("topic", profile.Name).
		Msg("Claude content generated")

	return content, nil
}
