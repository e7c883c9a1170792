package generator

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seoforge/internal/models"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// GeminiGenerator generates content with the Gemini API using structured JSON
// output and, optionally, Google Search grounding
type GeminiGenerator struct {
	client  *genai.Client
	opts    Options
	retry   *RetryConfig
	limiter *rate.Limiter
	schema  *genai.Schema
	topics  TopicResolver
	logger  arbor.ILogger
}

// NewGeminiGenerator creates a Gemini client for opts.APIKey
func NewGeminiGenerator(ctx context.Context, opts Options, topics TopicResolver, logger arbor.ILogger) (*GeminiGenerator, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: Gemini API key is empty", ErrAuthorization)
	}

	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	schema, err := geminiContentSchema()
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Str("model", opts.Model).
		Bool("grounding", opts.Grounding).
		Dur("rate_limit", opts.RateLimit).
		Msg("Gemini generator created")

	return &GeminiGenerator{
		client:  client,
		opts:    opts,
		retry:   opts.retryConfig(),
		limiter: opts.limiter(),
		schema:  schema,
		topics:  topics,
		logger:  logger,
	}, nil
}

// Name identifies the provider and model
func (g *GeminiGenerator) Name() string {
	return "gemini/" + g.opts.Model
}

// Generate produces content fields for one request
func (g *GeminiGenerator) Generate(ctx context.Context, req *models.GenerationRequest) (*models.ContentFields, error) {
	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	profile := g.topics.Resolve(req.Topic, req.CustomInstructions)
	prompt := BuildPrompt(req, profile)

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    g.schema,
	}
	if g.opts.Temperature > 0 {
		config.Temperature = genai.Ptr(g.opts.Temperature)
	}
	if g.opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(g.opts.MaxTokens)
	}
	if g.opts.Grounding {
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt.User, genai.RoleUser)}

	resp, err := withRetry(ctx, g.retry, g.logger, "gemini", func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return g.client.Models.GenerateContent(ctx, g.opts.Model, contents, config)
	})
	if err != nil {
		return nil, err
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, ErrEmptyResponse
	}

	content, err := ParseContent(resp.Text(), req, groundingSources(resp))
	if err != nil {
		return nil, err
	}

	g.logger.Debug().
		Str("keyword", req.Keyword).
		Str("topic", profile.Name).
		Int("sources", len(content.Sources)).
		Msg("Gemini content generated")

	return content, nil
}

// groundingSources returns the web URIs cited by the first candidate
func groundingSources(resp *genai.GenerateContentResponse) []string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	var sources []string
	for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk != nil && chunk.Web != nil && chunk.Web.URI != "" {
			sources = append(sources, chunk.Web.URI)
		}
	}
	return sources
}
