// Package credentials manages the generator API key: where it is stored,
// whether the current one works, and swapping it while the server runs.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seoforge/internal/common"
	"github.com/ternarybob/seoforge/internal/interfaces"
	"github.com/ternarybob/seoforge/internal/services/generator"
)

var (
	// ErrEmptyAPIKey is returned when Set receives a blank key
	ErrEmptyAPIKey = errors.New("api key cannot be empty")

	// ErrUnknownProvider is returned for a provider other than gemini or claude
	ErrUnknownProvider = errors.New("unknown provider")
)

// GeneratorBuilder creates content generators
type GeneratorBuilder interface {
	DefaultProvider() common.LLMProvider
	New(ctx context.Context) (interfaces.ContentGenerator, error)
	NewWithKey(ctx context.Context, provider common.LLMProvider, apiKey string) (interfaces.ContentGenerator, error)
}

// GeneratorTarget receives the generator and tracks credential failures
type GeneratorTarget interface {
	SetGenerator(generator interfaces.ContentGenerator)
	CredentialsInvalid() bool
	ResetCredentials()
}

// Status reports whether generation can currently be expected to authorize
type Status struct {
	Valid      bool   `json:"valid"`
	Provider   string `json:"provider"`
	Configured bool   `json:"configured"`
	Generator  string `json:"generator,omitempty"`
}

// Service owns the active generator credentials
type Service struct {
	kv      interfaces.KeyValueStorage
	builder GeneratorBuilder
	target  GeneratorTarget
	logger  arbor.ILogger

	mu        sync.Mutex
	provider  common.LLMProvider
	generator string
}

// NewService creates a credentials service
func NewService(kv interfaces.KeyValueStorage, builder GeneratorBuilder, target GeneratorTarget, logger arbor.ILogger) *Service {
	return &Service{
		kv:       kv,
		builder:  builder,
		target:   target,
		logger:   logger,
		provider: builder.DefaultProvider(),
	}
}

// Init builds the generator from the resolved API key. A missing key is not
// an error: the service reports itself unconfigured until Set is called.
func (s *Service) Init(ctx context.Context) {
	gen, err := s.builder.New(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Str("provider", string(s.provider)).Msg("Content generator not configured")
		return
	}
	s.install(s.provider, gen)
}

// Status returns the current credentials status
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	configured := s.generator != ""
	return Status{
		Valid:      configured && !s.target.CredentialsInvalid(),
		Provider:   string(s.provider),
		Configured: configured,
		Generator:  s.generator,
	}
}

// Set validates and stores a new API key for provider (the default provider
// when blank), installs a generator using it and clears the invalid flag.
func (s *Service) Set(ctx context.Context, provider, apiKey string) (Status, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return Status{}, ErrEmptyAPIKey
	}

	p, err := s.parseProvider(provider)
	if err != nil {
		return Status{}, err
	}

	gen, err := s.builder.NewWithKey(ctx, p, apiKey)
	if err != nil {
		s.logger.Error().Err(err).Str("provider", string(p)).Msg("Failed to build content generator")
		return Status{}, fmt.Errorf("failed to build %s generator: %w", p, err)
	}

	name := generator.APIKeyName(p)
	if err := s.kv.Set(ctx, name, apiKey, fmt.Sprintf("API key for the %s content generator", p)); err != nil {
		s.logger.Error().Err(err).Str("key", name).Msg("Failed to store API key")
		return Status{}, fmt.Errorf("failed to store API key: %w", err)
	}

	s.install(p, gen)
	s.target.ResetCredentials()

	s.logger.Info().Str("provider", string(p)).Str("generator", gen.Name()).Msg("API key updated")
	return s.Status(), nil
}

func (s *Service) install(provider common.LLMProvider, gen interfaces.ContentGenerator) {
	s.target.SetGenerator(gen)

	s.mu.Lock()
	s.provider = provider
	s.generator = gen.Name()
	s.mu.Unlock()
}

func (s *Service) parseProvider(provider string) (common.LLMProvider, error) {
	switch common.LLMProvider(strings.ToLower(strings.TrimSpace(provider))) {
	case "":
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.provider, nil
	case common.LLMProviderGemini:
		return common.LLMProviderGemini, nil
	case common.LLMProviderClaude, "anthropic":
		return common.LLMProviderClaude, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
}
