package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/seoforge/internal/interfaces"
	"github.com/ternarybob/seoforge/internal/models"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	LLM         LLMConfig       `toml:"llm"`
	Batch       BatchConfig     `toml:"batch"`
	Topics      TopicsConfig    `toml:"topics"`
	Export      ExportConfig    `toml:"export"`
	WebSocket   WebSocketConfig `toml:"websocket"`
}

type ServerConfig struct {
	Port           int      `toml:"port" validate:"gte=0,lte=65535"`
	Host           string   `toml:"host"`
	AllowedOrigins []string `toml:"allowed_origins"` // CORS origins; "*" allows any
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required_without=InMemory"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`                          // Delete database on startup for clean test runs
	InMemory       bool   `toml:"in_memory"`                                 // Keep settings and run history in memory only
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=trace debug info warn error"` // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`                                             // "json" or "text"
	Output     []string `toml:"output"`                                             // "stdout", "file"
	TimeFormat string   `toml:"time_format"`                                        // Time format for logs (default: "15:04:05")
	Dir        string   `toml:"dir"`                                                // Log and crash report directory (default: logs/ next to the executable)
}

// GeminiConfig contains Google Gemini API configuration for content generation
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // Google Gemini API key
	Model       string  `toml:"model"`       // Model for generation (default: "gemini-3-flash-preview")
	Grounding   bool    `toml:"grounding"`   // Enable Google Search grounding (sources)
	Timeout     string  `toml:"timeout"`     // Per-item timeout as duration string (default: "5m")
	RateLimit   string  `toml:"rate_limit"`  // Minimum spacing between calls (default: "4s" for 15 RPM)
	MaxRetries  int     `toml:"max_retries"` // Retries on rate limit errors (default: 5)
	Temperature float32 `toml:"temperature"` // Generation temperature (default: 0.7)
}

// ClaudeConfig contains Anthropic Claude API configuration for content generation
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key
	Model       string  `toml:"model"`       // Model for generation (default: "claude-sonnet-4-5")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 16000)
	Timeout     string  `toml:"timeout"`     // Per-item timeout as duration string (default: "5m")
	RateLimit   string  `toml:"rate_limit"`  // Minimum spacing between calls (default: "1s")
	MaxRetries  int     `toml:"max_retries"` // Retries on rate limit errors (default: 5)
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.7)
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig selects the content generator
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider" validate:"oneof=gemini claude"` // "gemini" or "claude" (default: "gemini")
}

// BatchConfig holds the run defaults used when a request leaves a field unset
type BatchConfig struct {
	Language     string   `toml:"language" validate:"required"`        // Output language (default: "Russian")
	Topic        string   `toml:"topic" validate:"required"`           // Topic profile name (default: "Logistics")
	TargetLength int      `toml:"target_length" validate:"gte=0"`      // Word-count hint (default: 3000)
	MaxRows      int      `toml:"max_rows" validate:"gte=1"`           // Items per run unless process_all (default: 10)
	Concurrency  int      `toml:"concurrency" validate:"gte=1,lte=10"` // Parallel generator calls (default: 3)
	ProcessAll   bool     `toml:"process_all"`                         // Ignore max_rows (default: false)
	Languages    []string `toml:"languages"`                           // Languages offered to clients
}

// TopicsConfig points at an optional YAML file overriding the built-in topics
type TopicsConfig struct {
	File string `toml:"file"`
}

// ExportConfig controls export file naming
type ExportConfig struct {
	OutputDir  string `toml:"output_dir"`  // Directory for CLI exports (default: ".")
	XLSXPrefix string `toml:"xlsx_prefix"` // default: "logistics_seo"
	JSONPrefix string `toml:"json_prefix"` // default: "logistics_export"
	CSVPrefix  string `toml:"csv_prefix"`  // default: "logistics_export"
	PDFPrefix  string `toml:"pdf_prefix"`  // default: "logistics_articles"
	SheetName  string `toml:"sheet_name"`  // default: "Logistics SEO"

	// TTF files used for PDF export. Without them the core Helvetica font is
	// used and characters outside cp1252 are not representable.
	PDFFont     string `toml:"pdf_font"`
	PDFFontBold string `toml:"pdf_font_bold"`
}

// WebSocketConfig contains configuration for the progress feed
type WebSocketConfig struct {
	ProgressInterval string `toml:"progress_interval"` // Minimum spacing between progress pushes (default: "250ms")
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:           8085,
			Host:           "localhost",
			AllowedOrigins: []string{"*"},
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/seoforge",
				ResetOnStartup: false,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		Gemini: GeminiConfig{
			APIKey:      "",                       // User must provide API key
			Model:       "gemini-3-flash-preview", // Structured output + search grounding
			Grounding:   true,
			Timeout:     "5m",
			RateLimit:   "4s", // 15 RPM free tier
			MaxRetries:  5,
			Temperature: 0.7,
		},
		Claude: ClaudeConfig{
			APIKey:      "",
			Model:       "claude-sonnet-4-5",
			MaxTokens:   16000,
			Timeout:     "5m",
			RateLimit:   "1s",
			MaxRetries:  5,
			Temperature: 0.7,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
		Batch: BatchConfig{
			Language:     "Russian",
			Topic:        "Logistics",
			TargetLength: 3000,
			MaxRows:      10,
			Concurrency:  3,
			ProcessAll:   false,
			Languages:    []string{"Russian", "English", "German", "Italian", "French"},
		},
		Export: ExportConfig{
			OutputDir:  ".",
			XLSXPrefix: "logistics_seo",
			JSONPrefix: "logistics_export",
			CSVPrefix:  "logistics_export",
			PDFPrefix:  "logistics_articles",
			SheetName:  "Logistics SEO",
		},
		WebSocket: WebSocketConfig{
			ProgressInterval: "250ms",
		},
	}
}

// LoadDotEnv loads variables from .env files without overriding variables
// already present in the environment. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}
	return nil
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env
// Later files override earlier files. CLI flags are applied afterwards by ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("SEOFORGE_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("SEOFORGE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("SEOFORGE_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if origins := os.Getenv("SEOFORGE_SERVER_ALLOWED_ORIGINS"); origins != "" {
		config.Server.AllowedOrigins = splitList(origins)
	}

	// Storage configuration
	if badgerPath := os.Getenv("SEOFORGE_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("SEOFORGE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if dir := os.Getenv("SEOFORGE_LOG_DIR"); dir != "" {
		config.Logging.Dir = dir
	}
	if output := os.Getenv("SEOFORGE_LOG_OUTPUT"); output != "" {
		if outputs := splitList(output); len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Gemini configuration
	if apiKey := os.Getenv("SEOFORGE_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("SEOFORGE_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if grounding := os.Getenv("SEOFORGE_GEMINI_GROUNDING"); grounding != "" {
		if g, err := strconv.ParseBool(grounding); err == nil {
			config.Gemini.Grounding = g
		}
	}
	if rateLimit := os.Getenv("SEOFORGE_GEMINI_RATE_LIMIT"); rateLimit != "" {
		config.Gemini.RateLimit = rateLimit
	}
	if timeout := os.Getenv("SEOFORGE_GEMINI_TIMEOUT"); timeout != "" {
		config.Gemini.Timeout = timeout
	}

	// Claude configuration
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("SEOFORGE_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // SEOFORGE_ prefix takes priority
	}
	if model := os.Getenv("SEOFORGE_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if maxTokens := os.Getenv("SEOFORGE_CLAUDE_MAX_TOKENS"); maxTokens != "" {
		if mt, err := strconv.Atoi(maxTokens); err == nil {
			config.Claude.MaxTokens = mt
		}
	}

	// LLM provider configuration
	if provider := os.Getenv("SEOFORGE_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(strings.ToLower(provider))
	}

	// Batch defaults
	if language := os.Getenv("SEOFORGE_BATCH_LANGUAGE"); language != "" {
		config.Batch.Language = language
	}
	if topic := os.Getenv("SEOFORGE_BATCH_TOPIC"); topic != "" {
		config.Batch.Topic = topic
	}
	if concurrency := os.Getenv("SEOFORGE_BATCH_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Batch.Concurrency = c
		}
	}
	if maxRows := os.Getenv("SEOFORGE_BATCH_MAX_ROWS"); maxRows != "" {
		if mr, err := strconv.Atoi(maxRows); err == nil {
			config.Batch.MaxRows = mr
		}
	}

	// Topics configuration
	if file := os.Getenv("SEOFORGE_TOPICS_FILE"); file != "" {
		config.Topics.File = file
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

var configValidator = validator.New()

// Validate checks the loaded configuration and the duration strings it carries
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	durations := map[string]string{
		"gemini.timeout":              c.Gemini.Timeout,
		"gemini.rate_limit":           c.Gemini.RateLimit,
		"claude.timeout":              c.Claude.Timeout,
		"claude.rate_limit":           c.Claude.RateLimit,
		"websocket.progress_interval": c.WebSocket.ProgressInterval,
	}
	for name, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid configuration: %s %q: %w", name, value, err)
		}
	}
	return nil
}

// RunDefaults builds the run configuration described by the [batch] section
func (c *Config) RunDefaults() models.RunConfiguration {
	selection := models.SelectFirst(c.Batch.MaxRows)
	if c.Batch.ProcessAll {
		selection = models.SelectAll()
	}
	return models.RunConfiguration{
		Concurrency: c.Batch.Concurrency,
		Selection:   selection,
		Settings: models.GenerationSettings{
			Language:     c.Batch.Language,
			Topic:        c.Batch.Topic,
			TargetLength: c.Batch.TargetLength,
		},
	}
}

// ResolveAPIKey resolves an API key by name with environment variable priority
// Resolution order: environment variables → KV store → config fallback → error
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"gemini_api_key":    {"SEOFORGE_GEMINI_API_KEY", "GEMINI_API_KEY", "API_KEY"},
		"anthropic_api_key": {"SEOFORGE_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if kvStorage != nil {
		apiKey, err := kvStorage.Get(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment, KV store, or config", name)
}

// splitList splits a comma-separated value, dropping blanks
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// DeepCloneConfig creates a deep copy of the Config struct
func DeepCloneConfig(c *Config) *Config {
	if c == nil {
		return nil
	}

	clone := *c

	if len(c.Server.AllowedOrigins) > 0 {
		clone.Server.AllowedOrigins = make([]string, len(c.Server.AllowedOrigins))
		copy(clone.Server.AllowedOrigins, c.Server.AllowedOrigins)
	}
	if len(c.Logging.Output) > 0 {
		clone.Logging.Output = make([]string, len(c.Logging.Output))
		copy(clone.Logging.Output, c.Logging.Output)
	}
	if len(c.Batch.Languages) > 0 {
		clone.Batch.Languages = make([]string, len(c.Batch.Languages))
		copy(clone.Batch.Languages, c.Batch.Languages)
	}

	return &clone
}
