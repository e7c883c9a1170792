package generator

import (
	"context"
	"errors"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/ternarybob/arbor"
	"google.golang.org/genai"
)

// RetryConfig controls how generator calls are retried. Rate-limit errors back
// off geometrically from InitialBackoff (or the delay the API asked for);
// other transient errors wait attempt*ErrorBackoff.
type RetryConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration // one Gemini free-tier quota window
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	ErrorBackoff      time.Duration
}

const (
	DefaultMaxRetries        = 5
	DefaultInitialBackoff    = 45 * time.Second
	DefaultMaxBackoff        = 90 * time.Second
	DefaultBackoffMultiplier = 1.5
	DefaultErrorBackoff      = 2 * time.Second

	// added to an API-suggested delay so the retry lands after the window resets
	retryDelayPadding = 5 * time.Second
)

func NewDefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        DefaultMaxRetries,
		InitialBackoff:    DefaultInitialBackoff,
		MaxBackoff:        DefaultMaxBackoff,
		BackoffMultiplier: DefaultBackoffMultiplier,
		ErrorBackoff:      DefaultErrorBackoff,
	}
}

var rateLimitMarkers = []string{"429", "resource_exhausted", "quota", "rate_limit"}

// IsRateLimitError reports a 429 from either provider, or an error whose text
// carries one of the quota markers
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var geminiErr genai.APIError
	if errors.As(err, &geminiErr) && geminiErr.Code == http.StatusTooManyRequests {
		return true
	}
	var claudeErr *anthropic.Error
	if errors.As(err, &claudeErr) && claudeErr.StatusCode == http.StatusTooManyRequests {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Gemini: "... Please retry in 45.387061394s., Status: RESOURCE_EXHAUSTED"
// or a RetryInfo detail rendered as "retryDelay: 12s"
var retryDelayPattern = regexp.MustCompile(`(?i)(?:please retry in |retryDelay[:\s]+)(\d+(?:\.\d+)?)\s*s`)

// ExtractRetryDelay returns the delay the API asked for, or 0
func ExtractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}
	m := retryDelayPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	seconds, perr := strconv.ParseFloat(m[1], 64)
	if perr != nil {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// CalculateBackoff returns the rate-limit wait before retry number attempt
// (0-based), capped at MaxBackoff
func (c *RetryConfig) CalculateBackoff(attempt int, apiDelay time.Duration) time.Duration {
	base := c.InitialBackoff
	if apiDelay > 0 {
		base = apiDelay + retryDelayPadding
	}
	backoff := time.Duration(float64(base) * math.Pow(c.BackoffMultiplier, float64(attempt)))
	return min(backoff, c.MaxBackoff)
}

// backoffFor picks the wait before retrying after err
func (c *RetryConfig) backoffFor(attempt int, err error) time.Duration {
	if IsRateLimitError(err) {
		return c.CalculateBackoff(attempt, ExtractRetryDelay(err))
	}
	return time.Duration(attempt+1) * c.ErrorBackoff
}

// retryable reports whether another attempt could succeed
func retryable(err error) bool {
	if errors.Is(err, ErrAuthorization) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// withRetry calls fn until it succeeds, returns a non-retryable error, runs out
// of attempts or ctx ends
func withRetry[T any](ctx context.Context, cfg *RetryConfig, logger arbor.ILogger, provider string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = classifyError(err)

		if !retryable(lastErr) || attempt == cfg.MaxRetries {
			break
		}

		backoff := cfg.backoffFor(attempt, lastErr)
		logger.Warn().
			Str("provider", provider).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(lastErr).
			Msg("Retrying generator call")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, lastErr
}
