package generator

import (
	"time"

	"golang.org/x/time/rate"
)

// Options are the provider settings shared by every generator
type Options struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Grounding   bool

	// Timeout bounds one item's generation including retries; zero means none
	Timeout time.Duration

	// RateLimit is the minimum spacing between API calls; zero disables pacing
	RateLimit time.Duration

	Retry *RetryConfig

	// BaseURL overrides the provider endpoint (proxies, tests)
	BaseURL string
}

func (o Options) retryConfig() *RetryConfig {
	if o.Retry != nil {
		return o.Retry
	}
	return NewDefaultRetryConfig()
}

// limiter returns a one-token limiter refilled every RateLimit, or an unlimited one
func (o Options) limiter() *rate.Limiter {
	if o.RateLimit <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(o.RateLimit), 1)
}
