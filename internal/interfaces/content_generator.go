package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/seoforge/internal/models"
)

// ErrAuthorization marks generator failures caused by missing or rejected
// credentials. Generators wrap it so callers can detect it with errors.Is.
var ErrAuthorization = errors.New("generator credentials rejected")

// ContentGenerator produces the SEO content for a single keyword.
// Implementations own retries, rate limiting and the wire protocol.
type ContentGenerator interface {
	Generate(ctx context.Context, req *models.GenerationRequest) (*models.ContentFields, error)

	// Name identifies the provider, e.g. "gemini"
	Name() string
}
