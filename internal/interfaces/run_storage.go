package interfaces

import (
	"context"

	"github.com/ternarybob/seoforge/internal/models"
)

// RunStorage persists summaries of finished batch runs
type RunStorage interface {
	SaveRun(ctx context.Context, record *models.RunRecord) error
	GetRun(ctx context.Context, id string) (*models.RunRecord, error)

	// ListRuns returns the most recent runs first; limit <= 0 returns all
	ListRuns(ctx context.Context, limit int) ([]models.RunRecord, error)
	DeleteAllRuns(ctx context.Context) error
}
