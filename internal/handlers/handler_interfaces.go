package handlers

import (
	"context"
	"io"

	"github.com/ternarybob/seoforge/internal/models"
	"github.com/ternarybob/seoforge/internal/services/credentials"
	"github.com/ternarybob/seoforge/internal/services/exporter"
)

// BatchRunner starts, observes and cancels batch runs. Reset clears the
// item store unless a run is draining.
type BatchRunner interface {
	Start(ctx context.Context, cfg models.RunConfiguration) (models.RunProgress, error)
	Cancel() bool
	Reset() error
	Running() bool
	Progress() models.RunProgress
	CredentialsInvalid() bool
}

// RowParser turns an uploaded keyword file into rows.
type RowParser interface {
	Parse(name string, r io.Reader) ([]models.ImportedRow, error)
}

// Exporter renders items to a downloadable document.
type Exporter interface {
	Export(ctx context.Context, format exporter.Format, items []models.WorkItem) (*exporter.Document, error)
}

// CredentialsManager reports and replaces the generator API key.
type CredentialsManager interface {
	Status() credentials.Status
	Set(ctx context.Context, provider, apiKey string) (credentials.Status, error)
}

// TopicResolver lists and resolves topic profiles.
type TopicResolver interface {
	List() []models.TopicProfile
	Resolve(topic, custom string) models.TopicProfile
}
