package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seoforge/internal/interfaces"
	"github.com/ternarybob/seoforge/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ErrRunNotFound is returned by GetRun for an unknown run ID
var ErrRunNotFound = errors.New("run not found")

// RunStorage implements interfaces.RunStorage for Badger
type RunStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewRunStorage creates a new RunStorage instance
func NewRunStorage(db *BadgerDB, logger arbor.ILogger) interfaces.RunStorage {
	return &RunStorage{
		db:     db,
		logger: logger,
	}
}

// SaveRun inserts or replaces a run record
func (s *RunStorage) SaveRun(ctx context.Context, record *models.RunRecord) error {
	if record == nil || record.ID == "" {
		return fmt.Errorf("run record requires an ID")
	}
	if err := s.db.Store().Upsert(record.ID, record); err != nil {
		return fmt.Errorf("failed to save run %s: %w", record.ID, err)
	}

	s.logger.Debug().Str("run_id", record.ID).Msg("Run record saved")
	return nil
}

// GetRun retrieves a run record by ID
func (s *RunStorage) GetRun(ctx context.Context, id string) (*models.RunRecord, error) {
	var record models.RunRecord
	err := s.db.Store().Get(id, &record)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return &record, nil
}

// ListRuns returns run records newest first
func (s *RunStorage) ListRuns(ctx context.Context, limit int) ([]models.RunRecord, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("StartedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []models.RunRecord
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return records, nil
}

// DeleteAllRuns removes the run history
func (s *RunStorage) DeleteAllRuns(ctx context.Context) error {
	if err := s.db.Store().DeleteMatching(&models.RunRecord{}, nil); err != nil {
		return fmt.Errorf("failed to delete runs: %w", err)
	}
	s.logger.Info().Msg("Run history cleared")
	return nil
}
