package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunConfigurationValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  RunConfiguration
		wantErr bool
	}{
		{"all eligible", RunConfiguration{Concurrency: 3, Selection: SelectAll()}, false},
		{"capped", RunConfiguration{Concurrency: 1, Selection: SelectFirst(10)}, false},
		{"zero concurrency", RunConfiguration{Concurrency: 0, Selection: SelectAll()}, true},
		{"negative concurrency", RunConfiguration{Concurrency: -1, Selection: SelectAll()}, true},
		{"zero limit", RunConfiguration{Concurrency: 2, Selection: SelectFirst(0)}, true},
		{"negative limit", RunConfiguration{Concurrency: 2, Selection: SelectFirst(-4)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSelectionLimitApply(t *testing.T) {
	assert.Equal(t, 7, SelectAll().Apply(7))
	assert.Equal(t, 4, SelectFirst(4).Apply(10))
	assert.Equal(t, 3, SelectFirst(10).Apply(3))
	assert.Equal(t, 0, SelectFirst(5).Apply(0))
}

func TestProgressPercent(t *testing.T) {
	tests := []struct {
		completed, total, want int
	}{
		{0, 4, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
		{3, 3, 100},
		{0, 0, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ProgressPercent(tt.completed, tt.total), "%d/%d", tt.completed, tt.total)
	}
}

func TestNewGenerationRequest(t *testing.T) {
	item := WorkItem{
		Keyword:  "авиадоставка",
		SlugHint: "air-cargo",
		Context:  RowContext{{Key: "region", Value: "EU"}},
	}
	settings := GenerationSettings{Language: "Russian", Topic: "Logistics", TargetLength: 3000, CustomInstructions: "Be brief"}

	req := NewGenerationRequest(item, settings)
	assert.Equal(t, "авиадоставка", req.Keyword)
	assert.Equal(t, "air-cargo", req.SlugHint)
	assert.Equal(t, "Logistics", req.Topic)
	assert.Equal(t, "Russian", req.Language)
	assert.Equal(t, 3000, req.TargetLength)
	assert.Equal(t, "Be brief", req.CustomInstructions)

	req.Context[0].Value = "US"
	assert.Equal(t, "EU", item.Context[0].Value)
}

func TestRunRecordDuration(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Duration(0), RunRecord{StartedAt: start}.Duration())
	assert.Equal(t, 90*time.Second, RunRecord{StartedAt: start, FinishedAt: start.Add(90 * time.Second)}.Duration())
}
