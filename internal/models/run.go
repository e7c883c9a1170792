package models

import (
	"math"
	"time"

	"github.com/go-playground/validator/v10"
)

var runValidator = validator.New()

// GenerationSettings are forwarded verbatim to the content generator
type GenerationSettings struct {
	Language           string `json:"language" toml:"language"`
	Topic              string `json:"topic" toml:"topic"`
	TargetLength       int    `json:"target_length" toml:"target_length"`     // Word-count hint
	CustomInstructions string `json:"custom_instructions,omitempty" toml:"-"` // Overrides the topic default when non-blank
}

// SelectionLimit caps how many eligible items a run takes.
// All selects every eligible item; otherwise Max must be positive.
type SelectionLimit struct {
	All bool `json:"all"`
	Max int  `json:"max" validate:"required_unless=All true,gte=0"`
}

// SelectAll is the "process all" selection
func SelectAll() SelectionLimit {
	return SelectionLimit{All: true}
}

// SelectFirst caps the selection at n items
func SelectFirst(n int) SelectionLimit {
	return SelectionLimit{Max: n}
}

// Apply returns how many of eligible items are taken
func (l SelectionLimit) Apply(eligible int) int {
	if l.All || l.Max > eligible {
		return eligible
	}
	return l.Max
}

// RunConfiguration is the immutable snapshot captured at run start
type RunConfiguration struct {
	Concurrency int                `json:"concurrency" validate:"gte=1"`
	Selection   SelectionLimit     `json:"selection"`
	Settings    GenerationSettings `json:"settings"`
}

// Validate checks the worker count and the selection limit
func (c RunConfiguration) Validate() error {
	return runValidator.Struct(c)
}

// GenerationRequest is what a content generator receives for one item
type GenerationRequest struct {
	Keyword            string     `json:"keyword"`
	Topic              string     `json:"topic"`
	Language           string     `json:"language"`
	TargetLength       int        `json:"target_length"`
	SlugHint           string     `json:"slug_hint,omitempty"`
	Context            RowContext `json:"context,omitempty"`
	CustomInstructions string     `json:"custom_instructions,omitempty"`
}

// NewGenerationRequest combines an item with the run settings
func NewGenerationRequest(item WorkItem, settings GenerationSettings) *GenerationRequest {
	return &GenerationRequest{
		Keyword:            item.Keyword,
		Topic:              settings.Topic,
		Language:           settings.Language,
		TargetLength:       settings.TargetLength,
		SlugHint:           item.SlugHint,
		Context:            item.Context.Clone(),
		CustomInstructions: settings.CustomInstructions,
	}
}

// RunProgress is the aggregate progress of the active (or last) run
type RunProgress struct {
	RunID     string `json:"run_id,omitempty"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Percent   int    `json:"percent"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Running   bool   `json:"running"`
	Cancelled bool   `json:"cancelled,omitempty"`
}

// ProgressPercent returns round(100 * completed / total); zero totals report 0
func ProgressPercent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

// RunRecord is the persisted summary of a finished run
type RunRecord struct {
	ID                 string             `json:"id"`
	StartedAt          time.Time          `json:"started_at"`
	FinishedAt         time.Time          `json:"finished_at"`
	Settings           GenerationSettings `json:"settings"`
	Concurrency        int                `json:"concurrency"`
	Selected           int                `json:"selected"`
	Succeeded          int                `json:"succeeded"`
	Failed             int                `json:"failed"`
	Cancelled          bool               `json:"cancelled"`
	CredentialsInvalid bool               `json:"credentials_invalid"`
}

// Duration returns the wall-clock time the run took
func (r RunRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
