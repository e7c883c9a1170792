package models

import "strings"

// OutputFormat is the markup the generator must use for the article text
type OutputFormat string

const (
	OutputFormatMarkdown OutputFormat = "markdown"
	OutputFormatHTML     OutputFormat = "html"
)

// Normalize returns a known format, defaulting to markdown
func (f OutputFormat) Normalize() OutputFormat {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(string(f)))) {
	case OutputFormatHTML:
		return OutputFormatHTML
	default:
		return OutputFormatMarkdown
	}
}

// ContentLimits are the per-topic content targets. Zero means unchecked.
type ContentLimits struct {
	H1MaxChars      int `json:"h1_max_chars,omitempty" yaml:"h1_max_chars,omitempty"`
	ExcerptMaxChars int `json:"excerpt_max_chars,omitempty" yaml:"excerpt_max_chars,omitempty"`
	FAQTargetChars  int `json:"faq_target_chars,omitempty" yaml:"faq_target_chars,omitempty"`
	MinWords        int `json:"min_words,omitempty" yaml:"min_words,omitempty"`
	MinTables       int `json:"min_tables,omitempty" yaml:"min_tables,omitempty"`
}

// TopicProfile selects the persona, default instructions and output format
// used for a niche
type TopicProfile struct {
	Name          string        `json:"name" yaml:"name"`
	Label         string        `json:"label" yaml:"label"`
	Identity      string        `json:"identity" yaml:"identity"`
	Instructions  string        `json:"instructions" yaml:"instructions"`
	OutputFormat  OutputFormat  `json:"output_format" yaml:"output_format"`
	RequireJSONLD bool          `json:"require_json_ld,omitempty" yaml:"require_json_ld,omitempty"`
	Limits        ContentLimits `json:"limits" yaml:"limits"`
}
