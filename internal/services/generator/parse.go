package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/seoforge/internal/common"
	"github.com/ternarybob/seoforge/internal/models"
)

// ParseContent decodes the model's JSON text into content fields, validates it
// against the content schema and applies the slug rules for req
func ParseContent(text string, req *models.GenerationRequest, sources []string) (*models.ContentFields, error) {
	raw := extractJSONObject(text)
	if raw == "" {
		if strings.TrimSpace(text) == "" {
			return nil, ErrEmptyResponse
		}
		return nil, fmt.Errorf("%w: no JSON object in response", ErrMalformedResponse)
	}

	var doc interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := contentSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var content models.ContentFields
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if hint := strings.TrimSpace(req.SlugHint); hint != "" {
		content.Slug = hint
	}
	if strings.TrimSpace(content.Slug) == "" {
		content.Slug = common.Slugify(req.Keyword)
	}
	content.Sources = dedupeSources(sources)

	return &content, nil
}

// extractJSONObject returns the outermost {...} of text, tolerating code fences
// and prose around it
func extractJSONObject(text string) string {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// dedupeSources drops blanks and repeats, keeping first-seen order
func dedupeSources(sources []string) []string {
	if len(sources) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(sources))
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
