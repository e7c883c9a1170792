// Package topics holds the niche profiles that select the generator persona,
// default protocol and output format.
package topics

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/seoforge/internal/models"
)

// ErrUnknownTopic is returned by Get for names without a profile
var ErrUnknownTopic = errors.New("unknown topic")

// Registry is the lookup table of topic profiles. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]models.TopicProfile
	order    []string
	logger   arbor.ILogger
}

// overrideFile is the YAML layout accepted by LoadFile
type overrideFile struct {
	Topics []models.TopicProfile `yaml:"topics"`
}

// NewRegistry creates a registry holding the built-in profiles
func NewRegistry(logger arbor.ILogger) *Registry {
	r := &Registry{
		profiles: make(map[string]models.TopicProfile),
		logger:   logger,
	}
	for _, p := range builtinProfiles() {
		r.put(p)
	}
	return r
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// put stores p, keeping first-seen order. Caller must hold mu or own r.
func (r *Registry) put(p models.TopicProfile) {
	k := key(p.Name)
	if _, exists := r.profiles[k]; !exists {
		r.order = append(r.order, k)
	}
	p.OutputFormat = p.OutputFormat.Normalize()
	r.profiles[k] = p
}

// LoadFile merges profiles from a YAML file. Fields set in the file replace
// the built-in values; unknown names add new topics.
func (r *Registry) LoadFile(fs afero.Fs, path string) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("failed to read topic file %s: %w", path, err)
	}

	var file overrideFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse topic file %s: %w", path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	added, merged := 0, 0
	for i, override := range file.Topics {
		if strings.TrimSpace(override.Name) == "" {
			return fmt.Errorf("topic file %s: entry %d has no name", path, i)
		}
		existing, ok := r.profiles[key(override.Name)]
		if !ok {
			if override.Identity == "" {
				override.Identity = r.profiles[key(General)].Identity
			}
			if override.Label == "" {
				override.Label = override.Name
			}
			r.put(override)
			added++
			continue
		}
		r.put(mergeProfile(existing, override))
		merged++
	}

	r.logger.Info().
		Str("path", path).
		Int("added", added).
		Int("merged", merged).
		Msg("Topic overrides loaded")

	return nil
}

// mergeProfile overlays the non-zero fields of override onto base
func mergeProfile(base, override models.TopicProfile) models.TopicProfile {
	if override.Label != "" {
		base.Label = override.Label
	}
	if override.Identity != "" {
		base.Identity = override.Identity
	}
	if override.Instructions != "" {
		base.Instructions = override.Instructions
	}
	if override.OutputFormat != "" {
		base.OutputFormat = override.OutputFormat
	}
	if override.RequireJSONLD {
		base.RequireJSONLD = true
	}
	if override.Limits != (models.ContentLimits{}) {
		base.Limits = override.Limits
	}
	return base
}

// Get returns the profile for name, matched case-insensitively
func (r *Registry) Get(name string) (models.TopicProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[key(name)]
	if !ok {
		return models.TopicProfile{}, fmt.Errorf("%w: %q", ErrUnknownTopic, name)
	}
	return p, nil
}

// Resolve returns the profile for topic with its instructions replaced by
// custom when custom is non-blank. Unknown topics fall back to General.
func (r *Registry) Resolve(topic, custom string) models.TopicProfile {
	p, err := r.Get(topic)
	if err != nil {
		p, _ = r.Get(General)
		p.Name = strings.TrimSpace(topic)
		if p.Name == "" {
			p.Name = General
		}
	}
	if strings.TrimSpace(custom) != "" {
		p.Instructions = custom
	}
	return p
}

// List returns every profile in display order
func (r *Registry) List() []models.TopicProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.TopicProfile, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.profiles[k])
	}
	return out
}
