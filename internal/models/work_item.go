// -----------------------------------------------------------------------
// Work Item - One unit of content generation work
// -----------------------------------------------------------------------

package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ItemStatus represents the lifecycle state of a work item
type ItemStatus string

const (
	ItemStatusPending    ItemStatus = "pending"
	ItemStatusProcessing ItemStatus = "processing"
	ItemStatusCompleted  ItemStatus = "completed"
	ItemStatusError      ItemStatus = "error"
)

// IsEligible reports whether an item in this status can be selected for a run.
// Error items are re-selectable exactly like pending ones.
func (s ItemStatus) IsEligible() bool {
	return s == ItemStatusPending || s == ItemStatusError
}

// IsTerminal reports whether the status ends an item's processing for a run
func (s ItemStatus) IsTerminal() bool {
	return s == ItemStatusCompleted || s == ItemStatusError
}

// IsValid reports whether s is one of the known statuses
func (s ItemStatus) IsValid() bool {
	switch s {
	case ItemStatusPending, ItemStatusProcessing, ItemStatusCompleted, ItemStatusError:
		return true
	}
	return false
}

// ContextField is a single column value from the originating row
type ContextField struct {
	Key   string
	Value string
}

// RowContext is an ordered mapping of column name to scalar value.
// It marshals to a JSON object that preserves column order.
type RowContext []ContextField

// Get returns the value for key and whether it was present
func (c RowContext) Get(key string) (string, bool) {
	for _, f := range c {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Clone returns a copy that shares no backing array with c
func (c RowContext) Clone() RowContext {
	if c == nil {
		return nil
	}
	out := make(RowContext, len(c))
	copy(out, c)
	return out
}

// MarshalJSON writes the fields as a JSON object in column order
func (c RowContext) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping the key order of the document
func (c *RowContext) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*c = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("row context must be a JSON object")
	}

	out := RowContext{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}

		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			// Scalars other than strings keep their JSON text
			value = string(raw)
		}
		out = append(out, ContextField{Key: key, Value: value})
	}

	*c = out
	return nil
}

// ContentFields holds the generated SEO content for one keyword
type ContentFields struct {
	Slug        string   `json:"slug"`
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    string   `json:"keywords"`
	H1          string   `json:"h1"`
	Excerpt     string   `json:"excerpt"`
	Text        string   `json:"text"`
	FAQ         string   `json:"faq"`
	Sources     []string `json:"sources,omitempty"`
}

// Clone returns a deep copy of the content
func (c *ContentFields) Clone() *ContentFields {
	if c == nil {
		return nil
	}
	out := *c
	if c.Sources != nil {
		out.Sources = append([]string(nil), c.Sources...)
	}
	return &out
}

// WorkItem is one keyword travelling through the generation pipeline.
// Index is the only identity and is never reassigned.
type WorkItem struct {
	Index        int            `json:"index"`
	Keyword      string         `json:"keyword"`
	Context      RowContext     `json:"context,omitempty"`
	SlugHint     string         `json:"slug_hint,omitempty"`
	Status       ItemStatus     `json:"status"`
	Content      *ContentFields `json:"content,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Clone returns a deep copy of the item
func (w WorkItem) Clone() WorkItem {
	w.Context = w.Context.Clone()
	w.Content = w.Content.Clone()
	return w
}

// ItemPatch is a partial update merged into a stored item.
// Nil fields are left untouched.
type ItemPatch struct {
	Status       *ItemStatus
	Content      *ContentFields
	ErrorMessage *string
}

// Apply merges the patch into item. Setting a status also clears whichever
// of Content/ErrorMessage does not belong to that status.
func (p ItemPatch) Apply(item *WorkItem) {
	if p.Content != nil {
		item.Content = p.Content.Clone()
	}
	if p.ErrorMessage != nil {
		item.ErrorMessage = *p.ErrorMessage
	}
	if p.Status != nil {
		item.Status = *p.Status
		switch item.Status {
		case ItemStatusCompleted:
			item.ErrorMessage = ""
		case ItemStatusError:
			item.Content = nil
		case ItemStatusPending, ItemStatusProcessing:
			item.Content = nil
			item.ErrorMessage = ""
		}
	}
}

// MarkProcessing builds the patch that claims an item for a worker
func MarkProcessing() ItemPatch {
	s := ItemStatusProcessing
	return ItemPatch{Status: &s}
}

// MarkCompleted builds the patch recording generated content
func MarkCompleted(content *ContentFields) ItemPatch {
	s := ItemStatusCompleted
	return ItemPatch{Status: &s, Content: content}
}

// MarkError builds the patch recording a failure message
func MarkError(message string) ItemPatch {
	s := ItemStatusError
	return ItemPatch{Status: &s, ErrorMessage: &message}
}

// ImportedRow is one keyword row produced by a keyword source
type ImportedRow struct {
	Keyword  string     `json:"keyword"`
	Context  RowContext `json:"context,omitempty"`
	SlugHint string     `json:"slug_hint,omitempty"`
}

// ToWorkItem converts an imported row to a pending item without an index
func (r ImportedRow) ToWorkItem() WorkItem {
	return WorkItem{
		Keyword:  r.Keyword,
		Context:  r.Context.Clone(),
		SlugHint: r.SlugHint,
		Status:   ItemStatusPending,
	}
}

// ItemStats summarises item counts by status
type ItemStats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Error      int `json:"error"`
}

// CountItems computes ItemStats over a snapshot
func CountItems(items []WorkItem) ItemStats {
	stats := ItemStats{Total: len(items)}
	for _, item := range items {
		switch item.Status {
		case ItemStatusCompleted:
			stats.Completed++
		case ItemStatusPending:
			stats.Pending++
		case ItemStatusProcessing:
			stats.Processing++
		case ItemStatusError:
			stats.Error++
		}
	}
	return stats
}
