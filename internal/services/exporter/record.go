package exporter

import (
	"strings"

	"github.com/ternarybob/seoforge/internal/models"
)

// Headers are the column titles shared by the XLSX and CSV exports
var Headers = []string{
	"Slug",
	"Name",
	"SEO Title",
	"SEO Description",
	"Keywords",
	"H1 Header",
	"Excerpt (Отрывок)",
	"Article (Markdown)",
	"FAQ (Export Format)",
	"Sources",
}

// Record is the exported form of one work item. Items without content
// export with empty fields.
type Record struct {
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

// NewRecord builds the export record for item
func NewRecord(item models.WorkItem) Record {
	c := item.Content
	if c == nil {
		return Record{}
	}
	return Record{
		Slug:        c.Slug,
		Name:        c.Name,
		Title:       c.Title,
		Description: c.Description,
		Keywords:    c.Keywords,
		H1:          c.H1,
		Excerpt:     c.Excerpt,
		Text:        c.Text,
		FAQ:         FormatFAQ(c.FAQ),
		Sources:     append([]string(nil), c.Sources...),
	}
}

// Row returns the record's cells in Headers order
func (r Record) Row() []string {
	return []string{
		r.Slug,
		r.Name,
		r.Title,
		r.Description,
		r.Keywords,
		r.H1,
		r.Excerpt,
		r.Text,
		r.FAQ,
		strings.Join(r.Sources, ", "),
	}
}

// NewRecords converts items in order
func NewRecords(items []models.WorkItem) []Record {
	records := make([]Record, len(items))
	for i, item := range items {
		records[i] = NewRecord(item)
	}
	return records
}
