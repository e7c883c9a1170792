// Package render turns generated content into display markup and audits it
// against the topic's content targets.
package render

import (
	"regexp"
	"strings"

	"github.com/ternarybob/seoforge/internal/models"
)

// ParagraphSeparator is emitted for every blank line in the markdown
const ParagraphSeparator = `<p class="mb-6"></p>`

const (
	h1Open     = `<h1 class="text-4xl font-black mt-14 mb-8 text-gray-900">`
	h2Open     = `<h2 class="text-2xl font-black mt-12 mb-6 border-l-8 border-indigo-600 pl-6">`
	h3Open     = `<h3 class="text-xl font-bold mt-8 mb-4">`
	strongOpen = `<strong class="text-gray-900 font-extrabold">`
	liOpen     = `<li class="ml-6 list-disc mb-2 text-gray-700">`
	tableOpen  = `<div class="table-container my-10 shadow-2xl overflow-hidden border-2 border-indigo-50"><table><thead>`
)

type rewrite struct {
	re   *regexp.Regexp
	repl string
}

// rewrites run in order; ### must precede ## and #
var rewrites = []rewrite{
	{regexp.MustCompile(`(?m)^### (.*)$`), h3Open + "$1</h3>"},
	{regexp.MustCompile(`(?m)^## (.*)$`), h2Open + "$1</h2>"},
	{regexp.MustCompile(`(?m)^# (.*)$`), h1Open + "$1</h1>"},
	{regexp.MustCompile(`\*\*(.+?)\*\*`), strongOpen + "$1</strong>"},
	{regexp.MustCompile(`(?m)^\* (.*)$`), liOpen + "$1</li>"},
	{regexp.MustCompile(`(?m)^- (.*)$`), liOpen + "$1</li>"},
}

// PreviewHTML converts the markdown subset produced by the generator into an
// HTML fragment. Unrecognised input passes through as literal text.
func PreviewHTML(md string) string {
	if md == "" {
		return ""
	}

	html := strings.ReplaceAll(md, "\r\n", "\n")
	for _, rw := range rewrites {
		html = rw.re.ReplaceAllString(html, rw.repl)
	}
	html = strings.ReplaceAll(html, "\n\n", ParagraphSeparator)

	if !strings.Contains(html, "|") {
		return html
	}

	parts := strings.Split(html, ParagraphSeparator)
	for i, part := range parts {
		if strings.Contains(part, "|") {
			if table, ok := renderTable(part); ok {
				parts[i] = table
			}
		}
	}
	return strings.Join(parts, ParagraphSeparator)
}

// renderTable treats line 0 as headers, skips line 1 (the separator) and
// renders the rest as rows. Blocks with two or fewer lines are not tables.
func renderTable(part string) (string, bool) {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(part), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) <= 2 {
		return "", false
	}

	var b strings.Builder
	b.WriteString(tableOpen)
	b.WriteString("<tr>")
	for _, h := range splitCells(lines[0]) {
		b.WriteString("<th>" + h + "</th>")
	}
	b.WriteString("</tr></thead><tbody>")

	for _, line := range lines[2:] {
		cells := splitCells(line)
		if len(cells) == 0 {
			continue
		}
		b.WriteString("<tr>")
		for _, c := range cells {
			b.WriteString("<td>" + c + "</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table></div>")

	return b.String(), true
}

// splitCells splits on '|' and drops empty cells
func splitCells(line string) []string {
	var cells []string
	for _, c := range strings.Split(line, "|") {
		if c = strings.TrimSpace(c); c != "" {
			cells = append(cells, c)
		}
	}
	return cells
}

// Rendered is the display markup for one item
type Rendered struct {
	Text string `json:"text"`
	FAQ  string `json:"faq"`
}

// Preview renders an item's article and FAQ. Text for html-format topics is
// already markup and is returned untouched; the FAQ is always markdown.
func Preview(item models.WorkItem, profile models.TopicProfile) Rendered {
	if item.Content == nil {
		return Rendered{}
	}

	text := item.Content.Text
	if profile.OutputFormat.Normalize() != models.OutputFormatHTML {
		text = PreviewHTML(text)
	}
	return Rendered{
		Text: text,
		FAQ:  PreviewHTML(item.Content.FAQ),
	}
}
