package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ternarybob/seoforge/internal/models"
)

// faqTolerance is the accepted relative deviation from the FAQ target length
const faqTolerance = 0.25

var markdownParser = goldmark.New(goldmark.WithExtensions(extension.Table))

// AuditReport measures generated content against a topic's limits.
// It is informational and never changes an item's status.
type AuditReport struct {
	Words        int      `json:"words"`
	Tables       int      `json:"tables"`
	H1Chars      int      `json:"h1_chars"`
	ExcerptChars int      `json:"excerpt_chars"`
	FAQChars     int      `json:"faq_chars"`
	HasJSONLD    bool     `json:"has_json_ld"`
	Violations   []string `json:"violations,omitempty"`
}

// OK reports whether no limit was violated
func (r AuditReport) OK() bool {
	return len(r.Violations) == 0
}

// Audit measures fields using the topic's output format and checks its limits
func Audit(fields *models.ContentFields, profile models.TopicProfile) AuditReport {
	if fields == nil {
		return AuditReport{}
	}

	report := AuditReport{
		H1Chars:      utf8.RuneCountInString(strings.TrimSpace(fields.H1)),
		ExcerptChars: utf8.RuneCountInString(strings.TrimSpace(fields.Excerpt)),
		FAQChars:     utf8.RuneCountInString(strings.TrimSpace(fields.FAQ)),
	}

	if profile.OutputFormat.Normalize() == models.OutputFormatHTML {
		report.Words, report.Tables, report.HasJSONLD = measureHTML(fields.Text)
	} else {
		report.Words, report.Tables = measureMarkdown(fields.Text)
		// Markdown articles may still embed a raw JSON-LD block
		_, _, report.HasJSONLD = measureHTML(fields.Text)
	}

	report.Violations = checkLimits(report, profile)
	return report
}

func checkLimits(r AuditReport, profile models.TopicProfile) []string {
	limits := profile.Limits
	var violations []string

	if limits.H1MaxChars > 0 && r.H1Chars > limits.H1MaxChars {
		violations = append(violations, fmt.Sprintf("h1 is %d characters, limit %d", r.H1Chars, limits.H1MaxChars))
	}
	if limits.ExcerptMaxChars > 0 && r.ExcerptChars > limits.ExcerptMaxChars {
		violations = append(violations, fmt.Sprintf("excerpt is %d characters, limit %d", r.ExcerptChars, limits.ExcerptMaxChars))
	}
	if target := limits.FAQTargetChars; target > 0 {
		low := int(float64(target) * (1 - faqTolerance))
		high := int(float64(target) * (1 + faqTolerance))
		if r.FAQChars < low || r.FAQChars > high {
			violations = append(violations, fmt.Sprintf("faq is %d characters, target ~%d", r.FAQChars, target))
		}
	}
	if limits.MinWords > 0 && r.Words < limits.MinWords {
		violations = append(violations, fmt.Sprintf("text has %d words, minimum %d", r.Words, limits.MinWords))
	}
	if limits.MinTables > 0 && r.Tables < limits.MinTables {
		violations = append(violations, fmt.Sprintf("text has %d tables, minimum %d", r.Tables, limits.MinTables))
	}
	if profile.RequireJSONLD && !r.HasJSONLD {
		violations = append(violations, "text has no JSON-LD block")
	}

	return violations
}

// measureMarkdown counts words in text nodes and GFM tables
func measureMarkdown(md string) (words, tables int) {
	if strings.TrimSpace(md) == "" {
		return 0, 0
	}
	source := []byte(md)
	doc := markdownParser.Parser().Parse(text.NewReader(source))

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *extast.Table:
			tables++
		case *ast.Text:
			words += len(strings.Fields(string(node.Segment.Value(source))))
		}
		return ast.WalkContinue, nil
	})
	return words, tables
}

// measureHTML counts words of visible text, <table> elements and JSON-LD scripts
func measureHTML(html string) (words, tables int, jsonLD bool) {
	if strings.TrimSpace(html) == "" {
		return 0, 0, false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return len(strings.Fields(html)), 0, false
	}

	jsonLD = doc.Find(`script[type="application/ld+json"]`).Length() > 0
	doc.Find("script, style").Remove()

	// Count per text node; doc.Text() glues adjacent elements together
	doc.Find("*").Each(func(_ int, el *goquery.Selection) {
		el.Contents().Each(func(_ int, c *goquery.Selection) {
			if goquery.NodeName(c) == "#text" {
				words += len(strings.Fields(c.Text()))
			}
		})
	})

	return words, doc.Find("table").Length(), jsonLD
}
