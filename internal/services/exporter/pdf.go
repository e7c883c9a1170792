package exporter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/ternarybob/seoforge/internal/models"
)

var htmlBlockPattern = regexp.MustCompile(`(?i)<(p|div|h[1-6]|ul|ol|table|section|article)[\s>]`)

// fontSet selects the PDF font family and the text translation it needs
type fontSet struct {
	family    string
	italic    bool
	translate func(string) string
}

func (f fontSet) set(pdf *fpdf.Fpdf, style string, size float64) {
	pdf.SetFont(f.family, style, size)
}

// newDocument creates an A4 page stream with the configured fonts
func (s *Service) newDocument() (*fpdf.Fpdf, fontSet) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)

	if s.config.PDFFont != "" {
		pdf.AddUTF8Font("body", "", s.config.PDFFont)
		bold := s.config.PDFFontBold
		if bold == "" {
			bold = s.config.PDFFont
		}
		pdf.AddUTF8Font("body", "B", bold)
		if pdf.Ok() {
			return pdf, fontSet{family: "body", translate: func(s string) string { return s }}
		}
		s.logger.Warn().Err(pdf.Error()).Str("font", s.config.PDFFont).Msg("PDF font could not be loaded, using Helvetica")
		pdf = fpdf.New("P", "mm", "A4", "")
		pdf.SetMargins(10, 10, 10)
		pdf.SetAutoPageBreak(true, 10)
	}

	return pdf, fontSet{
		family:    "Helvetica",
		italic:    true,
		translate: pdf.UnicodeTranslatorFromDescriptor(""),
	}
}

// exportPDF renders one document per completed item and merges them
func (s *Service) exportPDF(ctx context.Context, items []models.WorkItem) ([]byte, error) {
	var docs []io.ReadSeeker
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if item.Status != models.ItemStatusCompleted || item.Content == nil {
			continue
		}
		data, err := s.renderArticle(item)
		if err != nil {
			return nil, fmt.Errorf("pdf export item %d: %w", item.Index, err)
		}
		docs = append(docs, bytes.NewReader(data))
	}

	switch len(docs) {
	case 0:
		return nil, ErrNothingToExport
	case 1:
		return io.ReadAll(docs[0])
	}

	conf := model.NewDefaultConfiguration()
	var out bytes.Buffer
	if err := api.MergeRaw(docs, &out, false, conf); err != nil {
		return nil, fmt.Errorf("failed to merge PDF documents: %w", err)
	}

	pages, err := api.PageCount(bytes.NewReader(out.Bytes()), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read merged PDF: %w", err)
	}
	s.logger.Debug().Int("documents", len(docs)).Int("pages", pages).Msg("PDF documents merged")

	return out.Bytes(), nil
}

// renderArticle lays out one item as a PDF document
func (s *Service) renderArticle(item models.WorkItem) ([]byte, error) {
	markdown, err := articleMarkdown(item.Content)
	if err != nil {
		return nil, err
	}

	pdf, fonts := s.newDocument()
	pdf.SetTitle(item.Content.H1, true)
	pdf.SetKeywords(item.Content.Keywords, true)
	pdf.AddPage()
	fonts.set(pdf, "", bodySize)

	source := []byte(markdown)
	doc := goldmark.New(goldmark.WithExtensions(extension.Table)).Parser().Parse(text.NewReader(source))

	r := &pdfRenderer{pdf: pdf, source: source, fonts: fonts}
	if err := r.render(doc); err != nil {
		return nil, fmt.Errorf("failed to lay out PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}
	return buf.Bytes(), nil
}

// articleMarkdown assembles H1, excerpt, article and FAQ as one markdown
// document. HTML article text is converted first.
func articleMarkdown(c *models.ContentFields) (string, error) {
	body := c.Text
	if htmlBlockPattern.MatchString(body) {
		converter := md.NewConverter("", true, nil)
		converter.Remove("script", "style")
		converted, err := converter.ConvertString(body)
		if err != nil {
			return "", fmt.Errorf("failed to convert article HTML: %w", err)
		}
		body = converted
	}

	var b strings.Builder
	title := c.H1
	if title == "" {
		title = c.Title
	}
	fmt.Fprintf(&b, "# %s\n\n", singleLine(title))
	if excerpt := strings.TrimSpace(c.Excerpt); excerpt != "" {
		fmt.Fprintf(&b, "%s\n\n", excerpt)
	}
	b.WriteString(strings.TrimSpace(body))
	b.WriteString("\n\n")
	if faq := strings.TrimSpace(c.FAQ); faq != "" {
		fmt.Fprintf(&b, "## FAQ\n\n%s\n", faq)
	}
	return b.String(), nil
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
