// Package exporter serializes work items to downloadable files.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seoforge/internal/common"
	"github.com/ternarybob/seoforge/internal/models"
)

// Format identifies an export file type
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
)

var (
	// ErrUnsupportedFormat is returned for an unknown format name
	ErrUnsupportedFormat = errors.New("unsupported export format")

	// ErrNothingToExport is returned by the PDF export when no item has content
	ErrNothingToExport = errors.New("no completed items to export")
)

// Formats lists the supported formats
var Formats = []Format{FormatXLSX, FormatJSON, FormatCSV, FormatPDF}

// ParseFormat resolves a case-insensitive format name
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// ContentType returns the MIME type served for the format
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// Document is a rendered export
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Service renders exports and writes them to the configured output directory
type Service struct {
	config common.ExportConfig
	fs     afero.Fs
	logger arbor.ILogger
	now    func() time.Time
}

// NewService creates an export service. A nil fs uses the OS filesystem.
func NewService(config *common.ExportConfig, fs afero.Fs, logger arbor.ILogger) *Service {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Service{
		config: *config,
		fs:     fs,
		logger: logger,
		now:    time.Now,
	}
}

// Filename returns the dated file name for format, e.g. logistics_seo_2024-05-01.xlsx
func (s *Service) Filename(format Format) string {
	prefix := s.prefix(format)
	return fmt.Sprintf("%s_%s.%s", prefix, s.now().Format("2006-01-02"), format)
}

func (s *Service) prefix(format Format) string {
	var prefix string
	switch format {
	case FormatXLSX:
		prefix = s.config.XLSXPrefix
	case FormatJSON:
		prefix = s.config.JSONPrefix
	case FormatCSV:
		prefix = s.config.CSVPrefix
	case FormatPDF:
		prefix = s.config.PDFPrefix
	}
	if prefix == "" {
		prefix = "seoforge_export"
	}
	return prefix
}

// Export renders items in the given format
func (s *Service) Export(ctx context.Context, format Format, items []models.WorkItem) (*Document, error) {
	start := s.now()

	var (
		data []byte
		err  error
	)
	switch format {
	case FormatXLSX:
		data, err = s.exportXLSX(NewRecords(items))
	case FormatJSON:
		data, err = exportJSON(NewRecords(items))
	case FormatCSV:
		data, err = exportCSV(NewRecords(items))
	case FormatPDF:
		data, err = s.exportPDF(ctx, items)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("format", string(format)).Msg("Export failed")
		return nil, err
	}

	doc := &Document{
		Filename:    s.Filename(format),
		ContentType: format.ContentType(),
		Data:        data,
	}

	s.logger.Info().
		Str("format", string(format)).
		Int("items", len(items)).
		Int("bytes", len(data)).
		Dur("elapsed", s.now().Sub(start)).
		Msg("Export rendered")

	return doc, nil
}

// WriteFile renders items and writes the document into the output directory.
// It returns the written path.
func (s *Service) WriteFile(ctx context.Context, format Format, items []models.WorkItem) (string, error) {
	doc, err := s.Export(ctx, format, items)
	if err != nil {
		return "", err
	}

	dir := s.config.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, doc.Filename)
	if err := afero.WriteFile(s.fs, path, doc.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export %s: %w", path, err)
	}

	s.logger.Info().Str("path", path).Msg("Export written")
	return path, nil
}
