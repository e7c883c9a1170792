// Package importer reads keyword rows from uploaded spreadsheets.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seoforge/internal/models"
	"github.com/xuri/excelize/v2"
)

// ErrImport wraps every failure to read an input file
var ErrImport = errors.New("import failed")

// MaxUploadSize bounds the bytes read from one input file
const MaxUploadSize = 32 << 20

const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeZip  = "application/zip"
	mimeCSV  = "text/csv"
	mimeText = "text/plain"
)

type fileKind int

const (
	kindUnknown fileKind = iota
	kindXLSX
	kindCSV
)

// Importer parses keyword files from disk or from upload streams
type Importer struct {
	fs     afero.Fs
	logger arbor.ILogger
}

// NewImporter creates an importer reading paths from fs
func NewImporter(fs afero.Fs, logger arbor.ILogger) *Importer {
	return &Importer{fs: fs, logger: logger}
}

// ParseFile reads and parses the file at path
func (i *Importer) ParseFile(path string) ([]models.ImportedRow, error) {
	f, err := i.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImport, err)
	}
	defer f.Close()

	return i.Parse(filepath.Base(path), f)
}

// Parse reads an XLSX or CSV document. name is only used for the extension
// fallback when the content type cannot be detected.
func (i *Importer) Parse(name string, r io.Reader) ([]models.ImportedRow, error) {
	rows, err := Parse(name, r)
	if err != nil {
		i.logger.Warn().Err(err).Str("file", name).Msg("Import failed")
		return nil, err
	}
	i.logger.Info().Str("file", name).Int("rows", len(rows)).Msg("Keyword file imported")
	return rows, nil
}

// Parse reads an XLSX or CSV document into ordered keyword rows. A document
// without data rows yields an empty result, not an error.
func Parse(name string, r io.Reader) ([]models.ImportedRow, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImport, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrImport)
	}
	if len(data) > MaxUploadSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrImport, MaxUploadSize)
	}

	var table [][]string
	switch detectKind(name, data) {
	case kindXLSX:
		table, err = readXLSX(data)
	case kindCSV:
		table, err = readCSV(data)
	default:
		return nil, fmt.Errorf("%w: unsupported file type %s", ErrImport, mimetype.Detect(data).String())
	}
	if err != nil {
		return nil, err
	}

	return rowsFromTable(table), nil
}

// detectKind sniffs the content and falls back to the file extension
func detectKind(name string, data []byte) fileKind {
	mime := mimetype.Detect(data)
	ext := strings.ToLower(filepath.Ext(name))

	switch {
	case isMIME(mime, mimeXLSX):
		return kindXLSX
	case isMIME(mime, mimeZip) && ext == ".xlsx":
		return kindXLSX
	case isMIME(mime, mimeCSV):
		return kindCSV
	case isMIME(mime, mimeText) && (ext == ".csv" || ext == ".txt" || ext == ""):
		return kindCSV
	}
	return kindUnknown
}

// isMIME matches mime or any of its parents
func isMIME(mime *mimetype.MIME, expected string) bool {
	for m := mime; m != nil; m = m.Parent() {
		if m.Is(expected) {
			return true
		}
	}
	return false
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImport, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrImport)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrImport, sheets[0], err)
	}
	return rows, nil
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.Comma = sniffDelimiter(data)

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImport, err)
	}
	return rows, nil
}

// sniffDelimiter picks ';' or tab over ',' when the header line uses them
// (spreadsheet exports in Russian locales use ';')
func sniffDelimiter(data []byte) rune {
	header := data
	if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
		header = data[:idx]
	}
	best, bestCount := ',', bytes.Count(header, []byte(","))
	for _, candidate := range []rune{';', '\t'} {
		if n := bytes.Count(header, []byte(string(candidate))); n > bestCount {
			best, bestCount = candidate, n
		}
	}
	return best
}

// rowsFromTable treats the first row as headers. The keyword column is the
// first header containing "keyword" or "ключ"; without one, the first
// non-empty cell of each row is the keyword. Rows without a keyword are skipped.
func rowsFromTable(table [][]string) []models.ImportedRow {
	if len(table) == 0 {
		return nil
	}

	headers := make([]string, len(table[0]))
	for i, h := range table[0] {
		headers[i] = strings.TrimSpace(h)
	}
	keywordCol := findColumn(headers, func(h string) bool {
		return strings.Contains(h, "keyword") || strings.Contains(h, "ключ")
	})
	slugCol := findColumn(headers, func(h string) bool {
		return h == "slug" || h == "url"
	})

	rows := make([]models.ImportedRow, 0, len(table)-1)
	for _, record := range table[1:] {
		var ctx models.RowContext
		firstValue := ""
		for col, cell := range record {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			ctx = append(ctx, models.ContextField{Key: headerName(headers, col), Value: cell})
			if firstValue == "" {
				firstValue = cell
			}
		}

		keyword := firstValue
		if keywordCol >= 0 {
			keyword = cellAt(record, keywordCol)
		}
		if keyword == "" {
			continue
		}

		row := models.ImportedRow{Keyword: keyword, Context: ctx}
		if slugCol >= 0 {
			row.SlugHint = cellAt(record, slugCol)
		}
		rows = append(rows, row)
	}
	return rows
}

func findColumn(headers []string, match func(lower string) bool) int {
	for i, h := range headers {
		if match(strings.ToLower(h)) {
			return i
		}
	}
	return -1
}

// headerName returns the header for col, naming unlabeled columns like a spreadsheet would
func headerName(headers []string, col int) string {
	if col < len(headers) && headers[col] != "" {
		return headers[col]
	}
	name, err := excelize.ColumnNumberToName(col + 1)
	if err != nil {
		return fmt.Sprintf("column_%d", col+1)
	}
	return name
}

func cellAt(record []string, col int) string {
	if col < 0 || col >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[col])
}
