package exporter

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Excel rejects cells longer than this
const maxCellChars = excelize.TotalCellChars

var columnWidths = []float64{28, 28, 36, 48, 36, 36, 48, 80, 80, 48}

func (s *Service) exportXLSX(records []Record) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := s.config.SheetName
	if sheet == "" {
		sheet = "Logistics SEO"
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	header := toCells(Headers)
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("xlsx header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.ColumnNumberToName(len(Headers))
		_ = f.SetCellStyle(sheet, "A1", last+"1", bold)
	}

	for i, r := range records {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := toCells(r.Row())
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("xlsx row %d: %w", i+2, err)
		}
	}

	for i, width := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheet, col, col, width)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = truncateCell(v)
	}
	return cells
}

func truncateCell(s string) string {
	runes := []rune(s)
	if len(runes) <= maxCellChars {
		return s
	}
	return string(runes[:maxCellChars-1]) + "…"
}
