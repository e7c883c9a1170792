package exporter

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// utf8BOM lets spreadsheet applications detect the encoding of Cyrillic text
const utf8BOM = "\ufeff"

func exportCSV(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(Headers); err != nil {
		return nil, fmt.Errorf("csv export: %w", err)
	}
	for _, r := range records {
		if err := w.Write(r.Row()); err != nil {
			return nil, fmt.Errorf("csv export: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv export: %w", err)
	}
	return buf.Bytes(), nil
}
