package exporter

import (
	"encoding/json"
	"fmt"
)

func exportJSON(records []Record) ([]byte, error) {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("json export: %w", err)
	}
	return data, nil
}
