package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset is the tabular form an audit trail is flattened into before
// rendering. Rows are keyed by header so exporters stay column-order safe.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// CSVExporter renders audit trail datasets as CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces the CSV document for the dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}

	records := make([][]string, 0, len(data.Rows)+1)
	records = append(records, data.Headers)
	for _, row := range data.Rows {
		record := make([]string, len(data.Headers))
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		records = append(records, record)
	}

	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.WriteAll(records); err != nil {
		return nil, fmt.Errorf("write csv export: %w", err)
	}
	return buf.Bytes(), nil
}
