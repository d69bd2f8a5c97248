package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVExporter flattens a Document into CSV, prefixing every row with its
// section title.
type CSVExporter struct {
	SectionHeader string
}

// NewCSVExporter builds a CSV exporter whose first column is named header.
func NewCSVExporter(header string) *CSVExporter {
	if header == "" {
		header = "section"
	}
	return &CSVExporter{SectionHeader: header}
}

// ContentType is the MIME type of rendered output.
func (e *CSVExporter) ContentType() string { return "text/csv" }

// Render produces CSV encoded bytes for the document.
func (e *CSVExporter) Render(doc Document) ([]byte, error) {
	if err := doc.validate(); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(append([]string{e.SectionHeader}, doc.Headers...)); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, section := range doc.Sections {
		for _, row := range section.Rows {
			if err := writer.Write(append([]string{section.Title}, row...)); err != nil {
				return nil, fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
