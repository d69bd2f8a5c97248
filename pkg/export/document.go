// Package export renders plan documents into downloadable formats.
package export

import "fmt"

// Section is a titled block of rows sharing the document headers.
type Section struct {
	Title string
	Rows  [][]string
}

// Document is a sectioned table: one header row, several titled sections
// and free text summary lines.
type Document struct {
	Title    string
	Headers  []string
	Sections []Section
	Summary  []string
}

func (d Document) validate() error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("document requires at least one header")
	}
	for _, section := range d.Sections {
		for i, row := range section.Rows {
			if len(row) != len(d.Headers) {
				return fmt.Errorf("section %q row %d has %d cells, want %d", section.Title, i, len(row), len(d.Headers))
			}
		}
	}
	return nil
}
