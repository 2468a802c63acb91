package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVParser handles CSV files. Each column header becomes a synonym of the
// root; rows are grouped into batches of csvBatch.
type CSVParser struct{}

const csvBatch = 20

func (p *CSVParser) Parse(r io.Reader, filename string) (*Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	o := newOutline(filename)
	if len(records) == 0 {
		return o.finish(), nil
	}

	// First row is headers.
	headers := records[0]
	root := o.doc.Root
	for _, h := range headers {
		if h = strings.TrimSpace(h); h != "" {
			root.Synonyms = append(root.Synonyms, h)
		}
	}
	o.section(root).Text = "Columns: " + strings.Join(headers, ", ")

	dataRows := records[1:]
	for i := 0; i < len(dataRows); i += csvBatch {
		end := min(i+csvBatch, len(dataRows))

		var text strings.Builder
		for _, row := range dataRows[i:end] {
			for j, cell := range row {
				if j < len(headers) {
					text.WriteString(headers[j] + ": " + cell)
				} else {
					text.WriteString(cell)
				}
				if j < len(row)-1 {
					text.WriteString(", ")
				}
			}
			text.WriteString("\n")
		}

		// Rows are numbered as in the file: 1-indexed, header is row 1.
		o.leaf(fmt.Sprintf("Rows %d-%d", i+2, end+1), &Section{Text: strings.TrimSpace(text.String())})
	}

	return o.finish(), nil
}
