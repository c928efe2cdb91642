package extractor

import (
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"opsqa/internal/domain"
	"opsqa/internal/port"
)

// TableExtractor handles delimited table formats (csv, tsv). The table
// is rendered as column-aligned text so the table chunker can keep the
// header with every row group.
type TableExtractor struct{}

func NewTableExtractor() *TableExtractor {
	return &TableExtractor{}
}

func (e *TableExtractor) Formats() []domain.Format {
	return []domain.Format{domain.FormatTable}
}

func (e *TableExtractor) Extract(_ context.Context, path string, content []byte) ([]domain.Span, []domain.PageFailure, error) {
	r := csv.NewReader(strings.NewReader(string(content)))
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		r.Comma = '\t'
	}
	r.FieldsPerRecord = -1 // ragged tables are common in exported sheets

	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse table: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}

	return []domain.Span{{
		Text:       renderTable(rows),
		Page:       1,
		Confidence: 1.0,
	}}, nil, nil
}

// renderTable pads each column to its widest cell so rows stay
// readable when split from the header later.
func renderTable(rows [][]string) string {
	widths := make([]int, 0)
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var sb strings.Builder
	for ri, row := range rows {
		if ri > 0 {
			sb.WriteString("\n")
		}
		for ci, cell := range row {
			if ci > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(cell)
			if ci < len(row)-1 {
				sb.WriteString(strings.Repeat(" ", widths[ci]-len(cell)))
			}
		}
	}
	return sb.String()
}

var _ port.Extractor = (*TableExtractor)(nil)
