// Package chunker splits extracted document text into bounded,
// overlap-aware chunks with page and offset provenance.
package chunker

import (
	"fmt"
	"sort"
	"strings"

	"opsqa/internal/domain"
	"opsqa/internal/port"
)

// DocumentChunker assembles chunks for one document from its extracted
// spans, dispatching on format: table documents are split by row
// groups, everything else by the separator-aware text window.
type DocumentChunker struct {
	text  *TextChunker
	table *TableChunker
}

func NewDocumentChunker(text *TextChunker, table *TableChunker) *DocumentChunker {
	return &DocumentChunker{text: text, table: table}
}

// pageText is one page's reconstructed text plus its OCR confidence.
type pageText struct {
	page       int
	text       string
	confidence float64
	fromOCR    bool
}

func (c *DocumentChunker) Chunk(doc domain.Document, spans []domain.Span) ([]domain.Chunk, error) {
	if len(spans) == 0 {
		return nil, nil
	}

	pages := assemblePages(spans)

	var chunks []domain.Chunk
	seq := 0

	for _, pt := range pages {
		var pieces []piece
		if doc.Format == domain.FormatTable {
			pieces = c.table.split(pt.text)
		} else {
			pieces = c.text.split(pt.text)
		}

		for _, p := range pieces {
			seq++
			chunk := domain.Chunk{
				ID:          fmt.Sprintf("%s_chunk_%03d", doc.ID, seq),
				DocID:       doc.ID,
				StartPage:   pt.page,
				EndPage:     pt.page,
				StartOffset: p.start,
				EndOffset:   p.end,
				Text:        p.text,
				Metadata:    map[string]string{},
				State:       domain.ChunkExtracted,
			}
			if pt.fromOCR {
				conf := pt.confidence
				chunk.OCRConfidence = &conf
			}
			chunks = append(chunks, chunk)
		}
	}

	return chunks, nil
}

// assemblePages joins spans page by page, in span order, separated by
// newlines. OCR confidence per page is the length-weighted average of
// its spans.
func assemblePages(spans []domain.Span) []pageText {
	byPage := make(map[int][]domain.Span)
	for _, s := range spans {
		byPage[s.Page] = append(byPage[s.Page], s)
	}

	pageNums := make([]int, 0, len(byPage))
	for p := range byPage {
		pageNums = append(pageNums, p)
	}
	sort.Ints(pageNums)

	pages := make([]pageText, 0, len(pageNums))
	for _, p := range pageNums {
		var sb strings.Builder
		weighted := 0.0
		total := 0
		fromOCR := false

		for i, s := range byPage[p] {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(s.Text)
			weighted += s.Confidence * float64(len(s.Text))
			total += len(s.Text)
			if s.Confidence < 1.0 || s.Region != "" {
				fromOCR = true
			}
		}

		confidence := 1.0
		if total > 0 {
			confidence = weighted / float64(total)
		}

		pages = append(pages, pageText{
			page:       p,
			text:       sb.String(),
			confidence: confidence,
			fromOCR:    fromOCR,
		})
	}

	return pages
}

var _ port.Chunker = (*DocumentChunker)(nil)
