package chunker

import "strings"

// TableChunker splits rendered table text into row groups. Small tables
// stay whole; large tables become groups of rowsPerChunk rows, each
// prefixed with the header line so every chunk is independently
// readable.
type TableChunker struct {
	singleChunkThreshold int
	rowsPerChunk         int
}

func NewTableChunker(singleChunkThreshold, rowsPerChunk int) *TableChunker {
	if rowsPerChunk <= 0 {
		rowsPerChunk = 10
	}
	return &TableChunker{
		singleChunkThreshold: singleChunkThreshold,
		rowsPerChunk:         rowsPerChunk,
	}
}

// split produces table pieces. The first piece's offsets cover header
// plus first row group contiguously; later pieces' offsets cover only
// their row group, while the piece text repeats the header for
// readability.
func (c *TableChunker) split(text string) []piece {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	if len(text) <= c.singleChunkThreshold {
		if p, ok := trimmedPiece(text, 0, len(text)); ok {
			return []piece{p}
		}
		return nil
	}

	type line struct {
		text  string
		start int
	}

	var lines []line
	offset := 0
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, line{text: l, start: offset})
		}
		offset += len(l) + 1
	}
	if len(lines) == 0 {
		return nil
	}

	header := lines[0]
	rows := lines[1:]
	if len(rows) == 0 {
		return []piece{{text: header.text, start: header.start, end: header.start + len(header.text)}}
	}

	var pieces []piece
	for i := 0; i < len(rows); i += c.rowsPerChunk {
		end := i + c.rowsPerChunk
		if end > len(rows) {
			end = len(rows)
		}
		group := rows[i:end]

		groupStart := group[0].start
		last := group[len(group)-1]
		groupEnd := last.start + len(last.text)

		var sb strings.Builder
		sb.WriteString(header.text)
		for _, row := range group {
			sb.WriteString("\n")
			sb.WriteString(row.text)
		}

		start := groupStart
		if i == 0 {
			// Header and first group are contiguous in the source.
			start = header.start
		}

		pieces = append(pieces, piece{
			text:  sb.String(),
			start: start,
			end:   groupEnd,
		})
	}

	return pieces
}
