package chunker

import (
	"strings"
	"unicode/utf8"
)

// defaultSeparators, from coarser (paragraph breaks) to finer (spaces).
// A window is cut at the last occurrence of the highest-priority
// separator it contains; only when none is present does the hard
// window limit apply.
var defaultSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", ": ", " "}

// piece is one chunk of page text with its offsets into that text.
type piece struct {
	text  string
	start int
	end   int
}

// TextChunker splits page text into overlapping windows, preferring
// semantic boundaries over hard cuts.
type TextChunker struct {
	chunkSize  int
	overlap    int
	separators []string
}

func NewTextChunker(chunkSize, overlap int) *TextChunker {
	if overlap >= chunkSize {
		overlap = chunkSize / 2
	}
	if overlap < 0 {
		overlap = 0
	}
	return &TextChunker{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: defaultSeparators,
	}
}

// split produces overlapping pieces of text. Offsets index into text so
// text[start:end] reproduces each piece exactly.
func (c *TextChunker) split(text string) []piece {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var pieces []piece
	pos := 0
	textLen := len(text)

	for pos < textLen {
		windowEnd := pos + c.chunkSize
		if windowEnd >= textLen {
			windowEnd = textLen
		} else {
			// The hard window limit must never slice a multibyte rune.
			for windowEnd > pos && !utf8.RuneStart(text[windowEnd]) {
				windowEnd--
			}
			if windowEnd == pos {
				windowEnd = pos + c.chunkSize
				for windowEnd < textLen && !utf8.RuneStart(text[windowEnd]) {
					windowEnd++
				}
			}
		}
		window := text[pos:windowEnd]
		chunkEnd := windowEnd

		// Only look for a boundary when a hard cut would actually
		// split text; the final window keeps everything.
		if windowEnd < textLen {
			if cut, ok := c.boundaryCut(window); ok {
				chunkEnd = pos + cut
			}
		}

		if p, ok := trimmedPiece(text, pos, chunkEnd); ok {
			pieces = append(pieces, p)
		}

		if chunkEnd >= textLen {
			break
		}

		next := chunkEnd - c.overlap
		// Stall prevention: a chunk shorter than the overlap must not
		// move the window backwards.
		if next <= pos {
			next = chunkEnd
		}
		for next < textLen && !utf8.RuneStart(text[next]) {
			next++
		}
		pos = next
	}

	return pieces
}

// boundaryCut finds where to cut the window. A boundary in the last 10%
// of the window always beats the hard limit; failing that, the last
// occurrence of the highest-priority separator anywhere in the window
// is used.
func (c *TextChunker) boundaryCut(window string) (int, bool) {
	zoneStart := len(window) - len(window)/10

	for _, sep := range c.separators {
		idx := strings.LastIndex(window, sep)
		if idx < 0 {
			continue
		}
		if idx+len(sep) > zoneStart {
			return idx + len(sep), true
		}
	}

	for _, sep := range c.separators {
		idx := strings.LastIndex(window, sep)
		if idx >= 0 && idx+len(sep) > 0 {
			return idx + len(sep), true
		}
	}

	return 0, false
}

// trimmedPiece shrinks [start,end) to exclude surrounding whitespace so
// the recorded offsets still reproduce the stored text exactly.
func trimmedPiece(text string, start, end int) (piece, bool) {
	for start < end && isSpace(text[start]) {
		start++
	}
	for end > start && isSpace(text[end-1]) {
		end--
	}
	if start >= end {
		return piece{}, false
	}
	return piece{text: text[start:end], start: start, end: end}, true
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}
