package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTextChunkerSmallInput(t *testing.T) {
	c := NewTextChunker(1000, 150)

	pieces := c.split("Short operating note about the chill roll.")
	if len(pieces) != 1 {
		t.Fatalf("expected 1 piece, got %d", len(pieces))
	}
	if pieces[0].start != 0 {
		t.Errorf("expected start 0, got %d", pieces[0].start)
	}
}

func TestTextChunkerEmptyInput(t *testing.T) {
	c := NewTextChunker(100, 10)

	if pieces := c.split(""); pieces != nil {
		t.Errorf("expected nil for empty input, got %d pieces", len(pieces))
	}
	if pieces := c.split("   \n\n  "); pieces != nil {
		t.Errorf("expected nil for blank input, got %d pieces", len(pieces))
	}
}

func TestTextChunkerOffsetsRoundTrip(t *testing.T) {
	c := NewTextChunker(120, 20)

	text := strings.Repeat("The tensioner must be inspected before every shift. ", 30)
	pieces := c.split(text)
	if len(pieces) < 2 {
		t.Fatalf("expected multiple pieces, got %d", len(pieces))
	}

	for i, p := range pieces {
		if text[p.start:p.end] != p.text {
			t.Errorf("piece %d offsets do not reproduce its text", i)
		}
	}
}

func TestTextChunkerHardCutKeepsRunesWhole(t *testing.T) {
	// Separator-free Portuguese text forces the hard window limit; a
	// byte-based cut would slice the multibyte runes in half.
	c := NewTextChunker(50, 10)

	text := strings.Repeat("manutençãoprevençãoinspeção", 20)
	pieces := c.split(text)
	if len(pieces) < 2 {
		t.Fatalf("expected multiple pieces, got %d", len(pieces))
	}

	for i, p := range pieces {
		if !utf8.ValidString(p.text) {
			t.Errorf("piece %d is not valid UTF-8: %q", i, p.text)
		}
		if text[p.start:p.end] != p.text {
			t.Errorf("piece %d offsets do not reproduce its text", i)
		}
	}
}

func TestTextChunkerMonotonicStarts(t *testing.T) {
	c := NewTextChunker(80, 15)

	text := strings.Repeat("Valve check. Filter swap. Belt alignment done here. ", 20)
	pieces := c.split(text)

	for i := 1; i < len(pieces); i++ {
		if pieces[i].start <= pieces[i-1].start {
			t.Errorf("piece %d start %d not after previous start %d",
				i, pieces[i].start, pieces[i-1].start)
		}
	}
}

func TestTextChunkerOverlap(t *testing.T) {
	overlap := 25
	c := NewTextChunker(150, overlap)

	// No separators at all forces hard cuts, where the overlap
	// guarantee is pure window arithmetic.
	text := strings.Repeat("x", 1000)
	pieces := c.split(text)
	if len(pieces) < 3 {
		t.Fatalf("expected several pieces, got %d", len(pieces))
	}

	for i := 1; i < len(pieces); i++ {
		prev, cur := pieces[i-1], pieces[i]
		shared := prev.end - cur.start
		if shared < overlap {
			t.Errorf("pieces %d/%d share %d chars, want >= %d", i-1, i, shared, overlap)
		}
	}
}

func TestTextChunkerPrefersParagraphBoundary(t *testing.T) {
	c := NewTextChunker(100, 10)

	// A paragraph break inside the last 10% of the window must win
	// over the hard cut at 100.
	para := strings.Repeat("a", 92) + "\n\n" + strings.Repeat("b", 200)
	pieces := c.split(para)
	if len(pieces) < 2 {
		t.Fatalf("expected at least 2 pieces, got %d", len(pieces))
	}
	if strings.Contains(pieces[0].text, "b") {
		t.Errorf("first piece crossed the paragraph boundary: %q", pieces[0].text)
	}
}

func TestTextChunkerSentenceBoundaryAnywhereInWindow(t *testing.T) {
	c := NewTextChunker(100, 10)

	// Sentence break at position 50, then no separators until far past
	// the window: cut falls at the sentence break, not mid-word.
	text := strings.Repeat("a", 48) + ". " + strings.Repeat("b", 300)
	pieces := c.split(text)
	if len(pieces) < 2 {
		t.Fatalf("expected at least 2 pieces, got %d", len(pieces))
	}
	if strings.Contains(pieces[0].text, "b") {
		t.Errorf("first piece ignored the sentence boundary: %q", pieces[0].text)
	}
}

func TestTextChunkerStallPrevention(t *testing.T) {
	// Overlap close to the chunk size must still make forward progress.
	c := NewTextChunker(10, 8)

	text := strings.Repeat("ab ", 50)
	pieces := c.split(text)
	if len(pieces) == 0 {
		t.Fatal("expected pieces")
	}
	// Sanity bound: far fewer pieces than characters.
	if len(pieces) > len(text) {
		t.Errorf("pathological piece count %d for %d chars", len(pieces), len(text))
	}
}
