package chunker

import (
	"strings"
	"testing"

	"opsqa/internal/domain"
)

func newDocChunker() *DocumentChunker {
	return NewDocumentChunker(NewTextChunker(120, 20), NewTableChunker(2000, 10))
}

func TestDocumentChunkerIDsAndProvenance(t *testing.T) {
	c := newDocChunker()
	doc := domain.Document{ID: "doc-v1", Format: domain.FormatText}

	spans := []domain.Span{
		{Text: strings.Repeat("Startup procedure step. ", 20), Page: 1, Confidence: 1.0},
		{Text: "Shutdown requires supervisor sign-off.", Page: 2, Confidence: 1.0},
	}

	chunks, err := c.Chunk(doc, spans)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 3 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}

	if chunks[0].ID != "doc-v1_chunk_001" {
		t.Errorf("unexpected first chunk id: %s", chunks[0].ID)
	}

	seen := make(map[string]bool)
	for _, ch := range chunks {
		if seen[ch.ID] {
			t.Errorf("duplicate chunk id %s", ch.ID)
		}
		seen[ch.ID] = true

		if ch.DocID != "doc-v1" {
			t.Errorf("chunk %s has wrong doc id", ch.ID)
		}
		if ch.StartPage < 1 || ch.EndPage < ch.StartPage {
			t.Errorf("chunk %s has invalid page range %d-%d", ch.ID, ch.StartPage, ch.EndPage)
		}
		if ch.State != domain.ChunkExtracted {
			t.Errorf("new chunk %s must be in extracted state", ch.ID)
		}
		if ch.OCRConfidence != nil {
			t.Errorf("text-native chunk %s must have nil OCR confidence", ch.ID)
		}
	}
}

func TestDocumentChunkerOffsetRoundTrip(t *testing.T) {
	c := newDocChunker()
	doc := domain.Document{ID: "d", Format: domain.FormatText}

	page1 := strings.Repeat("Moisture is checked hourly on line five. ", 15)
	spans := []domain.Span{{Text: page1, Page: 1, Confidence: 1.0}}

	chunks, err := c.Chunk(doc, spans)
	if err != nil {
		t.Fatal(err)
	}

	for _, ch := range chunks {
		if page1[ch.StartOffset:ch.EndOffset] != ch.Text {
			t.Errorf("chunk %s offsets do not resolve to its text", ch.ID)
		}
	}
}

func TestDocumentChunkerOCRConfidence(t *testing.T) {
	c := newDocChunker()
	doc := domain.Document{ID: "d", Format: domain.FormatScan}

	spans := []domain.Span{
		{Text: "Pressure gauge reading 4.2 bar", Page: 1, Region: "0,0,10,10", Confidence: 0.9},
		{Text: "Operator initials required", Page: 1, Region: "0,10,10,20", Confidence: 0.7},
	}

	chunks, err := c.Chunk(doc, spans)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}

	for _, ch := range chunks {
		if ch.OCRConfidence == nil {
			t.Fatal("OCR chunk must carry a confidence")
		}
		if *ch.OCRConfidence <= 0.7 || *ch.OCRConfidence >= 0.9 {
			t.Errorf("weighted confidence should fall between span confidences, got %f", *ch.OCRConfidence)
		}
	}
}

func TestDocumentChunkerTableFormat(t *testing.T) {
	c := NewDocumentChunker(NewTextChunker(1000, 150), NewTableChunker(40, 2))
	doc := domain.Document{ID: "tbl", Format: domain.FormatTable}

	table := "line  target\n1     2.0%\n2     2.1%\n3     2.2%\n4     2.3%"
	spans := []domain.Span{{Text: table, Page: 1, Confidence: 1.0}}

	chunks, err := c.Chunk(doc, spans)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 row-group chunks, got %d", len(chunks))
	}
	for _, ch := range chunks {
		if !strings.HasPrefix(ch.Text, "line  target") {
			t.Errorf("table chunk missing header: %q", ch.Text)
		}
	}
}

func TestDocumentChunkerNoSpans(t *testing.T) {
	c := newDocChunker()
	chunks, err := c.Chunk(domain.Document{ID: "d"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if chunks != nil {
		t.Errorf("expected nil chunks for empty spans")
	}
}
