package chunker

import (
	"fmt"
	"strings"
	"testing"
)

func TestTableChunkerSmallTableSingleChunk(t *testing.T) {
	c := NewTableChunker(2000, 10)

	table := "line  target\n5     2.3%\n7     1.9%"
	pieces := c.split(table)
	if len(pieces) != 1 {
		t.Fatalf("expected 1 piece, got %d", len(pieces))
	}
	if pieces[0].text != table {
		t.Errorf("small table must stay whole")
	}
}

func TestTableChunkerLargeTableRepeatsHeader(t *testing.T) {
	c := NewTableChunker(50, 3)

	var sb strings.Builder
	sb.WriteString("line  target_moisture")
	for i := 1; i <= 10; i++ {
		sb.WriteString(fmt.Sprintf("\n%d     %d.%d%%", i, i%3+1, i%10))
	}
	table := sb.String()

	pieces := c.split(table)
	want := 4 // 10 rows in groups of 3
	if len(pieces) != want {
		t.Fatalf("expected %d pieces, got %d", want, len(pieces))
	}

	for i, p := range pieces {
		if !strings.HasPrefix(p.text, "line  target_moisture") {
			t.Errorf("piece %d missing header: %q", i, p.text)
		}
	}

	// Offsets of each piece point at real source text of its rows.
	lastRow := fmt.Sprintf("%d     %d.%d%%", 10, 10%3+1, 0)
	last := pieces[len(pieces)-1]
	if !strings.HasSuffix(table[last.start:last.end], lastRow) {
		t.Errorf("last piece offsets do not cover the final row: %q", table[last.start:last.end])
	}
}

func TestTableChunkerHeaderOnly(t *testing.T) {
	c := NewTableChunker(5, 10)

	pieces := c.split("just_a_header_row_longer_than_threshold")
	if len(pieces) != 1 {
		t.Fatalf("expected 1 piece, got %d", len(pieces))
	}
}
