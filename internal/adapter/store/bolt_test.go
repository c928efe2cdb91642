package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.etcd.io/bbolt"

	"opsqa/internal/domain"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("NewBoltStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleDoc(id, path string) domain.Document {
	return domain.Document{
		ID:         id,
		SourcePath: path,
		Format:     domain.FormatText,
		Language:   "en",
		Signature:  "sig-" + id,
		Status:     domain.StatusIndexed,
		IngestedAt: time.Unix(1700000000, 0),
	}
}

func TestDocRoundTrip(t *testing.T) {
	s := openTestStore(t)

	doc := sampleDoc("doc-1", "manuals/pump.txt")
	if err := s.PutDoc(doc); err != nil {
		t.Fatalf("PutDoc() error = %v", err)
	}

	got, err := s.GetDoc("doc-1")
	if err != nil {
		t.Fatalf("GetDoc() error = %v", err)
	}
	if got != doc {
		t.Errorf("GetDoc() = %+v, want %+v", got, doc)
	}
}

func TestGetDocNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetDoc("missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetDoc() error = %v, want ErrNotFound", err)
	}
}

func TestActiveDocPointer(t *testing.T) {
	s := openTestStore(t)

	old := sampleDoc("doc-v1", "sops/lockout.md")
	updated := sampleDoc("doc-v2", "sops/lockout.md")
	for _, d := range []domain.Document{old, updated} {
		if err := s.PutDoc(d); err != nil {
			t.Fatalf("PutDoc() error = %v", err)
		}
	}

	if _, err := s.ActiveDoc("sops/lockout.md"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("ActiveDoc() before SetActiveDoc error = %v, want ErrNotFound", err)
	}

	if err := s.SetActiveDoc("sops/lockout.md", "doc-v1"); err != nil {
		t.Fatalf("SetActiveDoc() error = %v", err)
	}
	got, err := s.ActiveDoc("sops/lockout.md")
	if err != nil {
		t.Fatalf("ActiveDoc() error = %v", err)
	}
	if got.ID != "doc-v1" {
		t.Errorf("ActiveDoc() = %s, want doc-v1", got.ID)
	}

	// Supersession flips the pointer to the new version.
	if err := s.SetActiveDoc("sops/lockout.md", "doc-v2"); err != nil {
		t.Fatalf("SetActiveDoc() error = %v", err)
	}
	got, err = s.ActiveDoc("sops/lockout.md")
	if err != nil {
		t.Fatalf("ActiveDoc() error = %v", err)
	}
	if got.ID != "doc-v2" {
		t.Errorf("ActiveDoc() after flip = %s, want doc-v2", got.ID)
	}
}

func TestChunkRoundTrip(t *testing.T) {
	s := openTestStore(t)

	conf := 0.83
	chunks := []domain.Chunk{
		{
			ID:          "doc-1_chunk_001",
			DocID:       "doc-1",
			StartPage:   1,
			EndPage:     1,
			StartOffset: 0,
			EndOffset:   22,
			Text:        "check valve torque spec",
			Category:    "maintenance",
			Metadata:    map[string]string{"language": "en"},
			State:       domain.ChunkIndexed,
		},
		{
			ID:            "doc-1_chunk_002",
			DocID:         "doc-1",
			StartPage:     2,
			EndPage:       2,
			StartOffset:   0,
			EndOffset:     18,
			Text:          "scanned page text",
			Category:      "maintenance",
			OCRConfidence: &conf,
			State:         domain.ChunkExtracted,
		},
	}
	if err := s.PutChunks(chunks); err != nil {
		t.Fatalf("PutChunks() error = %v", err)
	}

	got, err := s.GetChunk("doc-1_chunk_002")
	if err != nil {
		t.Fatalf("GetChunk() error = %v", err)
	}
	if got.Text != "scanned page text" {
		t.Errorf("Text = %q", got.Text)
	}
	if got.OCRConfidence == nil || *got.OCRConfidence != conf {
		t.Errorf("OCRConfidence = %v, want %v", got.OCRConfidence, conf)
	}

	byDoc, err := s.GetChunksByDoc("doc-1")
	if err != nil {
		t.Fatalf("GetChunksByDoc() error = %v", err)
	}
	if len(byDoc) != 2 {
		t.Fatalf("GetChunksByDoc() len = %d, want 2", len(byDoc))
	}
	if byDoc[0].OCRConfidence != nil {
		t.Error("text-native chunk should have nil OCRConfidence")
	}
}

func TestPutChunksRejectsCorruptChunkIndex(t *testing.T) {
	s := openTestStore(t)

	err := s.DB().Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocChunks).Put([]byte("doc-1"), []byte("{not json"))
	})
	if err != nil {
		t.Fatal(err)
	}

	chunk := domain.Chunk{ID: "doc-1_chunk_001", DocID: "doc-1", Text: "a", State: domain.ChunkExtracted}
	if err := s.PutChunks([]domain.Chunk{chunk}); err == nil {
		t.Fatal("PutChunks() accepted a corrupt chunk index instead of failing")
	}
}

func TestPutChunksIdempotentIndex(t *testing.T) {
	s := openTestStore(t)

	chunk := domain.Chunk{ID: "doc-1_chunk_001", DocID: "doc-1", Text: "a", State: domain.ChunkExtracted}
	if err := s.PutChunks([]domain.Chunk{chunk}); err != nil {
		t.Fatalf("PutChunks() error = %v", err)
	}
	chunk.State = domain.ChunkIndexed
	if err := s.PutChunks([]domain.Chunk{chunk}); err != nil {
		t.Fatalf("PutChunks() second write error = %v", err)
	}

	byDoc, err := s.GetChunksByDoc("doc-1")
	if err != nil {
		t.Fatalf("GetChunksByDoc() error = %v", err)
	}
	if len(byDoc) != 1 {
		t.Fatalf("rewriting a chunk duplicated it: len = %d", len(byDoc))
	}
	if byDoc[0].State != domain.ChunkIndexed {
		t.Errorf("State = %s, want indexed", byDoc[0].State)
	}
}

func TestRetireDoc(t *testing.T) {
	s := openTestStore(t)

	doc := sampleDoc("doc-old", "manuals/boiler.txt")
	if err := s.PutDoc(doc); err != nil {
		t.Fatalf("PutDoc() error = %v", err)
	}
	if err := s.PutChunks([]domain.Chunk{
		{ID: "doc-old_chunk_001", DocID: "doc-old", Text: "old text", State: domain.ChunkIndexed},
	}); err != nil {
		t.Fatalf("PutChunks() error = %v", err)
	}

	if err := s.RetireDoc("doc-old"); err != nil {
		t.Fatalf("RetireDoc() error = %v", err)
	}

	got, err := s.GetDoc("doc-old")
	if err != nil {
		t.Fatalf("GetDoc() error = %v", err)
	}
	if got.Status != domain.StatusRetired {
		t.Errorf("Status = %s, want retired", got.Status)
	}

	if _, err := s.GetChunk("doc-old_chunk_001"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("retired chunk still readable, err = %v", err)
	}
	byDoc, err := s.GetChunksByDoc("doc-old")
	if err != nil {
		t.Fatalf("GetChunksByDoc() error = %v", err)
	}
	if len(byDoc) != 0 {
		t.Errorf("retired doc still lists %d chunks", len(byDoc))
	}
}

func TestReportRoundTrip(t *testing.T) {
	s := openTestStore(t)

	report := domain.IngestReport{
		DocID:          "doc-1",
		SourcePath:     "scans/permit.pdf",
		Status:         domain.StatusIndexed,
		PagesExtracted: 2,
		ChunksCreated:  5,
		ChunksIndexed:  5,
		PageFailures:   []domain.PageFailure{{Page: 2, Reason: "rasterization failed"}},
		UpdatedAt:      time.Unix(1700000000, 0).UTC(),
	}
	if err := s.PutReport(report); err != nil {
		t.Fatalf("PutReport() error = %v", err)
	}

	got, err := s.GetReport("doc-1")
	if err != nil {
		t.Fatalf("GetReport() error = %v", err)
	}
	if got.PagesExtracted != 2 || len(got.PageFailures) != 1 {
		t.Errorf("GetReport() = %+v", got)
	}
	if got.PageFailures[0].Page != 2 {
		t.Errorf("PageFailures[0].Page = %d, want 2", got.PageFailures[0].Page)
	}
}

func TestListDocs(t *testing.T) {
	s := openTestStore(t)

	for _, id := range []string{"a", "b", "c"} {
		if err := s.PutDoc(sampleDoc(id, id+".txt")); err != nil {
			t.Fatalf("PutDoc() error = %v", err)
		}
	}
	docs, err := s.ListDocs()
	if err != nil {
		t.Fatalf("ListDocs() error = %v", err)
	}
	if len(docs) != 3 {
		t.Errorf("ListDocs() len = %d, want 3", len(docs))
	}
}
