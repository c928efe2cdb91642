package usecase

import (
	"testing"
	"time"

	"opsqa/internal/adapter/memstore"
	"opsqa/internal/domain"
)

func TestStatusOverviewExcludesRetired(t *testing.T) {
	docs := memstore.NewMemoryStore()
	for _, d := range []domain.Document{
		{ID: "d1", SourcePath: "b.txt", Status: domain.StatusIndexed, IngestedAt: time.Now()},
		{ID: "d2", SourcePath: "a.txt", Status: domain.StatusIndexed, IngestedAt: time.Now()},
		{ID: "d3", SourcePath: "a-old.txt", Status: domain.StatusRetired, IngestedAt: time.Now()},
	} {
		if err := docs.PutDoc(d); err != nil {
			t.Fatal(err)
		}
	}

	u := NewStatusUseCase(docs)
	live, err := u.Overview()
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}
	if len(live) != 2 {
		t.Fatalf("Overview() len = %d, want 2", len(live))
	}
	if live[0].SourcePath != "a.txt" || live[1].SourcePath != "b.txt" {
		t.Errorf("Overview() not sorted by path: %+v", live)
	}
}

func TestStatusReportForPath(t *testing.T) {
	docs := memstore.NewMemoryStore()
	if err := docs.PutDoc(domain.Document{ID: "d1", SourcePath: "a.txt", Status: domain.StatusIndexed}); err != nil {
		t.Fatal(err)
	}
	if err := docs.SetActiveDoc("a.txt", "d1"); err != nil {
		t.Fatal(err)
	}
	if err := docs.PutReport(domain.IngestReport{DocID: "d1", SourcePath: "a.txt", Status: domain.StatusIndexed, ChunksIndexed: 3}); err != nil {
		t.Fatal(err)
	}

	u := NewStatusUseCase(docs)
	report, err := u.ReportForPath("a.txt")
	if err != nil {
		t.Fatalf("ReportForPath() error = %v", err)
	}
	if report.ChunksIndexed != 3 {
		t.Errorf("ChunksIndexed = %d, want 3", report.ChunksIndexed)
	}
}
