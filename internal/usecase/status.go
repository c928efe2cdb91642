package usecase

import (
	"sort"

	"opsqa/internal/domain"
	"opsqa/internal/port"
)

// StatusUseCase exposes ingestion progress for polling.
type StatusUseCase struct {
	docs port.DocStore
}

func NewStatusUseCase(docs port.DocStore) *StatusUseCase {
	return &StatusUseCase{docs: docs}
}

// Report returns the ingestion report for one document id.
func (u *StatusUseCase) Report(docID string) (domain.IngestReport, error) {
	return u.docs.GetReport(docID)
}

// ReportForPath returns the report of the active version of a source
// path.
func (u *StatusUseCase) ReportForPath(sourcePath string) (domain.IngestReport, error) {
	doc, err := u.docs.ActiveDoc(sourcePath)
	if err != nil {
		return domain.IngestReport{}, err
	}
	return u.docs.GetReport(doc.ID)
}

// Overview lists all documents sorted by source path, retired versions
// excluded.
func (u *StatusUseCase) Overview() ([]domain.Document, error) {
	docs, err := u.docs.ListDocs()
	if err != nil {
		return nil, err
	}

	live := docs[:0]
	for _, doc := range docs {
		if doc.Status != domain.StatusRetired {
			live = append(live, doc)
		}
	}
	sort.Slice(live, func(i, j int) bool {
		return live[i].SourcePath < live[j].SourcePath
	})
	return live, nil
}
