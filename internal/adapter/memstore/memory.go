// Package memstore provides in-memory implementations of the storage
// ports for tests and ephemeral runs.
package memstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"opsqa/internal/domain"
	"opsqa/internal/port"
)

// MemoryStore implements port.DocStore in memory.
type MemoryStore struct {
	mu        sync.RWMutex
	docs      map[string]domain.Document
	chunks    map[string]domain.Chunk
	docChunks map[string][]string
	active    map[string]string
	reports   map[string]domain.IngestReport
}

var _ port.DocStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:      make(map[string]domain.Document),
		chunks:    make(map[string]domain.Chunk),
		docChunks: make(map[string][]string),
		active:    make(map[string]string),
		reports:   make(map[string]domain.IngestReport),
	}
}

func (s *MemoryStore) PutDoc(doc domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	return nil
}

func (s *MemoryStore) GetDoc(id string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return domain.Document{}, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return doc, nil
}

func (s *MemoryStore) ListDocs() ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]domain.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *MemoryStore) ActiveDoc(sourcePath string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.active[sourcePath]
	if !ok {
		return domain.Document{}, fmt.Errorf("no active document for %s: %w", sourcePath, domain.ErrNotFound)
	}
	doc, ok := s.docs[id]
	if !ok {
		return domain.Document{}, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return doc, nil
}

func (s *MemoryStore) SetActiveDoc(sourcePath, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[sourcePath] = docID
	return nil
}

func (s *MemoryStore) RetireDoc(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	doc.Status = domain.StatusRetired
	s.docs[id] = doc
	for _, cid := range s.docChunks[id] {
		delete(s.chunks, cid)
	}
	delete(s.docChunks, id)
	return nil
}

func (s *MemoryStore) PutChunks(chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chunk := range chunks {
		if _, exists := s.chunks[chunk.ID]; !exists {
			s.docChunks[chunk.DocID] = append(s.docChunks[chunk.DocID], chunk.ID)
		}
		s.chunks[chunk.ID] = chunk
	}
	return nil
}

func (s *MemoryStore) GetChunk(id string) (domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunk, ok := s.chunks[id]
	if !ok {
		return domain.Chunk{}, fmt.Errorf("chunk %s: %w", id, domain.ErrNotFound)
	}
	return chunk, nil
}

func (s *MemoryStore) GetChunksByDoc(docID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.docChunks[docID]
	chunks := make([]domain.Chunk, 0, len(ids))
	for _, id := range ids {
		if chunk, ok := s.chunks[id]; ok {
			chunks = append(chunks, chunk)
		}
	}
	return chunks, nil
}

func (s *MemoryStore) PutReport(report domain.IngestReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.DocID] = report
	return nil
}

func (s *MemoryStore) GetReport(docID string) (domain.IngestReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[docID]
	if !ok {
		return domain.IngestReport{}, fmt.Errorf("report for %s: %w", docID, domain.ErrNotFound)
	}
	return report, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// MemoryVectorStore implements port.VectorStore in memory with
// brute-force cosine search. Scoring matches the bolt-backed store.
type MemoryVectorStore struct {
	mu      sync.RWMutex
	vectors map[string]port.VectorItem
}

var _ port.VectorStore = (*MemoryVectorStore)(nil)

func NewMemoryVectorStore() *MemoryVectorStore {
	return &MemoryVectorStore{vectors: make(map[string]port.VectorItem)}
}

func (s *MemoryVectorStore) Upsert(_ context.Context, items []port.VectorItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		s.vectors[item.ID] = item
	}
	return nil
}

func (s *MemoryVectorStore) Search(_ context.Context, query []float32, k int, filter map[string]string) ([]port.VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []port.VectorResult
	for id, item := range s.vectors {
		if !matches(item.Metadata, filter) {
			continue
		}
		results = append(results, port.VectorResult{
			ID:       id,
			Score:    cosine(query, item.Vector),
			Metadata: item.Metadata,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func matches(metadata, filter map[string]string) bool {
	for key, want := range filter {
		if metadata[key] != want {
			return false
		}
	}
	return true
}

func (s *MemoryVectorStore) Delete(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.vectors, id)
	}
	return nil
}

func (s *MemoryVectorStore) ModelName(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.vectors {
		if model := item.Metadata[port.MetaKeyModel]; model != "" {
			return model, nil
		}
	}
	return "", nil
}

func (s *MemoryVectorStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors), nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
