// Package store persists documents, chunks and vectors in bbolt, with
// an optional remote vector backend.
package store

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"opsqa/internal/domain"
	"opsqa/internal/port"
)

var (
	bucketDocs      = []byte("docs")
	bucketChunks    = []byte("chunks")
	bucketBlobs     = []byte("blobs")
	bucketDocChunks = []byte("doc_chunks")
	bucketActive    = []byte("active")
	bucketReports   = []byte("reports")
	bucketVectors   = []byte("vectors")
	bucketMeta      = []byte("meta")
)

// BoltStore implements port.DocStore on a single bbolt file.
type BoltStore struct {
	db *bbolt.DB
}

var _ port.DocStore = (*BoltStore)(nil)

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{bucketDocs, bucketChunks, bucketBlobs, bucketDocChunks, bucketActive, bucketReports, bucketVectors, bucketMeta}
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) DB() *bbolt.DB {
	return s.db
}

type docMeta struct {
	SourcePath string `json:"source_path"`
	Format     string `json:"format"`
	Language   string `json:"language"`
	Signature  string `json:"signature"`
	Status     string `json:"status"`
	IngestedAt int64  `json:"ingested_at"`
}

// chunkMeta holds everything but the text, which lives in the blobs
// bucket keyed by the same chunk ID.
type chunkMeta struct {
	DocID         string            `json:"doc_id"`
	StartPage     int               `json:"start_page"`
	EndPage       int               `json:"end_page"`
	StartOffset   int               `json:"start_offset"`
	EndOffset     int               `json:"end_offset"`
	Category      string            `json:"category"`
	Metadata      map[string]string `json:"metadata"`
	OCRConfidence *float64          `json:"ocr_confidence,omitempty"`
	State         string            `json:"state"`
}

func docToMeta(doc domain.Document) docMeta {
	return docMeta{
		SourcePath: doc.SourcePath,
		Format:     string(doc.Format),
		Language:   doc.Language,
		Signature:  doc.Signature,
		Status:     string(doc.Status),
		IngestedAt: doc.IngestedAt.Unix(),
	}
}

func metaToDoc(id string, meta docMeta) domain.Document {
	return domain.Document{
		ID:         id,
		SourcePath: meta.SourcePath,
		Format:     domain.Format(meta.Format),
		Language:   meta.Language,
		Signature:  meta.Signature,
		Status:     domain.DocumentStatus(meta.Status),
		IngestedAt: time.Unix(meta.IngestedAt, 0),
	}
}

func (s *BoltStore) PutDoc(doc domain.Document) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(docToMeta(doc))
		if err != nil {
			return err
		}
		return tx.Bucket(bucketDocs).Put([]byte(doc.ID), data)
	})
}

func (s *BoltStore) GetDoc(id string) (domain.Document, error) {
	var doc domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocs).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		var meta docMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return err
		}
		doc = metaToDoc(id, meta)
		return nil
	})
	return doc, err
}

func (s *BoltStore) ListDocs() ([]domain.Document, error) {
	var docs []domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDocs)
		return b.ForEach(func(k, v []byte) error {
			var meta docMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return err
			}
			docs = append(docs, metaToDoc(string(k), meta))
			return nil
		})
	})
	return docs, err
}

func (s *BoltStore) ActiveDoc(sourcePath string) (domain.Document, error) {
	var doc domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(bucketActive).Get([]byte(sourcePath))
		if id == nil {
			return fmt.Errorf("no active document for %s: %w", sourcePath, domain.ErrNotFound)
		}
		data := tx.Bucket(bucketDocs).Get(id)
		if data == nil {
			return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		var meta docMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return err
		}
		doc = metaToDoc(string(id), meta)
		return nil
	})
	return doc, err
}

func (s *BoltStore) SetActiveDoc(sourcePath, docID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketActive).Put([]byte(sourcePath), []byte(docID))
	})
}

// RetireDoc marks the document retired and removes its chunk metadata
// and text in one transaction. Vector cleanup is the caller's job: the
// vector backend may be remote.
func (s *BoltStore) RetireDoc(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		docsBucket := tx.Bucket(bucketDocs)
		data := docsBucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		var meta docMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return err
		}
		meta.Status = string(domain.StatusRetired)
		updated, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		if err := docsBucket.Put([]byte(id), updated); err != nil {
			return err
		}

		docChunks := tx.Bucket(bucketDocChunks)
		idsData := docChunks.Get([]byte(id))
		if idsData == nil {
			return nil
		}
		var chunkIDs []string
		if err := json.Unmarshal(idsData, &chunkIDs); err != nil {
			return err
		}
		chunkBucket := tx.Bucket(bucketChunks)
		blobBucket := tx.Bucket(bucketBlobs)
		for _, cid := range chunkIDs {
			chunkBucket.Delete([]byte(cid))
			blobBucket.Delete([]byte(cid))
		}
		return docChunks.Delete([]byte(id))
	})
}

func (s *BoltStore) PutChunks(chunks []domain.Chunk) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		chunkBucket := tx.Bucket(bucketChunks)
		blobBucket := tx.Bucket(bucketBlobs)
		docChunks := tx.Bucket(bucketDocChunks)

		byDoc := make(map[string][]string)
		for _, chunk := range chunks {
			meta := chunkMeta{
				DocID:         chunk.DocID,
				StartPage:     chunk.StartPage,
				EndPage:       chunk.EndPage,
				StartOffset:   chunk.StartOffset,
				EndOffset:     chunk.EndOffset,
				Category:      chunk.Category,
				Metadata:      chunk.Metadata,
				OCRConfidence: chunk.OCRConfidence,
				State:         string(chunk.State),
			}
			data, err := json.Marshal(meta)
			if err != nil {
				return err
			}
			if err := chunkBucket.Put([]byte(chunk.ID), data); err != nil {
				return err
			}
			if err := blobBucket.Put([]byte(chunk.ID), []byte(chunk.Text)); err != nil {
				return err
			}
			byDoc[chunk.DocID] = append(byDoc[chunk.DocID], chunk.ID)
		}

		for docID, newIDs := range byDoc {
			var chunkIDs []string
			if existing := docChunks.Get([]byte(docID)); existing != nil {
				if err := json.Unmarshal(existing, &chunkIDs); err != nil {
					return fmt.Errorf("corrupt chunk index for %s: %w", docID, err)
				}
			}
			chunkIDs = appendMissing(chunkIDs, newIDs)
			data, err := json.Marshal(chunkIDs)
			if err != nil {
				return err
			}
			if err := docChunks.Put([]byte(docID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func appendMissing(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, id := range existing {
		seen[id] = true
	}
	for _, id := range incoming {
		if !seen[id] {
			existing = append(existing, id)
			seen[id] = true
		}
	}
	return existing
}

func (s *BoltStore) GetChunk(id string) (domain.Chunk, error) {
	var chunk domain.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketChunks).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("chunk %s: %w", id, domain.ErrNotFound)
		}
		var meta chunkMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return err
		}
		text := tx.Bucket(bucketBlobs).Get([]byte(id))
		chunk = metaToChunk(id, meta, text)
		return nil
	})
	return chunk, err
}

func metaToChunk(id string, meta chunkMeta, text []byte) domain.Chunk {
	return domain.Chunk{
		ID:            id,
		DocID:         meta.DocID,
		StartPage:     meta.StartPage,
		EndPage:       meta.EndPage,
		StartOffset:   meta.StartOffset,
		EndOffset:     meta.EndOffset,
		Text:          string(text),
		Category:      meta.Category,
		Metadata:      meta.Metadata,
		OCRConfidence: meta.OCRConfidence,
		State:         domain.ChunkState(meta.State),
	}
}

func (s *BoltStore) GetChunksByDoc(docID string) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocChunks).Get([]byte(docID))
		if data == nil {
			return nil
		}
		var chunkIDs []string
		if err := json.Unmarshal(data, &chunkIDs); err != nil {
			return err
		}
		chunkBucket := tx.Bucket(bucketChunks)
		blobBucket := tx.Bucket(bucketBlobs)
		for _, id := range chunkIDs {
			data := chunkBucket.Get([]byte(id))
			if data == nil {
				continue
			}
			var meta chunkMeta
			if err := json.Unmarshal(data, &meta); err != nil {
				continue
			}
			chunks = append(chunks, metaToChunk(id, meta, blobBucket.Get([]byte(id))))
		}
		return nil
	})
	return chunks, err
}

func (s *BoltStore) PutReport(report domain.IngestReport) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(report)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketReports).Put([]byte(report.DocID), data)
	})
}

func (s *BoltStore) GetReport(docID string) (domain.IngestReport, error) {
	var report domain.IngestReport
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketReports).Get([]byte(docID))
		if data == nil {
			return fmt.Errorf("report for %s: %w", docID, domain.ErrNotFound)
		}
		return json.Unmarshal(data, &report)
	})
	return report, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
