// Package usecase wires the adapters into the ingestion, answering and
// status operations the CLI exposes.
package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"opsqa/config"
	"opsqa/internal/domain"
	"opsqa/internal/port"
)

// DocumentExtractor dispatches extraction by document format.
type DocumentExtractor interface {
	Extract(ctx context.Context, path string, content []byte) ([]domain.Span, []domain.PageFailure, error)
	DetectFormat(path string) domain.Format
}

// CacheInvalidator is notified after every batch that changed the index.
type CacheInvalidator interface {
	Invalidate()
}

// IngestDeps collects the collaborators of IngestUseCase.
type IngestDeps struct {
	Docs       port.DocStore
	Vectors    port.VectorStore
	Walker     port.FileWalker
	Extractor  DocumentExtractor
	Chunker    port.Chunker
	Classifier port.Classifier
	Embedder   port.Embedder
	ReadFile   func(path string) ([]byte, error)
	Cache      CacheInvalidator
	Logger     *slog.Logger
}

// IngestUseCase turns source files into indexed, classified chunks.
// Failures are scoped as narrowly as possible: a bad page fails the
// page, a bad chunk fails the chunk, a bad file fails the file, and the
// batch always runs to completion.
type IngestUseCase struct {
	cfg  config.IngestConfig
	deps IngestDeps
}

func NewIngestUseCase(cfg config.IngestConfig, deps IngestDeps) *IngestUseCase {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &IngestUseCase{cfg: cfg, deps: deps}
}

// BatchResult summarizes one ingestion run.
type BatchResult struct {
	FilesIngested int
	FilesSkipped  int
	FilesFailed   int
	ChunksIndexed int
	Reports       []domain.IngestReport
	Errors        []string
}

// Ingest walks root and ingests every matching file using the
// configured number of workers. onFile, when non-nil, is called once
// per finished file for progress reporting.
func (u *IngestUseCase) Ingest(ctx context.Context, root string, onFile func(path string)) (*BatchResult, error) {
	files, err := u.deps.Walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	workers := u.cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	result := &BatchResult{}
	var mu sync.Mutex
	var wg sync.WaitGroup
	jobs := make(chan port.FileInfo)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range jobs {
				report, skipped, err := u.ingestFile(ctx, file.Path)

				mu.Lock()
				switch {
				case err != nil:
					result.FilesFailed++
					result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", file.Path, err))
				case skipped:
					result.FilesSkipped++
				case report.Status == domain.StatusFailed:
					result.FilesFailed++
					result.Reports = append(result.Reports, report)
				default:
					result.FilesIngested++
					result.ChunksIndexed += report.ChunksIndexed
					result.Reports = append(result.Reports, report)
				}
				mu.Unlock()

				if onFile != nil {
					onFile(file.Path)
				}
			}
		}()
	}

	for _, file := range files {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return result, ctx.Err()
		case jobs <- file:
		}
	}
	close(jobs)
	wg.Wait()

	if u.deps.Cache != nil && (result.FilesIngested > 0 || result.FilesFailed > 0) {
		u.deps.Cache.Invalidate()
	}

	return result, nil
}

// ingestFile runs the full pipeline for one source file. The returned
// error covers infrastructure failures only; extraction and indexing
// problems land in the report instead.
func (u *IngestUseCase) ingestFile(ctx context.Context, path string) (domain.IngestReport, bool, error) {
	content, err := u.deps.ReadFile(path)
	if err != nil {
		return domain.IngestReport{}, false, fmt.Errorf("failed to read file: %w", err)
	}

	signature := contentSignature(content, u.cfg.ChunkSize, u.cfg.ChunkOverlap)

	if active, err := u.deps.Docs.ActiveDoc(path); err == nil {
		if active.Signature == signature && active.Status == domain.StatusIndexed {
			u.deps.Logger.Debug("unchanged, skipping", "path", path)
			return domain.IngestReport{}, true, nil
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.IngestReport{}, false, err
	}

	doc := domain.Document{
		ID:         uuid.NewString(),
		SourcePath: path,
		Format:     u.deps.Extractor.DetectFormat(path),
		Signature:  signature,
		Status:     domain.StatusPending,
		IngestedAt: time.Now(),
	}

	report := domain.IngestReport{
		DocID:      doc.ID,
		SourcePath: path,
		Status:     domain.StatusPending,
	}

	spans, pageFailures, err := u.deps.Extractor.Extract(ctx, path, content)
	report.PageFailures = pageFailures
	if err != nil {
		return u.failDocument(doc, report, fmt.Sprintf("extraction failed: %v", err))
	}
	report.PagesExtracted = countPages(spans)

	chunks, err := u.deps.Chunker.Chunk(doc, spans)
	if err != nil {
		return u.failDocument(doc, report, fmt.Sprintf("chunking failed: %v", err))
	}
	if len(chunks) == 0 {
		return u.failDocument(doc, report, "no text extracted")
	}
	report.ChunksCreated = len(chunks)

	u.classifyChunks(ctx, chunks)
	doc.Language = dominantLanguage(chunks)

	indexed, chunkFailures := u.indexChunks(ctx, chunks)
	report.ChunksIndexed = indexed
	report.ChunkFailures = chunkFailures

	if indexed > 0 {
		doc.Status = domain.StatusIndexed
		report.Status = domain.StatusIndexed
	} else {
		doc.Status = domain.StatusFailed
		report.Status = domain.StatusFailed
	}

	if err := u.deps.Docs.PutDoc(doc); err != nil {
		return report, false, fmt.Errorf("failed to store document: %w", err)
	}
	if err := u.deps.Docs.PutChunks(chunks); err != nil {
		return report, false, fmt.Errorf("failed to store chunks: %w", err)
	}

	// The previous version is retired only once its replacement is
	// actually indexed; a failed re-ingest leaves the old version
	// active and answerable.
	if doc.Status == domain.StatusIndexed {
		if err := u.supersede(ctx, path, doc.ID); err != nil {
			u.deps.Logger.Warn("failed to retire previous version", "path", path, "error", err)
		}
		if err := u.deps.Docs.SetActiveDoc(path, doc.ID); err != nil {
			return report, false, fmt.Errorf("failed to set active document: %w", err)
		}
	}

	report.UpdatedAt = time.Now()
	if err := u.deps.Docs.PutReport(report); err != nil {
		return report, false, fmt.Errorf("failed to store report: %w", err)
	}

	return report, false, nil
}

func (u *IngestUseCase) failDocument(doc domain.Document, report domain.IngestReport, reason string) (domain.IngestReport, bool, error) {
	u.deps.Logger.Warn("document failed", "path", doc.SourcePath, "reason", reason)

	doc.Status = domain.StatusFailed
	report.Status = domain.StatusFailed
	report.UpdatedAt = time.Now()
	if len(report.PageFailures) == 0 {
		report.PageFailures = []domain.PageFailure{{Page: 0, Reason: reason}}
	}

	if err := u.deps.Docs.PutDoc(doc); err != nil {
		return report, false, err
	}
	if err := u.deps.Docs.PutReport(report); err != nil {
		return report, false, err
	}
	return report, false, nil
}

// classifyChunks tags every chunk. A classification that fails its
// retry budget falls back to uncategorized and never stops the file.
func (u *IngestUseCase) classifyChunks(ctx context.Context, chunks []domain.Chunk) {
	for i := range chunks {
		cls, err := u.deps.Classifier.Classify(ctx, chunks[i].Text)
		if err != nil {
			u.deps.Logger.Warn("classification fell back", "chunk", chunks[i].ID, "error", err)
		}
		chunks[i].Category = cls.Category
		chunks[i].Metadata = classificationMetadata(cls)
	}
}

func classificationMetadata(cls domain.Classification) map[string]string {
	metadata := map[string]string{
		"language":        cls.Language,
		"safety_critical": strconv.FormatBool(cls.SafetyCritical),
	}
	if cls.DocumentType != "" {
		metadata["document_type"] = cls.DocumentType
	}
	if len(cls.Equipment) > 0 {
		metadata["equipment"] = strings.Join(cls.Equipment, ",")
	}
	return metadata
}

// indexChunks embeds and upserts the chunks, retrying transient
// failures. A batch that exhausts the retry budget fails every chunk in
// it; the document keeps whatever did get indexed.
func (u *IngestUseCase) indexChunks(ctx context.Context, chunks []domain.Chunk) (int, []domain.ChunkFailure) {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	var embeddings [][]float32
	err := withRetry(ctx, u.cfg.IndexRetries, u.deps.Logger, "embed", func() error {
		var err error
		embeddings, err = u.deps.Embedder.Embed(ctx, texts)
		return err
	})
	if err != nil {
		return 0, failAll(chunks, fmt.Sprintf("embedding failed: %v", err))
	}
	if len(embeddings) != len(chunks) {
		return 0, failAll(chunks, fmt.Sprintf("embedder returned %d vectors for %d chunks", len(embeddings), len(chunks)))
	}

	items := make([]port.VectorItem, len(chunks))
	for i := range chunks {
		metadata := map[string]string{
			port.MetaKeyModel: u.deps.Embedder.ModelName(),
			"doc_id":          chunks[i].DocID,
			"category":        chunks[i].Category,
			"page":            strconv.Itoa(chunks[i].StartPage),
		}
		for k, v := range chunks[i].Metadata {
			metadata[k] = v
		}
		items[i] = port.VectorItem{
			ID:       chunks[i].ID,
			Vector:   embeddings[i],
			Metadata: metadata,
		}
	}

	err = withRetry(ctx, u.cfg.IndexRetries, u.deps.Logger, "upsert", func() error {
		return u.deps.Vectors.Upsert(ctx, items)
	})
	if err != nil {
		return 0, failAll(chunks, fmt.Sprintf("vector upsert failed: %v", err))
	}

	for i := range chunks {
		chunks[i].State = domain.ChunkIndexed
	}
	return len(chunks), nil
}

func failAll(chunks []domain.Chunk, reason string) []domain.ChunkFailure {
	failures := make([]domain.ChunkFailure, len(chunks))
	for i, chunk := range chunks {
		failures[i] = domain.ChunkFailure{ChunkID: chunk.ID, Reason: reason}
	}
	return failures
}

// supersede retires the previous active version of the source path:
// its vectors are deleted first so retrieval can never cite a chunk the
// store no longer holds.
func (u *IngestUseCase) supersede(ctx context.Context, path, newDocID string) error {
	old, err := u.deps.Docs.ActiveDoc(path)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if old.ID == newDocID {
		return nil
	}

	oldChunks, err := u.deps.Docs.GetChunksByDoc(old.ID)
	if err != nil {
		return err
	}
	if len(oldChunks) > 0 {
		ids := make([]string, len(oldChunks))
		for i, chunk := range oldChunks {
			ids[i] = chunk.ID
		}
		if err := u.deps.Vectors.Delete(ctx, ids); err != nil {
			return err
		}
	}
	return u.deps.Docs.RetireDoc(old.ID)
}

// contentSignature fingerprints the source bytes together with the
// chunking parameters, so either kind of change triggers re-ingestion.
func contentSignature(content []byte, chunkSize, overlap int) string {
	h := sha256.New()
	h.Write(content)
	fmt.Fprintf(h, "|%d|%d", chunkSize, overlap)
	return hex.EncodeToString(h.Sum(nil))
}

func countPages(spans []domain.Span) int {
	pages := make(map[int]bool)
	for _, span := range spans {
		pages[span.Page] = true
	}
	return len(pages)
}

// dominantLanguage picks the most frequent chunk language for the
// document record.
func dominantLanguage(chunks []domain.Chunk) string {
	counts := make(map[string]int)
	for _, chunk := range chunks {
		if lang := chunk.Metadata["language"]; lang != "" && lang != "unknown" {
			counts[lang]++
		}
	}
	best, bestCount := "unknown", 0
	for lang, count := range counts {
		if count > bestCount {
			best, bestCount = lang, count
		}
	}
	return best
}
