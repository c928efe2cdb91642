package usecase

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"opsqa/internal/domain"
	"opsqa/internal/port"
)

var tagsHeader = []string{
	"chunk_id", "doc_id", "source_path", "page",
	"category", "document_type", "equipment", "language", "safety_critical",
	"text_preview",
}

const previewLen = 120

// TagsUseCase exports chunk classifications for human review and
// imports the corrected CSV back. Corrections update both the document
// store and the vector payloads so filtered retrieval sees them.
type TagsUseCase struct {
	docs     port.DocStore
	vectors  port.VectorStore
	embedder port.Embedder
	cache    CacheInvalidator
	logger   *slog.Logger
}

func NewTagsUseCase(docs port.DocStore, vectors port.VectorStore, embedder port.Embedder, cache CacheInvalidator, logger *slog.Logger) *TagsUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &TagsUseCase{
		docs:     docs,
		vectors:  vectors,
		embedder: embedder,
		cache:    cache,
		logger:   logger,
	}
}

// Export writes one CSV row per chunk of every live document.
func (u *TagsUseCase) Export(w io.Writer) error {
	docs, err := u.docs.ListDocs()
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(tagsHeader); err != nil {
		return err
	}

	for _, doc := range docs {
		if doc.Status == domain.StatusRetired {
			continue
		}
		chunks, err := u.docs.GetChunksByDoc(doc.ID)
		if err != nil {
			return fmt.Errorf("failed to load chunks for %s: %w", doc.ID, err)
		}
		for _, chunk := range chunks {
			row := []string{
				chunk.ID,
				doc.ID,
				doc.SourcePath,
				strconv.Itoa(chunk.StartPage),
				chunk.Category,
				chunk.Metadata["document_type"],
				chunk.Metadata["equipment"],
				chunk.Metadata["language"],
				chunk.Metadata["safety_critical"],
				preview(chunk.Text),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// ImportResult summarizes one tag import.
type ImportResult struct {
	Updated int
	Errors  []string
}

// Import applies reviewed tags. Rows with unknown chunk ids or invalid
// categories are reported and skipped; valid rows always apply.
func (u *TagsUseCase) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"chunk_id", "category"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	result := &ImportResult{}
	var updated []domain.Chunk

	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		chunk, err := u.applyRow(row, col)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		updated = append(updated, chunk)
	}

	if len(updated) == 0 {
		return result, nil
	}

	if err := u.docs.PutChunks(updated); err != nil {
		return nil, fmt.Errorf("failed to store updated chunks: %w", err)
	}
	if err := u.refreshVectors(ctx, updated); err != nil {
		return nil, err
	}
	result.Updated = len(updated)

	if u.cache != nil {
		u.cache.Invalidate()
	}
	return result, nil
}

func (u *TagsUseCase) applyRow(row []string, col map[string]int) (domain.Chunk, error) {
	field := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	chunkID := field("chunk_id")
	if chunkID == "" {
		return domain.Chunk{}, fmt.Errorf("empty chunk_id")
	}
	chunk, err := u.docs.GetChunk(chunkID)
	if err != nil {
		return domain.Chunk{}, fmt.Errorf("chunk %s: %w", chunkID, err)
	}

	category := strings.ToLower(field("category"))
	if !isKnownCategory(category) {
		return domain.Chunk{}, fmt.Errorf("unknown category %q", category)
	}
	chunk.Category = category

	if chunk.Metadata == nil {
		chunk.Metadata = make(map[string]string)
	}
	for _, key := range []string{"document_type", "equipment", "language", "safety_critical"} {
		if _, present := col[key]; !present {
			continue
		}
		if value := field(key); value != "" {
			chunk.Metadata[key] = value
		} else {
			delete(chunk.Metadata, key)
		}
	}

	return chunk, nil
}

// refreshVectors re-embeds the corrected chunks so their vector
// payloads carry the new tags. The text is unchanged, so the vectors
// land on the same points they replace.
func (u *TagsUseCase) refreshVectors(ctx context.Context, chunks []domain.Chunk) error {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	embeddings, err := u.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to re-embed corrected chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(chunks))
	}

	items := make([]port.VectorItem, len(chunks))
	for i, chunk := range chunks {
		metadata := map[string]string{
			port.MetaKeyModel: u.embedder.ModelName(),
			"doc_id":          chunk.DocID,
			"category":        chunk.Category,
			"page":            strconv.Itoa(chunk.StartPage),
		}
		for k, v := range chunk.Metadata {
			metadata[k] = v
		}
		items[i] = port.VectorItem{ID: chunk.ID, Vector: embeddings[i], Metadata: metadata}
	}
	return u.vectors.Upsert(ctx, items)
}

func isKnownCategory(category string) bool {
	for _, c := range domain.KnownCategories {
		if c == category {
			return true
		}
	}
	return false
}

func preview(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	if len(text) > previewLen {
		return text[:previewLen]
	}
	return text
}
