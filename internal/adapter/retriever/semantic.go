// Package retriever turns free-text queries into ranked chunk results.
package retriever

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"opsqa/internal/domain"
	"opsqa/internal/port"
)

// Options tune candidate fetching and re-ranking. Weights and the
// similarity floor should be validated against a labeled query set per
// corpus; the defaults here are starting points, not truths.
type Options struct {
	CandidateMultiplier int
	MinSimilarity       float64
	SimWeight           float64
	MetaWeight          float64
}

func DefaultOptions() Options {
	return Options{
		CandidateMultiplier: 3,
		MinSimilarity:       0.30,
		SimWeight:           0.8,
		MetaWeight:          0.2,
	}
}

// SemanticRetriever embeds the query, fetches an over-sized candidate
// set from the vector store and re-ranks it with a deterministic blend
// of similarity and metadata affinity.
type SemanticRetriever struct {
	embedder port.Embedder
	vectors  port.VectorStore
	docs     port.DocStore
	opts     Options
}

var _ port.Retriever = (*SemanticRetriever)(nil)

func NewSemanticRetriever(embedder port.Embedder, vectors port.VectorStore, docs port.DocStore, opts Options) *SemanticRetriever {
	if opts.CandidateMultiplier <= 0 {
		opts.CandidateMultiplier = 3
	}
	if opts.SimWeight == 0 && opts.MetaWeight == 0 {
		opts.SimWeight = 1
	}
	return &SemanticRetriever{
		embedder: embedder,
		vectors:  vectors,
		docs:     docs,
		opts:     opts,
	}
}

func (r *SemanticRetriever) Search(ctx context.Context, query string, k int, filter domain.QueryFilter) ([]domain.RetrievalResult, error) {
	if k <= 0 {
		k = 8
	}

	if err := r.checkModel(ctx); err != nil {
		return nil, err
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: query embedding: %v", domain.ErrServiceUnavailable, err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("embedder returned no vector for query")
	}

	candidates, err := r.vectors.Search(ctx, embeddings[0], k*r.opts.CandidateMultiplier, filter)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	results := make([]domain.RetrievalResult, 0, len(candidates))
	for _, cand := range candidates {
		if cand.Score < r.opts.MinSimilarity {
			continue
		}
		chunk, err := r.docs.GetChunk(cand.ID)
		if err != nil {
			// Index can briefly outlive a retired chunk; skip it.
			continue
		}
		doc, err := r.docs.GetDoc(chunk.DocID)
		if err != nil {
			continue
		}
		if doc.Status == domain.StatusRetired {
			continue
		}

		results = append(results, domain.RetrievalResult{
			Chunk:           chunk,
			Document:        doc,
			SimilarityScore: cand.Score,
			RerankScore:     r.opts.SimWeight*cand.Score + r.opts.MetaWeight*metadataAffinity(query, chunk),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].RerankScore != results[j].RerankScore {
			return results[i].RerankScore > results[j].RerankScore
		}
		// Newer documents win ties.
		return results[i].Document.IngestedAt.After(results[j].Document.IngestedAt)
	})

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// checkModel rejects queries against an index built by a different
// embedding model. Vectors from different models are not comparable.
func (r *SemanticRetriever) checkModel(ctx context.Context) error {
	stored, err := r.vectors.ModelName(ctx)
	if err != nil {
		return fmt.Errorf("failed to read index model: %w", err)
	}
	if stored != "" && stored != r.embedder.ModelName() {
		return fmt.Errorf("index built with %q, query embedder is %q: %w",
			stored, r.embedder.ModelName(), domain.ErrModelMismatch)
	}
	return nil
}

// metadataAffinity scores how much of the chunk's classification shows
// up in the query text. Purely lexical and deterministic.
func metadataAffinity(query string, chunk domain.Chunk) float64 {
	q := strings.ToLower(query)

	terms := make([]string, 0, len(chunk.Metadata)+1)
	if chunk.Category != "" && chunk.Category != domain.CategoryFallback {
		terms = append(terms, chunk.Category)
	}
	for key, value := range chunk.Metadata {
		if key == port.MetaKeyModel || value == "" {
			continue
		}
		terms = append(terms, value)
	}
	if len(terms) == 0 {
		return 0
	}

	matched := 0
	for _, term := range terms {
		if strings.Contains(q, strings.ToLower(term)) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}
