package domain

import "time"

// Format classes determine which extraction path a document takes.
type Format string

const (
	FormatText    Format = "text"  // txt, md, html, json, xml
	FormatTable   Format = "table" // csv, tsv
	FormatScan    Format = "scan"  // png, jpg, tif, scanned pdf
	FormatUnknown Format = "unknown"
)

// DocumentStatus tracks a document through the ingestion pipeline.
type DocumentStatus string

const (
	StatusPending   DocumentStatus = "pending"
	StatusExtracted DocumentStatus = "extracted"
	StatusIndexed   DocumentStatus = "indexed"
	StatusFailed    DocumentStatus = "failed"
	StatusRetired   DocumentStatus = "retired"
)

// Document is one ingested version of a source file. Documents are
// immutable once ingested; re-ingesting a changed source creates a new
// version and retires the old one.
type Document struct {
	ID         string
	SourcePath string
	Format     Format
	Language   string
	Signature  string // sha256 over source bytes and chunking params
	Status     DocumentStatus
	IngestedAt time.Time
}

// Span is a unit of extracted text with provenance. Text-native formats
// produce one span per page with confidence 1.0; OCR produces one span
// per recognized region carrying the engine's own confidence.
type Span struct {
	Text       string
	Page       int
	Region     string // bounding region descriptor from the OCR engine, "" for text-native
	Confidence float64
}

// ChunkState distinguishes chunks that have an embedding from those
// that do not yet.
type ChunkState string

const (
	ChunkExtracted ChunkState = "extracted"
	ChunkIndexed   ChunkState = "indexed"
)

// Chunk is a bounded, independently retrievable unit of document text.
// StartOffset/EndOffset index into the extracted text of StartPage, so
// pageText[StartOffset:EndOffset] reproduces the chunk text exactly.
type Chunk struct {
	ID            string
	DocID         string
	StartPage     int
	EndPage       int
	StartOffset   int
	EndOffset     int
	Text          string
	Category      string
	Metadata      map[string]string
	OCRConfidence *float64 // nil for text-native extraction
	State         ChunkState
}

// Classification is the validated output of the tagging model for one
// chunk.
type Classification struct {
	Category       string   `json:"category"`
	DocumentType   string   `json:"document_type"`
	Equipment      []string `json:"equipment"`
	Language       string   `json:"language"`
	SafetyCritical bool     `json:"safety_critical"`
}

// CategoryFallback is assigned when the tagging model cannot produce a
// valid classification within the retry budget.
const CategoryFallback = "uncategorized"

// KnownCategories are the categories the classifier may emit. Anything
// else is rejected at the boundary.
var KnownCategories = []string{
	"maintenance",
	"operations",
	"safety",
	"quality",
	"logistics",
	"procedure",
	"technical",
	CategoryFallback,
}

// RetrievalResult is an ephemeral per-query scoring of one chunk.
// Never persisted.
type RetrievalResult struct {
	Chunk           Chunk
	Document        Document
	SimilarityScore float64
	RerankScore     float64
}

// Confidence is derived from retrieval similarity, never from the
// model's self-report.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Citation points a claim back to a specific chunk of a specific
// document page.
type Citation struct {
	ChunkID    string `json:"chunk_id"`
	DocumentID string `json:"document_id"`
	Page       int    `json:"page"`
}

// InsufficientEvidence is the fixed text of every ungrounded answer.
const InsufficientEvidence = "No grounded answer could be found in the indexed documents for this question."

// Answer is the caller-facing result of a query. When Grounded is
// false, Citations is empty and Text is the fixed insufficient-evidence
// notice.
type Answer struct {
	Text       string     `json:"text"`
	Citations  []Citation `json:"citations"`
	Confidence Confidence `json:"confidence"`
	Grounded   bool       `json:"grounded"`
}

// Ungrounded builds the fixed fallback answer.
func Ungrounded() Answer {
	return Answer{
		Text:       InsufficientEvidence,
		Citations:  []Citation{},
		Confidence: ConfidenceLow,
		Grounded:   false,
	}
}

// PageFailure records one page that could not be extracted. Partial and
// non-fatal: the rest of the document stays ingestible.
type PageFailure struct {
	Page   int    `json:"page"`
	Reason string `json:"reason"`
}

// ChunkFailure records one chunk that could not be indexed after the
// retry budget was exhausted.
type ChunkFailure struct {
	ChunkID string `json:"chunk_id"`
	Reason  string `json:"reason"`
}

// IngestReport is the pollable per-document ingestion status.
type IngestReport struct {
	DocID          string         `json:"doc_id"`
	SourcePath     string         `json:"source_path"`
	Status         DocumentStatus `json:"status"`
	PagesExtracted int            `json:"pages_extracted"`
	ChunksCreated  int            `json:"chunks_created"`
	ChunksIndexed  int            `json:"chunks_indexed"`
	PageFailures   []PageFailure  `json:"page_failures,omitempty"`
	ChunkFailures  []ChunkFailure `json:"chunk_failures,omitempty"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// QueryFilter restricts retrieval to chunks whose metadata matches.
// Keys follow classification metadata (category, equipment, language).
type QueryFilter map[string]string
