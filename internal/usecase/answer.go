package usecase

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"text/template"

	"opsqa/config"
	"opsqa/internal/domain"
	"opsqa/internal/port"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

// refusalToken is what the model must emit when the excerpts cannot
// answer the question.
const refusalToken = "INSUFFICIENT_EVIDENCE"

const answerSystemPrompt = "You are an assistant answering questions about internal operational documents. You only state what the provided excerpts support."

var citationPattern = regexp.MustCompile(`\[chunk:([A-Za-z0-9._\-]+)\]`)

// AnswerUseCase composes grounded answers: retrieval supplies the
// evidence, the model drafts the text, and citation enforcement decides
// whether the draft is usable at all.
type AnswerUseCase struct {
	retriever port.Retriever
	llm       port.LLM
	cfg       config.AnswerConfig
	topK      int
	logger    *slog.Logger
	tmpl      *template.Template
}

func NewAnswerUseCase(retriever port.Retriever, llm port.LLM, cfg config.AnswerConfig, topK int, logger *slog.Logger) (*AnswerUseCase, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if topK <= 0 {
		topK = 8
	}

	tmplContent, err := promptTemplates.ReadFile("templates/answer_prompt.txt")
	if err != nil {
		return nil, fmt.Errorf("answer template missing: %w", err)
	}
	tmpl, err := template.New("answer").Funcs(template.FuncMap{
		"formatExcerpts": formatExcerpts,
	}).Parse(string(tmplContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse answer template: %w", err)
	}

	return &AnswerUseCase{
		retriever: retriever,
		llm:       llm,
		cfg:       cfg,
		topK:      topK,
		logger:    logger,
		tmpl:      tmpl,
	}, nil
}

// Answer retrieves evidence for the question and composes a cited
// answer, or the fixed insufficient-evidence notice when the evidence
// does not carry it.
func (u *AnswerUseCase) Answer(ctx context.Context, query string, filter domain.QueryFilter) (domain.Answer, error) {
	results, err := u.retriever.Search(ctx, query, u.topK, filter)
	if err != nil {
		return domain.Answer{}, err
	}
	if len(results) == 0 {
		return domain.Ungrounded(), nil
	}

	prompt, err := u.renderPrompt(query, results)
	if err != nil {
		return domain.Answer{}, err
	}

	raw, err := u.llm.GenerateWithSystem(ctx, answerSystemPrompt, prompt)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("%w: completion: %v", domain.ErrServiceUnavailable, err)
	}

	if strings.Contains(strings.TrimSpace(raw), refusalToken) {
		return domain.Ungrounded(), nil
	}

	text, citations := enforceCitations(raw, results)
	if len(citations) == 0 {
		u.logger.Warn("model answer had no valid citations, degrading", "query", query)
		return domain.Ungrounded(), nil
	}

	return domain.Answer{
		Text:       text,
		Citations:  citations,
		Confidence: u.confidence(maxSimilarity(results)),
		Grounded:   true,
	}, nil
}

// maxSimilarity returns the best retrieval similarity in the set.
// Results arrive ordered by rerank score, so the first entry is not
// necessarily the most similar one.
func maxSimilarity(results []domain.RetrievalResult) float64 {
	best := 0.0
	for _, r := range results {
		if r.SimilarityScore > best {
			best = r.SimilarityScore
		}
	}
	return best
}

func (u *AnswerUseCase) renderPrompt(query string, results []domain.RetrievalResult) (string, error) {
	var buf bytes.Buffer
	err := u.tmpl.Execute(&buf, struct {
		Query   string
		Results []domain.RetrievalResult
	}{Query: query, Results: results})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}

func formatExcerpts(results []domain.RetrievalResult) string {
	var sb strings.Builder
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("### Excerpt %d (chunk id: %s, source: %s, page %d)\n",
			i+1, r.Chunk.ID, r.Document.SourcePath, r.Chunk.StartPage))
		sb.WriteString(r.Chunk.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// enforceCitations validates every citation marker against the
// retrieved chunks. Markers pointing at chunks the model was never
// shown are stripped from the text and never reported.
func enforceCitations(raw string, results []domain.RetrievalResult) (string, []domain.Citation) {
	byID := make(map[string]domain.RetrievalResult, len(results))
	for _, r := range results {
		byID[r.Chunk.ID] = r
	}

	var citations []domain.Citation
	cited := make(map[string]bool)

	text := citationPattern.ReplaceAllStringFunc(raw, func(marker string) string {
		id := citationPattern.FindStringSubmatch(marker)[1]
		r, ok := byID[id]
		if !ok {
			return ""
		}
		if !cited[id] {
			cited[id] = true
			citations = append(citations, domain.Citation{
				ChunkID:    id,
				DocumentID: r.Chunk.DocID,
				Page:       r.Chunk.StartPage,
			})
		}
		return marker
	})

	return strings.TrimSpace(text), citations
}

// confidence is derived from the top retrieval similarity alone. The
// model never grades its own answer.
func (u *AnswerUseCase) confidence(topSimilarity float64) domain.Confidence {
	switch {
	case topSimilarity >= u.cfg.HighConfidence:
		return domain.ConfidenceHigh
	case topSimilarity >= u.cfg.MediumConfidence:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}
