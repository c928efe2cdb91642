// Package classifier tags chunks with a category and structured
// metadata using a constrained-output language model.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"opsqa/internal/domain"
	"opsqa/internal/port"
)

const systemPrompt = `You classify excerpts from internal operational documents (manuals, SOPs, maintenance logs, spreadsheets). Respond with a single JSON object and nothing else:
{
  "category": one of [%s],
  "document_type": short free-text type, e.g. "manual", "sop", "checklist", "log",
  "equipment": array of equipment names mentioned, [] if none,
  "language": one of ["pt", "en", "mixed", "unknown"],
  "safety_critical": true if the excerpt describes a safety procedure or hazard
}`

var knownLanguages = map[string]bool{
	"pt": true, "en": true, "mixed": true, "unknown": true,
}

// LLMClassifier validates model output against the closed category and
// language sets and falls back deterministically after the retry budget
// is spent.
type LLMClassifier struct {
	llm     port.LLM
	retries int
}

var _ port.Classifier = (*LLMClassifier)(nil)

func NewLLMClassifier(llm port.LLM, retries int) *LLMClassifier {
	if retries < 0 {
		retries = 0
	}
	return &LLMClassifier{llm: llm, retries: retries}
}

func (c *LLMClassifier) Classify(ctx context.Context, text string) (domain.Classification, error) {
	system := fmt.Sprintf(systemPrompt, quotedCategories())

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		raw, err := c.llm.GenerateWithSystem(ctx, system, text)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		cls, err := parseClassification(raw)
		if err != nil {
			lastErr = err
			continue
		}
		return cls, nil
	}

	return fallback(), lastErr
}

func fallback() domain.Classification {
	return domain.Classification{
		Category:  domain.CategoryFallback,
		Equipment: []string{},
		Language:  "unknown",
	}
}

func quotedCategories() string {
	quoted := make([]string, len(domain.KnownCategories))
	for i, c := range domain.KnownCategories {
		quoted[i] = `"` + c + `"`
	}
	return strings.Join(quoted, ", ")
}

// parseClassification decodes model output, tolerating a markdown code
// fence around the JSON, and rejects values outside the closed sets.
func parseClassification(raw string) (domain.Classification, error) {
	cleaned := stripFences(raw)

	var cls domain.Classification
	if err := json.Unmarshal([]byte(cleaned), &cls); err != nil {
		return domain.Classification{}, fmt.Errorf("malformed classification output: %w", err)
	}

	cls.Category = strings.ToLower(strings.TrimSpace(cls.Category))
	if !isKnownCategory(cls.Category) {
		return domain.Classification{}, fmt.Errorf("unknown category %q", cls.Category)
	}

	cls.Language = strings.ToLower(strings.TrimSpace(cls.Language))
	if !knownLanguages[cls.Language] {
		return domain.Classification{}, fmt.Errorf("unknown language %q", cls.Language)
	}

	if cls.Equipment == nil {
		cls.Equipment = []string{}
	}
	return cls, nil
}

func isKnownCategory(category string) bool {
	for _, c := range domain.KnownCategories {
		if c == category {
			return true
		}
	}
	return false
}

// stripFences removes a surrounding markdown code fence, with or
// without a language tag, returning the inner text.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 && !strings.HasPrefix(s, "{") {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// NoopClassifier tags every chunk with the fallback category. Used when
// classification is disabled in config.
type NoopClassifier struct{}

var _ port.Classifier = (*NoopClassifier)(nil)

func (NoopClassifier) Classify(_ context.Context, _ string) (domain.Classification, error) {
	return fallback(), nil
}
