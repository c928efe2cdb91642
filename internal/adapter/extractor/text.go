package extractor

import (
	"context"
	"strings"

	"opsqa/internal/domain"
	"opsqa/internal/port"
)

// TextExtractor handles text-native formats. Extraction is
// deterministic and always carries confidence 1.0. Pages are split on
// form-feed; files without form-feeds are a single page.
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

func (e *TextExtractor) Formats() []domain.Format {
	return []domain.Format{domain.FormatText}
}

func (e *TextExtractor) Extract(_ context.Context, _ string, content []byte) ([]domain.Span, []domain.PageFailure, error) {
	text := string(content)

	var spans []domain.Span
	for i, pageText := range strings.Split(text, "\f") {
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		spans = append(spans, domain.Span{
			Text:       pageText,
			Page:       i + 1,
			Confidence: 1.0,
		})
	}
	return spans, nil, nil
}

var _ port.Extractor = (*TextExtractor)(nil)
