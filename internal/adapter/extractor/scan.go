package extractor

import (
	"context"
	"fmt"

	"opsqa/internal/domain"
	"opsqa/internal/port"
)

// ScanExtractor handles image-bearing formats. Each page is rasterized
// and handed to the external OCR engine; the engine's per-region
// confidences are propagated unchanged. A page that fails is recorded
// as a partial failure and extraction continues with the next page.
type ScanExtractor struct {
	rasterizer port.Rasterizer
	ocr        port.OCREngine
}

func NewScanExtractor(rasterizer port.Rasterizer, ocr port.OCREngine) *ScanExtractor {
	return &ScanExtractor{
		rasterizer: rasterizer,
		ocr:        ocr,
	}
}

func (e *ScanExtractor) Formats() []domain.Format {
	return []domain.Format{domain.FormatScan}
}

func (e *ScanExtractor) Extract(ctx context.Context, _ string, content []byte) ([]domain.Span, []domain.PageFailure, error) {
	pages, err := e.rasterizer.Rasterize(ctx, content)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to rasterize document: %w", err)
	}

	var spans []domain.Span
	var failures []domain.PageFailure

	for i, image := range pages {
		page := i + 1

		if len(image) == 0 {
			failures = append(failures, domain.PageFailure{
				Page:   page,
				Reason: "page could not be rasterized",
			})
			continue
		}

		regions, err := e.ocr.Recognize(ctx, image)
		if err != nil {
			failures = append(failures, domain.PageFailure{
				Page:   page,
				Reason: fmt.Sprintf("ocr failed: %v", err),
			})
			continue
		}

		for _, region := range regions {
			if region.Text == "" {
				continue
			}
			spans = append(spans, domain.Span{
				Text:       region.Text,
				Page:       page,
				Region:     region.Region,
				Confidence: region.Confidence,
			})
		}
	}

	return spans, failures, nil
}

var _ port.Extractor = (*ScanExtractor)(nil)
