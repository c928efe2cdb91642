// Package extractor converts raw documents into ordered text spans.
// Text-native and table formats are extracted deterministically with
// confidence 1.0; image-bearing formats go through the external OCR
// engine page by page.
package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"opsqa/internal/domain"
	"opsqa/internal/port"
)

// DetectFormat maps a file path to its format class.
func DetectFormat(path string) domain.Format {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt", ".md", ".html", ".htm", ".json", ".xml":
		return domain.FormatText
	case ".csv", ".tsv":
		return domain.FormatTable
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff", ".pdf":
		return domain.FormatScan
	default:
		return domain.FormatUnknown
	}
}

// Registry dispatches extraction by format class.
type Registry struct {
	byFormat map[domain.Format]port.Extractor
}

func NewRegistry(extractors ...port.Extractor) *Registry {
	r := &Registry{byFormat: make(map[domain.Format]port.Extractor)}
	for _, e := range extractors {
		for _, f := range e.Formats() {
			r.byFormat[f] = e
		}
	}
	return r
}

// DetectFormat reports the format class the registry would dispatch
// the path to.
func (r *Registry) DetectFormat(path string) domain.Format {
	return DetectFormat(path)
}

// Extract runs the extractor registered for the path's format.
func (r *Registry) Extract(ctx context.Context, path string, content []byte) ([]domain.Span, []domain.PageFailure, error) {
	format := DetectFormat(path)
	e, ok := r.byFormat[format]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, filepath.Ext(path))
	}
	return e.Extract(ctx, path, content)
}
