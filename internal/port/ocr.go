package port

import "context"

// OCRSpan is one recognized region with the engine's own confidence,
// propagated unchanged through the pipeline.
type OCRSpan struct {
	Text       string
	Region     string // engine-reported bounding region, e.g. "12,40,380,64"
	Confidence float64
}

// OCREngine recognizes text in a single page image. The engine itself
// is a black box behind this interface.
type OCREngine interface {
	Recognize(ctx context.Context, image []byte) ([]OCRSpan, error)
}

// Rasterizer turns an image-bearing document into one image per page.
// A page that cannot be rasterized is reported by Rasterize as a nil
// entry so extraction can record the failure and continue.
type Rasterizer interface {
	Rasterize(ctx context.Context, content []byte) ([][]byte, error)
}
