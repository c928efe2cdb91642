// Package ocr provides a client for an external OCR gateway that
// exposes rasterization and recognition over HTTP. The OCR engine
// itself stays a black box behind the gateway.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"opsqa/internal/port"
)

// HTTPGateway implements both port.Rasterizer and port.OCREngine
// against a gateway service.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

var (
	_ port.Rasterizer = (*HTTPGateway)(nil)
	_ port.OCREngine  = (*HTTPGateway)(nil)
)

func NewHTTPGateway(baseURL string, timeout time.Duration) *HTTPGateway {
	if baseURL == "" {
		baseURL = "http://localhost:8070"
	}
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &HTTPGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type rasterizeResponse struct {
	// Pages are base64-encoded page images; a null entry marks a page
	// the gateway could not render.
	Pages [][]byte `json:"pages"`
	Error string   `json:"error,omitempty"`
}

// Rasterize posts the raw document and receives one image per page.
// Pages the gateway could not render come back as nil entries so the
// caller can record per-page failures without aborting the document.
func (g *HTTPGateway) Rasterize(ctx context.Context, content []byte) ([][]byte, error) {
	body, err := g.post(ctx, "/rasterize", "application/octet-stream", content)
	if err != nil {
		return nil, err
	}

	var resp rasterizeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse rasterize response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("rasterize failed: %s", resp.Error)
	}
	return resp.Pages, nil
}

type recognizeResponse struct {
	Regions []recognizedRegion `json:"regions"`
	Error   string             `json:"error,omitempty"`
}

type recognizedRegion struct {
	Text       string  `json:"text"`
	Region     string  `json:"region"`
	Confidence float64 `json:"confidence"`
}

// Recognize posts a single page image and receives the recognized
// regions with the engine's own confidence per region.
func (g *HTTPGateway) Recognize(ctx context.Context, image []byte) ([]port.OCRSpan, error) {
	body, err := g.post(ctx, "/recognize", "application/octet-stream", image)
	if err != nil {
		return nil, err
	}

	var resp recognizeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse recognize response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("recognition failed: %s", resp.Error)
	}

	spans := make([]port.OCRSpan, 0, len(resp.Regions))
	for _, r := range resp.Regions {
		spans = append(spans, port.OCRSpan{
			Text:       r.Text,
			Region:     r.Region,
			Confidence: r.Confidence,
		})
	}
	return spans, nil
}

func (g *HTTPGateway) post(ctx context.Context, path, contentType string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
