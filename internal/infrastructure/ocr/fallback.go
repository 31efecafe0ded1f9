package ocr

import (
	"bytes"
	"context"
	"io"
	"log/slog"

	"github.com/wkamphuis/invoiceflow/internal/core/domain"
	"github.com/wkamphuis/invoiceflow/internal/core/ports"
)

// Fallback chains two recognizers: when the primary fails or returns no
// text, the secondary gets the same bytes. Used to back the tesseract
// sidecar with the embedded PDF text layer.
type Fallback struct {
	primary   ports.OCRClient
	secondary ports.OCRClient
}

func NewFallback(primary, secondary ports.OCRClient) *Fallback {
	return &Fallback{primary: primary, secondary: secondary}
}

func (f *Fallback) Recognize(ctx context.Context, filename, mimeType string, data io.Reader) (domain.OCROutput, error) {
	payload, err := io.ReadAll(data)
	if err != nil {
		return domain.OCROutput{}, err
	}

	out, primaryErr := f.primary.Recognize(ctx, filename, mimeType, bytes.NewReader(payload))
	if primaryErr == nil && out.Text != "" {
		return out, nil
	}
	if ctx.Err() != nil {
		return domain.OCROutput{}, ctx.Err()
	}
	if primaryErr != nil {
		slog.Warn("primary_ocr_failed", "filename", filename, "error", primaryErr)
	}

	fallbackOut, fallbackErr := f.secondary.Recognize(ctx, filename, mimeType, bytes.NewReader(payload))
	if fallbackErr != nil || fallbackOut.Text == "" {
		if primaryErr != nil {
			return domain.OCROutput{}, primaryErr
		}
		if fallbackErr != nil {
			return domain.OCROutput{}, fallbackErr
		}
		return out, nil
	}
	return fallbackOut, nil
}
