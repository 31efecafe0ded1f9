package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/wkamphuis/invoiceflow/internal/core/domain"
)

const providerName = "pdftext"

// Embedded text layers are read verbatim, so the provider reports a flat
// high confidence rather than per-word scores.
const textLayerConfidence = 0.95

// Extractor reads the embedded text layer of a PDF. It is the offline
// fallback when the OCR sidecar is unavailable; scanned PDFs without a text
// layer yield empty output.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Recognize(_ context.Context, filename, mimeType string, data io.Reader) (domain.OCROutput, error) {
	if mimeType != "application/pdf" && !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return domain.OCROutput{}, fmt.Errorf("pdftext: unsupported format %q", mimeType)
	}

	raw, err := io.ReadAll(data)
	if err != nil {
		return domain.OCROutput{}, fmt.Errorf("read pdf bytes: %w", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return domain.OCROutput{}, fmt.Errorf("parse pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return domain.OCROutput{}, fmt.Errorf("read pdf text layer: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return domain.OCROutput{}, fmt.Errorf("collect pdf text: %w", err)
	}

	return domain.OCROutput{
		Provider:          providerName,
		Text:              strings.TrimSpace(buf.String()),
		OverallConfidence: textLayerConfidence,
	}, nil
}
