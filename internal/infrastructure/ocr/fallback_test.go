package ocr

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/wkamphuis/invoiceflow/internal/core/domain"
)

type stubRecognizer struct {
	out   domain.OCROutput
	err   error
	calls int
}

func (s *stubRecognizer) Recognize(_ context.Context, _, _ string, data io.Reader) (domain.OCROutput, error) {
	s.calls++
	_, _ = io.ReadAll(data)
	return s.out, s.err
}

func TestFallbackPrefersPrimaryOutput(t *testing.T) {
	primary := &stubRecognizer{out: domain.OCROutput{Provider: "tesseract", Text: "Factuur", OverallConfidence: 0.9}}
	secondary := &stubRecognizer{out: domain.OCROutput{Provider: "pdftext", Text: "other"}}

	out, err := NewFallback(primary, secondary).Recognize(context.Background(), "a.pdf", "application/pdf", strings.NewReader("%PDF"))
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if out.Provider != "tesseract" {
		t.Fatalf("provider = %q, want tesseract", out.Provider)
	}
	if secondary.calls != 0 {
		t.Fatalf("secondary called %d times, want 0", secondary.calls)
	}
}

func TestFallbackUsedWhenPrimaryFails(t *testing.T) {
	primary := &stubRecognizer{err: errors.New("sidecar down")}
	secondary := &stubRecognizer{out: domain.OCROutput{Provider: "pdftext", Text: "Factuur 2024-001", OverallConfidence: 0.95}}

	out, err := NewFallback(primary, secondary).Recognize(context.Background(), "a.pdf", "application/pdf", strings.NewReader("%PDF"))
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if out.Provider != "pdftext" {
		t.Fatalf("provider = %q, want pdftext", out.Provider)
	}
}

func TestFallbackSurfacesPrimaryErrorWhenBothFail(t *testing.T) {
	primaryErr := errors.New("sidecar down")
	primary := &stubRecognizer{err: primaryErr}
	secondary := &stubRecognizer{err: errors.New("no text layer")}

	_, err := NewFallback(primary, secondary).Recognize(context.Background(), "a.pdf", "application/pdf", strings.NewReader("%PDF"))
	if !errors.Is(err, primaryErr) {
		t.Fatalf("expected primary error, got %v", err)
	}
}
