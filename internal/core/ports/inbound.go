package ports

import (
	"context"
	"io"
	"time"

	"github.com/wkamphuis/invoiceflow/internal/core/domain"
)

// DocumentUploader is the inbound contract for accepting new documents.
type DocumentUploader interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// ExtractionRunner drives the OCR + field extraction stage.
type ExtractionRunner interface {
	RunExtraction(ctx context.Context, documentID string) (*domain.ExtractionResult, error)
}

// ValidationRunner applies the rule chain, optionally with corrections.
type ValidationRunner interface {
	RunValidation(ctx context.Context, documentID string, corrections map[string]string) (*domain.ValidationResult, error)
}

// SubmissionRunner pushes a validated document to the accounting platform.
type SubmissionRunner interface {
	Submit(ctx context.Context, documentID string) (*domain.SubmissionResult, error)
}

// DocumentReader is the inbound read model for document state and history.
type DocumentReader interface {
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
	ListDocuments(ctx context.Context, offset, limit int) ([]domain.Document, error)
}

// DocumentExporter renders processed documents as a spreadsheet.
type DocumentExporter interface {
	ExportXLSX(ctx context.Context, from, to *time.Time) ([]byte, error)
}
