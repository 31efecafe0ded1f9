package ports

import (
	"context"
	"io"
	"time"

	"github.com/wkamphuis/invoiceflow/internal/core/domain"
)

// DocumentRepository persists documents, their pipeline artifacts, and the
// append-only audit log.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, offset, limit int) ([]domain.Document, error)
	ListBetween(ctx context.Context, from, to *time.Time) ([]domain.Document, error)

	// TransitionStatus atomically moves the document from one status to
	// another and appends the matching audit entry in the same transaction.
	// When the stored status is not `from`, it returns ErrConcurrencyConflict
	// if an operation is in progress and ErrInvalidStateTransition otherwise.
	TransitionStatus(ctx context.Context, id string, from, to domain.DocumentStatus, actor, detail string) error

	SaveExtraction(ctx context.Context, result *domain.ExtractionResult) error
	SaveValidation(ctx context.Context, result *domain.ValidationResult) error
	SaveSubmission(ctx context.Context, result *domain.SubmissionResult) error

	// LatestSuccessfulSubmission returns nil when the document has never
	// been submitted successfully.
	LatestSuccessfulSubmission(ctx context.Context, documentID string) (*domain.SubmissionResult, error)
	AuditTrail(ctx context.Context, documentID string) ([]domain.AuditEntry, error)
}

// ObjectStorage stores source document bytes.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes document-uploaded events so extraction can
// run asynchronously.
type MessageQueue interface {
	PublishDocumentUploaded(ctx context.Context, documentID string) error
	SubscribeDocumentUploaded(ctx context.Context, handler func(context.Context, string) error) error
}

// OCRClient is the recognition collaborator. Failures are surfaced wrapped in
// domain.ErrOCRFailure.
type OCRClient interface {
	Recognize(ctx context.Context, filename, mimeType string, data io.Reader) (domain.OCROutput, error)
}

// BookingRequest is the accounting-entry payload built from validated fields.
type BookingRequest struct {
	RemoteDocumentID string
	Date             string
	Description      string
	VendorName       string
	InvoiceNumber    string
	Amount           float64
	VATAmount        float64
	VATPercentage    float64
	IBAN             string
}

// AccountingClient is the external accounting platform. Both calls surface
// failures as *domain.RemoteAPIError.
type AccountingClient interface {
	CreateDocument(ctx context.Context, filename string, data io.Reader, metadata map[string]string) (remoteDocumentID string, err error)
	CreateEntry(ctx context.Context, booking BookingRequest) (remoteBookingID string, err error)
}
