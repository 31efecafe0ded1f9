package usecase

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/wkamphuis/invoiceflow/internal/core/domain"
	"github.com/wkamphuis/invoiceflow/internal/core/ports"
)

type transition struct {
	from, to domain.DocumentStatus
	detail   string
}

// repoFake mimics the repository's CAS semantics in memory so the usecases
// are exercised against realistic conflict behavior.
type repoFake struct {
	doc *domain.Document

	getErr           error
	saveExtractErr   error
	saveValidateErr  error
	saveSubmitErr    error
	transitionErr    error
	priorSubmission  *domain.SubmissionResult
	priorSubmitErr   error
	transitions      []transition
	savedExtractions []*domain.ExtractionResult
	savedValidations []*domain.ValidationResult
	savedSubmissions []*domain.SubmissionResult
}

func (f *repoFake) Create(_ context.Context, doc *domain.Document) error {
	f.doc = doc
	return nil
}

func (f *repoFake) GetByID(context.Context, string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	copyDoc := *f.doc
	return &copyDoc, nil
}

func (f *repoFake) List(context.Context, int, int) ([]domain.Document, error) {
	return []domain.Document{*f.doc}, nil
}

func (f *repoFake) ListBetween(context.Context, *time.Time, *time.Time) ([]domain.Document, error) {
	return []domain.Document{*f.doc}, nil
}

func (f *repoFake) TransitionStatus(_ context.Context, _ string, from, to domain.DocumentStatus, _, detail string) error {
	if f.transitionErr != nil {
		return f.transitionErr
	}
	if f.doc.Status != from {
		if domain.IsInProgress(f.doc.Status) {
			return domain.ErrConcurrencyConflict
		}
		return domain.ErrInvalidStateTransition
	}
	if !domain.CanTransition(from, to) {
		return domain.ErrInvalidStateTransition
	}
	f.doc.Status = to
	f.transitions = append(f.transitions, transition{from: from, to: to, detail: detail})
	return nil
}

func (f *repoFake) SaveExtraction(_ context.Context, result *domain.ExtractionResult) error {
	if f.saveExtractErr != nil {
		return f.saveExtractErr
	}
	f.savedExtractions = append(f.savedExtractions, result)
	f.doc.Extraction = result
	return nil
}

func (f *repoFake) SaveValidation(_ context.Context, result *domain.ValidationResult) error {
	if f.saveValidateErr != nil {
		return f.saveValidateErr
	}
	f.savedValidations = append(f.savedValidations, result)
	f.doc.Validation = result
	return nil
}

func (f *repoFake) SaveSubmission(_ context.Context, result *domain.SubmissionResult) error {
	if f.saveSubmitErr != nil {
		return f.saveSubmitErr
	}
	f.savedSubmissions = append(f.savedSubmissions, result)
	f.doc.Submission = result
	return nil
}

func (f *repoFake) LatestSuccessfulSubmission(context.Context, string) (*domain.SubmissionResult, error) {
	if f.priorSubmitErr != nil {
		return nil, f.priorSubmitErr
	}
	return f.priorSubmission, nil
}

func (f *repoFake) AuditTrail(context.Context, string) ([]domain.AuditEntry, error) {
	entries := make([]domain.AuditEntry, 0, len(f.transitions))
	for i, tr := range f.transitions {
		entries = append(entries, domain.AuditEntry{
			DocumentID: f.doc.ID,
			Seq:        int64(i + 1),
			FromStatus: tr.from,
			ToStatus:   tr.to,
			Detail:     tr.detail,
		})
	}
	return entries, nil
}

type storageFake struct {
	saved   map[string][]byte
	openErr error
}

func newStorageFake() *storageFake {
	return &storageFake{saved: map[string][]byte{}}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) (int64, error) {
	raw, err := io.ReadAll(data)
	if err != nil {
		return 0, err
	}
	f.saved[key] = raw
	return int64(len(raw)), nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return io.NopCloser(bytes.NewReader(f.saved[key])), nil
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishDocumentUploaded(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *queueFake) SubscribeDocumentUploaded(context.Context, func(context.Context, string) error) error {
	return nil
}

type ocrFake struct {
	output domain.OCROutput
	err    error
}

func (f *ocrFake) Recognize(context.Context, string, string, io.Reader) (domain.OCROutput, error) {
	if f.err != nil {
		return domain.OCROutput{}, f.err
	}
	return f.output, nil
}

type accountingFake struct {
	remoteDocID    string
	bookingID      string
	createDocErr   error
	createEntryErr error

	createDocCalls   int
	createEntryCalls int
	lastBooking      ports.BookingRequest
}

func (f *accountingFake) CreateDocument(context.Context, string, io.Reader, map[string]string) (string, error) {
	f.createDocCalls++
	if f.createDocErr != nil {
		return "", f.createDocErr
	}
	return f.remoteDocID, nil
}

func (f *accountingFake) CreateEntry(_ context.Context, booking ports.BookingRequest) (string, error) {
	f.createEntryCalls++
	f.lastBooking = booking
	if f.createEntryErr != nil {
		return "", f.createEntryErr
	}
	return f.bookingID, nil
}
