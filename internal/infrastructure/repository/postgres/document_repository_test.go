package postgres

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/wkamphuis/invoiceflow/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &DocumentRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, filename, mime_type, storage_path").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDLoadsCurrentArtifacts(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, filename, mime_type, storage_path").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "filename", "mime_type", "storage_path", "file_size",
			"status", "error_message", "yuki_document_id", "yuki_booking_id",
			"created_at", "updated_at",
		}).AddRow("doc-1", "invoice.pdf", "application/pdf", "doc-1/invoice.pdf", int64(1024),
			"extracted", "", "", "", now, now))

	mock.ExpectQuery("FROM extraction_results").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "document_id", "fields", "overall_confidence", "provider", "created_at",
		}).AddRow("ex-1", "doc-1", []byte(`{"total_amount":{"value":"1234.56","present":true,"confidence":0.9}}`),
			0.9, "tesseract", now))

	mock.ExpectQuery("FROM validation_results").
		WithArgs("doc-1").
		WillReturnError(sql.ErrNoRows)

	mock.ExpectQuery("FROM submissions").
		WithArgs("doc-1").
		WillReturnError(sql.ErrNoRows)

	doc, err := repo.GetByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if doc.Status != domain.StatusExtracted {
		t.Fatalf("status = %s, want extracted", doc.Status)
	}
	if doc.Extraction == nil || doc.Extraction.Field("total_amount").Value != "1234.56" {
		t.Fatalf("extraction not loaded: %+v", doc.Extraction)
	}
	if doc.Validation != nil || doc.Submission != nil {
		t.Fatalf("expected nil validation/submission")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTransitionStatusRejectsIllegalEdgeWithoutTouchingDB(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	err := repo.TransitionStatus(context.Background(), "doc-1",
		domain.StatusUploaded, domain.StatusSubmitted, domain.ActorWorker, "")
	if !domain.IsKind(err, domain.ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTransitionStatusCommitsSwapAndAuditEntry(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE documents").
		WithArgs("doc-1", "uploaded", "extracting", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO audit_log").
		WithArgs("doc-1", "uploaded", "extracting", domain.ActorWorker, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.TransitionStatus(context.Background(), "doc-1",
		domain.StatusUploaded, domain.StatusExtracting, domain.ActorWorker, "")
	if err != nil {
		t.Fatalf("TransitionStatus() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTransitionStatusCASMissMapsToConcurrencyConflict(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE documents").
		WithArgs("doc-1", "uploaded", "extracting", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM documents").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("extracting"))
	mock.ExpectRollback()

	err := repo.TransitionStatus(context.Background(), "doc-1",
		domain.StatusUploaded, domain.StatusExtracting, domain.ActorWorker, "")
	if !domain.IsKind(err, domain.ErrConcurrencyConflict) {
		t.Fatalf("expected ErrConcurrencyConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTransitionStatusCASMissMapsToInvalidTransition(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE documents").
		WithArgs("doc-1", "validated", "submitting", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM documents").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("submitted"))
	mock.ExpectRollback()

	err := repo.TransitionStatus(context.Background(), "doc-1",
		domain.StatusValidated, domain.StatusSubmitting, domain.ActorAPI, "")
	if !domain.IsKind(err, domain.ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTransitionStatusCASMissOnMissingDocument(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE documents").
		WithArgs("ghost", "uploaded", "extracting", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM documents").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.TransitionStatus(context.Background(), "ghost",
		domain.StatusUploaded, domain.StatusExtracting, domain.ActorWorker, "")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveExtractionSupersedesCurrentRecord(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE extraction_results SET is_current").
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO extraction_results").
		WithArgs("ex-2", "doc-1", sqlmock.AnyArg(), 0.75, "tesseract", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.SaveExtraction(context.Background(), &domain.ExtractionResult{
		ID:         "ex-2",
		DocumentID: "doc-1",
		Fields: map[string]domain.FieldValue{
			"vendor_name": {Value: "Acme B.V.", Present: true, Confidence: 0.8},
		},
		Overall:   0.75,
		Provider:  "tesseract",
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("SaveExtraction() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveSubmissionRecordsRemoteIDsOnPartialSuccess(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE submissions SET is_current").
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO submissions").
		WithArgs("sub-1", "doc-1", "yuki-doc-9", "", false, true, "entry failed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE documents SET yuki_document_id").
		WithArgs("doc-1", "yuki-doc-9", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.SaveSubmission(context.Background(), &domain.SubmissionResult{
		ID:               "sub-1",
		DocumentID:       "doc-1",
		RemoteDocumentID: "yuki-doc-9",
		Success:          false,
		Retryable:        true,
		ErrorDetail:      "entry failed",
		SubmittedAt:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("SaveSubmission() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLatestSuccessfulSubmissionReturnsNilWhenNeverSubmitted(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("FROM submissions").
		WithArgs("doc-1").
		WillReturnError(sql.ErrNoRows)

	sub, err := repo.LatestSuccessfulSubmission(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("LatestSuccessfulSubmission() error = %v", err)
	}
	if sub != nil {
		t.Fatalf("expected nil, got %+v", sub)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAuditTrailOrderedBySeq(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectQuery("FROM audit_log").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"document_id", "seq", "from_status", "to_status", "actor", "detail", "occurred_at",
		}).
			AddRow("doc-1", int64(1), "", "uploaded", domain.ActorAPI, "", now).
			AddRow("doc-1", int64(2), "uploaded", "extracting", domain.ActorWorker, "", now))

	entries, err := repo.AuditTrail(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("AuditTrail() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[1].Seq != 2 || entries[1].ToStatus != domain.StatusExtracting {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDRejectsUnknownPersistedStatus(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, filename, mime_type, storage_path").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "filename", "mime_type", "storage_path", "file_size",
			"status", "error_message", "yuki_document_id", "yuki_booking_id",
			"created_at", "updated_at",
		}).AddRow("doc-1", "invoice.pdf", "application/pdf", "doc-1/invoice.pdf", int64(1024),
			"archived", "", "", "", now, now))

	_, err := repo.GetByID(context.Background(), "doc-1")
	if err == nil || !strings.Contains(err.Error(), "unknown status") {
		t.Fatalf("expected unknown-status error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
