package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/wkamphuis/invoiceflow/internal/core/domain"
	"github.com/wkamphuis/invoiceflow/internal/core/ports"
)

type SubmitDocumentUseCase struct {
	repo       ports.DocumentRepository
	storage    ports.ObjectStorage
	accounting ports.AccountingClient
	timeout    time.Duration
	actor      string
}

func NewSubmitDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	accounting ports.AccountingClient,
	timeout time.Duration,
	actor string,
) *SubmitDocumentUseCase {
	if timeout <= 0 {
		timeout = time.Minute
	}
	if actor == "" {
		actor = domain.ActorAPI
	}
	return &SubmitDocumentUseCase{
		repo:       repo,
		storage:    storage,
		accounting: accounting,
		timeout:    timeout,
		actor:      actor,
	}
}

// Submit pushes a validated document to the accounting platform: document
// upload first, booking second. The idempotency guard runs before any remote
// call; a retry after a partial failure reuses the remote document id already
// obtained and resumes at the booking step.
func (uc *SubmitDocumentUseCase) Submit(ctx context.Context, documentID string) (*domain.SubmissionResult, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}

	existing, err := uc.repo.LatestSuccessfulSubmission(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("check prior submissions: %w", err)
	}
	if existing != nil {
		return nil, domain.WrapError(domain.ErrAlreadySubmitted, "submit document",
			fmt.Errorf("remote document %s, booking %s", existing.RemoteDocumentID, existing.RemoteBookingID))
	}

	if doc.Validation == nil || !doc.Validation.Passed {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit document",
			errors.New("document has no passing validation result"))
	}
	if domain.IsInProgress(doc.Status) {
		return nil, domain.WrapError(domain.ErrConcurrencyConflict, "submit document",
			fmt.Errorf("document is %s", doc.Status))
	}

	if err := uc.repo.TransitionStatus(ctx, doc.ID, doc.Status, domain.StatusSubmitting, uc.actor, "submission started"); err != nil {
		return nil, err
	}

	result := uc.push(ctx, doc)
	result.ID = uuid.NewString()
	result.DocumentID = doc.ID
	result.SubmittedAt = time.Now().UTC()

	// The remote calls are behind us; persisting the outcome and leaving the
	// transient state must not depend on the caller still being around.
	resolveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := uc.repo.SaveSubmission(resolveCtx, result); err != nil {
		saveErr := fmt.Errorf("save submission result: %w", err)
		_ = uc.repo.TransitionStatus(resolveCtx, doc.ID, domain.StatusSubmitting, domain.StatusSubmitFailed, uc.actor, saveErr.Error())
		return nil, saveErr
	}

	if result.Success {
		detail := fmt.Sprintf("submitted: remote document %s, booking %s", result.RemoteDocumentID, result.RemoteBookingID)
		if err := uc.repo.TransitionStatus(resolveCtx, doc.ID, domain.StatusSubmitting, domain.StatusSubmitted, uc.actor, detail); err != nil {
			return nil, fmt.Errorf("finish submission: %w", err)
		}
		return result, nil
	}

	if err := uc.repo.TransitionStatus(resolveCtx, doc.ID, domain.StatusSubmitting, domain.StatusSubmitFailed, uc.actor, result.ErrorDetail); err != nil {
		return nil, fmt.Errorf("record submission failure: %w", err)
	}
	return result, nil
}

// push performs the two remote calls and always returns a result; failure is
// captured as data so partial progress (an uploaded remote document without a
// booking) survives for a later resume.
func (uc *SubmitDocumentUseCase) push(ctx context.Context, doc *domain.Document) *domain.SubmissionResult {
	callCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	remoteDocID := priorRemoteDocumentID(doc)
	if remoteDocID == "" {
		reader, err := uc.storage.Open(callCtx, doc.StoragePath)
		if err != nil {
			return failedResult(ctx, "", fmt.Errorf("open stored document: %w", err))
		}
		defer reader.Close()

		remoteDocID, err = uc.accounting.CreateDocument(callCtx, doc.Filename, reader, documentMetadata(doc))
		if err != nil {
			return failedResult(ctx, "", err)
		}
	}

	booking, err := buildBooking(remoteDocID, doc.Validation)
	if err != nil {
		return failedResult(ctx, remoteDocID, err)
	}

	bookingID, err := uc.accounting.CreateEntry(callCtx, booking)
	if err != nil {
		return failedResult(ctx, remoteDocID, err)
	}

	return &domain.SubmissionResult{
		RemoteDocumentID: remoteDocID,
		RemoteBookingID:  bookingID,
		Success:          true,
	}
}

// priorRemoteDocumentID returns the remote document id from an earlier failed
// attempt, if any, so the retry resumes at the booking step.
func priorRemoteDocumentID(doc *domain.Document) string {
	if doc.Submission != nil && !doc.Submission.Success {
		return doc.Submission.RemoteDocumentID
	}
	return ""
}

func failedResult(ctx context.Context, remoteDocID string, cause error) *domain.SubmissionResult {
	detail := cause.Error()
	if errors.Is(cause, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		detail = domain.DetailCancelled
	}
	return &domain.SubmissionResult{
		RemoteDocumentID: remoteDocID,
		Success:          false,
		Retryable:        domain.IsRetryable(cause),
		ErrorDetail:      detail,
	}
}

func documentMetadata(doc *domain.Document) map[string]string {
	fields := doc.Validation.AcceptedFields()
	return map[string]string{
		"name":        doc.Filename,
		"description": fields[domain.FieldDescription],
		"date":        fields[domain.FieldInvoiceDate],
		"type":        "Invoice",
	}
}

func buildBooking(remoteDocID string, validation *domain.ValidationResult) (ports.BookingRequest, error) {
	fields := validation.AcceptedFields()

	amount, err := strconv.ParseFloat(fields[domain.FieldTotalAmount], 64)
	if err != nil {
		return ports.BookingRequest{}, fmt.Errorf("parse validated total amount: %w", err)
	}
	vatAmount, _ := strconv.ParseFloat(fields[domain.FieldVATAmount], 64)
	vatPct, _ := strconv.ParseFloat(fields[domain.FieldVATPercentage], 64)

	return ports.BookingRequest{
		RemoteDocumentID: remoteDocID,
		Date:             fields[domain.FieldInvoiceDate],
		Description:      fields[domain.FieldDescription],
		VendorName:       fields[domain.FieldVendorName],
		InvoiceNumber:    fields[domain.FieldInvoiceNumber],
		Amount:           amount,
		VATAmount:        vatAmount,
		VATPercentage:    vatPct,
		IBAN:             fields[domain.FieldIBAN],
	}, nil
}
