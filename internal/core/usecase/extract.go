package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wkamphuis/invoiceflow/internal/core/domain"
	"github.com/wkamphuis/invoiceflow/internal/core/extract"
	"github.com/wkamphuis/invoiceflow/internal/core/ports"
)

type ExtractDocumentUseCase struct {
	repo       ports.DocumentRepository
	storage    ports.ObjectStorage
	ocr        ports.OCRClient
	extractor  *extract.Extractor
	ocrTimeout time.Duration
	actor      string
}

func NewExtractDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	ocr ports.OCRClient,
	extractor *extract.Extractor,
	ocrTimeout time.Duration,
	actor string,
) *ExtractDocumentUseCase {
	if ocrTimeout <= 0 {
		ocrTimeout = 2 * time.Minute
	}
	if actor == "" {
		actor = domain.ActorSystem
	}
	return &ExtractDocumentUseCase{
		repo:       repo,
		storage:    storage,
		ocr:        ocr,
		extractor:  extractor,
		ocrTimeout: ocrTimeout,
		actor:      actor,
	}
}

// RunExtraction moves the document through EXTRACTING, runs OCR plus field
// mapping, and lands on EXTRACTED. On failure or cancellation the document is
// rolled back to the status the trigger found it in; it is never left stuck
// in the transient state.
func (uc *ExtractDocumentUseCase) RunExtraction(ctx context.Context, documentID string) (*domain.ExtractionResult, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}

	if domain.IsInProgress(doc.Status) {
		return nil, domain.WrapError(domain.ErrConcurrencyConflict, "run extraction",
			fmt.Errorf("document is %s", doc.Status))
	}

	prev := doc.Status
	if err := uc.repo.TransitionStatus(ctx, doc.ID, prev, domain.StatusExtracting, uc.actor, "extraction started"); err != nil {
		return nil, err
	}

	result, err := uc.runPipeline(ctx, doc)
	if err != nil {
		uc.rollback(ctx, doc.ID, prev, err)
		return nil, err
	}

	if err := uc.repo.SaveExtraction(ctx, result); err != nil {
		saveErr := fmt.Errorf("save extraction result: %w", err)
		uc.rollback(ctx, doc.ID, prev, saveErr)
		return nil, saveErr
	}

	detail := fmt.Sprintf("extraction completed, overall confidence %.2f", result.Overall)
	if err := uc.repo.TransitionStatus(ctx, doc.ID, domain.StatusExtracting, domain.StatusExtracted, uc.actor, detail); err != nil {
		return nil, fmt.Errorf("finish extraction: %w", err)
	}
	return result, nil
}

func (uc *ExtractDocumentUseCase) runPipeline(ctx context.Context, doc *domain.Document) (*domain.ExtractionResult, error) {
	reader, err := uc.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open stored document: %w", err)
	}
	defer reader.Close()

	ocrCtx, cancel := context.WithTimeout(ctx, uc.ocrTimeout)
	defer cancel()

	output, err := uc.ocr.Recognize(ocrCtx, doc.Filename, doc.MimeType, reader)
	if err != nil {
		return nil, domain.WrapError(domain.ErrOCRFailure, "recognize document", err)
	}
	if output.Text == "" {
		return nil, domain.WrapError(domain.ErrOCRFailure, "recognize document", errors.New("empty recognition output"))
	}

	fields := uc.extractor.Extract(output)
	return &domain.ExtractionResult{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		Fields:     fields,
		Overall:    uc.extractor.Aggregate(fields),
		Provider:   output.Provider,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// rollback restores the pre-trigger status. It must survive a cancelled
// request context, so it runs detached from the caller's cancellation.
func (uc *ExtractDocumentUseCase) rollback(ctx context.Context, documentID string, prev domain.DocumentStatus, cause error) {
	detail := cause.Error()
	if errors.Is(cause, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		detail = domain.DetailCancelled
	}

	rollbackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	_ = uc.repo.TransitionStatus(rollbackCtx, documentID, domain.StatusExtracting, prev, uc.actor, detail)
}
