package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wkamphuis/invoiceflow/internal/core/domain"
	"github.com/wkamphuis/invoiceflow/internal/core/ports"
	"github.com/wkamphuis/invoiceflow/internal/core/validate"
)

type ValidateDocumentUseCase struct {
	repo      ports.DocumentRepository
	validator *validate.Validator
	actor     string
}

func NewValidateDocumentUseCase(repo ports.DocumentRepository, validator *validate.Validator, actor string) *ValidateDocumentUseCase {
	if actor == "" {
		actor = domain.ActorAPI
	}
	return &ValidateDocumentUseCase{repo: repo, validator: validator, actor: actor}
}

// RunValidation applies the rule chain to the current extraction merged with
// caller corrections. The document lands on VALIDATED or REJECTED; a failed
// overall verdict is a normal outcome, not an error.
func (uc *ValidateDocumentUseCase) RunValidation(ctx context.Context, documentID string, corrections map[string]string) (*domain.ValidationResult, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	if doc.Extraction == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "run validation", errors.New("document has no extraction result"))
	}
	if domain.IsInProgress(doc.Status) {
		return nil, domain.WrapError(domain.ErrConcurrencyConflict, "run validation",
			fmt.Errorf("document is %s", doc.Status))
	}

	prev := doc.Status
	if err := uc.repo.TransitionStatus(ctx, doc.ID, prev, domain.StatusValidating, uc.actor, "validation started"); err != nil {
		return nil, err
	}

	result := uc.validator.Validate(doc.Extraction, corrections)
	result.ID = uuid.NewString()
	result.ValidatedBy = uc.actor
	result.CreatedAt = time.Now().UTC()

	if err := uc.repo.SaveValidation(ctx, result); err != nil {
		saveErr := fmt.Errorf("save validation result: %w", err)
		uc.rollback(ctx, doc.ID, prev, saveErr)
		return nil, saveErr
	}

	next := domain.StatusValidated
	detail := "all required fields accepted"
	if !result.Passed {
		next = domain.StatusRejected
		detail = "rejected: " + rejectionSummary(result)
	}
	if err := uc.repo.TransitionStatus(ctx, doc.ID, domain.StatusValidating, next, uc.actor, detail); err != nil {
		return nil, fmt.Errorf("finish validation: %w", err)
	}
	return result, nil
}

func (uc *ValidateDocumentUseCase) rollback(ctx context.Context, documentID string, prev domain.DocumentStatus, cause error) {
	detail := cause.Error()
	if errors.Is(cause, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		detail = domain.DetailCancelled
	}

	rollbackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	_ = uc.repo.TransitionStatus(rollbackCtx, documentID, domain.StatusValidating, prev, uc.actor, detail)
}

func rejectionSummary(result *domain.ValidationResult) string {
	var parts []string
	for name, verdict := range result.Verdicts {
		if !verdict.Accepted {
			parts = append(parts, fmt.Sprintf("%s=%s", name, verdict.Reason))
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
