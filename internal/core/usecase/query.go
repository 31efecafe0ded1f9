package usecase

import (
	"context"
	"fmt"

	"github.com/wkamphuis/invoiceflow/internal/core/domain"
	"github.com/wkamphuis/invoiceflow/internal/core/ports"
)

// QueryUseCase is the read side: document snapshots with their current
// pipeline artifacts and full audit history.
type QueryUseCase struct {
	repo ports.DocumentRepository
}

func NewQueryUseCase(repo ports.DocumentRepository) *QueryUseCase {
	return &QueryUseCase{repo: repo}
}

func (uc *QueryUseCase) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}
	trail, err := uc.repo.AuditTrail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch audit trail: %w", err)
	}
	doc.AuditTrail = trail
	return doc, nil
}

func (uc *QueryUseCase) ListDocuments(ctx context.Context, offset, limit int) ([]domain.Document, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	docs, err := uc.repo.List(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}
