package usecase

import (
	"context"
	"testing"

	"github.com/wkamphuis/invoiceflow/internal/core/domain"
	"github.com/wkamphuis/invoiceflow/internal/core/validate"
)

func extractedDoc() *domain.Document {
	return &domain.Document{
		ID:     "doc-1",
		Status: domain.StatusExtracted,
		Extraction: &domain.ExtractionResult{
			ID:         "ext-1",
			DocumentID: "doc-1",
			Fields: map[string]domain.FieldValue{
				domain.FieldVendorName:    {Value: "Acme Supplies B.V.", Present: true, Confidence: 0.9},
				domain.FieldInvoiceNumber: {Value: "INV-2024-0042", Present: true, Confidence: 0.9},
				domain.FieldInvoiceDate:   {Value: "2024-03-15", Present: true, Confidence: 0.9},
				domain.FieldTotalAmount:   {Value: "1234.56", Present: true, Confidence: 0.9},
			},
			Overall: 0.9,
		},
	}
}

func newValidateUC(repo *repoFake) *ValidateDocumentUseCase {
	return NewValidateDocumentUseCase(repo, validate.New(domain.InvoiceSchema(), 0.6), domain.ActorAPI)
}

func TestRunValidationPassMovesToValidated(t *testing.T) {
	repo := &repoFake{doc: extractedDoc()}

	result, err := newValidateUC(repo).RunValidation(context.Background(), "doc-1", nil)
	if err != nil {
		t.Fatalf("RunValidation() error = %v", err)
	}
	if !result.Passed {
		t.Fatalf("verdicts = %+v, want pass", result.Verdicts)
	}
	if repo.doc.Status != domain.StatusValidated {
		t.Errorf("status = %s, want %s", repo.doc.Status, domain.StatusValidated)
	}
	if len(repo.savedValidations) != 1 {
		t.Fatalf("saved %d validation results, want 1", len(repo.savedValidations))
	}
}

func TestRunValidationFailMovesToRejected(t *testing.T) {
	doc := extractedDoc()
	delete(doc.Extraction.Fields, domain.FieldInvoiceNumber)
	repo := &repoFake{doc: doc}

	result, err := newValidateUC(repo).RunValidation(context.Background(), "doc-1", nil)
	if err != nil {
		t.Fatalf("a failed verdict is a result, not an error; got %v", err)
	}
	if result.Passed {
		t.Fatal("expected overall fail")
	}
	if repo.doc.Status != domain.StatusRejected {
		t.Errorf("status = %s, want %s", repo.doc.Status, domain.StatusRejected)
	}
	last := repo.transitions[len(repo.transitions)-1]
	if last.detail == "" {
		t.Error("rejection transition must carry the reason summary")
	}
}

func TestRunValidationWithCorrectionsAfterReject(t *testing.T) {
	doc := extractedDoc()
	doc.Status = domain.StatusRejected
	doc.Extraction.Fields[domain.FieldInvoiceNumber] = domain.FieldValue{Value: "garbled", Present: true, Confidence: 0.1}
	repo := &repoFake{doc: doc}

	result, err := newValidateUC(repo).RunValidation(context.Background(), "doc-1", map[string]string{
		domain.FieldInvoiceNumber: "INV-2024-0042",
	})
	if err != nil {
		t.Fatalf("RunValidation() error = %v", err)
	}
	if !result.Passed {
		t.Fatalf("verdicts = %+v, want pass after correction", result.Verdicts)
	}
	if !result.Verdicts[domain.FieldInvoiceNumber].Corrected {
		t.Error("corrected flag should be set")
	}
	if repo.doc.Status != domain.StatusValidated {
		t.Errorf("status = %s, want %s", repo.doc.Status, domain.StatusValidated)
	}
}

func TestRunValidationWithoutExtractionFails(t *testing.T) {
	repo := &repoFake{doc: &domain.Document{ID: "doc-1", Status: domain.StatusUploaded}}

	_, err := newValidateUC(repo).RunValidation(context.Background(), "doc-1", nil)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRunValidationConcurrentTriggerConflicts(t *testing.T) {
	doc := extractedDoc()
	doc.Status = domain.StatusValidating
	repo := &repoFake{doc: doc}

	_, err := newValidateUC(repo).RunValidation(context.Background(), "doc-1", nil)
	if !domain.IsKind(err, domain.ErrConcurrencyConflict) {
		t.Fatalf("expected ErrConcurrencyConflict, got %v", err)
	}
}

func TestRunValidationNeverMutatesPriorResult(t *testing.T) {
	repo := &repoFake{doc: extractedDoc()}
	uc := newValidateUC(repo)

	first, err := uc.RunValidation(context.Background(), "doc-1", nil)
	if err != nil {
		t.Fatalf("first RunValidation() error = %v", err)
	}

	// Re-validate from VALIDATED with a correction; the first result must
	// stay untouched.
	second, err := uc.RunValidation(context.Background(), "doc-1", map[string]string{
		domain.FieldVendorName: "Corrected Vendor B.V.",
	})
	if err != nil {
		t.Fatalf("second RunValidation() error = %v", err)
	}
	if first.ID == second.ID {
		t.Error("each validation attempt must produce a distinct result")
	}
	if first.Verdicts[domain.FieldVendorName].Value != "Acme Supplies B.V." {
		t.Error("prior validation result was mutated")
	}
	if len(repo.savedValidations) != 2 {
		t.Fatalf("saved %d validation results, want 2", len(repo.savedValidations))
	}
}
