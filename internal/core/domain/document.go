package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded     DocumentStatus = "uploaded"
	StatusExtracting   DocumentStatus = "extracting"
	StatusExtracted    DocumentStatus = "extracted"
	StatusValidating   DocumentStatus = "validating"
	StatusValidated    DocumentStatus = "validated"
	StatusRejected     DocumentStatus = "rejected"
	StatusSubmitting   DocumentStatus = "submitting"
	StatusSubmitted    DocumentStatus = "submitted"
	StatusSubmitFailed DocumentStatus = "submit_failed"
)

type Document struct {
	ID             string         `json:"id"`
	Filename       string         `json:"filename"`
	MimeType       string         `json:"mime_type"`
	StoragePath    string         `json:"storage_path"`
	FileSize       int64          `json:"file_size"`
	Status         DocumentStatus `json:"status"`
	Error          string         `json:"error,omitempty"`
	YukiDocumentID string         `json:"yuki_document_id,omitempty"`
	YukiBookingID  string         `json:"yuki_booking_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	// Current pipeline artifacts; nil until the corresponding stage has run.
	// A re-run supersedes the current record, prior ones stay in history.
	Extraction *ExtractionResult `json:"extraction,omitempty"`
	Validation *ValidationResult `json:"validation,omitempty"`
	Submission *SubmissionResult `json:"submission,omitempty"`

	AuditTrail []AuditEntry `json:"audit_trail,omitempty"`
}
