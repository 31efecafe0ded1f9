package domain

import "time"

// SubmissionResult records one attempt to push the document to the accounting
// platform. At most one successful record may exist per document.
type SubmissionResult struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	// RemoteDocumentID is set as soon as the document upload succeeds, even
	// when the booking step later fails (partial success, resumable).
	RemoteDocumentID string    `json:"remote_document_id,omitempty"`
	RemoteBookingID  string    `json:"remote_booking_id,omitempty"`
	Success          bool      `json:"success"`
	Retryable        bool      `json:"retryable,omitempty"`
	ErrorDetail      string    `json:"error_detail,omitempty"`
	SubmittedAt      time.Time `json:"submitted_at"`
}
