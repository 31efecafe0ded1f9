package domain

import "time"

// AuditEntry is one append-only lifecycle transition record. Entries are never
// edited or deleted; Seq increases monotonically per document.
type AuditEntry struct {
	DocumentID string         `json:"document_id"`
	Seq        int64          `json:"seq"`
	FromStatus DocumentStatus `json:"from_status"`
	ToStatus   DocumentStatus `json:"to_status"`
	Actor      string         `json:"actor"`
	Detail     string         `json:"detail,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

const (
	ActorSystem = "system"
	ActorWorker = "worker"
	ActorAPI    = "api"
)

// DetailCancelled is recorded when an in-progress operation was cancelled by
// the caller and the transient state was rolled back.
const DetailCancelled = "CANCELLED"
