package domain

import "time"

type RejectReason string

const (
	ReasonMissingRequired RejectReason = "MISSING_REQUIRED"
	ReasonLowConfidence   RejectReason = "LOW_CONFIDENCE"
	ReasonTypeMismatch    RejectReason = "TYPE_MISMATCH"
	ReasonInvalidFormat   RejectReason = "INVALID_FORMAT"
	ReasonOutOfRange      RejectReason = "OUT_OF_RANGE"
)

// FieldVerdict is the outcome of the rule chain for one field. The first
// failing rule wins, so Reason is always the highest-precedence failure.
type FieldVerdict struct {
	Accepted bool         `json:"accepted"`
	Reason   RejectReason `json:"reason,omitempty"`
	// Value is the accepted value, which differs from the extracted one when
	// the caller supplied a correction.
	Value     string `json:"value,omitempty"`
	Corrected bool   `json:"corrected,omitempty"`
}

type ValidationResult struct {
	ID          string                  `json:"id"`
	DocumentID  string                  `json:"document_id"`
	Verdicts    map[string]FieldVerdict `json:"verdicts"`
	Passed      bool                    `json:"passed"`
	ValidatedBy string                  `json:"validated_by"`
	CreatedAt   time.Time               `json:"created_at"`
}

// AcceptedFields returns the validated values keyed by field name, for
// submission to the accounting platform.
func (r *ValidationResult) AcceptedFields() map[string]string {
	out := make(map[string]string, len(r.Verdicts))
	for name, v := range r.Verdicts {
		if v.Accepted && v.Value != "" {
			out[name] = v.Value
		}
	}
	return out
}
