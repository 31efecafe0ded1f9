package domain

import "time"

// FieldValue is one extracted field. A value that failed type coercion is
// stored with Value="" and Confidence=0, never as a partial value.
type FieldValue struct {
	Value      string  `json:"value"`
	Present    bool    `json:"present"`
	Confidence float64 `json:"confidence"`
	// Source is the OCR text span the value was read from, when known.
	Source string `json:"source,omitempty"`
}

// ExtractionResult is immutable once persisted; re-running extraction creates
// a new result that supersedes the current one.
type ExtractionResult struct {
	ID         string                `json:"id"`
	DocumentID string                `json:"document_id"`
	Fields     map[string]FieldValue `json:"fields"`
	// Overall is the weighted mean confidence over required fields.
	Overall   float64   `json:"overall_confidence"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *ExtractionResult) Field(name string) FieldValue {
	if r == nil {
		return FieldValue{}
	}
	return r.Fields[name]
}

// OCROutput is the raw recognizer output handed to the field extractor.
type OCROutput struct {
	// Provider names the recognizer that produced the output.
	Provider string
	Text     string
	// OverallConfidence is the provider's document-level confidence in [0,1],
	// negative when the provider reports none.
	OverallConfidence float64
	// Words carries per-word provider confidence in [0,1] keyed by the
	// recognized token, empty when the provider reports none.
	Words map[string]float64
}
