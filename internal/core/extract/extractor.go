package extract

import (
	"github.com/wkamphuis/invoiceflow/internal/core/domain"
)

// LabelMatcher locates the raw text for one schema field in OCR output. It is
// the provider-specific part of extraction; swapping OCR providers means
// swapping the matcher, not the extractor.
type LabelMatcher interface {
	Locate(text string, field domain.FieldSpec) (raw string, ok bool)
}

// Extractor maps OCR output onto the invoice schema. Unrecognized OCR content
// is discarded; a field that fails type coercion is kept with an empty value
// and zero confidence rather than aborting the run.
type Extractor struct {
	schema  domain.Schema
	matcher LabelMatcher
	scorer  *Scorer
}

func NewExtractor(schema domain.Schema, matcher LabelMatcher, scorer *Scorer) *Extractor {
	return &Extractor{schema: schema, matcher: matcher, scorer: scorer}
}

// Extract is pure: identifiers and timestamps are assigned by the caller when
// the result is persisted.
func (e *Extractor) Extract(ocr domain.OCROutput) map[string]domain.FieldValue {
	fields := make(map[string]domain.FieldValue, len(e.schema.Fields))

	for _, spec := range e.schema.Fields {
		raw, found := e.matcher.Locate(ocr.Text, spec)
		if !found {
			fields[spec.Name] = domain.FieldValue{}
			continue
		}

		value, plausibility := coerce(spec, raw)
		if value == "" {
			// Coercion failed: keep provenance, zero the confidence.
			fields[spec.Name] = domain.FieldValue{Present: true, Source: raw}
			continue
		}

		provider := e.scorer.providerSignal(ocr, raw)
		fields[spec.Name] = domain.FieldValue{
			Value:      value,
			Present:    true,
			Confidence: e.scorer.ScoreField(provider, plausibility),
			Source:     raw,
		}
	}

	return fields
}

func (e *Extractor) Aggregate(fields map[string]domain.FieldValue) float64 {
	return e.scorer.Aggregate(fields, e.schema)
}

// coerce normalizes the raw span into the field's canonical representation.
// The plausibility signal reflects how convincingly the raw text parsed;
// plain text fields carry no signal of their own.
func coerce(spec domain.FieldSpec, raw string) (string, signal) {
	switch spec.Type {
	case domain.FieldTypeNumber:
		value, err := ParseAmount(raw)
		if err != nil {
			return "", signal{value: 0, ok: true}
		}
		return formatAmount(value), signal{value: 1, ok: true}
	case domain.FieldTypeDate:
		date, err := ParseDate(raw)
		if err != nil {
			return "", signal{value: 0, ok: true}
		}
		return FormatDate(date), signal{value: 1, ok: true}
	default:
		return raw, signal{}
	}
}
