package validate

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/wkamphuis/invoiceflow/internal/core/domain"
)

// Validator applies the per-field rule chain to an extraction result, merged
// with caller-supplied corrections. Rule order fixes reason precedence:
// presence, then confidence, then type/format, then range. The first failing
// rule determines the field's rejection reason.
type Validator struct {
	schema domain.Schema
	// minConfidence rejects uncorrected fields scored below it, regardless
	// of value correctness.
	minConfidence float64
}

func New(schema domain.Schema, minConfidence float64) *Validator {
	return &Validator{schema: schema, minConfidence: minConfidence}
}

// Validate never mutates the extraction; every call produces a fresh result.
// Corrections override extracted values and skip the confidence rule, since a
// corrected value has been human-reviewed by definition.
func (v *Validator) Validate(extraction *domain.ExtractionResult, corrections map[string]string) *domain.ValidationResult {
	verdicts := make(map[string]domain.FieldVerdict, len(v.schema.Fields))
	passed := true

	for _, spec := range v.schema.Fields {
		verdict := v.checkField(spec, extraction.Field(spec.Name), corrections)
		verdicts[spec.Name] = verdict
		if !verdict.Accepted && spec.Required {
			passed = false
		}
	}

	return &domain.ValidationResult{
		DocumentID: extraction.DocumentID,
		Verdicts:   verdicts,
		Passed:     passed,
	}
}

func (v *Validator) checkField(spec domain.FieldSpec, extracted domain.FieldValue, corrections map[string]string) domain.FieldVerdict {
	value := extracted.Value
	corrected := false
	if override, ok := corrections[spec.Name]; ok {
		value = strings.TrimSpace(override)
		corrected = true
	}

	// Presence first.
	if value == "" {
		if spec.Required {
			return domain.FieldVerdict{Reason: domain.ReasonMissingRequired}
		}
		// An absent optional field is vacuously accepted.
		return domain.FieldVerdict{Accepted: true}
	}

	// Confidence next, for machine-extracted values only.
	if !corrected && extracted.Confidence < v.minConfidence {
		return domain.FieldVerdict{Reason: domain.ReasonLowConfidence}
	}

	// Type and format.
	if reason, ok := checkType(spec, value); !ok {
		return domain.FieldVerdict{Reason: reason}
	}

	// Range and business rules last.
	if reason, ok := checkRange(spec, value); !ok {
		return domain.FieldVerdict{Reason: reason}
	}

	return domain.FieldVerdict{Accepted: true, Value: value, Corrected: corrected}
}

var (
	reCanonicalDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	reIBANFormat    = regexp.MustCompile(`^[A-Z]{2}\d{2}[A-Z0-9]{10,30}$`)
)

func checkType(spec domain.FieldSpec, value string) (domain.RejectReason, bool) {
	switch spec.Type {
	case domain.FieldTypeNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return domain.ReasonTypeMismatch, false
		}
	case domain.FieldTypeDate:
		if !reCanonicalDate.MatchString(value) {
			return domain.ReasonTypeMismatch, false
		}
	case domain.FieldTypeText:
		if spec.Name == domain.FieldIBAN && !reIBANFormat.MatchString(strings.ToUpper(value)) {
			return domain.ReasonInvalidFormat, false
		}
	}
	return "", true
}

func checkRange(spec domain.FieldSpec, value string) (domain.RejectReason, bool) {
	switch spec.Name {
	case domain.FieldTotalAmount:
		if amount, _ := strconv.ParseFloat(value, 64); amount <= 0 {
			return domain.ReasonOutOfRange, false
		}
	case domain.FieldVATAmount:
		if amount, _ := strconv.ParseFloat(value, 64); amount < 0 {
			return domain.ReasonOutOfRange, false
		}
	case domain.FieldVATPercentage:
		if pct, _ := strconv.ParseFloat(value, 64); pct < 0 || pct > 100 {
			return domain.ReasonOutOfRange, false
		}
	}
	return "", true
}
