package extract

import (
	"strings"

	"github.com/wkamphuis/invoiceflow/internal/core/domain"
)

// Scorer turns provider confidence signals and local plausibility checks into
// normalized per-field scores. It is deterministic and side-effect free so
// extraction re-runs over identical OCR input reproduce identical scores.
type Scorer struct {
	// neutral is used when neither the provider nor a plausibility check
	// yields a signal for a field.
	neutral float64
}

func NewScorer(neutral float64) *Scorer {
	if neutral < 0 || neutral > 1 {
		neutral = 0.5
	}
	return &Scorer{neutral: neutral}
}

// signal is an optional score in [0,1]; ok=false means no signal available.
type signal struct {
	value float64
	ok    bool
}

// ScoreField combines the provider signal with the local plausibility check.
// With both present the provider and the parser share the verdict equally;
// with one present it stands alone; with neither the neutral default applies.
func (s *Scorer) ScoreField(provider, plausibility signal) float64 {
	switch {
	case provider.ok && plausibility.ok:
		return clamp01(0.5*provider.value + 0.5*plausibility.value)
	case provider.ok:
		return clamp01(provider.value)
	case plausibility.ok:
		return clamp01(plausibility.value)
	default:
		return s.neutral
	}
}

// providerSignal derives a field-level provider confidence from the raw OCR
// output: the mean word confidence over the source span's tokens when
// available, the document-level confidence otherwise.
func (s *Scorer) providerSignal(ocr domain.OCROutput, source string) signal {
	if len(ocr.Words) > 0 && source != "" {
		var sum float64
		var n int
		for _, token := range strings.Fields(source) {
			if conf, ok := ocr.Words[token]; ok {
				sum += conf
				n++
			}
		}
		if n > 0 {
			return signal{value: sum / float64(n), ok: true}
		}
	}
	if ocr.OverallConfidence >= 0 {
		return signal{value: ocr.OverallConfidence, ok: true}
	}
	return signal{}
}

// Aggregate is the weighted mean over required fields only. A required field
// that is absent scores 0 but keeps its weight, penalizing missing data.
func (s *Scorer) Aggregate(fields map[string]domain.FieldValue, schema domain.Schema) float64 {
	var weighted, total float64
	for _, spec := range schema.RequiredFields() {
		weight := spec.Weight
		if weight <= 0 {
			weight = 1
		}
		total += weight
		if fv, ok := fields[spec.Name]; ok && fv.Present {
			weighted += weight * fv.Confidence
		}
	}
	if total == 0 {
		return 0
	}
	return clamp01(weighted / total)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
