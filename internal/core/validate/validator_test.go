package validate

import (
	"testing"

	"github.com/wkamphuis/invoiceflow/internal/core/domain"
)

func extraction(fields map[string]domain.FieldValue) *domain.ExtractionResult {
	return &domain.ExtractionResult{DocumentID: "doc-1", Fields: fields}
}

func goodFields() map[string]domain.FieldValue {
	return map[string]domain.FieldValue{
		domain.FieldVendorName:    {Value: "Acme Supplies B.V.", Present: true, Confidence: 0.9},
		domain.FieldInvoiceNumber: {Value: "INV-2024-0042", Present: true, Confidence: 0.9},
		domain.FieldInvoiceDate:   {Value: "2024-03-15", Present: true, Confidence: 0.9},
		domain.FieldTotalAmount:   {Value: "1234.56", Present: true, Confidence: 0.9},
		domain.FieldVATAmount:     {Value: "214.56", Present: true, Confidence: 0.9},
		domain.FieldVATPercentage: {Value: "21.00", Present: true, Confidence: 0.9},
		domain.FieldIBAN:          {Value: "NL91ABNA0417164300", Present: true, Confidence: 0.9},
	}
}

func TestValidatePasses(t *testing.T) {
	v := New(domain.InvoiceSchema(), 0.6)
	result := v.Validate(extraction(goodFields()), nil)

	if !result.Passed {
		t.Fatalf("expected pass, verdicts: %+v", result.Verdicts)
	}
	if !result.Verdicts[domain.FieldTotalAmount].Accepted {
		t.Fatal("total amount should be accepted")
	}
}

func TestMissingRequiredFailsOverall(t *testing.T) {
	fields := goodFields()
	delete(fields, domain.FieldInvoiceNumber)

	v := New(domain.InvoiceSchema(), 0.6)
	result := v.Validate(extraction(fields), nil)

	if result.Passed {
		t.Fatal("missing required field must fail the overall verdict")
	}
	verdict := result.Verdicts[domain.FieldInvoiceNumber]
	if verdict.Accepted || verdict.Reason != domain.ReasonMissingRequired {
		t.Fatalf("verdict = %+v, want MISSING_REQUIRED", verdict)
	}
}

func TestReasonPrecedencePresenceBeatsRange(t *testing.T) {
	// An absent amount fails both presence and range; presence must win.
	fields := goodFields()
	fields[domain.FieldTotalAmount] = domain.FieldValue{}

	v := New(domain.InvoiceSchema(), 0.6)
	result := v.Validate(extraction(fields), nil)

	if got := result.Verdicts[domain.FieldTotalAmount].Reason; got != domain.ReasonMissingRequired {
		t.Fatalf("reason = %s, want MISSING_REQUIRED", got)
	}
}

func TestLowConfidenceRejectsCorrectValue(t *testing.T) {
	fields := goodFields()
	fields[domain.FieldVendorName] = domain.FieldValue{Value: "Acme Supplies B.V.", Present: true, Confidence: 0.2}

	v := New(domain.InvoiceSchema(), 0.6)
	result := v.Validate(extraction(fields), nil)

	verdict := result.Verdicts[domain.FieldVendorName]
	if verdict.Accepted || verdict.Reason != domain.ReasonLowConfidence {
		t.Fatalf("verdict = %+v, want LOW_CONFIDENCE", verdict)
	}
	if result.Passed {
		t.Fatal("low-confidence required field must fail the overall verdict")
	}
}

func TestCorrectionSkipsConfidenceRule(t *testing.T) {
	fields := goodFields()
	fields[domain.FieldVendorName] = domain.FieldValue{Value: "garbled", Present: true, Confidence: 0.1}

	v := New(domain.InvoiceSchema(), 0.6)
	result := v.Validate(extraction(fields), map[string]string{
		domain.FieldVendorName: "Acme Supplies B.V.",
	})

	verdict := result.Verdicts[domain.FieldVendorName]
	if !verdict.Accepted {
		t.Fatalf("corrected value should be accepted, got %+v", verdict)
	}
	if !verdict.Corrected || verdict.Value != "Acme Supplies B.V." {
		t.Fatalf("verdict should carry the corrected value, got %+v", verdict)
	}
}

func TestTypeMismatchOnCorrectedValue(t *testing.T) {
	v := New(domain.InvoiceSchema(), 0.6)
	result := v.Validate(extraction(goodFields()), map[string]string{
		domain.FieldTotalAmount: "twelve euro",
	})

	verdict := result.Verdicts[domain.FieldTotalAmount]
	if verdict.Accepted || verdict.Reason != domain.ReasonTypeMismatch {
		t.Fatalf("verdict = %+v, want TYPE_MISMATCH", verdict)
	}
}

func TestRangeRules(t *testing.T) {
	cases := []struct {
		field string
		value string
		want  domain.RejectReason
	}{
		{domain.FieldTotalAmount, "0.00", domain.ReasonOutOfRange},
		{domain.FieldTotalAmount, "-5.00", domain.ReasonOutOfRange},
		{domain.FieldVATPercentage, "150", domain.ReasonOutOfRange},
		{domain.FieldVATAmount, "-1.00", domain.ReasonOutOfRange},
	}
	v := New(domain.InvoiceSchema(), 0.6)
	for _, tc := range cases {
		result := v.Validate(extraction(goodFields()), map[string]string{tc.field: tc.value})
		verdict := result.Verdicts[tc.field]
		if verdict.Accepted || verdict.Reason != tc.want {
			t.Errorf("%s=%q verdict = %+v, want %s", tc.field, tc.value, verdict, tc.want)
		}
	}
}

func TestOptionalFieldFailureDoesNotFailOverall(t *testing.T) {
	fields := goodFields()
	fields[domain.FieldIBAN] = domain.FieldValue{Value: "not-an-iban", Present: true, Confidence: 0.9}

	v := New(domain.InvoiceSchema(), 0.6)
	result := v.Validate(extraction(fields), nil)

	verdict := result.Verdicts[domain.FieldIBAN]
	if verdict.Accepted || verdict.Reason != domain.ReasonInvalidFormat {
		t.Fatalf("verdict = %+v, want INVALID_FORMAT", verdict)
	}
	if !result.Passed {
		t.Fatal("optional field failure must not fail the overall verdict")
	}
}

func TestValidateDoesNotMutateExtraction(t *testing.T) {
	fields := goodFields()
	ext := extraction(fields)

	v := New(domain.InvoiceSchema(), 0.6)
	_ = v.Validate(ext, map[string]string{domain.FieldVendorName: "Changed BV"})

	if ext.Fields[domain.FieldVendorName].Value != "Acme Supplies B.V." {
		t.Fatal("validation must never mutate the extraction result")
	}
}
