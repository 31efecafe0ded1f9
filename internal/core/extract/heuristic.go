package extract

import (
	"regexp"
	"strings"

	"github.com/wkamphuis/invoiceflow/internal/core/domain"
)

// HeuristicMatcher locates invoice fields by Dutch/English label lookup with
// positional fallbacks, the patterns invoices from Benelux vendors actually
// carry. It implements LabelMatcher for label-less OCR providers.
type HeuristicMatcher struct{}

func NewHeuristicMatcher() *HeuristicMatcher { return &HeuristicMatcher{} }

var (
	reInvoiceNumber = regexp.MustCompile(`(?i)(?:factuur|invoice)\s*(?:nummer|number)?\s*[:#=]?\s*([A-Z0-9][A-Z0-9-]+)`)
	reTotalAmount   = regexp.MustCompile(`(?i)(?:totaal|total)\s*(?:bedrag|amount|incl\.?\s*(?:btw|vat))?\s*[:=]?\s*(?:€|EUR)?\s*([\d.,]*\d[.,]\d{2})`)
	reVATAmount     = regexp.MustCompile(`(?i)(?:btw|vat)\s*(?:bedrag|amount)?\s*[:=]?\s*(?:€|EUR)?\s*([\d.,]*\d[.,]\d{2})`)
	reVATPercent    = regexp.MustCompile(`(?i)(?:btw|vat)\s*(?:percentage|rate)?\s*[:=]?\s*(\d+[.,]?\d*)\s*%`)
	reIBAN          = regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{10,30}\b`)

	reDateCandidates = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{2}[-/]\d{2}[-/]\d{4}\b`),
		regexp.MustCompile(`\b\d{4}[-/]\d{2}[-/]\d{2}\b`),
		regexp.MustCompile(`\b\d{1,2}\s+[A-Za-z]+\s+\d{4}\b`),
	}

	vendorSuffixes = []string{"B.V.", "N.V.", " BV", " NV", " LLC", " INC", " GMBH", " LTD"}
)

func (m *HeuristicMatcher) Locate(text string, field domain.FieldSpec) (string, bool) {
	switch field.Name {
	case domain.FieldVendorName:
		return locateVendor(text)
	case domain.FieldInvoiceNumber:
		return firstGroup(reInvoiceNumber, text)
	case domain.FieldInvoiceDate:
		return locateDate(text)
	case domain.FieldTotalAmount:
		return firstGroup(reTotalAmount, text)
	case domain.FieldVATAmount:
		return firstGroup(reVATAmount, text)
	case domain.FieldVATPercentage:
		return firstGroup(reVATPercent, text)
	case domain.FieldIBAN:
		if match := reIBAN.FindString(text); match != "" {
			return match, true
		}
		return "", false
	case domain.FieldDescription:
		return locateDescription(text)
	default:
		return "", false
	}
}

func firstGroup(re *regexp.Regexp, text string) (string, bool) {
	if groups := re.FindStringSubmatch(text); len(groups) > 1 {
		return groups[1], true
	}
	return "", false
}

// locateVendor scans the top of the document for a legal-form suffix; vendor
// names overwhelmingly head the invoice.
func locateVendor(text string) (string, bool) {
	lines := strings.Split(text, "\n")
	if len(lines) > 5 {
		lines = lines[:5]
	}
	for _, line := range lines {
		upper := strings.ToUpper(line)
		for _, suffix := range vendorSuffixes {
			if strings.Contains(upper, suffix) {
				return strings.TrimSpace(line), true
			}
		}
	}
	return "", false
}

func locateDate(text string) (string, bool) {
	for _, re := range reDateCandidates {
		if match := re.FindString(text); match != "" {
			return match, true
		}
	}
	return "", false
}

// locateDescription picks the first free-text line that is not a label or an
// amount row.
func locateDescription(text string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) <= 10 {
			continue
		}
		lower := strings.ToLower(trimmed)
		if strings.Contains(lower, "total") || strings.Contains(lower, "totaal") ||
			strings.Contains(lower, "btw") || strings.Contains(lower, "vat") ||
			strings.Contains(lower, "factuur") || strings.Contains(lower, "invoice") {
			continue
		}
		return trimmed, true
	}
	return "", false
}
