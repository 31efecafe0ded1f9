package extract

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseAmount parses a monetary amount with either European ("1.234,56") or
// Anglo ("1,234.56") separators, tolerating a leading currency sign.
func ParseAmount(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimLeft(s, "€$£ ")
	s = strings.TrimPrefix(s, "EUR")
	s = strings.TrimSpace(strings.TrimRight(s, "€$£ "))
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma > lastDot:
		// European: comma is the decimal separator, dots group thousands.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastDot > lastComma:
		// Anglo: commas group thousands.
		s = strings.ReplaceAll(s, ",", "")
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	return value, nil
}

// formatAmount renders an amount in the canonical two-decimal form used by
// stored field values and the accounting payload.
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

var dateLayouts = []string{
	"02-01-2006",
	"02/01/2006",
	"2006-01-02",
	"2006/01/02",
	"2 January 2006",
	"02 January 2006",
}

// ParseDate accepts the date shapes seen on Dutch and English invoices and
// normalizes to a calendar date.
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// FormatDate renders a date the way the accounting platform expects it.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
