package extract

import (
	"math"
	"testing"
)

func TestParseAmountLocales(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"€1.234,56", 1234.56},
		{"1.234,56", 1234.56},
		{"1,234.56", 1234.56},
		{"EUR 99,95", 99.95},
		{"123.45", 123.45},
		{"123,45", 123.45},
		{"12.345.678,90", 12345678.90},
		{"0,50", 0.50},
		{"21", 21},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if err != nil {
			t.Errorf("ParseAmount(%q) error = %v", tc.in, err)
			continue
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("ParseAmount(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseAmountRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", "€", "12,34,56abc"} {
		if _, err := ParseAmount(in); err == nil {
			t.Errorf("ParseAmount(%q) expected error", in)
		}
	}
}

func TestParseDateLayouts(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"15-03-2024", "2024-03-15"},
		{"2024-03-15", "2024-03-15"},
		{"15/03/2024", "2024-03-15"},
		{"15 March 2024", "2024-03-15"},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if err != nil {
			t.Errorf("ParseDate(%q) error = %v", tc.in, err)
			continue
		}
		if FormatDate(got) != tc.want {
			t.Errorf("ParseDate(%q) = %s, want %s", tc.in, FormatDate(got), tc.want)
		}
	}

	if _, err := ParseDate("not a date"); err == nil {
		t.Error("expected error for unparseable date")
	}
}
