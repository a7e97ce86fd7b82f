package money

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseDecimal(t *testing.T) {
	value, err := ParseDecimal(" 6,500.25 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !value.Equal(decimal.RequireFromString("6500.25")) {
		t.Fatalf("unexpected value %s", value)
	}
	if _, err := ParseDecimal(""); !errors.Is(err, ErrEmptyAmount) {
		t.Fatalf("expected empty amount, got %v", err)
	}
	if _, err := ParseDecimal("12a"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}

func TestParseOptional(t *testing.T) {
	value, err := ParseOptional("  ")
	if err != nil || value != nil {
		t.Fatalf("expected nil value, got %v %v", value, err)
	}
	value, err = ParseOptional("3")
	if err != nil || value == nil || !value.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("unexpected optional value %v %v", value, err)
	}
}

func TestFormat(t *testing.T) {
	if got := FormatGrams(decimal.RequireFromString("9.16")); got != "9.160" {
		t.Fatalf("unexpected grams %s", got)
	}
	if got := FormatAmount(decimal.NewFromInt(54960)); got != "54960.00" {
		t.Fatalf("unexpected amount %s", got)
	}
}

func TestFormatNeverRounds(t *testing.T) {
	cases := []struct {
		value string
		grams string
	}{
		{"5.12345", "5.12345"},
		{"5.1", "5.100"},
		{"-1", "-1.000"},
		{"0.0005", "0.0005"},
	}
	for _, tc := range cases {
		if got := FormatGrams(decimal.RequireFromString(tc.value)); got != tc.grams {
			t.Fatalf("FormatGrams(%s) = %s, want %s", tc.value, got, tc.grams)
		}
	}
	if got := FormatAmount(decimal.RequireFromString("33301.425")); got != "33301.425" {
		t.Fatalf("unexpected amount %s", got)
	}
}
