package core

import (
	"errors"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	valid := []struct {
		in    string
		cents int64
	}{
		{"12.34", 1234},
		{"12,34", 1234},
		{"12", 1200},
		{"0.01", 1},
		{".50", 50},
		{"12.3", 1230},
		{"12.345", 1234}, // half-up rounds down
		{"12.346", 1235}, // half-up rounds up
		{" 7.00 ", 700},
	}
	for _, tc := range valid {
		t.Run(tc.in, func(t *testing.T) {
			m, err := ParseDecimalToCents(tc.in)
			if err != nil {
				t.Fatalf("ParseDecimalToCents(%q) returned error: %v", tc.in, err)
			}
			if m.Cents != tc.cents {
				t.Errorf("ParseDecimalToCents(%q) = %d cents, want %d", tc.in, m.Cents, tc.cents)
			}
		})
	}

	invalid := []string{"", "0", "0.00", "-5", "+5", "abc", "1.2.3", "12..3", "1a.50"}
	for _, in := range invalid {
		t.Run("invalid_"+in, func(t *testing.T) {
			if _, err := ParseDecimalToCents(in); !errors.Is(err, ErrInvalidAmount) {
				t.Errorf("ParseDecimalToCents(%q) error = %v, want ErrInvalidAmount", in, err)
			}
		})
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 100}).Validate(); err != nil {
		t.Errorf("positive amount should validate, got %v", err)
	}
	if err := (Money{}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero amount should fail with ErrInvalidAmount, got %v", err)
	}
	if err := (Money{Cents: -1}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative amount should fail with ErrInvalidAmount, got %v", err)
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := Money{Cents: 1500}
	b := Money{Cents: -700}

	if got := a.Add(b); got.Cents != 800 {
		t.Errorf("Add = %d, want 800", got.Cents)
	}
	if got := a.Neg(); got.Cents != -1500 {
		t.Errorf("Neg = %d, want -1500", got.Cents)
	}
	if !(Money{}).IsZero() || a.IsZero() {
		t.Error("IsZero misreported")
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{1234, "12.34"},
		{-1234, "-12.34"},
		{5, "0.05"},
		{0, "0.00"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).String(); got != tc.want {
			t.Errorf("Money{%d}.String() = %q, want %q", tc.cents, got, tc.want)
		}
	}
}
