package core

import (
	"errors"
	"testing"
)

func TestNewEnvelope(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		env, err := NewEnvelope("Groceries", 3)
		if err != nil {
			t.Fatalf("NewEnvelope returned error: %v", err)
		}
		if env.ID == "" {
			t.Error("envelope should get a generated id")
		}
		if env.Balance.Cents != 0 {
			t.Errorf("new envelope balance = %d, want 0", env.Balance.Cents)
		}
	})

	t.Run("blank name", func(t *testing.T) {
		for _, name := range []string{"", "   ", "\t"} {
			if _, err := NewEnvelope(name, 0); !errors.Is(err, ErrEmptyName) {
				t.Errorf("NewEnvelope(%q) error = %v, want ErrEmptyName", name, err)
			}
		}
	})
}

func TestSignConvention(t *testing.T) {
	amount := Money{Cents: 4000}

	t.Run("income", func(t *testing.T) {
		tx, err := NewIncome(amount, "Paycheck")
		if err != nil {
			t.Fatalf("NewIncome: %v", err)
		}
		if tx.Amount.Cents != 4000 {
			t.Errorf("income stored amount = %d, want +4000", tx.Amount.Cents)
		}
		if tx.EnvelopeID != "" {
			t.Errorf("income envelope id = %q, want empty", tx.EnvelopeID)
		}
		if delta := tx.BalanceDelta(); !delta.IsZero() {
			t.Errorf("income balance delta = %d, want 0", delta.Cents)
		}
	})

	t.Run("transfer is logged negative but credits the envelope", func(t *testing.T) {
		tx, err := NewTransfer("env-1", amount, "Budget")
		if err != nil {
			t.Fatalf("NewTransfer: %v", err)
		}
		if tx.Amount.Cents != -4000 {
			t.Errorf("transfer stored amount = %d, want -4000", tx.Amount.Cents)
		}
		if delta := tx.BalanceDelta(); delta.Cents != 4000 {
			t.Errorf("transfer balance delta = %d, want +4000", delta.Cents)
		}
	})

	t.Run("expense shares sign with its balance delta", func(t *testing.T) {
		tx, err := NewExpense("env-1", amount, "Milk")
		if err != nil {
			t.Fatalf("NewExpense: %v", err)
		}
		if tx.Amount.Cents != -4000 {
			t.Errorf("expense stored amount = %d, want -4000", tx.Amount.Cents)
		}
		if delta := tx.BalanceDelta(); delta.Cents != -4000 {
			t.Errorf("expense balance delta = %d, want -4000", delta.Cents)
		}
	})

	t.Run("non-positive amounts rejected", func(t *testing.T) {
		for _, cents := range []int64{0, -5} {
			if _, err := NewIncome(Money{Cents: cents}, "x"); !errors.Is(err, ErrInvalidAmount) {
				t.Errorf("NewIncome(%d) error = %v, want ErrInvalidAmount", cents, err)
			}
			if _, err := NewTransfer("e", Money{Cents: cents}, "x"); !errors.Is(err, ErrInvalidAmount) {
				t.Errorf("NewTransfer(%d) error = %v, want ErrInvalidAmount", cents, err)
			}
			if _, err := NewExpense("e", Money{Cents: cents}, "x"); !errors.Is(err, ErrInvalidAmount) {
				t.Errorf("NewExpense(%d) error = %v, want ErrInvalidAmount", cents, err)
			}
		}
	})
}

func TestParseTransactionType(t *testing.T) {
	for _, s := range []string{"INCOME", "ENVELOPE_TRANSFER", "EXPENSE"} {
		if _, err := ParseTransactionType(s); err != nil {
			t.Errorf("ParseTransactionType(%q) returned error: %v", s, err)
		}
	}
	if _, err := ParseTransactionType("REFUND"); !errors.Is(err, ErrStorage) {
		t.Errorf("unknown type error = %v, want ErrStorage", err)
	}
}

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		err  error
		kind error
	}{
		{ErrInvalidAmount, ErrValidation},
		{ErrEmptyName, ErrValidation},
		{ErrInsufficientFunds, ErrValidation},
		{ErrEnvelopeNotEmpty, ErrValidation},
		{ErrEnvelopeNotFound, ErrNotFound},
		{ErrTransactionNotFound, ErrNotFound},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.kind) {
			t.Errorf("%v should wrap %v", tc.err, tc.kind)
		}
	}
	if IsValidation(ErrEnvelopeNotFound) {
		t.Error("not-found must not classify as validation")
	}
	if !IsNotFound(ErrTransactionNotFound) {
		t.Error("IsNotFound(ErrTransactionNotFound) = false")
	}
}
