package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransactionType tags a ledger entry as income, a transfer into an
// envelope, or a spend from one.
type TransactionType string

const (
	TypeIncome   TransactionType = "INCOME"
	TypeTransfer TransactionType = "ENVELOPE_TRANSFER"
	TypeExpense  TransactionType = "EXPENSE"
)

// ParseTransactionType validates a stored type string.
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(s); t {
	case TypeIncome, TypeTransfer, TypeExpense:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unknown transaction type %q", ErrStorage, s)
	}
}

type (
	// Envelope is a named spending bucket. Balance is a materialized
	// view over the transaction log; only the accounting engine moves it.
	Envelope struct {
		ID      string
		Name    string
		Balance Money
		Color   int
	}

	// Transaction is an immutable ledger entry. Amount is signed:
	// income is positive, transfers and expenses are stored negative.
	// EnvelopeID is empty for income (the unallocated pool).
	Transaction struct {
		ID          string
		Amount      Money
		Type        TransactionType
		EnvelopeID  string
		Description string
		Date        time.Time
	}
)

// NewEnvelope creates an envelope with a zero starting balance.
func NewEnvelope(name string, color int) (Envelope, error) {
	if strings.TrimSpace(name) == "" {
		return Envelope{}, ErrEmptyName
	}
	return Envelope{
		ID:    uuid.NewString(),
		Name:  name,
		Color: color,
	}, nil
}

// NewIncome records money entering the unallocated pool. The amount is
// stored positive and no envelope balance is affected.
func NewIncome(amount Money, description string) (Transaction, error) {
	if err := amount.Validate(); err != nil {
		return Transaction{}, err
	}
	return Transaction{
		ID:          uuid.NewString(),
		Amount:      amount,
		Type:        TypeIncome,
		Description: description,
		Date:        time.Now(),
	}, nil
}

// NewTransfer records an allocation from the unallocated pool into an
// envelope. The log entry is a debit (negative) against the pool even
// though the envelope's balance goes up by the same magnitude.
func NewTransfer(envelopeID string, amount Money, description string) (Transaction, error) {
	if err := amount.Validate(); err != nil {
		return Transaction{}, err
	}
	return Transaction{
		ID:          uuid.NewString(),
		Amount:      amount.Neg(),
		Type:        TypeTransfer,
		EnvelopeID:  envelopeID,
		Description: description,
		Date:        time.Now(),
	}, nil
}

// NewExpense records a spend from an envelope. The log entry and the
// balance delta share their negative sign.
func NewExpense(envelopeID string, amount Money, description string) (Transaction, error) {
	if err := amount.Validate(); err != nil {
		return Transaction{}, err
	}
	return Transaction{
		ID:          uuid.NewString(),
		Amount:      amount.Neg(),
		Type:        TypeExpense,
		EnvelopeID:  envelopeID,
		Description: description,
		Date:        time.Now(),
	}, nil
}

// BalanceDelta returns the change this transaction applies to its
// envelope's stored balance. Income never touches an envelope. Note the
// deliberate asymmetry: a transfer's delta is the negation of its stored
// amount, an expense's delta equals it.
func (t Transaction) BalanceDelta() Money {
	switch t.Type {
	case TypeTransfer:
		return t.Amount.Neg()
	case TypeExpense:
		return t.Amount
	default:
		return Money{}
	}
}
