package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every error surfaced by the ledger wraps exactly one of
// these three, so callers can classify with errors.Is and decide how to
// present the failure.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrStorage    = errors.New("storage failure")
)

var (
	ErrInvalidAmount       = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrEmptyName           = fmt.Errorf("%w: name must not be blank", ErrValidation)
	ErrInsufficientFunds   = fmt.Errorf("%w: amount exceeds envelope balance", ErrValidation)
	ErrEnvelopeNotEmpty    = fmt.Errorf("%w: envelope still has transactions", ErrValidation)
	ErrEnvelopeNotFound    = fmt.Errorf("envelope %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
)

// IsValidation reports whether err is a caller-input error.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsNotFound reports whether err means a referenced record is absent.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsStorage reports whether err comes from the persistence layer.
func IsStorage(err error) bool { return errors.Is(err, ErrStorage) }
