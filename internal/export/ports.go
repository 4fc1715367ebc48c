// Package export defines the outbound ports for mirroring the
// transaction log to an external backend, plus the adapters that
// implement them.
package export

import (
	"context"

	"envelopebro/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionWriter appends one ledger entry to the backend.
	// envelopeName is resolved by the caller ("" for income) so the
	// backend never needs to dereference envelope ids.
	TransactionWriter interface {
		Append(ctx context.Context, tx core.Transaction, envelopeName string) (rowRef string, err error)
	}

	// TransactionDeleter removes a previously exported entry.
	TransactionDeleter interface {
		Delete(ctx context.Context, transactionID string) error
	}
)
