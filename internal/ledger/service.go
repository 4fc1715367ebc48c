// Package ledger is the accounting engine: the only code path allowed
// to mutate ledger state. Every operation that writes both a transaction
// and a balance does so inside a single storage batch, so the balance
// invariant holds after every successful call and no partial write
// survives a failure.
package ledger

import (
	"context"
	"fmt"

	"envelopebro/internal/core"
	"envelopebro/internal/log"
	"envelopebro/internal/storage"
)

// Publisher is the async side of the export pipeline. Publishing is
// best-effort: the local commit is authoritative and publish failures
// are logged, never surfaced to the caller.
type Publisher interface {
	PublishSync(ctx context.Context, transactionID string) error
	PublishDelete(ctx context.Context, transactionID string) error
}

// Options tunes engine policy.
type Options struct {
	// AllowOverspend restores the permissive behavior where spends may
	// drive an envelope balance negative. Off by default; the engine is
	// the only trusted gate for this check.
	AllowOverspend bool
}

type Service struct {
	store     *storage.SQLiteRepository
	publisher Publisher
	logger    *log.Logger
	opts      Options
}

func NewService(store *storage.SQLiteRepository, publisher Publisher, logger *log.Logger, opts Options) *Service {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Service{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentLedger),
		opts:      opts,
	}
}

// CreateEnvelope adds an empty envelope. No transaction is recorded.
func (s *Service) CreateEnvelope(ctx context.Context, name string, color int) (core.Envelope, error) {
	env, err := core.NewEnvelope(name, color)
	if err != nil {
		return core.Envelope{}, err
	}
	if err := s.store.PutEnvelope(ctx, env); err != nil {
		return core.Envelope{}, err
	}
	s.logger.InfoContext(ctx, "Envelope created",
		log.FieldOperation, log.OpCreate,
		log.FieldEnvelopeID, env.ID,
		log.FieldEnvelopeName, env.Name)
	return env, nil
}

// UpdateEnvelope replaces name and color. The stored balance is reloaded
// inside the batch so this operation can never move money.
func (s *Service) UpdateEnvelope(ctx context.Context, env core.Envelope) error {
	if _, err := core.NewEnvelope(env.Name, env.Color); err != nil {
		return err
	}
	err := s.store.WithTx(ctx, func(b *storage.Tx) error {
		current, err := b.GetEnvelope(ctx, env.ID)
		if err != nil {
			return err
		}
		env.Balance = current.Balance
		return b.PutEnvelope(ctx, env)
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Envelope updated",
		log.FieldOperation, log.OpUpdate,
		log.FieldEnvelopeID, env.ID,
		log.FieldEnvelopeName, env.Name)
	return nil
}

// DeleteEnvelope removes an envelope. Deletion is refused while any
// transaction still references it; delete or reverse those first.
func (s *Service) DeleteEnvelope(ctx context.Context, id string) error {
	err := s.store.WithTx(ctx, func(b *storage.Tx) error {
		if _, err := b.GetEnvelope(ctx, id); err != nil {
			return err
		}
		n, err := b.CountTransactionsForEnvelope(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %d remaining", core.ErrEnvelopeNotEmpty, n)
		}
		return b.DeleteEnvelope(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Envelope deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldEnvelopeID, id)
	return nil
}

// RecordIncome logs money entering the unallocated pool. No envelope
// balance is touched; income stays unallocated until transferred.
func (s *Service) RecordIncome(ctx context.Context, amount core.Money, description string) (core.Transaction, error) {
	tx, err := core.NewIncome(amount, description)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := s.store.InsertTransaction(ctx, tx); err != nil {
		return core.Transaction{}, err
	}
	s.logger.InfoContext(ctx, "Income recorded",
		log.FieldOperation, log.OpIncome,
		log.FieldTransactionID, tx.ID,
		log.FieldAmountCents, tx.Amount.Cents)
	s.publishSync(ctx, tx.ID)
	return tx, nil
}

// TransferToEnvelope moves money from the unallocated pool into an
// envelope: one transfer entry in the log plus the balance credit, as a
// single batch.
func (s *Service) TransferToEnvelope(ctx context.Context, envelopeID string, amount core.Money, description string) (core.Transaction, error) {
	tx, err := core.NewTransfer(envelopeID, amount, description)
	if err != nil {
		return core.Transaction{}, err
	}
	err = s.store.WithTx(ctx, func(b *storage.Tx) error {
		if err := b.InsertTransaction(ctx, tx); err != nil {
			return err
		}
		return b.AdjustEnvelopeBalance(ctx, envelopeID, tx.BalanceDelta())
	})
	if err != nil {
		return core.Transaction{}, err
	}
	s.logger.InfoContext(ctx, "Transfer recorded",
		log.FieldOperation, log.OpTransfer,
		log.FieldTransactionID, tx.ID,
		log.FieldEnvelopeID, envelopeID,
		log.FieldAmountCents, tx.Amount.Cents)
	s.publishSync(ctx, tx.ID)
	return tx, nil
}

// SpendFromEnvelope records an expense against an envelope: one expense
// entry plus the balance debit, as a single batch. Unless overspend is
// allowed, the spend must fit the stored balance.
func (s *Service) SpendFromEnvelope(ctx context.Context, envelopeID string, amount core.Money, description string) (core.Transaction, error) {
	tx, err := core.NewExpense(envelopeID, amount, description)
	if err != nil {
		return core.Transaction{}, err
	}
	err = s.store.WithTx(ctx, func(b *storage.Tx) error {
		env, err := b.GetEnvelope(ctx, envelopeID)
		if err != nil {
			return err
		}
		if !s.opts.AllowOverspend && env.Balance.Cents < amount.Cents {
			return fmt.Errorf("%w: have %s, want %s", core.ErrInsufficientFunds, env.Balance, amount)
		}
		if err := b.InsertTransaction(ctx, tx); err != nil {
			return err
		}
		return b.AdjustEnvelopeBalance(ctx, envelopeID, tx.BalanceDelta())
	})
	if err != nil {
		return core.Transaction{}, err
	}
	s.logger.InfoContext(ctx, "Expense recorded",
		log.FieldOperation, log.OpSpend,
		log.FieldTransactionID, tx.ID,
		log.FieldEnvelopeID, envelopeID,
		log.FieldAmountCents, tx.Amount.Cents)
	s.publishSync(ctx, tx.ID)
	return tx, nil
}

// DeleteTransaction removes a ledger entry and applies the inverse
// balance delta in the same batch, so deletion is a real reversal
// rather than a silent hole in the log.
func (s *Service) DeleteTransaction(ctx context.Context, id string) error {
	err := s.store.WithTx(ctx, func(b *storage.Tx) error {
		tx, err := b.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if err := b.DeleteTransaction(ctx, id); err != nil {
			return err
		}
		if delta := tx.BalanceDelta(); !delta.IsZero() {
			return b.AdjustEnvelopeBalance(ctx, tx.EnvelopeID, delta.Neg())
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldTransactionID, id)
	s.publishDelete(ctx, id)
	return nil
}

// Drift is one envelope whose stored balance disagreed with the log.
type Drift struct {
	EnvelopeID string
	Name       string
	Stored     core.Money
	Derived    core.Money
}

// Reconcile treats every stored balance as a materialized view and
// repairs it from the log. Returns the envelopes that had drifted; an
// empty result means the invariant held everywhere.
func (s *Service) Reconcile(ctx context.Context) ([]Drift, error) {
	envelopes, err := s.store.ListEnvelopes(ctx)
	if err != nil {
		return nil, err
	}

	var drifts []Drift
	err = s.store.WithTx(ctx, func(b *storage.Tx) error {
		for _, env := range envelopes {
			derived, err := b.DerivedEnvelopeBalance(ctx, env.ID)
			if err != nil {
				return err
			}
			if derived == env.Balance {
				continue
			}
			drifts = append(drifts, Drift{
				EnvelopeID: env.ID,
				Name:       env.Name,
				Stored:     env.Balance,
				Derived:    derived,
			})
			fixed := env
			fixed.Balance = derived
			if err := b.PutEnvelope(ctx, fixed); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, d := range drifts {
		s.logger.WarnContext(ctx, "Repaired drifted envelope balance",
			log.FieldOperation, log.OpReconcile,
			log.FieldEnvelopeID, d.EnvelopeID,
			log.FieldEnvelopeName, d.Name,
			log.FieldDriftCents, d.Stored.Cents-d.Derived.Cents)
	}
	return drifts, nil
}

func (s *Service) publishSync(ctx context.Context, transactionID string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishSync(ctx, transactionID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish sync message",
			log.FieldTransactionID, transactionID,
			log.FieldError, err)
	}
}

func (s *Service) publishDelete(ctx context.Context, transactionID string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishDelete(ctx, transactionID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish delete message",
			log.FieldTransactionID, transactionID,
			log.FieldError, err)
	}
}
