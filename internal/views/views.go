// Package views holds the read-only projections over the ledger store:
// one-shot snapshots and live watchers. A watcher channel emits an
// initial snapshot immediately, then a fresh snapshot after every
// committed write that affects its query; cancelling the context
// unsubscribes and closes the channel. Nothing here caches — every
// emission is a fresh store query.
package views

import (
	"context"

	"envelopebro/internal/core"
	"envelopebro/internal/log"
	"envelopebro/internal/storage"
)

type Registry struct {
	store  *storage.SQLiteRepository
	logger *log.Logger
}

func NewRegistry(store *storage.SQLiteRepository, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Registry{
		store:  store,
		logger: logger.WithComponent(log.ComponentViews),
	}
}

// Envelopes returns all envelopes, name ascending.
func (r *Registry) Envelopes(ctx context.Context) ([]core.Envelope, error) {
	return r.store.ListEnvelopes(ctx)
}

// Transactions returns the full feed, date descending.
func (r *Registry) Transactions(ctx context.Context) ([]core.Transaction, error) {
	return r.store.ListTransactions(ctx)
}

// EnvelopeTransactions returns one envelope's feed, date descending.
func (r *Registry) EnvelopeTransactions(ctx context.Context, envelopeID string) ([]core.Transaction, error) {
	return r.store.ListTransactionsForEnvelope(ctx, envelopeID)
}

// TotalIncome sums all income entries.
func (r *Registry) TotalIncome(ctx context.Context) (core.Money, error) {
	return r.store.SumIncome(ctx)
}

// EnvelopeBalance is the log-derived balance. It reconciles with the
// envelope's stored balance field under the engine's invariant.
func (r *Registry) EnvelopeBalance(ctx context.Context, envelopeID string) (core.Money, error) {
	return r.store.DerivedEnvelopeBalance(ctx, envelopeID)
}

// RawEnvelopeSum is the raw amount sum over an envelope's transactions,
// sign convention and all. Kept for feed-level aggregation; it is not
// the balance.
func (r *Registry) RawEnvelopeSum(ctx context.Context, envelopeID string) (core.Money, error) {
	return r.store.SumForEnvelope(ctx, envelopeID)
}

func (r *Registry) WatchEnvelopes(ctx context.Context) <-chan []core.Envelope {
	return watch(ctx, r,
		func(c storage.Change) bool { return c.Envelopes },
		r.Envelopes)
}

func (r *Registry) WatchTransactions(ctx context.Context) <-chan []core.Transaction {
	return watch(ctx, r,
		func(c storage.Change) bool { return c.Transactions },
		r.Transactions)
}

func (r *Registry) WatchEnvelopeTransactions(ctx context.Context, envelopeID string) <-chan []core.Transaction {
	return watch(ctx, r,
		func(c storage.Change) bool { return c.Transactions && containsID(c.EnvelopeIDs, envelopeID) },
		func(ctx context.Context) ([]core.Transaction, error) {
			return r.EnvelopeTransactions(ctx, envelopeID)
		})
}

func (r *Registry) WatchTotalIncome(ctx context.Context) <-chan core.Money {
	return watch(ctx, r,
		func(c storage.Change) bool { return c.Transactions },
		r.TotalIncome)
}

func (r *Registry) WatchEnvelopeBalance(ctx context.Context, envelopeID string) <-chan core.Money {
	return watch(ctx, r,
		func(c storage.Change) bool { return c.TouchesEnvelope(envelopeID) },
		func(ctx context.Context) (core.Money, error) {
			return r.EnvelopeBalance(ctx, envelopeID)
		})
}

// watch runs one subscription loop: initial snapshot, then re-query on
// every relevant change. Sends block until the consumer is ready, which
// in turn lets the store notifier coalesce bursts.
func watch[T any](ctx context.Context, r *Registry, relevant func(storage.Change) bool, query func(context.Context) (T, error)) <-chan T {
	out := make(chan T, 1)
	subID, changes := r.store.Watch()

	emit := func() bool {
		snapshot, err := query(ctx)
		if err != nil {
			if ctx.Err() == nil {
				r.logger.ErrorContext(ctx, "View query failed", log.FieldError, err)
			}
			return ctx.Err() == nil
		}
		select {
		case out <- snapshot:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(out)
		defer r.store.Unwatch(subID)

		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case c, ok := <-changes:
				if !ok {
					return
				}
				if !relevant(c) {
					continue
				}
				if !emit() {
					return
				}
			}
		}
	}()
	return out
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
