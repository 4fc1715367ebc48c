// Package worker mirrors committed ledger entries to the export backend
// and periodically repairs stored balances against the log.
package worker

import (
	"context"
	"errors"
	"fmt"

	"envelopebro/internal/amqp"
	"envelopebro/internal/core"
	"envelopebro/internal/export"
	"envelopebro/internal/ledger"
	"envelopebro/internal/log"
	"envelopebro/internal/storage"
)

type SyncWorker struct {
	storage   *storage.SQLiteRepository
	writer    export.TransactionWriter
	deleter   export.TransactionDeleter
	engine    *ledger.Service
	batchSize int
	logger    *log.Logger
}

func NewSyncWorker(store *storage.SQLiteRepository, writer export.TransactionWriter, deleter export.TransactionDeleter, engine *ledger.Service, batchSize int, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SyncWorker{
		storage:   store,
		writer:    writer,
		deleter:   deleter,
		engine:    engine,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleMessage processes one ledger message from the queue.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.LedgerMessage) error {
	switch msg.Kind {
	case amqp.KindSync:
		return w.handleSync(ctx, msg.TransactionID)
	case amqp.KindDelete:
		return w.handleDelete(ctx, msg.TransactionID)
	default:
		w.logger.WarnContext(ctx, "Dropping message with unknown kind",
			"kind", msg.Kind,
			log.FieldTransactionID, msg.TransactionID)
		return nil
	}
}

func (w *SyncWorker) handleSync(ctx context.Context, transactionID string) error {
	tx, err := w.storage.GetTransaction(ctx, transactionID)
	if errors.Is(err, core.ErrTransactionNotFound) {
		// Deleted before the sync message was consumed; nothing to mirror.
		w.logger.WarnContext(ctx, "Transaction gone before sync",
			log.FieldTransactionID, transactionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}
	return w.exportTransaction(ctx, tx)
}

func (w *SyncWorker) handleDelete(ctx context.Context, transactionID string) error {
	if w.deleter == nil {
		w.logger.WarnContext(ctx, "No deleter configured, skipping export deletion",
			log.FieldTransactionID, transactionID)
		return nil
	}
	// Best-effort: the local ledger already reversed the entry; an
	// append-only mirror that cannot drop rows must not requeue forever.
	if err := w.deleter.Delete(ctx, transactionID); err != nil {
		w.logger.WarnContext(ctx, "Export deletion failed",
			log.FieldTransactionID, transactionID,
			log.FieldError, err)
	}
	return nil
}

// ProcessPending exports any transactions the queue missed. This is the
// backup path for lost messages.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.PendingSyncTransactions(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	w.logger.InfoContext(ctx, "Processing pending transactions",
		log.FieldOperation, log.OpSync,
		log.FieldCount, len(pending))

	for _, tx := range pending {
		if err := w.exportTransaction(ctx, tx); err != nil {
			w.logger.ErrorContext(ctx, "Failed to export transaction",
				log.FieldTransactionID, tx.ID,
				log.FieldError, err)
		}
	}
	return nil
}

// StartupSyncCheck drains a larger pending batch once at boot, covering
// downtime between worker runs.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.PendingSyncTransactions(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending transactions for startup check: %w", err)
	}
	if len(pending) == 0 {
		w.logger.InfoContext(ctx, "No pending transactions found on startup",
			log.FieldOperation, log.OpStartup)
		return nil
	}

	successCount := 0
	errorCount := 0
	for _, tx := range pending {
		if err := w.exportTransaction(ctx, tx); err != nil {
			w.logger.ErrorContext(ctx, "Failed to export transaction during startup",
				log.FieldTransactionID, tx.ID,
				log.FieldError, err)
			errorCount++
			continue
		}
		successCount++
	}

	w.logger.InfoContext(ctx, "Startup sync completed",
		log.FieldOperation, log.OpStartup,
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)
	return nil
}

// ReconcileBalances runs the engine's balance repair pass.
func (w *SyncWorker) ReconcileBalances(ctx context.Context) error {
	if w.engine == nil {
		return nil
	}
	drifts, err := w.engine.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("reconcile balances: %w", err)
	}
	if len(drifts) > 0 {
		w.logger.WarnContext(ctx, "Balance reconciliation repaired drift",
			log.FieldOperation, log.OpReconcile,
			log.FieldCount, len(drifts))
	}
	return nil
}

func (w *SyncWorker) exportTransaction(ctx context.Context, tx core.Transaction) error {
	envelopeName := ""
	if tx.EnvelopeID != "" {
		env, err := w.storage.GetEnvelope(ctx, tx.EnvelopeID)
		if err == nil {
			envelopeName = env.Name
		} else if !errors.Is(err, core.ErrEnvelopeNotFound) {
			return fmt.Errorf("resolve envelope name: %w", err)
		}
	}

	ref, err := w.writer.Append(ctx, tx, envelopeName)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, tx.ID); markErr != nil {
			w.logger.ErrorContext(ctx, "Failed to mark sync error",
				log.FieldTransactionID, tx.ID,
				log.FieldError, markErr)
		}
		return fmt.Errorf("append to export backend: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, tx.ID); err != nil {
		// The export itself worked; only the bookkeeping failed.
		w.logger.ErrorContext(ctx, "Failed to mark as synced",
			log.FieldTransactionID, tx.ID,
			log.FieldError, err)
	}

	w.logger.InfoContext(ctx, "Exported transaction",
		log.FieldOperation, log.OpSync,
		log.FieldTransactionID, tx.ID,
		log.FieldExportRef, ref,
		log.FieldAmountCents, tx.Amount.Cents)
	return nil
}
