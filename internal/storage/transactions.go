package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"envelopebro/internal/core"
)

const transactionColumns = `id, amount_cents, type, envelope_id, description, created_at`

// ListTransactions returns the full feed, newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return queryTransactions(ctx, r.db,
		`SELECT `+transactionColumns+` FROM transactions ORDER BY created_at DESC, id DESC`)
}

// ListTransactionsForEnvelope returns the feed for one envelope, newest first.
func (r *SQLiteRepository) ListTransactionsForEnvelope(ctx context.Context, envelopeID string) ([]core.Transaction, error) {
	return queryTransactions(ctx, r.db,
		`SELECT `+transactionColumns+` FROM transactions WHERE envelope_id = ? ORDER BY created_at DESC, id DESC`,
		envelopeID)
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	return getTransaction(ctx, r.db, id)
}

func (r *SQLiteRepository) InsertTransaction(ctx context.Context, tx core.Transaction) error {
	if err := insertTransaction(ctx, r.db, tx); err != nil {
		return err
	}
	r.notifier.Publish(Change{Transactions: true, EnvelopeIDs: envelopeRef(tx)})
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	tx, err := getTransaction(ctx, r.db, id)
	if err != nil {
		return err
	}
	if err := deleteTransaction(ctx, r.db, id); err != nil {
		return err
	}
	r.notifier.Publish(Change{Transactions: true, EnvelopeIDs: envelopeRef(tx)})
	return nil
}

// SumIncome sums all INCOME amounts; an empty log sums to 0.
func (r *SQLiteRepository) SumIncome(ctx context.Context) (core.Money, error) {
	return sumQuery(ctx, r.db,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM transactions WHERE type = ?`,
		string(core.TypeIncome))
}

// SumForEnvelope sums raw stored amounts for one envelope. Because of
// the sign convention this is not the envelope's balance; see
// DerivedEnvelopeBalance for the reconciling figure.
func (r *SQLiteRepository) SumForEnvelope(ctx context.Context, envelopeID string) (core.Money, error) {
	return sumQuery(ctx, r.db,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM transactions WHERE envelope_id = ?`,
		envelopeID)
}

// DerivedEnvelopeBalance recomputes an envelope's balance from the log
// alone: transfers are logged negative but credit the envelope, expenses
// debit it with their stored sign. The result must equal the stored
// balance_cents at all times.
func (r *SQLiteRepository) DerivedEnvelopeBalance(ctx context.Context, envelopeID string) (core.Money, error) {
	return derivedEnvelopeBalance(ctx, r.db, envelopeID)
}

func (r *SQLiteRepository) CountTransactionsForEnvelope(ctx context.Context, envelopeID string) (int64, error) {
	return countTransactionsForEnvelope(ctx, r.db, envelopeID)
}

// PendingSyncTransactions returns transactions not yet mirrored to the
// export backend, oldest first.
func (r *SQLiteRepository) PendingSyncTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	return queryTransactions(ctx, r.db,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE synced = 0 AND sync_error = 0 ORDER BY created_at ASC, id ASC LIMIT ?`,
		limit)
}

// MarkSynced flags a transaction as successfully exported.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	return setSyncFlags(ctx, r.db, id, 1, 0)
}

// MarkSyncError flags a transaction as failed to export so the pending
// scan skips it until an operator intervenes.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	return setSyncFlags(ctx, r.db, id, 0, 1)
}

// Batch variants.

func (t *Tx) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	return getTransaction(ctx, t.tx, id)
}

func (t *Tx) InsertTransaction(ctx context.Context, tx core.Transaction) error {
	if err := insertTransaction(ctx, t.tx, tx); err != nil {
		return err
	}
	t.change.merge(Change{Transactions: true, EnvelopeIDs: envelopeRef(tx)})
	return nil
}

func (t *Tx) DeleteTransaction(ctx context.Context, id string) error {
	tx, err := getTransaction(ctx, t.tx, id)
	if err != nil {
		return err
	}
	if err := deleteTransaction(ctx, t.tx, id); err != nil {
		return err
	}
	t.change.merge(Change{Transactions: true, EnvelopeIDs: envelopeRef(tx)})
	return nil
}

func (t *Tx) CountTransactionsForEnvelope(ctx context.Context, envelopeID string) (int64, error) {
	return countTransactionsForEnvelope(ctx, t.tx, envelopeID)
}

func (t *Tx) DerivedEnvelopeBalance(ctx context.Context, envelopeID string) (core.Money, error) {
	return derivedEnvelopeBalance(ctx, t.tx, envelopeID)
}

func envelopeRef(tx core.Transaction) []string {
	if tx.EnvelopeID == "" {
		return nil
	}
	return []string{tx.EnvelopeID}
}

func insertTransaction(ctx context.Context, q querier, tx core.Transaction) error {
	var envelopeID sql.NullString
	if tx.EnvelopeID != "" {
		envelopeID = sql.NullString{String: tx.EnvelopeID, Valid: true}
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO transactions (id, amount_cents, type, envelope_id, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.Amount.Cents, string(tx.Type), envelopeID, tx.Description, tx.Date.UnixNano())
	if err != nil {
		return storageErr("insert transaction", err)
	}
	return nil
}

func deleteTransaction(ctx context.Context, q querier, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return storageErr("delete transaction", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return storageErr("delete transaction", err)
	} else if n == 0 {
		return core.ErrTransactionNotFound
	}
	return nil
}

func getTransaction(ctx context.Context, q querier, id string) (core.Transaction, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	return tx, err
}

func countTransactionsForEnvelope(ctx context.Context, q querier, envelopeID string) (int64, error) {
	var n int64
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE envelope_id = ?`, envelopeID).Scan(&n)
	if err != nil {
		return 0, storageErr("count transactions", err)
	}
	return n, nil
}

func derivedEnvelopeBalance(ctx context.Context, q querier, envelopeID string) (core.Money, error) {
	return sumQuery(ctx, q,
		`SELECT COALESCE(SUM(CASE type WHEN ? THEN -amount_cents ELSE amount_cents END), 0)
		 FROM transactions WHERE envelope_id = ?`,
		string(core.TypeTransfer), envelopeID)
}

func sumQuery(ctx context.Context, q querier, query string, args ...any) (core.Money, error) {
	var cents int64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&cents); err != nil {
		return core.Money{}, storageErr("sum transactions", err)
	}
	return core.Money{Cents: cents}, nil
}

func setSyncFlags(ctx context.Context, q querier, id string, synced, syncError int) error {
	res, err := q.ExecContext(ctx,
		`UPDATE transactions SET synced = ?, sync_error = ? WHERE id = ?`,
		synced, syncError, id)
	if err != nil {
		return storageErr("mark sync state", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return storageErr("mark sync state", err)
	} else if n == 0 {
		return core.ErrTransactionNotFound
	}
	return nil
}

func queryTransactions(ctx context.Context, q querier, query string, args ...any) ([]core.Transaction, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list transactions", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list transactions", err)
	}
	return out, nil
}

func scanTransaction(scan func(...any) error) (core.Transaction, error) {
	var (
		tx         core.Transaction
		typ        string
		envelopeID sql.NullString
		createdAt  int64
	)
	if err := scan(&tx.ID, &tx.Amount.Cents, &typ, &envelopeID, &tx.Description, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, storageErr("scan transaction", err)
	}
	parsed, err := core.ParseTransactionType(typ)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.Type = parsed
	tx.EnvelopeID = envelopeID.String
	tx.Date = time.Unix(0, createdAt)
	return tx, nil
}
