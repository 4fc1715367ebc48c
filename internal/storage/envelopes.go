package storage

import (
	"context"
	"database/sql"
	"errors"

	"envelopebro/internal/core"
)

// ListEnvelopes returns every envelope ordered by name ascending.
func (r *SQLiteRepository) ListEnvelopes(ctx context.Context) ([]core.Envelope, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, balance_cents, color FROM envelopes ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, storageErr("list envelopes", err)
	}
	defer rows.Close()

	var out []core.Envelope
	for rows.Next() {
		var e core.Envelope
		if err := rows.Scan(&e.ID, &e.Name, &e.Balance.Cents, &e.Color); err != nil {
			return nil, storageErr("scan envelope", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list envelopes", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetEnvelope(ctx context.Context, id string) (core.Envelope, error) {
	return getEnvelope(ctx, r.db, id)
}

// PutEnvelope inserts or replaces an envelope keyed by id.
func (r *SQLiteRepository) PutEnvelope(ctx context.Context, e core.Envelope) error {
	if err := putEnvelope(ctx, r.db, e); err != nil {
		return err
	}
	r.notifier.Publish(Change{Envelopes: true})
	return nil
}

func (r *SQLiteRepository) DeleteEnvelope(ctx context.Context, id string) error {
	if err := deleteEnvelope(ctx, r.db, id); err != nil {
		return err
	}
	r.notifier.Publish(Change{Envelopes: true})
	return nil
}

// AdjustEnvelopeBalance atomically adds delta to the stored balance.
// Fails with ErrEnvelopeNotFound when the id does not exist.
func (r *SQLiteRepository) AdjustEnvelopeBalance(ctx context.Context, id string, delta core.Money) error {
	if err := adjustEnvelopeBalance(ctx, r.db, id, delta); err != nil {
		return err
	}
	r.notifier.Publish(Change{Envelopes: true, EnvelopeIDs: []string{id}})
	return nil
}

// Batch variants. Each records its effect on the Tx change set so the
// commit notification covers the whole batch.

func (t *Tx) GetEnvelope(ctx context.Context, id string) (core.Envelope, error) {
	return getEnvelope(ctx, t.tx, id)
}

func (t *Tx) PutEnvelope(ctx context.Context, e core.Envelope) error {
	if err := putEnvelope(ctx, t.tx, e); err != nil {
		return err
	}
	t.change.merge(Change{Envelopes: true})
	return nil
}

func (t *Tx) DeleteEnvelope(ctx context.Context, id string) error {
	if err := deleteEnvelope(ctx, t.tx, id); err != nil {
		return err
	}
	t.change.merge(Change{Envelopes: true})
	return nil
}

func (t *Tx) AdjustEnvelopeBalance(ctx context.Context, id string, delta core.Money) error {
	if err := adjustEnvelopeBalance(ctx, t.tx, id, delta); err != nil {
		return err
	}
	t.change.merge(Change{Envelopes: true, EnvelopeIDs: []string{id}})
	return nil
}

func getEnvelope(ctx context.Context, q querier, id string) (core.Envelope, error) {
	var e core.Envelope
	err := q.QueryRowContext(ctx,
		`SELECT id, name, balance_cents, color FROM envelopes WHERE id = ?`, id).
		Scan(&e.ID, &e.Name, &e.Balance.Cents, &e.Color)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Envelope{}, core.ErrEnvelopeNotFound
	}
	if err != nil {
		return core.Envelope{}, storageErr("get envelope", err)
	}
	return e, nil
}

func putEnvelope(ctx context.Context, q querier, e core.Envelope) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO envelopes (id, name, balance_cents, color) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name,
		 balance_cents = excluded.balance_cents, color = excluded.color`,
		e.ID, e.Name, e.Balance.Cents, e.Color)
	if err != nil {
		return storageErr("put envelope", err)
	}
	return nil
}

func deleteEnvelope(ctx context.Context, q querier, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM envelopes WHERE id = ?`, id)
	if err != nil {
		return storageErr("delete envelope", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return storageErr("delete envelope", err)
	} else if n == 0 {
		return core.ErrEnvelopeNotFound
	}
	return nil
}

func adjustEnvelopeBalance(ctx context.Context, q querier, id string, delta core.Money) error {
	res, err := q.ExecContext(ctx,
		`UPDATE envelopes SET balance_cents = balance_cents + ? WHERE id = ?`,
		delta.Cents, id)
	if err != nil {
		return storageErr("adjust balance", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return storageErr("adjust balance", err)
	} else if n == 0 {
		return core.ErrEnvelopeNotFound
	}
	return nil
}
