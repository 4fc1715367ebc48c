// Package storage is the durable ledger store: two SQLite tables
// (envelopes, transactions), the aggregate queries derived from them,
// and a change notifier that drives the live views. The store enforces
// no cross-record consistency on its own; that is the accounting
// engine's job, which uses WithTx to batch its paired writes.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"envelopebro/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db       *sql.DB
	notifier *Notifier
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// The driver serializes writers; a single pooled connection avoids
	// SQLITE_BUSY between the engine's write batches and view reads.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:       db,
		notifier: NewNotifier(),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Watch subscribes to committed mutations. See Notifier for delivery
// semantics.
func (r *SQLiteRepository) Watch() (int, <-chan Change) {
	return r.notifier.Subscribe()
}

func (r *SQLiteRepository) Unwatch(id int) {
	r.notifier.Unsubscribe(id)
}

// querier is satisfied by both *sql.DB and *sql.Tx so every query can
// run standalone or inside a write batch.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx is one atomic write batch. The engine's two-step operations
// (transaction insert + balance adjust) go through here so a failure in
// either step rolls back both.
type Tx struct {
	tx     *sql.Tx
	change Change
}

// WithTx runs fn inside a single SQL transaction and, on commit,
// notifies subscribers once with the batch's merged change set. Any
// error from fn aborts the batch untouched.
func (r *SQLiteRepository) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin batch", err)
	}

	t := &Tx{tx: dbtx}
	if err := fn(t); err != nil {
		_ = dbtx.Rollback()
		return err
	}

	if err := dbtx.Commit(); err != nil {
		return storageErr("commit batch", err)
	}

	r.notifier.Publish(t.change)
	return nil
}

// storageErr tags a driver error with the storage error kind while
// keeping the original chain inspectable.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, core.ErrStorage, err)
}
