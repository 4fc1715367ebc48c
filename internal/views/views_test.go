package views

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"envelopebro/internal/core"
	"envelopebro/internal/ledger"
	"envelopebro/internal/storage"
)

func newTestSetup(t *testing.T) (*Registry, *ledger.Service) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return NewRegistry(repo, nil), ledger.NewService(repo, nil, nil, ledger.Options{})
}

func recv[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatalf("%s: channel closed", what)
		}
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("%s: no emission", what)
		panic("unreachable")
	}
}

func TestSnapshotsAreReadOnly(t *testing.T) {
	reg, svc := newTestSetup(t)
	ctx := context.Background()

	env, err := svc.CreateEnvelope(ctx, "Groceries", 0)
	if err != nil {
		t.Fatalf("CreateEnvelope: %v", err)
	}
	if _, err := svc.RecordIncome(ctx, core.Money{Cents: 10000}, ""); err != nil {
		t.Fatalf("RecordIncome: %v", err)
	}
	if _, err := svc.TransferToEnvelope(ctx, env.ID, core.Money{Cents: 4000}, ""); err != nil {
		t.Fatalf("TransferToEnvelope: %v", err)
	}

	before, err := reg.Transactions(ctx)
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	// Reads repeated back to back must agree and leave state untouched.
	for i := 0; i < 3; i++ {
		again, err := reg.Transactions(ctx)
		if err != nil {
			t.Fatalf("Transactions: %v", err)
		}
		if len(again) != len(before) {
			t.Fatalf("read %d changed feed length: %d -> %d", i, len(before), len(again))
		}
	}

	balance, err := reg.EnvelopeBalance(ctx, env.ID)
	if err != nil {
		t.Fatalf("EnvelopeBalance: %v", err)
	}
	if balance.Cents != 4000 {
		t.Errorf("EnvelopeBalance = %d, want 4000", balance.Cents)
	}
	total, err := reg.TotalIncome(ctx)
	if err != nil {
		t.Fatalf("TotalIncome: %v", err)
	}
	if total.Cents != 10000 {
		t.Errorf("TotalIncome = %d, want 10000", total.Cents)
	}
	raw, err := reg.RawEnvelopeSum(ctx, env.ID)
	if err != nil {
		t.Fatalf("RawEnvelopeSum: %v", err)
	}
	if raw.Cents != -4000 {
		t.Errorf("RawEnvelopeSum = %d, want -4000 (logged sign)", raw.Cents)
	}
}

func TestWatchEnvelopesEmitsOnWrite(t *testing.T) {
	reg, svc := newTestSetup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := reg.WatchEnvelopes(ctx)

	initial := recv(t, ch, "initial snapshot")
	if len(initial) != 0 {
		t.Fatalf("initial snapshot has %d envelopes, want 0", len(initial))
	}

	if _, err := svc.CreateEnvelope(ctx, "Groceries", 0); err != nil {
		t.Fatalf("CreateEnvelope: %v", err)
	}

	updated := recv(t, ch, "snapshot after write")
	if len(updated) != 1 || updated[0].Name != "Groceries" {
		t.Errorf("snapshot = %+v", updated)
	}
}

func TestWatchEnvelopeBalanceFollowsTheMoney(t *testing.T) {
	reg, svc := newTestSetup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env, err := svc.CreateEnvelope(ctx, "Groceries", 0)
	if err != nil {
		t.Fatalf("CreateEnvelope: %v", err)
	}

	ch := reg.WatchEnvelopeBalance(ctx, env.ID)
	if got := recv(t, ch, "initial balance"); got.Cents != 0 {
		t.Fatalf("initial balance = %d, want 0", got.Cents)
	}

	if _, err := svc.TransferToEnvelope(ctx, env.ID, core.Money{Cents: 4000}, ""); err != nil {
		t.Fatalf("TransferToEnvelope: %v", err)
	}
	if got := recv(t, ch, "balance after transfer"); got.Cents != 4000 {
		t.Errorf("balance after transfer = %d, want 4000", got.Cents)
	}

	if _, err := svc.SpendFromEnvelope(ctx, env.ID, core.Money{Cents: 1500}, ""); err != nil {
		t.Fatalf("SpendFromEnvelope: %v", err)
	}
	if got := recv(t, ch, "balance after spend"); got.Cents != 2500 {
		t.Errorf("balance after spend = %d, want 2500", got.Cents)
	}
}

func TestWatchEnvelopeTransactionsIgnoresOtherEnvelopes(t *testing.T) {
	reg, svc := newTestSetup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mine, err := svc.CreateEnvelope(ctx, "Mine", 0)
	if err != nil {
		t.Fatalf("CreateEnvelope: %v", err)
	}
	other, err := svc.CreateEnvelope(ctx, "Other", 0)
	if err != nil {
		t.Fatalf("CreateEnvelope: %v", err)
	}

	ch := reg.WatchEnvelopeTransactions(ctx, mine.ID)
	if got := recv(t, ch, "initial feed"); len(got) != 0 {
		t.Fatalf("initial feed has %d entries", len(got))
	}

	// A write against a different envelope must not wake this watcher.
	if _, err := svc.TransferToEnvelope(ctx, other.ID, core.Money{Cents: 100}, ""); err != nil {
		t.Fatalf("TransferToEnvelope: %v", err)
	}
	select {
	case got := <-ch:
		t.Fatalf("unrelated write produced emission: %+v", got)
	case <-time.After(200 * time.Millisecond):
	}

	if _, err := svc.TransferToEnvelope(ctx, mine.ID, core.Money{Cents: 4000}, ""); err != nil {
		t.Fatalf("TransferToEnvelope: %v", err)
	}
	got := recv(t, ch, "feed after own write")
	if len(got) != 1 || got[0].EnvelopeID != mine.ID {
		t.Errorf("feed = %+v", got)
	}
}

func TestWatcherClosesOnCancel(t *testing.T) {
	reg, _ := newTestSetup(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch := reg.WatchTransactions(ctx)
	recv(t, ch, "initial snapshot")

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			// A snapshot may be in flight; the next read must observe close.
			if _, ok := <-ch; ok {
				t.Error("channel still open after cancel")
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
