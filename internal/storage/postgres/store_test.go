package postgres

import (
	"context"
	"os"
	"reflect"
	"testing"
	"time"

	"faturas/internal/core"
)

func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres store tests")
	}
	return dsn
}

func mustOpen(t *testing.T, dsn string) *Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := mustOpen(t, testDSN(t))
	ctx := context.Background()

	if _, found, err := s.Load(ctx); err != nil || found {
		t.Fatalf("empty table: found=%v err=%v", found, err)
	}

	want := core.DefaultState()
	want.Invoices = []core.Invoice{{ID: "i1", Name: "Fatura Março", Status: core.InvoiceOpen}}
	want.Expenses = []core.Expense{{ID: "e1", Description: "Mercado", Amount: core.Money{Cents: 4590},
		Date: core.NewDate(2024, 3, 1), CategoryID: core.CategoryFood, PersonID: "1", CardID: "1", InvoiceID: "i1"}}

	if err := s.Persist(ctx, want); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if err := s.Persist(ctx, want); err != nil {
		t.Fatalf("persist again: %v", err)
	}
	got, found, err := s.Load(ctx)
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("mismatch:\nwant=%+v\n got=%+v", want, got)
	}
	if v, err := s.SavedVersion(ctx); err != nil || v != 2 {
		t.Fatalf("expected version 2, got %d (%v)", v, err)
	}
}
