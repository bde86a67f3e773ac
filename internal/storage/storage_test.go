package storage

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"faturas/internal/core"
)

func sampleState() core.State {
	return core.State{
		People: []core.Person{{ID: "p1", Name: "João", Color: "#4f46e5"}, {ID: "p2", Name: "Maria", Color: "#ec4899"}},
		Cards:  []core.CreditCard{{ID: "c1", Name: "Nubank", Last4Digits: "1234", Color: "#8b5cf6"}, {ID: "c2", Name: "Inter"}},
		Expenses: []core.Expense{
			{ID: "e2", Description: "Previous Balance (Invoice March)", Amount: core.Money{Cents: 12000}, Date: core.NewDate(2024, 4, 1),
				CategoryID: core.CategoryOther, PersonID: "p1", CardID: "c1", InvoiceID: "i2"},
			{ID: "e1", Description: "Mercado", Amount: core.Money{Cents: 15050}, Date: core.NewDate(2024, 3, 2),
				CategoryID: core.CategoryFood, PersonID: "p1", CardID: "c1", InvoiceID: "i1", AIAnalysis: "Compare preços."},
		},
		Payments: []core.Payment{{ID: "pay1", PersonID: "p1", Amount: core.Money{Cents: 12000}, Date: core.NewDate(2024, 4, 1)}},
		Invoices: []core.Invoice{
			{ID: "i2", Name: "Invoice April", Status: core.InvoiceOpen},
			{ID: "i1", Name: "Invoice March", Status: core.InvoiceClosed},
		},
	}
}

func exerciseRepository(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()

	if _, found, err := repo.Load(ctx); err != nil || found {
		t.Fatalf("fresh repository: found=%v err=%v", found, err)
	}

	want := sampleState()
	if err := repo.Persist(ctx, want); err != nil {
		t.Fatalf("persist: %v", err)
	}
	got, found, err := repo.Load(ctx)
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("round trip mismatch:\nwant=%+v\n got=%+v", want, got)
	}

	// A second persist fully replaces the first.
	smaller := want
	smaller.Expenses = want.Expenses[1:]
	smaller.Payments = []core.Payment{}
	if err := repo.Persist(ctx, smaller); err != nil {
		t.Fatalf("persist: %v", err)
	}
	got, _, err = repo.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(smaller, got) {
		t.Fatalf("replace mismatch:\nwant=%+v\n got=%+v", smaller, got)
	}
}

func TestMemoryRepository(t *testing.T) {
	repo := NewMemoryRepository()
	exerciseRepository(t, repo)
	if repo.Saves() != 2 {
		t.Fatalf("expected 2 saves, got %d", repo.Saves())
	}
}

func TestFileRepository(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.json")
	repo, err := NewFileRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	exerciseRepository(t, repo)

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %v", entries)
	}
}

func TestFileRepositoryLegacyBlob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	legacy := `{"people":[{"id":"1","name":"João","color":"#4f46e5"}],"cards":[],"expenses":[{"id":"e","description":"x","amount":10.5,"date":"2024-01-02","categoryId":"Lazer","personId":"1","cardId":"1","invoiceId":""}]}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}
	repo, err := NewFileRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	st, found, err := repo.Load(context.Background())
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if len(st.Payments) != 0 || st.Invoices == nil || st.Expenses[0].Amount.Cents != 1050 {
		t.Fatalf("unexpected legacy decode %+v", st)
	}
}

func TestFileRepositoryCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	if err := os.WriteFile(path, []byte("{oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	repo, _ := NewFileRepository(path)
	if _, _, err := repo.Load(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestSQLiteRepository(t *testing.T) {
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "db", "faturas.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer repo.Close()
	exerciseRepository(t, repo)
}

func TestSQLiteRepositoryDuplicateIDs(t *testing.T) {
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "faturas.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer repo.Close()

	// The ledger stores records as given, duplicates included.
	st := core.State{People: []core.Person{{ID: "same", Name: "A"}, {ID: "same", Name: "B"}}}.Normalized()
	if err := repo.Persist(context.Background(), st); err != nil {
		t.Fatalf("persist: %v", err)
	}
	got, _, err := repo.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(st, got) {
		t.Fatalf("mismatch %+v", got)
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	v1, err := RunMigrations(path)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	v2, err := RunMigrations(path)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if v1 != 1 || v2 != 1 {
		t.Fatalf("unexpected versions %d %d", v1, v2)
	}
}

func TestLoadOrDefault(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	st, err := LoadOrDefault(ctx, repo, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(st, core.DefaultState()) {
		t.Fatalf("expected defaults, got %+v", st)
	}

	if err := repo.Persist(ctx, sampleState()); err != nil {
		t.Fatal(err)
	}
	st, err = LoadOrDefault(ctx, repo, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Expenses) != 2 {
		t.Fatalf("expected persisted state, got %+v", st)
	}
}
