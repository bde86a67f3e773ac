package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"faturas/internal/core"

	_ "modernc.org/sqlite"
)

const metaSavedAt = "saved_at"

// SQLiteRepository stores the state in normalised tables. Row order is kept
// in a position column so a load returns collections exactly as saved.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite serialises writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load reads every table back into a State.
func (r *SQLiteRepository) Load(ctx context.Context) (core.State, bool, error) {
	var savedAt string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM ledger_meta WHERE key = ?`, metaSavedAt).Scan(&savedAt)
	if err == sql.ErrNoRows {
		return core.State{}, false, nil
	}
	if err != nil {
		return core.State{}, false, fmt.Errorf("read ledger meta: %w", err)
	}

	var st core.State
	if st.People, err = r.loadPeople(ctx); err != nil {
		return core.State{}, false, err
	}
	if st.Cards, err = r.loadCards(ctx); err != nil {
		return core.State{}, false, err
	}
	if st.Invoices, err = r.loadInvoices(ctx); err != nil {
		return core.State{}, false, err
	}
	if st.Expenses, err = r.loadExpenses(ctx); err != nil {
		return core.State{}, false, err
	}
	if st.Payments, err = r.loadPayments(ctx); err != nil {
		return core.State{}, false, err
	}
	return st.Normalized(), true, nil
}

func (r *SQLiteRepository) loadPeople(ctx context.Context) ([]core.Person, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, color FROM people ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query people: %w", err)
	}
	defer rows.Close()
	var out []core.Person
	for rows.Next() {
		var p core.Person
		if err := rows.Scan(&p.ID, &p.Name, &p.Color); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadCards(ctx context.Context) ([]core.CreditCard, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, last4_digits, color FROM cards ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	defer rows.Close()
	var out []core.CreditCard
	for rows.Next() {
		var c core.CreditCard
		if err := rows.Scan(&c.ID, &c.Name, &c.Last4Digits, &c.Color); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadInvoices(ctx context.Context) ([]core.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, status FROM invoices ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	defer rows.Close()
	var out []core.Invoice
	for rows.Next() {
		var inv core.Invoice
		var status string
		if err := rows.Scan(&inv.ID, &inv.Name, &status); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		inv.Status = core.InvoiceStatus(status)
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, description, amount_cents, date, category_id, person_id, card_id, ai_analysis, invoice_id
		FROM expenses ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()
	var out []core.Expense
	for rows.Next() {
		var e core.Expense
		var date, category string
		if err := rows.Scan(&e.ID, &e.Description, &e.Amount.Cents, &date, &category,
			&e.PersonID, &e.CardID, &e.AIAnalysis, &e.InvoiceID); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.Date, err = scanDate(date); err != nil {
			return nil, fmt.Errorf("expense %s: %w", e.ID, err)
		}
		e.CategoryID = core.Category(category)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadPayments(ctx context.Context) ([]core.Payment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, person_id, amount_cents, date FROM payments ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()
	var out []core.Payment
	for rows.Next() {
		var p core.Payment
		var date string
		if err := rows.Scan(&p.ID, &p.PersonID, &p.Amount.Cents, &date); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		if p.Date, err = scanDate(date); err != nil {
			return nil, fmt.Errorf("payment %s: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanDate(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s)
}

// Persist replaces every table with the contents of s in one transaction.
func (r *SQLiteRepository) Persist(ctx context.Context, s core.State) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"people", "cards", "invoices", "expenses", "payments"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, p := range s.People {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO people (position, id, name, color) VALUES (?, ?, ?, ?)`,
			i, p.ID, p.Name, p.Color); err != nil {
			return fmt.Errorf("insert person %s: %w", p.ID, err)
		}
	}
	for i, c := range s.Cards {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cards (position, id, name, last4_digits, color) VALUES (?, ?, ?, ?, ?)`,
			i, c.ID, c.Name, c.Last4Digits, c.Color); err != nil {
			return fmt.Errorf("insert card %s: %w", c.ID, err)
		}
	}
	for i, inv := range s.Invoices {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO invoices (position, id, name, status) VALUES (?, ?, ?, ?)`,
			i, inv.ID, inv.Name, string(inv.Status)); err != nil {
			return fmt.Errorf("insert invoice %s: %w", inv.ID, err)
		}
	}

	expStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO expenses (position, id, description, amount_cents, date, category_id, person_id, card_id, ai_analysis, invoice_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare expense insert: %w", err)
	}
	defer expStmt.Close()
	for i, e := range s.Expenses {
		if _, err := expStmt.ExecContext(ctx, i, e.ID, e.Description, e.Amount.Cents, e.Date.String(),
			string(e.CategoryID), e.PersonID, e.CardID, e.AIAnalysis, e.InvoiceID); err != nil {
			return fmt.Errorf("insert expense %s: %w", e.ID, err)
		}
	}

	payStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO payments (position, id, person_id, amount_cents, date) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare payment insert: %w", err)
	}
	defer payStmt.Close()
	for i, p := range s.Payments {
		if _, err := payStmt.ExecContext(ctx, i, p.ID, p.PersonID, p.Amount.Cents, p.Date.String()); err != nil {
			return fmt.Errorf("insert payment %s: %w", p.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		metaSavedAt, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("update ledger meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
