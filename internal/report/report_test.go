package report

import (
	"errors"
	"strings"
	"testing"
	"time"

	"faturas/internal/core"
)

func reportState() core.State {
	return core.State{
		People: []core.Person{{ID: "p1", Name: "Ana"}, {ID: "p2", Name: "Bruno"}, {ID: "p3", Name: "Carla"}},
		Cards:  []core.CreditCard{{ID: "c1", Name: "Nubank"}, {ID: "c2", Name: "Inter"}},
		Expenses: []core.Expense{
			{ID: "e1", Description: "Mercado", Amount: core.Money{Cents: 10000}, Date: core.NewDate(2024, 3, 2), PersonID: "p1", CardID: "c1", InvoiceID: "i1"},
			{ID: "e2", Description: "Farmácia", Amount: core.Money{Cents: 5000}, Date: core.NewDate(2024, 3, 9), PersonID: "p1", CardID: "c2", InvoiceID: "i1", CategoryID: core.CategoryHealth},
			{ID: "e3", Description: "Táxi", Amount: core.Money{Cents: 2500}, Date: core.NewDate(2024, 3, 5), PersonID: "p2", CardID: "gone", InvoiceID: "i1"},
			{ID: "e4", Description: "Antigo", Amount: core.Money{Cents: 999}, Date: core.NewDate(2024, 2, 5), PersonID: "p3", CardID: "c1", InvoiceID: "i0"},
		},
		Payments: []core.Payment{{ID: "pay1", PersonID: "p1", Amount: core.Money{Cents: 3000}}},
		Invoices: []core.Invoice{{ID: "i1", Name: "Fatura Março", Status: core.InvoiceClosed}, {ID: "i0", Name: "Fatura Fevereiro", Status: core.InvoiceClosed}},
	}
}

func TestBuild(t *testing.T) {
	at := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	r, err := Build(reportState(), "i1", at)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if len(r.Summary) != 3 {
		t.Fatalf("summary should list every person, got %d rows", len(r.Summary))
	}
	if s := r.Summary[0]; s.Spent.Cents != 15000 || s.Paid.Cents != 3000 || s.Debt.Cents != 12000 {
		t.Fatalf("unexpected summary row %+v", s)
	}

	if len(r.Breakdown) != 2 {
		t.Fatalf("only people with expenses on the invoice: %+v", r.Breakdown)
	}
	ana := r.Breakdown[0]
	if ana.Total.Cents != 15000 || len(ana.Cards) != 2 || ana.Cards[0].Label != "Nubank" || ana.Cards[1].Label != "Inter" {
		t.Fatalf("unexpected breakdown %+v", ana)
	}
	if r.Breakdown[1].Cards[0].Label != UnknownCard {
		t.Fatalf("missing card should render as unknown: %+v", r.Breakdown[1])
	}

	if len(r.Statement) != 2 {
		t.Fatalf("unexpected statement %+v", r.Statement)
	}
	lines := r.Statement[0].Lines
	if lines[0].Description != "Farmácia" || lines[1].Description != "Mercado" {
		t.Fatalf("statement should be newest first: %+v", lines)
	}
	if lines[1].Category != core.CategoryOther {
		t.Fatalf("empty category should render as other")
	}
	if r.GlobalTotal.Cents != 17500 {
		t.Fatalf("global total %s", r.GlobalTotal)
	}
}

func TestBuildWithoutExpensesHasNoSummary(t *testing.T) {
	st := core.State{
		People:   []core.Person{{ID: "p1", Name: "Ana"}},
		Invoices: []core.Invoice{{ID: "i1", Name: "Empty", Status: core.InvoiceOpen}},
	}
	r, err := Build(st, "i1", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Summary) != 0 || len(r.Breakdown) != 0 || len(r.Statement) != 0 || r.GlobalTotal.Cents != 0 {
		t.Fatalf("expected empty report, got %+v", r)
	}
}

func TestBuildUnknownInvoice(t *testing.T) {
	_, err := Build(reportState(), "nope", time.Now())
	if !errors.Is(err, ErrUnknownInvoice) {
		t.Fatalf("expected ErrUnknownInvoice, got %v", err)
	}
}

func TestTitleAndFilename(t *testing.T) {
	r := Report{Invoice: core.Invoice{Name: " Fatura  Março 2024 "}}
	if got := r.Filename(); got != "Fatura-Fatura_Março_2024" {
		t.Fatalf("filename %q", got)
	}
	if !strings.Contains(r.Title(), "Março") {
		t.Fatalf("title %q", r.Title())
	}
}

func TestFormatterRows(t *testing.T) {
	r, err := Build(reportState(), "i1", time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	f := NewFormatter("BRL")
	rows := f.Rows(r)
	last := rows[len(rows)-1]
	if last[0] != "Invoice Total" {
		t.Fatalf("last row should be the total: %v", last)
	}
	total, _ := last[1].(string)
	if !strings.Contains(total, "BRL") || !strings.Contains(total, "175") {
		t.Fatalf("unexpected total cell %q", total)
	}

	if NewFormatter("???").Currency != "BRL" {
		t.Fatalf("invalid currency should fall back to BRL")
	}
}
