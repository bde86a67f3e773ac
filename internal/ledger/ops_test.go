package ledger

import (
	"reflect"
	"testing"

	"faturas/internal/core"
)

func fixture() core.State {
	return core.State{
		People: []core.Person{{ID: "p1", Name: "Ana"}, {ID: "p2", Name: "Bruno"}},
		Cards:  []core.CreditCard{{ID: "c1", Name: "Nubank"}},
		Expenses: []core.Expense{
			{ID: "e1", Amount: core.Money{Cents: 10000}, PersonID: "p1", CardID: "c1", InvoiceID: "i1"},
			{ID: "e2", Amount: core.Money{Cents: 5000}, PersonID: "p1", CardID: "c1", InvoiceID: "i1"},
			{ID: "e3", Amount: core.Money{Cents: 700}, PersonID: "p2", CardID: "c1", InvoiceID: "i2"},
		},
		Payments: []core.Payment{{ID: "pay1", PersonID: "p1", Amount: core.Money{Cents: 3000}}},
		Invoices: []core.Invoice{
			{ID: "i2", Name: "Invoice April", Status: core.InvoiceOpen},
			{ID: "i1", Name: "Invoice March", Status: core.InvoiceClosed},
		},
	}
}

func TestDeleteUnknownIDIsNoop(t *testing.T) {
	cases := map[string]func(core.State) core.State{
		"person":  func(s core.State) core.State { return DeletePerson(s, "missing") },
		"card":    func(s core.State) core.State { return DeleteCard(s, "missing") },
		"expense": func(s core.State) core.State { return DeleteExpense(s, "missing") },
		"payment": func(s core.State) core.State { return DeletePayment(s, "missing") },
		"invoice": func(s core.State) core.State { return DeleteInvoice(s, "missing") },
		"toggle":  func(s core.State) core.State { return ToggleInvoiceStatus(s, "missing") },
		"rename":  func(s core.State) core.State { return RenameInvoice(s, "missing", "x") },
		"update":  func(s core.State) core.State { return UpdateExpense(s, core.Expense{ID: "missing"}) },
	}
	for name, op := range cases {
		t.Run(name, func(t *testing.T) {
			before := fixture()
			after := op(fixture())
			if !reflect.DeepEqual(before, after) {
				t.Fatalf("state changed:\nbefore=%+v\nafter=%+v", before, after)
			}
		})
	}

	// Empty collections stay deep-equal too.
	var empty core.State
	if got := DeleteInvoice(empty, "x"); !reflect.DeepEqual(got, empty) {
		t.Fatalf("nil collections should stay nil, got %+v", got)
	}
}

func TestDeleteInvoiceCascades(t *testing.T) {
	before := fixture()
	after := DeleteInvoice(before, "i1")

	for _, e := range after.Expenses {
		if e.InvoiceID == "i1" {
			t.Fatalf("expense %s still references deleted invoice", e.ID)
		}
	}
	if len(after.Expenses) != 1 || after.Expenses[0].ID != "e3" {
		t.Fatalf("unexpected expenses: %+v", after.Expenses)
	}
	if !reflect.DeepEqual(before.Payments, after.Payments) {
		t.Fatalf("payments must be untouched")
	}
	if _, ok := after.Invoice("i1"); ok {
		t.Fatalf("invoice should be gone")
	}
	if len(before.Expenses) != 3 {
		t.Fatalf("input state was mutated")
	}
}

func TestAddExpensePrepends(t *testing.T) {
	st := AddExpense(fixture(), core.Expense{ID: "new"})
	if st.Expenses[0].ID != "new" || len(st.Expenses) != 4 {
		t.Fatalf("expected new expense first, got %+v", st.Expenses)
	}
	st = AddPayment(st, core.Payment{ID: "pnew"})
	if st.Payments[0].ID != "pnew" {
		t.Fatalf("expected new payment first")
	}
}

func TestAddPersonAppends(t *testing.T) {
	st := AddPerson(fixture(), core.Person{ID: "p3"})
	if st.People[len(st.People)-1].ID != "p3" {
		t.Fatalf("expected person appended")
	}
	st = AddCard(st, core.CreditCard{ID: "c2"})
	if st.Cards[len(st.Cards)-1].ID != "c2" {
		t.Fatalf("expected card appended")
	}
}

func TestUpdateReplacesWholeRecord(t *testing.T) {
	st := UpdatePerson(fixture(), core.Person{ID: "p1", Name: "Ana Maria"})
	p, _ := st.Person("p1")
	if p.Name != "Ana Maria" || p.Color != "" {
		t.Fatalf("unexpected person %+v", p)
	}
	st = UpdateExpense(st, core.Expense{ID: "e2", Amount: core.Money{Cents: 1}, InvoiceID: "i9"})
	e, _ := st.Expense("e2")
	if e.Amount.Cents != 1 || e.InvoiceID != "i9" || e.PersonID != "" {
		t.Fatalf("unexpected expense %+v", e)
	}
}

func TestCreateInvoiceAtFront(t *testing.T) {
	st := CreateInvoice(fixture(), "i3", "Invoice May")
	if st.Invoices[0].ID != "i3" || st.Invoices[0].Status != core.InvoiceOpen {
		t.Fatalf("expected new open invoice first, got %+v", st.Invoices[0])
	}
}

func TestToggleAndRename(t *testing.T) {
	orig := fixture()
	st := ToggleInvoiceStatus(orig, "i1")
	inv, _ := st.Invoice("i1")
	if inv.Status != core.InvoiceOpen {
		t.Fatalf("expected reopened invoice")
	}
	if orig.Invoices[1].Status != core.InvoiceClosed {
		t.Fatalf("toggle mutated the input")
	}
	st = ToggleInvoiceStatus(st, "i1")
	if inv, _ = st.Invoice("i1"); inv.Status != core.InvoiceClosed {
		t.Fatalf("expected closed invoice")
	}

	st = RenameInvoice(st, "i2", "Fatura Abril")
	if inv, _ = st.Invoice("i2"); inv.Name != "Fatura Abril" {
		t.Fatalf("rename failed: %+v", inv)
	}
}

func TestNegativeAmountStoredAsIs(t *testing.T) {
	st := AddExpense(core.State{}, core.Expense{ID: "neg", Amount: core.Money{Cents: -500}})
	if st.Expenses[0].Amount.Cents != -500 {
		t.Fatalf("amount should be stored unvalidated")
	}
}

func TestInUse(t *testing.T) {
	st := fixture()
	if !PersonInUse(st, "p1") || !PersonInUse(st, "p2") {
		t.Fatalf("people with expenses must be in use")
	}
	st = AddPerson(st, core.Person{ID: "p3"})
	if PersonInUse(st, "p3") {
		t.Fatalf("p3 has no records")
	}
	st = AddPayment(st, core.Payment{ID: "x", PersonID: "p3"})
	if !PersonInUse(st, "p3") {
		t.Fatalf("payments count as references")
	}
	if !CardInUse(st, "c1") || CardInUse(st, "c9") {
		t.Fatalf("card in-use mismatch")
	}
}
