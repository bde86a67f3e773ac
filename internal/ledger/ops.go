// Package ledger owns the mutable ledger state.
//
// The functions in this file are pure transforms: each takes a State and
// returns a new one, never writing through the input's slices. Unknown ids
// are silent no-ops and records are stored as given.
package ledger

import "faturas/internal/core"

func appended[T any](xs []T, x T) []T {
	out := make([]T, 0, len(xs)+1)
	out = append(out, xs...)
	return append(out, x)
}

func prepended[T any](xs []T, x T) []T {
	out := make([]T, 0, len(xs)+1)
	out = append(out, x)
	return append(out, xs...)
}

// mapped applies f to every element. A nil input stays nil.
func mapped[T any](xs []T, f func(T) T) []T {
	if xs == nil {
		return nil
	}
	out := make([]T, len(xs))
	for i, v := range xs {
		out[i] = f(v)
	}
	return out
}

// replaced swaps every element for which match is true with x.
func replaced[T any](xs []T, x T, match func(T) bool) []T {
	return mapped(xs, func(v T) T {
		if match(v) {
			return x
		}
		return v
	})
}

// removed drops every element for which match is true. A nil input stays nil.
func removed[T any](xs []T, match func(T) bool) []T {
	if xs == nil {
		return nil
	}
	out := make([]T, 0, len(xs))
	for _, v := range xs {
		if !match(v) {
			out = append(out, v)
		}
	}
	return out
}

func AddPerson(s core.State, p core.Person) core.State {
	s.People = appended(s.People, p)
	return s
}

func UpdatePerson(s core.State, p core.Person) core.State {
	s.People = replaced(s.People, p, func(v core.Person) bool { return v.ID == p.ID })
	return s
}

func DeletePerson(s core.State, id string) core.State {
	s.People = removed(s.People, func(v core.Person) bool { return v.ID == id })
	return s
}

func AddCard(s core.State, c core.CreditCard) core.State {
	s.Cards = appended(s.Cards, c)
	return s
}

func UpdateCard(s core.State, c core.CreditCard) core.State {
	s.Cards = replaced(s.Cards, c, func(v core.CreditCard) bool { return v.ID == c.ID })
	return s
}

func DeleteCard(s core.State, id string) core.State {
	s.Cards = removed(s.Cards, func(v core.CreditCard) bool { return v.ID == id })
	return s
}

// AddExpense prepends, so iteration order is most recent insert first.
func AddExpense(s core.State, e core.Expense) core.State {
	s.Expenses = prepended(s.Expenses, e)
	return s
}

func UpdateExpense(s core.State, e core.Expense) core.State {
	s.Expenses = replaced(s.Expenses, e, func(v core.Expense) bool { return v.ID == e.ID })
	return s
}

func DeleteExpense(s core.State, id string) core.State {
	s.Expenses = removed(s.Expenses, func(v core.Expense) bool { return v.ID == id })
	return s
}

func AddPayment(s core.State, p core.Payment) core.State {
	s.Payments = prepended(s.Payments, p)
	return s
}

func DeletePayment(s core.State, id string) core.State {
	s.Payments = removed(s.Payments, func(v core.Payment) bool { return v.ID == id })
	return s
}

// CreateInvoice puts a new open invoice at the front of the collection.
func CreateInvoice(s core.State, id, name string) core.State {
	s.Invoices = prepended(s.Invoices, core.Invoice{ID: id, Name: name, Status: core.InvoiceOpen})
	return s
}

func ToggleInvoiceStatus(s core.State, id string) core.State {
	s.Invoices = mapped(s.Invoices, func(inv core.Invoice) core.Invoice {
		if inv.ID == id {
			inv.Status = inv.Status.Toggled()
		}
		return inv
	})
	return s
}

func RenameInvoice(s core.State, id, name string) core.State {
	s.Invoices = mapped(s.Invoices, func(inv core.Invoice) core.Invoice {
		if inv.ID == id {
			inv.Name = name
		}
		return inv
	})
	return s
}

// DeleteInvoice removes the invoice and every expense attached to it.
// Payments are global and stay untouched.
func DeleteInvoice(s core.State, id string) core.State {
	s.Invoices = removed(s.Invoices, func(v core.Invoice) bool { return v.ID == id })
	s.Expenses = removed(s.Expenses, func(v core.Expense) bool { return v.InvoiceID == id })
	return s
}

// PersonInUse reports whether any expense or payment references the person.
// Callers check it before DeletePerson; the ledger does not.
func PersonInUse(s core.State, id string) bool {
	for _, e := range s.Expenses {
		if e.PersonID == id {
			return true
		}
	}
	for _, p := range s.Payments {
		if p.PersonID == id {
			return true
		}
	}
	return false
}

// CardInUse reports whether any expense references the card.
func CardInUse(s core.State, id string) bool {
	for _, e := range s.Expenses {
		if e.CardID == id {
			return true
		}
	}
	return false
}
