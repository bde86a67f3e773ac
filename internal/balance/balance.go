// Package balance computes totals and debts from a ledger snapshot.
//
// Every function is a pure O(n) scan; nothing is cached here. Debt is always
// computed over the whole history, never scoped to one invoice:
//
//	RemainingDebt(person) = LifetimeSpend(person) - LifetimePaid(person)
package balance

import (
	"sort"

	"faturas/internal/core"
)

// DebtThresholdCents is the residue, in cents, at or below which a positive
// debt is treated as settled (one currency unit).
const DebtThresholdCents int64 = 100

// CardAmount is a per-card subtotal.
type CardAmount struct {
	CardID string     `json:"cardId"`
	Amount core.Money `json:"amount"`
}

// InvoiceExpenses returns the expenses attached to invoiceID, in stored order.
func InvoiceExpenses(s core.State, invoiceID string) []core.Expense {
	var out []core.Expense
	for _, e := range s.Expenses {
		if e.InvoiceID == invoiceID {
			out = append(out, e)
		}
	}
	return out
}

// Total sums the amounts of expenses.
func Total(expenses []core.Expense) core.Money {
	var total core.Money
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// ByCategory groups expenses by category, largest first. Expenses without
// a category count as Other.
func ByCategory(expenses []core.Expense) []core.CategoryAmount {
	sums := make(map[core.Category]core.Money)
	var order []core.Category
	for _, e := range expenses {
		c := e.CategoryID.OrOther()
		if _, ok := sums[c]; !ok {
			order = append(order, c)
		}
		sums[c] = sums[c].Add(e.Amount)
	}
	out := make([]core.CategoryAmount, 0, len(order))
	for _, c := range order {
		out = append(out, core.CategoryAmount{Category: c, Amount: sums[c]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.Cents > out[j].Amount.Cents
	})
	return out
}

// PersonSpend sums the expenses of one person within the given set.
func PersonSpend(personID string, expenses []core.Expense) core.Money {
	var total core.Money
	for _, e := range expenses {
		if e.PersonID == personID {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// PersonByCard breaks a person's spend down per card. Known cards come
// first in card order, then unknown card ids in first-seen order. Cards
// without spend are omitted.
func PersonByCard(cards []core.CreditCard, personID string, expenses []core.Expense) []CardAmount {
	sums := make(map[string]core.Money)
	var seen []string
	for _, e := range expenses {
		if e.PersonID != personID {
			continue
		}
		if _, ok := sums[e.CardID]; !ok {
			seen = append(seen, e.CardID)
		}
		sums[e.CardID] = sums[e.CardID].Add(e.Amount)
	}

	out := make([]CardAmount, 0, len(seen))
	known := make(map[string]bool, len(cards))
	for _, c := range cards {
		known[c.ID] = true
		if amt, ok := sums[c.ID]; ok && amt.Cents > 0 {
			out = append(out, CardAmount{CardID: c.ID, Amount: amt})
		}
	}
	for _, id := range seen {
		if !known[id] && sums[id].Cents > 0 {
			out = append(out, CardAmount{CardID: id, Amount: sums[id]})
		}
	}
	return out
}

// LifetimeSpend sums every expense of the person across all invoices.
func LifetimeSpend(s core.State, personID string) core.Money {
	return PersonSpend(personID, s.Expenses)
}

// LifetimePaid sums every payment of the person.
func LifetimePaid(s core.State, personID string) core.Money {
	var total core.Money
	for _, p := range s.Payments {
		if p.PersonID == personID {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// RemainingDebt is lifetime spend minus lifetime paid. Negative means the
// person overpaid.
func RemainingDebt(s core.State, personID string) core.Money {
	return LifetimeSpend(s, personID).Sub(LifetimePaid(s, personID))
}

// TotalSpent sums every expense in the ledger.
func TotalSpent(s core.State) core.Money {
	return Total(s.Expenses)
}

// TotalPaid sums every payment in the ledger.
func TotalPaid(s core.State) core.Money {
	var total core.Money
	for _, p := range s.Payments {
		total = total.Add(p.Amount)
	}
	return total
}

// GlobalDebt is all expenses minus all payments. It equals the sum of
// RemainingDebt over people whenever no record references an unknown person.
func GlobalDebt(s core.State) core.Money {
	return TotalSpent(s).Sub(TotalPaid(s))
}

// InDebt reports whether a debt is above the rounding-noise threshold.
func InDebt(debt core.Money) bool {
	return debt.Cents > DebtThresholdCents
}

// CurrentInvoice returns the first open invoice.
func CurrentInvoice(s core.State) (core.Invoice, bool) {
	for _, inv := range s.Invoices {
		if inv.IsOpen() {
			return inv, true
		}
	}
	return core.Invoice{}, false
}
