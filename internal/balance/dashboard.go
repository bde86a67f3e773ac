package balance

import "faturas/internal/core"

// PersonBalance is one person's row on the dashboard.
type PersonBalance struct {
	Person        core.Person  `json:"person"`
	CurrentSpend  core.Money   `json:"currentSpend"`
	CurrentByCard []CardAmount `json:"currentByCard"`
	LifetimeSpend core.Money   `json:"lifetimeSpend"`
	LifetimePaid  core.Money   `json:"lifetimePaid"`
	Debt          core.Money   `json:"debt"`
	InDebt        bool         `json:"inDebt"`
}

// Dashboard combines current-invoice figures with global balances.
type Dashboard struct {
	Invoice      *core.Invoice         `json:"invoice,omitempty"`
	InvoiceTotal core.Money            `json:"invoiceTotal"`
	ByCategory   []core.CategoryAmount `json:"byCategory"`
	People       []PersonBalance       `json:"people"`
	TotalSpent   core.Money            `json:"totalSpent"`
	TotalPaid    core.Money            `json:"totalPaid"`
	GlobalDebt   core.Money            `json:"globalDebt"`
}

// BuildDashboard computes the dashboard for invoiceID. An empty id selects
// the first open invoice; with none open the current figures are zero.
func BuildDashboard(s core.State, invoiceID string) Dashboard {
	var d Dashboard
	if invoiceID == "" {
		if inv, ok := CurrentInvoice(s); ok {
			invoiceID = inv.ID
		}
	}
	if inv, ok := s.Invoice(invoiceID); ok {
		d.Invoice = &inv
	}

	var current []core.Expense
	if d.Invoice != nil {
		current = InvoiceExpenses(s, d.Invoice.ID)
	}
	d.InvoiceTotal = Total(current)
	d.ByCategory = ByCategory(current)

	d.People = make([]PersonBalance, 0, len(s.People))
	for _, p := range s.People {
		spend := LifetimeSpend(s, p.ID)
		paid := LifetimePaid(s, p.ID)
		debt := spend.Sub(paid)
		d.People = append(d.People, PersonBalance{
			Person:        p,
			CurrentSpend:  PersonSpend(p.ID, current),
			CurrentByCard: PersonByCard(s.Cards, p.ID, current),
			LifetimeSpend: spend,
			LifetimePaid:  paid,
			Debt:          debt,
			InDebt:        InDebt(debt),
		})
	}

	d.TotalSpent = TotalSpent(s)
	d.TotalPaid = TotalPaid(s)
	d.GlobalDebt = d.TotalSpent.Sub(d.TotalPaid)
	return d
}
