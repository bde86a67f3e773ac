package report

import (
	"github.com/govalues/money"

	"faturas/internal/core"
)

// Formatter renders amounts in a fixed currency.
type Formatter struct {
	Currency string
}

// NewFormatter returns a formatter for an ISO 4217 code. Unknown codes
// fall back to BRL.
func NewFormatter(currency string) Formatter {
	if _, err := money.ParseCurr(currency); err != nil {
		currency = "BRL"
	}
	return Formatter{Currency: currency}
}

// Amount formats m with its currency code, e.g. "BRL 120.00".
func (f Formatter) Amount(m core.Money) string {
	amt, err := money.NewAmountFromMinorUnits(f.Currency, m.Cents)
	if err != nil {
		return f.Currency + " " + m.String()
	}
	return amt.String()
}

// Rows flattens a report into spreadsheet rows: a title block, the summary,
// the per-card breakdown, then the statement and its grand total.
func (f Formatter) Rows(r Report) [][]any {
	rows := [][]any{
		{r.Title()},
		{"Generated", r.GeneratedAt.Format("2006-01-02")},
		{},
	}

	if len(r.Summary) > 0 {
		rows = append(rows, []any{"Person", "Total Spent", "Total Paid", "Debt"})
		for _, s := range r.Summary {
			rows = append(rows, []any{s.Person.Name, f.Amount(s.Spent), f.Amount(s.Paid), f.Amount(s.Debt)})
		}
		rows = append(rows, []any{})
	}

	rows = append(rows, []any{"Person", "Card", "Amount"})
	for _, b := range r.Breakdown {
		rows = append(rows, []any{b.Person.Name, "", f.Amount(b.Total)})
		for _, c := range b.Cards {
			rows = append(rows, []any{"", c.Label, f.Amount(c.Amount)})
		}
	}
	rows = append(rows, []any{})

	rows = append(rows, []any{"Person", "Date", "Description", "Card", "Amount"})
	for _, st := range r.Statement {
		for _, l := range st.Lines {
			rows = append(rows, []any{st.Person.Name, l.Date.String(), l.Description, l.Card, f.Amount(l.Amount)})
		}
	}
	rows = append(rows, []any{}, []any{"Invoice Total", f.Amount(r.GlobalTotal)})
	return rows
}
