// Package report shapes ledger data into the tables of an invoice closing
// report. It only reads; rendering is left to an Exporter.
package report

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"faturas/internal/balance"
	"faturas/internal/core"
)

// UnknownCard labels expenses whose card no longer exists.
const UnknownCard = "Unknown"

var ErrUnknownInvoice = errors.New("unknown invoice")

// Exporter renders a report somewhere (a spreadsheet, a queue, a file) and
// returns a reference to the result.
type Exporter interface {
	Export(ctx context.Context, r Report) (string, error)
}

// SummaryRow is a person's lifetime position.
type SummaryRow struct {
	Person core.Person `json:"person"`
	Spent  core.Money  `json:"spent"`
	Paid   core.Money  `json:"paid"`
	Debt   core.Money  `json:"debt"`
}

// CardRow is a per-card subtotal inside a person's breakdown.
type CardRow struct {
	CardID string     `json:"cardId"`
	Label  string     `json:"label"`
	Amount core.Money `json:"amount"`
}

// PersonBreakdown is a person's spend on the target invoice, per card.
type PersonBreakdown struct {
	Person core.Person `json:"person"`
	Total  core.Money  `json:"total"`
	Cards  []CardRow   `json:"cards"`
}

// Line is one expense in the detailed statement.
type Line struct {
	Date        core.Date     `json:"date"`
	Description string        `json:"description"`
	Category    core.Category `json:"category"`
	Card        string        `json:"card"`
	Amount      core.Money    `json:"amount"`
}

// PersonStatement lists a person's expenses on the invoice, newest first.
type PersonStatement struct {
	Person   core.Person `json:"person"`
	Lines    []Line      `json:"lines"`
	Subtotal core.Money  `json:"subtotal"`
}

// Report is everything a renderer needs for one invoice.
type Report struct {
	Invoice     core.Invoice      `json:"invoice"`
	GeneratedAt time.Time         `json:"generatedAt"`
	Summary     []SummaryRow      `json:"summary"`
	Breakdown   []PersonBreakdown `json:"breakdown"`
	Statement   []PersonStatement `json:"statement"`
	GlobalTotal core.Money        `json:"globalTotal"`
}

// Build assembles the report for invoiceID from s.
//
// The summary covers every person over the whole history and is left empty
// when the ledger has no expenses at all. Breakdown and statement only
// include people with expenses on the invoice.
func Build(s core.State, invoiceID string, generatedAt time.Time) (Report, error) {
	inv, ok := s.Invoice(invoiceID)
	if !ok {
		return Report{}, fmt.Errorf("%w: %s", ErrUnknownInvoice, invoiceID)
	}
	r := Report{Invoice: inv, GeneratedAt: generatedAt}

	if len(s.Expenses) > 0 {
		for _, p := range s.People {
			spent := balance.LifetimeSpend(s, p.ID)
			paid := balance.LifetimePaid(s, p.ID)
			r.Summary = append(r.Summary, SummaryRow{Person: p, Spent: spent, Paid: paid, Debt: spent.Sub(paid)})
		}
	}

	expenses := balance.InvoiceExpenses(s, invoiceID)
	for _, p := range s.People {
		var mine []core.Expense
		for _, e := range expenses {
			if e.PersonID == p.ID {
				mine = append(mine, e)
			}
		}
		if len(mine) == 0 {
			continue
		}
		total := balance.Total(mine)

		var cards []CardRow
		for _, ca := range balance.PersonByCard(s.Cards, p.ID, mine) {
			cards = append(cards, CardRow{CardID: ca.CardID, Label: cardLabel(s, ca.CardID), Amount: ca.Amount})
		}
		r.Breakdown = append(r.Breakdown, PersonBreakdown{Person: p, Total: total, Cards: cards})

		sort.SliceStable(mine, func(i, j int) bool {
			return mine[i].Date.After(mine[j].Date.Time)
		})
		lines := make([]Line, 0, len(mine))
		for _, e := range mine {
			lines = append(lines, Line{
				Date:        e.Date,
				Description: e.Description,
				Category:    e.CategoryID.OrOther(),
				Card:        cardLabel(s, e.CardID),
				Amount:      e.Amount,
			})
		}
		r.Statement = append(r.Statement, PersonStatement{Person: p, Lines: lines, Subtotal: total})
		r.GlobalTotal = r.GlobalTotal.Add(total)
	}
	return r, nil
}

func cardLabel(s core.State, id string) string {
	if c, ok := s.Card(id); ok {
		return c.Name
	}
	return UnknownCard
}

var whitespace = regexp.MustCompile(`\s+`)

// Title is the heading used by renderers.
func (r Report) Title() string {
	return "Closing Report: " + r.Invoice.Name
}

// Filename is a filesystem and sheet-safe base name for the report.
func (r Report) Filename() string {
	return "Fatura-" + whitespace.ReplaceAllString(strings.TrimSpace(r.Invoice.Name), "_")
}
