// Package lifecycle drives invoices through open and closed states.
//
// Closing an open invoice always rolls outstanding debt forward: a
// successor invoice is created and, for every person owing more than
// balance.DebtThresholdCents, a payment settles the old debt while an expense of
// the same amount re-homes it on the successor. Global debt is unchanged by
// a close. Multiple invoices may be open at once; "current" is a selection
// kept by callers and repaired with SelectCurrent.
package lifecycle

import (
	"context"
	"strings"
	"time"

	"faturas/internal/balance"
	"faturas/internal/core"
	"faturas/internal/ledger"
	"faturas/internal/log"
	"faturas/internal/report"
)

// ClosedEvent describes a completed close for downstream consumers.
type ClosedEvent struct {
	InvoiceID   string
	SuccessorID string
	// ReportRequested is set when the close asked for a report; ReportRef
	// is the export reference when that export succeeded.
	ReportRequested bool
	ReportRef       string
	// RolloverEntryIDs are the payment and expense ids the close added.
	RolloverEntryIDs []string
}

// EventPublisher is told about completed closes.
type EventPublisher interface {
	PublishInvoiceClosed(ctx context.Context, ev ClosedEvent) error
}

// Manager runs invoice state transitions against a ledger store.
type Manager struct {
	store     *ledger.Store
	exporter  report.Exporter
	publisher EventPublisher
	locale    Locale
	now       func() time.Time
	logger    *log.Logger
}

type Option func(*Manager)

// WithExporter sets the report exporter used when a close asks for one.
func WithExporter(e report.Exporter) Option {
	return func(m *Manager) { m.exporter = e }
}

// WithPublisher sets where close events go.
func WithPublisher(p EventPublisher) Option {
	return func(m *Manager) { m.publisher = p }
}

func WithLocale(l Locale) Option {
	return func(m *Manager) { m.locale = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func NewManager(store *ledger.Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		locale: English,
		now:    time.Now,
		logger: log.New(log.DefaultConfig()),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.WithComponent(log.ComponentLifecycle)
	return m
}

// Locale returns the naming locale in use.
func (m *Manager) Locale() Locale {
	return m.locale
}

// Create opens a new invoice and returns its id. A blank name gets the
// fallback suggestion.
func (m *Manager) Create(ctx context.Context, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = NextInvoiceName("", m.now(), m.locale)
	}
	id := m.store.CreateInvoice(ctx, name)
	m.logger.InfoContext(ctx, "Invoice created", log.FieldOperation, log.OpCreate, log.FieldInvoiceID, id, log.FieldInvoiceName, name)
	return id
}

// Toggle flips open and closed without any rollover.
func (m *Manager) Toggle(ctx context.Context, id string) {
	m.store.ToggleInvoiceStatus(ctx, id)
}

// Reopen moves a closed invoice back to open. Entries created by an
// earlier close stay where they are.
func (m *Manager) Reopen(ctx context.Context, id string) {
	inv, ok := m.store.State().Invoice(id)
	if !ok || inv.IsOpen() {
		return
	}
	m.store.ToggleInvoiceStatus(ctx, id)
	m.logger.InfoContext(ctx, "Invoice reopened", log.FieldOperation, log.OpUpdate, log.FieldInvoiceID, id)
}

func (m *Manager) Rename(ctx context.Context, id, name string) {
	m.store.RenameInvoice(ctx, id, name)
}

// Delete removes the invoice with its expenses and returns the invoice the
// caller should select next.
func (m *Manager) Delete(ctx context.Context, id, current string) string {
	m.store.DeleteInvoice(ctx, id)
	next := SelectCurrent(m.store.State(), current)
	m.logger.InfoContext(ctx, "Invoice deleted", log.FieldOperation, log.OpDelete, log.FieldInvoiceID, id, "selected", next)
	return next
}

// SelectCurrent keeps current if it still exists, otherwise picks the first
// open invoice, then the first invoice, then none.
func SelectCurrent(s core.State, current string) string {
	if current != "" {
		if _, ok := s.Invoice(current); ok {
			return current
		}
	}
	if inv, ok := balance.CurrentInvoice(s); ok {
		return inv.ID
	}
	if len(s.Invoices) > 0 {
		return s.Invoices[0].ID
	}
	return ""
}

// CloseProposal is what a caller shows before confirming a close.
type CloseProposal struct {
	InvoiceID     string `json:"invoiceId"`
	SuggestedName string `json:"suggestedName"`
	// ExportDefault is true when the invoice is the newest one.
	ExportDefault bool `json:"exportDefault"`
}

// InitiateClose prepares a close. ok is false when the invoice does not
// exist or is already closed.
func (m *Manager) InitiateClose(id string) (CloseProposal, bool) {
	st := m.store.State()
	inv, found := st.Invoice(id)
	if !found || !inv.IsOpen() {
		return CloseProposal{}, false
	}
	return CloseProposal{
		InvoiceID:     id,
		SuggestedName: NextInvoiceName(inv.Name, m.now(), m.locale),
		ExportDefault: st.Invoices[0].ID == id,
	}, true
}

type CloseRequest struct {
	InvoiceID string `json:"invoiceId"`
	// NextName names the successor; blank uses the suggestion.
	NextName     string `json:"nextName"`
	ExportReport bool   `json:"exportReport"`
}

// Rollover records the entries that moved one person's debt.
type Rollover struct {
	PersonID  string     `json:"personId"`
	Amount    core.Money `json:"amount"`
	PaymentID string     `json:"paymentId"`
	ExpenseID string     `json:"expenseId"`
}

type CloseResult struct {
	Closed      bool       `json:"closed"`
	SuccessorID string     `json:"successorId,omitempty"`
	Rollovers   []Rollover `json:"rollovers,omitempty"`
	ReportRef   string     `json:"reportRef,omitempty"`
	// ReportErr is set when the export failed; the close still happened.
	ReportErr error `json:"-"`
}

// ConfirmClose closes an open invoice with debt rollover. The report, when
// requested, is built from the state before the close and a failure to
// export it never stops the close. Closing an unknown or closed invoice
// does nothing.
func (m *Manager) ConfirmClose(ctx context.Context, req CloseRequest) CloseResult {
	before := m.store.State()
	inv, ok := before.Invoice(req.InvoiceID)
	if !ok || !inv.IsOpen() {
		return CloseResult{}
	}

	var res CloseResult
	if req.ExportReport {
		res.ReportRef, res.ReportErr = m.exportReport(ctx, before, inv)
	}

	now := m.now()
	name := strings.TrimSpace(req.NextName)
	if name == "" {
		name = NextInvoiceName(inv.Name, now, m.locale)
	}
	today := core.DateOf(now)
	successor := core.NewID()

	m.store.Update(ctx, "close_invoice", func(st core.State) core.State {
		cur, ok := st.Invoice(inv.ID)
		if !ok || !cur.IsOpen() {
			return st
		}
		res.Closed = true
		res.SuccessorID = successor
		res.Rollovers = nil

		st = ledger.CreateInvoice(st, successor, name)
		for _, p := range st.People {
			debt := balance.RemainingDebt(st, p.ID)
			if !balance.InDebt(debt) {
				continue
			}
			ro := Rollover{PersonID: p.ID, Amount: debt, PaymentID: core.NewID(), ExpenseID: core.NewID()}
			st = ledger.AddPayment(st, core.Payment{
				ID:       ro.PaymentID,
				PersonID: p.ID,
				Amount:   debt,
				Date:     today,
			})
			st = ledger.AddExpense(st, core.Expense{
				ID:          ro.ExpenseID,
				Description: m.locale.PreviousBalanceDescription(cur.Name),
				Amount:      debt,
				Date:        today,
				CategoryID:  core.CategoryOther,
				PersonID:    p.ID,
				CardID:      rolloverCard(st, p.ID),
				InvoiceID:   successor,
			})
			res.Rollovers = append(res.Rollovers, ro)
		}
		return ledger.ToggleInvoiceStatus(st, inv.ID)
	})

	if !res.Closed {
		return res
	}
	m.logger.InfoContext(ctx, "Invoice closed",
		log.FieldOperation, log.OpClose,
		log.FieldInvoiceID, inv.ID,
		log.FieldInvoiceName, inv.Name,
		log.FieldSuccessorID, successor,
		log.FieldRollovers, len(res.Rollovers))

	if m.publisher != nil {
		ev := ClosedEvent{
			InvoiceID:       inv.ID,
			SuccessorID:     successor,
			ReportRequested: req.ExportReport,
			ReportRef:       res.ReportRef,
		}
		for _, ro := range res.Rollovers {
			ev.RolloverEntryIDs = append(ev.RolloverEntryIDs, ro.PaymentID, ro.ExpenseID)
		}
		if err := m.publisher.PublishInvoiceClosed(ctx, ev); err != nil {
			m.logger.ErrorContext(ctx, "Failed to publish invoice closed event",
				log.FieldInvoiceID, inv.ID, log.FieldError, err)
		}
	}
	return res
}

func (m *Manager) exportReport(ctx context.Context, st core.State, inv core.Invoice) (string, error) {
	if m.exporter == nil {
		m.logger.WarnContext(ctx, "No report exporter configured, skipping export", log.FieldOperation, log.OpExport, log.FieldInvoiceID, inv.ID)
		return "", nil
	}
	r, err := report.Build(st, inv.ID, m.now())
	if err != nil {
		return "", err
	}
	ref, err := m.exporter.Export(ctx, r)
	if err != nil {
		m.logger.ErrorContext(ctx, "Report export failed, closing anyway",
			log.FieldOperation, log.OpExport,
			log.FieldInvoiceID, inv.ID, log.FieldError, err)
		return "", err
	}
	m.logger.InfoContext(ctx, "Report exported", log.FieldOperation, log.OpExport, log.FieldInvoiceID, inv.ID, log.FieldReportRef, ref)
	return ref, nil
}

// rolloverCard picks the card of the person's most recently inserted
// expense, falling back to the first card.
func rolloverCard(s core.State, personID string) string {
	for _, e := range s.Expenses {
		if e.PersonID == personID && e.CardID != "" {
			if _, ok := s.Card(e.CardID); ok {
				return e.CardID
			}
		}
	}
	if len(s.Cards) > 0 {
		return s.Cards[0].ID
	}
	return ""
}
