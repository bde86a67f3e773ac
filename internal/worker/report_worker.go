// Package worker consumes ledger messages and renders closing reports.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"faturas/internal/amqp"
	"faturas/internal/cache"
	"faturas/internal/core"
	"faturas/internal/log"
	"faturas/internal/report"
)

// StateLoader reads the persisted ledger.
type StateLoader interface {
	Load(ctx context.Context) (core.State, bool, error)
}

// ReportWorker exports reports queued by the server and, for closes that
// arrive without one, builds the report from the persisted ledger.
type ReportWorker struct {
	exporter report.Exporter
	loader   StateLoader
	exported cache.Cache[string]
	logger   *log.Logger
	now      func() time.Time
}

var _ amqp.Handler = (*ReportWorker)(nil)

func NewReportWorker(exporter report.Exporter, loader StateLoader, logger *log.Logger) *ReportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ReportWorker{
		exporter: exporter,
		loader:   loader,
		exported: cache.NewLRU[string](256, 24*time.Hour),
		logger:   logger.WithComponent(log.ComponentWorker),
		now:      time.Now,
	}
}

// HandleReport exports a report assembled by the server before the close.
func (w *ReportWorker) HandleReport(ctx context.Context, msg *amqp.ReportMessage) error {
	ref, err := w.exporter.Export(ctx, msg.Report)
	if err != nil {
		return fmt.Errorf("export report for %s: %w", msg.Report.Invoice.ID, err)
	}
	w.exported.Set(msg.Report.Invoice.ID, ref)
	w.logger.InfoContext(ctx, "Queued report exported",
		log.FieldInvoiceID, msg.Report.Invoice.ID,
		log.FieldReportRef, ref)
	return nil
}

// HandleInvoiceClosed exports the report a close asked for when the server
// could not export it. The ledger is read after the close, so the entries
// the close added are left out before the report is built.
func (w *ReportWorker) HandleInvoiceClosed(ctx context.Context, msg *amqp.InvoiceClosedMessage) error {
	if !msg.ReportOwed() {
		w.logger.DebugContext(ctx, "No report owed for close",
			log.FieldInvoiceID, msg.InvoiceID, log.FieldReportRef, msg.ReportRef)
		return nil
	}
	if ref, ok := w.exported.Get(msg.InvoiceID); ok {
		w.logger.DebugContext(ctx, "Report already exported",
			log.FieldInvoiceID, msg.InvoiceID, log.FieldReportRef, ref)
		return nil
	}
	if w.loader == nil {
		return nil
	}

	st, found, err := w.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	if !found {
		w.logger.WarnContext(ctx, "No persisted ledger, skipping report", log.FieldInvoiceID, msg.InvoiceID)
		return nil
	}
	r, err := report.Build(withoutEntries(st, msg.RolloverEntryIDs), msg.InvoiceID, w.now())
	if errors.Is(err, report.ErrUnknownInvoice) {
		// Deleted after closing; nothing left to render.
		w.logger.WarnContext(ctx, "Closed invoice no longer exists", log.FieldInvoiceID, msg.InvoiceID)
		return nil
	}
	if err != nil {
		return err
	}
	ref, err := w.exporter.Export(ctx, r)
	if err != nil {
		return fmt.Errorf("export report for %s: %w", msg.InvoiceID, err)
	}
	w.exported.Set(msg.InvoiceID, ref)
	w.logger.InfoContext(ctx, "Report exported from ledger",
		log.FieldInvoiceID, msg.InvoiceID,
		log.FieldSuccessorID, msg.SuccessorID,
		log.FieldReportRef, ref)
	return nil
}

// withoutEntries drops the payments and expenses with the given ids.
func withoutEntries(st core.State, ids []string) core.State {
	if len(ids) == 0 {
		return st
	}
	skip := make(map[string]bool, len(ids))
	for _, id := range ids {
		skip[id] = true
	}
	out := st
	out.Expenses = make([]core.Expense, 0, len(st.Expenses))
	for _, e := range st.Expenses {
		if !skip[e.ID] {
			out.Expenses = append(out.Expenses, e)
		}
	}
	out.Payments = make([]core.Payment, 0, len(st.Payments))
	for _, p := range st.Payments {
		if !skip[p.ID] {
			out.Payments = append(out.Payments, p)
		}
	}
	return out
}
