// Package sheets renders closing reports into spreadsheet tabs.
package sheets

import (
	"context"
	"fmt"

	"faturas/internal/log"
	"faturas/internal/report"
)

// Writer is the outbound port a spreadsheet backend implements.
type Writer interface {
	// EnsureSheet creates the tab when missing and empties it otherwise.
	EnsureSheet(ctx context.Context, title string) error
	// WriteRows writes rows starting at A1 of the tab and returns a
	// reference to the written range.
	WriteRows(ctx context.Context, title string, rows [][]any) (string, error)
}

// Exporter implements report.Exporter on top of a Writer. Each report gets
// its own tab named after the report filename.
type Exporter struct {
	writer    Writer
	formatter report.Formatter
	logger    *log.Logger
}

func NewExporter(w Writer, f report.Formatter, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.Discard()
	}
	return &Exporter{writer: w, formatter: f, logger: logger.WithComponent(log.ComponentSheets)}
}

var _ report.Exporter = (*Exporter)(nil)

func (e *Exporter) Export(ctx context.Context, r report.Report) (string, error) {
	title := r.Filename()
	if err := e.writer.EnsureSheet(ctx, title); err != nil {
		return "", fmt.Errorf("prepare sheet %q: %w", title, err)
	}
	ref, err := e.writer.WriteRows(ctx, title, e.formatter.Rows(r))
	if err != nil {
		return "", fmt.Errorf("write sheet %q: %w", title, err)
	}
	e.logger.InfoContext(ctx, "Report exported",
		log.FieldInvoiceID, r.Invoice.ID,
		log.FieldReportRef, ref)
	return ref, nil
}
