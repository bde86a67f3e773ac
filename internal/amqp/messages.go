package amqp

import (
	"encoding/json"
	"time"

	"faturas/internal/lifecycle"
	"faturas/internal/report"
)

// Message types carried in the AMQP Type property.
const (
	TypeInvoiceClosed = "invoice.closed"
	TypeReport        = "invoice.report"
)

// InvoiceClosedMessage announces a completed close. Consumers read the
// ledger themselves if they need more than the ids.
type InvoiceClosedMessage struct {
	InvoiceID   string `json:"invoiceId"`
	SuccessorID string `json:"successorId"`
	// ReportRequested and ReportRef tell the worker whether a report is
	// still owed for this close.
	ReportRequested bool   `json:"reportRequested,omitempty"`
	ReportRef       string `json:"reportRef,omitempty"`
	// RolloverEntryIDs lists the entries the close added to the ledger.
	RolloverEntryIDs []string  `json:"rolloverEntryIds,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

func NewInvoiceClosedMessage(invoiceID, successorID string) *InvoiceClosedMessage {
	return &InvoiceClosedMessage{
		InvoiceID:   invoiceID,
		SuccessorID: successorID,
		Timestamp:   time.Now(),
	}
}

// MessageFromClosedEvent is the wire form of a close event.
func MessageFromClosedEvent(ev lifecycle.ClosedEvent) *InvoiceClosedMessage {
	m := NewInvoiceClosedMessage(ev.InvoiceID, ev.SuccessorID)
	m.ReportRequested = ev.ReportRequested
	m.ReportRef = ev.ReportRef
	m.RolloverEntryIDs = ev.RolloverEntryIDs
	return m
}

// ReportOwed reports whether the close asked for a report that was not
// exported by the server.
func (m *InvoiceClosedMessage) ReportOwed() bool {
	return m.ReportRequested && m.ReportRef == ""
}

func (m *InvoiceClosedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func InvoiceClosedMessageFromJSON(data []byte) (*InvoiceClosedMessage, error) {
	var msg InvoiceClosedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ReportMessage carries a fully assembled closing report so the worker can
// render it without access to the ledger as it was before the close.
type ReportMessage struct {
	Report    report.Report `json:"report"`
	Timestamp time.Time     `json:"timestamp"`
}

func ReportMessageFromJSON(data []byte) (*ReportMessage, error) {
	var msg ReportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
