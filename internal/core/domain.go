package core

import (
	"errors"
	"strings"
	"time"
)

const (
	InvoiceOpen   InvoiceStatus = "open"
	InvoiceClosed InvoiceStatus = "closed"
)

const dateLayout = "2006-01-02"

type (
	InvoiceStatus string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Person struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Color string `json:"color"`
	}

	CreditCard struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Last4Digits string `json:"last4Digits,omitempty"`
		Color       string `json:"color"`
	}

	// Invoice is one billing cycle. Expenses point at it through InvoiceID.
	Invoice struct {
		ID     string        `json:"id"`
		Name   string        `json:"name"`
		Status InvoiceStatus `json:"status"`
	}

	Expense struct {
		ID          string   `json:"id"`
		Description string   `json:"description"`
		Amount      Money    `json:"amount"`
		Date        Date     `json:"date"`
		CategoryID  Category `json:"categoryId"`
		PersonID    string   `json:"personId"`
		CardID      string   `json:"cardId"`
		AIAnalysis  string   `json:"aiAnalysis,omitempty"`
		InvoiceID   string   `json:"invoiceId"`
	}

	// Payment is money received from a person. It is not tied to an invoice.
	Payment struct {
		ID       string `json:"id"`
		PersonID string `json:"personId"`
		Amount   Money  `json:"amount"`
		Date     Date   `json:"date"`
	}
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyName        = errors.New("empty name")
	ErrMissingPerson    = errors.New("missing person")
	ErrMissingCard      = errors.New("missing card")
	ErrMissingInvoice   = errors.New("missing invoice")
	ErrDescriptionLong  = errors.New("description too long (max 200 characters)")
	ErrInvalidCategory  = errors.New("unknown category")
)

// IsOpen reports whether the invoice still accepts expenses.
func (i Invoice) IsOpen() bool {
	return i.Status == InvoiceOpen
}

// Toggled returns the opposite status. Unknown values are treated as closed.
func (s InvoiceStatus) Toggled() InvoiceStatus {
	if s == InvoiceOpen {
		return InvoiceClosed
	}
	return InvoiceOpen
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses an ISO calendar date. Timestamps are accepted and
// truncated to their date part.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String returns the ISO form, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// Validate checks the fields a form must fill before an expense is handed
// to the ledger. The ledger itself never calls it.
func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.PersonID) == "" {
		return ErrMissingPerson
	}
	if strings.TrimSpace(e.CardID) == "" {
		return ErrMissingCard
	}
	if strings.TrimSpace(e.InvoiceID) == "" {
		return ErrMissingInvoice
	}
	if len(e.Description) > 200 {
		return ErrDescriptionLong
	}
	return nil
}

func (p Payment) Validate() error {
	if err := p.Date.Validate(); err != nil {
		return err
	}
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(p.PersonID) == "" {
		return ErrMissingPerson
	}
	return nil
}

func (p Person) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (c CreditCard) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.Last4Digits != "" {
		if len(c.Last4Digits) != 4 || strings.Trim(c.Last4Digits, "0123456789") != "" {
			return errors.New("last 4 digits must be exactly four digits")
		}
	}
	return nil
}

// Label is the display name used wherever a card is rendered.
func (c CreditCard) Label() string {
	if c.Last4Digits == "" {
		return c.Name
	}
	return c.Name + " •" + c.Last4Digits
}
