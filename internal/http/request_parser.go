package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"faturas/internal/core"
	"faturas/internal/lifecycle"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// decodeJSON reads exactly one JSON object into dst, rejecting unknown
// fields and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return errors.New("invalid JSON: trailing data")
	}
	return nil
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

type personRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (p personRequest) toPerson(id string) core.Person {
	return core.Person{ID: id, Name: sanitizeInput(p.Name), Color: sanitizeInput(p.Color)}
}

type cardRequest struct {
	Name        string `json:"name"`
	Last4Digits string `json:"last4Digits"`
	Color       string `json:"color"`
}

func (c cardRequest) toCard(id string) core.CreditCard {
	return core.CreditCard{
		ID:          id,
		Name:        sanitizeInput(c.Name),
		Last4Digits: sanitizeInput(c.Last4Digits),
		Color:       sanitizeInput(c.Color),
	}
}

// classifyRequest is the body of POST /api/classify.
type classifyRequest struct {
	Description string     `json:"description"`
	Amount      core.Money `json:"amount"`
}

// expenseUpdateRequest is the body of PUT /api/expenses/{id}.
type expenseUpdateRequest struct {
	Description string        `json:"description"`
	Amount      core.Money    `json:"amount"`
	Date        core.Date     `json:"date"`
	CategoryID  core.Category `json:"categoryId"`
	PersonID    string        `json:"personId"`
	CardID      string        `json:"cardId"`
	InvoiceID   string        `json:"invoiceId"`
	AIAnalysis  string        `json:"aiAnalysis"`
}

func (e expenseUpdateRequest) toExpense(id string) core.Expense {
	return core.Expense{
		ID:          id,
		Description: sanitizeInput(e.Description),
		Amount:      e.Amount,
		Date:        e.Date,
		CategoryID:  e.CategoryID,
		PersonID:    e.PersonID,
		CardID:      e.CardID,
		InvoiceID:   e.InvoiceID,
		AIAnalysis:  sanitizeInput(e.AIAnalysis),
	}
}

type invoiceNameRequest struct {
	Name string `json:"name"`
}

type invoiceDeleteResponse struct {
	CurrentInvoiceID string `json:"currentInvoiceId"`
}

type confirmCloseRequest struct {
	NextName     string `json:"nextName"`
	ExportReport bool   `json:"exportReport"`
}

type closeResponse struct {
	Closed      bool                 `json:"closed"`
	SuccessorID string               `json:"successorId,omitempty"`
	Rollovers   []lifecycle.Rollover `json:"rollovers,omitempty"`
	ReportRef   string               `json:"reportRef,omitempty"`
	// ReportError is set when the close went through but the report did not.
	ReportError string `json:"reportError,omitempty"`
}
