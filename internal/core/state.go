package core

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// State is the whole ledger: the aggregate every component reads from.
// Slices are treated as immutable values; mutations build new slices.
type State struct {
	People   []Person     `json:"people"`
	Cards    []CreditCard `json:"cards"`
	Expenses []Expense    `json:"expenses"`
	Payments []Payment    `json:"payments"`
	Invoices []Invoice    `json:"invoices"`
}

// NewID returns a random identifier from a cryptographically strong source.
func NewID() string {
	return uuid.NewString()
}

// DefaultState is the seed used when nothing has been persisted yet.
func DefaultState() State {
	return State{
		People: []Person{
			{ID: "1", Name: "João", Color: "#4f46e5"},
			{ID: "2", Name: "Maria", Color: "#ec4899"},
		},
		Cards: []CreditCard{
			{ID: "1", Name: "Nubank", Last4Digits: "1234", Color: "#8b5cf6"},
		},
		Expenses: []Expense{},
		Payments: []Payment{},
		Invoices: []Invoice{},
	}
}

// Normalized returns s with nil collections replaced by empty ones.
func (s State) Normalized() State {
	if s.People == nil {
		s.People = []Person{}
	}
	if s.Cards == nil {
		s.Cards = []CreditCard{}
	}
	if s.Expenses == nil {
		s.Expenses = []Expense{}
	}
	if s.Payments == nil {
		s.Payments = []Payment{}
	}
	if s.Invoices == nil {
		s.Invoices = []Invoice{}
	}
	return s
}

// Person looks a person up by id.
func (s State) Person(id string) (Person, bool) {
	for _, p := range s.People {
		if p.ID == id {
			return p, true
		}
	}
	return Person{}, false
}

// Card looks a card up by id.
func (s State) Card(id string) (CreditCard, bool) {
	for _, c := range s.Cards {
		if c.ID == id {
			return c, true
		}
	}
	return CreditCard{}, false
}

// Invoice looks an invoice up by id.
func (s State) Invoice(id string) (Invoice, bool) {
	for _, inv := range s.Invoices {
		if inv.ID == id {
			return inv, true
		}
	}
	return Invoice{}, false
}

// Expense looks an expense up by id.
func (s State) Expense(id string) (Expense, bool) {
	for _, e := range s.Expenses {
		if e.ID == id {
			return e, true
		}
	}
	return Expense{}, false
}

// EncodeState serialises the state in its persisted layout.
func EncodeState(s State) ([]byte, error) {
	data, err := json.Marshal(s.Normalized())
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}

// DecodeState parses a persisted blob. Collections absent from older
// blobs (payments and invoices were added later) decode as empty.
func DecodeState(data []byte) (State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("decode state: %w", err)
	}
	return s.Normalized(), nil
}
