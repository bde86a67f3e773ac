package core

import (
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want Date
		ok   bool
	}{
		{"2024-03-15", NewDate(2024, 3, 15), true},
		{"2024-03-15T10:20:30.000Z", NewDate(2024, 3, 15), true},
		{" 2024-12-01 ", NewDate(2024, 12, 1), true},
		{"15/03/2024", Date{}, false},
		{"", Date{}, false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(tc.want.Time) {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.want, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestInvoiceStatusToggled(t *testing.T) {
	if InvoiceOpen.Toggled() != InvoiceClosed {
		t.Fatalf("open should toggle to closed")
	}
	if InvoiceClosed.Toggled() != InvoiceOpen {
		t.Fatalf("closed should toggle to open")
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Description: "Mercado",
		Amount:      Money{Cents: 100},
		Date:        NewDate(2025, 1, 1),
		PersonID:    "p1",
		CardID:      "c1",
		InvoiceID:   "i1",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{Date: Date{}, Amount: Money{Cents: 1}, PersonID: "p", CardID: "c", InvoiceID: "i"},
		{Date: NewDate(2025, 1, 1), Amount: Money{Cents: 0}, PersonID: "p", CardID: "c", InvoiceID: "i"},
		{Date: NewDate(2025, 1, 1), Amount: Money{Cents: 1}, PersonID: "", CardID: "c", InvoiceID: "i"},
		{Date: NewDate(2025, 1, 1), Amount: Money{Cents: 1}, PersonID: "p", CardID: "", InvoiceID: "i"},
		{Date: NewDate(2025, 1, 1), Amount: Money{Cents: 1}, PersonID: "p", CardID: "c", InvoiceID: ""},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestCreditCardValidate(t *testing.T) {
	cases := []struct {
		card CreditCard
		ok   bool
	}{
		{CreditCard{Name: "Nubank", Last4Digits: "1234"}, true},
		{CreditCard{Name: "Inter"}, true},
		{CreditCard{Name: ""}, false},
		{CreditCard{Name: "Itaú", Last4Digits: "12a4"}, false},
		{CreditCard{Name: "Itaú", Last4Digits: "123"}, false},
	}
	for i, tc := range cases {
		err := tc.card.Validate()
		if tc.ok != (err == nil) {
			t.Fatalf("case %d: ok=%v err=%v", i, tc.ok, err)
		}
	}
}

func TestCategoryOrOther(t *testing.T) {
	if Category("").OrOther() != CategoryOther {
		t.Fatalf("empty category should map to other")
	}
	if CategoryFood.OrOther() != CategoryFood {
		t.Fatalf("known category should be kept")
	}
	if !CategoryTravel.IsValid() || Category("Bogus").IsValid() {
		t.Fatalf("IsValid mismatch")
	}
}
