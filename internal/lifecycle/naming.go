package lifecycle

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Locale carries the words the lifecycle writes into invoice names and
// rollover descriptions.
type Locale struct {
	Tag language.Tag
	// InvoiceWord prefixes fallback invoice names.
	InvoiceWord string
	// PreviousBalance is a format with one %s for the closed invoice name.
	PreviousBalance string
	// Months holds lower-case month names, January first.
	Months [12]string
}

var (
	English = Locale{
		Tag:             language.English,
		InvoiceWord:     "Invoice",
		PreviousBalance: "Previous Balance (%s)",
		Months: [12]string{"january", "february", "march", "april", "may", "june",
			"july", "august", "september", "october", "november", "december"},
	}

	Portuguese = Locale{
		Tag:             language.BrazilianPortuguese,
		InvoiceWord:     "Fatura",
		PreviousBalance: "Saldo Anterior (%s)",
		Months: [12]string{"janeiro", "fevereiro", "março", "abril", "maio", "junho",
			"julho", "agosto", "setembro", "outubro", "novembro", "dezembro"},
	}

	locales = []Locale{English, Portuguese}
	matcher = language.NewMatcher([]language.Tag{English.Tag, Portuguese.Tag})
)

// LocaleFor picks the closest supported locale for a BCP 47 tag such as
// "pt-BR" or "en". Unparseable tags fall back to English.
func LocaleFor(tag string) Locale {
	_, idx := language.MatchStrings(matcher, tag)
	if idx < 0 || idx >= len(locales) {
		return English
	}
	return locales[idx]
}

// MonthName returns the capitalised name of m.
func (l Locale) MonthName(m time.Month) string {
	return cases.Title(l.Tag).String(l.Months[int(m)-1])
}

// PreviousBalanceDescription describes a rollover expense.
func (l Locale) PreviousBalanceDescription(invoiceName string) string {
	return fmt.Sprintf(l.PreviousBalance, invoiceName)
}

// NextInvoiceName suggests a name for the invoice that follows current.
// The first month name found in current (case-insensitive, scanning
// January to December) is replaced by the following month. Without a month
// name the suggestion is the invoice word plus the month after now.
func NextInvoiceName(current string, now time.Time, l Locale) string {
	lower := strings.ToLower(current)
	for i, month := range l.Months {
		if !strings.Contains(lower, month) {
			continue
		}
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(month))
		next := l.MonthName(time.Month((i+1)%12 + 1))
		replaced := false
		return re.ReplaceAllStringFunc(current, func(m string) string {
			if replaced {
				return m
			}
			replaced = true
			return next
		})
	}
	return l.InvoiceWord + " " + l.MonthName(now.Month()%12+1)
}
