// Package services holds the entry-side workflows that sit between the HTTP
// layer and the ledger: form validation, defaults, in-use guards and the
// detached classification of new expenses.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"faturas/internal/classify"
	"faturas/internal/core"
	"faturas/internal/ledger"
	"faturas/internal/log"
)

const (
	DefaultDescription = "Miscellaneous"
	DefaultPersonColor = "#000"
	DefaultCardColor   = "#4f46e5"
	defaultTimeout     = 15 * time.Second
)

// ErrInUse is returned when a person or card is still referenced.
var ErrInUse = errors.New("still referenced by expenses or payments")

// ExpenseService turns form input into ledger mutations.
type ExpenseService struct {
	store       *ledger.Store
	classifier  classify.Classifier
	timeout     time.Duration
	description string
	logger      *log.Logger
	now         func() time.Time

	wg sync.WaitGroup
}

type Option func(*ExpenseService)

func WithClassifier(c classify.Classifier) Option {
	return func(s *ExpenseService) {
		if c != nil {
			s.classifier = c
		}
	}
}

// WithClassifyTimeout bounds each background classification.
func WithClassifyTimeout(d time.Duration) Option {
	return func(s *ExpenseService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithDefaultDescription replaces the description used for blank input.
func WithDefaultDescription(d string) Option {
	return func(s *ExpenseService) {
		if strings.TrimSpace(d) != "" {
			s.description = d
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *ExpenseService) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *ExpenseService) { s.now = now }
}

func NewExpenseService(store *ledger.Store, opts ...Option) *ExpenseService {
	s := &ExpenseService{
		store:       store,
		classifier:  classify.Disabled{},
		timeout:     defaultTimeout,
		description: DefaultDescription,
		logger:      log.Discard(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentExpense)
	return s
}

// ExpenseInput is the data an expense form collects.
type ExpenseInput struct {
	Description string     `json:"description"`
	Amount      core.Money `json:"amount"`
	Date        core.Date  `json:"date"`
	PersonID    string     `json:"personId"`
	CardID      string     `json:"cardId"`
	InvoiceID   string     `json:"invoiceId"`
	// CategoryID and AIAnalysis carry a category picked on the form, and
	// the tip of a suggestion the user accepted.
	CategoryID core.Category `json:"categoryId,omitempty"`
	AIAnalysis string        `json:"aiAnalysis,omitempty"`
}

// AddExpense stores the expense straight away. Without a chosen category it
// is filed as Other and, when the description was typed by the user, the
// classifier is asked in the background. The call never waits for the
// classifier.
func (s *ExpenseService) AddExpense(ctx context.Context, in ExpenseInput) (core.Expense, error) {
	desc := strings.TrimSpace(in.Description)
	typed := desc != ""
	if !typed {
		desc = s.description
	}
	category := in.CategoryID
	chosen := category != ""
	if !chosen {
		category = core.CategoryOther
	} else if !category.IsValid() {
		return core.Expense{}, fmt.Errorf("%w: %q", core.ErrInvalidCategory, category)
	}
	if in.Date.IsZero() {
		in.Date = core.DateOf(s.now())
	}
	e := core.Expense{
		ID:          core.NewID(),
		Description: desc,
		Amount:      in.Amount,
		Date:        in.Date,
		CategoryID:  category,
		PersonID:    in.PersonID,
		CardID:      in.CardID,
		InvoiceID:   in.InvoiceID,
		AIAnalysis:  strings.TrimSpace(in.AIAnalysis),
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	s.store.AddExpense(ctx, e)
	s.logger.InfoContext(ctx, "Expense added",
		log.NewFields().WithOperation(log.OpCreate).
			WithExpense(e.ID, e.PersonID, e.Amount.Cents, string(e.CategoryID)).ToSlice()...)

	if typed && !chosen {
		s.wg.Add(1)
		go s.classify(context.WithoutCancel(ctx), e)
	}
	return e, nil
}

func (s *ExpenseService) classify(ctx context.Context, e core.Expense) {
	defer s.wg.Done()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sug, err := s.classifier.Classify(ctx, e.Description, e.Amount)
	if err != nil {
		s.logger.DebugContext(ctx, "No category suggestion",
			log.FieldOperation, log.OpClassify, log.FieldExpenseID, e.ID, log.FieldError, err.Error())
		return
	}

	applied := false
	s.store.Update(ctx, "apply_suggestion", func(st core.State) core.State {
		cur, ok := st.Expense(e.ID)
		if !ok {
			return st
		}
		cur.CategoryID = sug.Category
		cur.AIAnalysis = sug.Tip
		applied = true
		return ledger.UpdateExpense(st, cur)
	})
	if applied {
		s.logger.InfoContext(ctx, "Category suggestion applied",
			log.FieldOperation, log.OpClassify, log.FieldExpenseID, e.ID, log.FieldCategory, string(sug.Category))
	}
}

// Suggest asks the classifier for a category and tip before the expense is
// saved. ErrUnavailable means no suggestion, which callers show as such.
func (s *ExpenseService) Suggest(ctx context.Context, description string, amount core.Money) (classify.Suggestion, error) {
	description = strings.TrimSpace(description)
	if description == "" || amount.Cents <= 0 {
		return classify.Suggestion{}, classify.ErrUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	sug, err := s.classifier.Classify(ctx, description, amount)
	if err != nil {
		s.logger.DebugContext(ctx, "No category suggestion", log.FieldOperation, log.OpClassify, log.FieldError, err.Error())
		if !errors.Is(err, classify.ErrUnavailable) {
			err = fmt.Errorf("%w: %v", classify.ErrUnavailable, err)
		}
		return classify.Suggestion{}, err
	}
	return sug, nil
}

// Wait blocks until every background classification has finished.
func (s *ExpenseService) Wait() { s.wg.Wait() }

// UpdateExpense replaces an existing expense after validating it.
func (s *ExpenseService) UpdateExpense(ctx context.Context, e core.Expense) error {
	if strings.TrimSpace(e.Description) == "" {
		e.Description = s.description
	}
	e.CategoryID = e.CategoryID.OrOther()
	if err := e.Validate(); err != nil {
		return err
	}
	s.store.UpdateExpense(ctx, e)
	return nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, id string) {
	s.store.DeleteExpense(ctx, id)
}

// PaymentInput is the data a payment form collects.
type PaymentInput struct {
	PersonID string     `json:"personId"`
	Amount   core.Money `json:"amount"`
	Date     core.Date  `json:"date"`
}

func (s *ExpenseService) AddPayment(ctx context.Context, in PaymentInput) (core.Payment, error) {
	if in.Date.IsZero() {
		in.Date = core.DateOf(s.now())
	}
	p := core.Payment{ID: core.NewID(), PersonID: in.PersonID, Amount: in.Amount, Date: in.Date}
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	s.store.AddPayment(ctx, p)
	s.logger.InfoContext(ctx, "Payment added", log.FieldOperation, log.OpCreate,
		log.FieldPersonID, p.PersonID, log.FieldAmountCents, p.Amount.Cents)
	return p, nil
}

func (s *ExpenseService) DeletePayment(ctx context.Context, id string) {
	s.store.DeletePayment(ctx, id)
}

// SavePerson adds the person when ID is empty, otherwise updates it.
func (s *ExpenseService) SavePerson(ctx context.Context, p core.Person) (core.Person, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := p.Validate(); err != nil {
		return core.Person{}, err
	}
	if p.Color == "" {
		p.Color = DefaultPersonColor
	}
	if p.ID == "" {
		p.ID = core.NewID()
		s.store.AddPerson(ctx, p)
		return p, nil
	}
	s.store.UpdatePerson(ctx, p)
	return p, nil
}

// DeletePerson refuses to remove someone still referenced by the ledger.
func (s *ExpenseService) DeletePerson(ctx context.Context, id string) error {
	if ledger.PersonInUse(s.store.State(), id) {
		return fmt.Errorf("person %s: %w", id, ErrInUse)
	}
	s.store.DeletePerson(ctx, id)
	return nil
}

// SaveCard adds the card when ID is empty, otherwise updates it.
func (s *ExpenseService) SaveCard(ctx context.Context, c core.CreditCard) (core.CreditCard, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.CreditCard{}, err
	}
	if c.Color == "" {
		c.Color = DefaultCardColor
	}
	if c.ID == "" {
		c.ID = core.NewID()
		s.store.AddCard(ctx, c)
		return c, nil
	}
	s.store.UpdateCard(ctx, c)
	return c, nil
}

func (s *ExpenseService) DeleteCard(ctx context.Context, id string) error {
	if ledger.CardInUse(s.store.State(), id) {
		return fmt.Errorf("card %s: %w", id, ErrInUse)
	}
	s.store.DeleteCard(ctx, id)
	return nil
}
