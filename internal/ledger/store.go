package ledger

import (
	"context"
	"sync"

	"faturas/internal/core"
	"faturas/internal/log"
)

// Persister saves the full state after a mutation.
type Persister interface {
	Persist(ctx context.Context, s core.State) error
}

// Listener is notified after every mutation with the new snapshot.
type Listener func(s core.State, version uint64)

// Store is the single owner of the ledger state. Every mutation replaces the
// state value, bumps Version and persists the result before returning.
// Persist failures are logged; callers never see them.
type Store struct {
	mu        sync.Mutex
	state     core.State
	version   uint64
	persister Persister
	logger    *log.Logger

	lmu       sync.RWMutex
	listeners []Listener

	// nmu is taken before mu is released so listeners see versions in order.
	nmu sync.Mutex
}

// NewStore creates a store seeded with initial. A nil persister keeps the
// state in memory only.
func NewStore(initial core.State, persister Persister, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Store{
		state:     initial.Normalized(),
		persister: persister,
		logger:    logger.WithComponent(log.ComponentLedger),
	}
}

// Snapshot returns the current state and its version. The returned value
// must be treated as read-only.
func (s *Store) Snapshot() (core.State, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.version
}

// State returns the current state.
func (s *Store) State() core.State {
	st, _ := s.Snapshot()
	return st
}

// Version increases by one on every mutation.
func (s *Store) Version() uint64 {
	_, v := s.Snapshot()
	return v
}

// Subscribe registers fn to run after each mutation. Listeners are called
// one at a time in version order and must not mutate the store.
func (s *Store) Subscribe(fn Listener) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Update applies fn as one mutation: a single version bump and a single
// persist, no matter how many transforms fn chains.
func (s *Store) Update(ctx context.Context, op string, fn func(core.State) core.State) {
	s.mu.Lock()
	s.state = fn(s.state)
	s.version++
	st, v := s.state, s.version
	s.persist(ctx, op, st, v)
	s.nmu.Lock()
	s.mu.Unlock()
	defer s.nmu.Unlock()

	s.lmu.RLock()
	listeners := s.listeners
	s.lmu.RUnlock()
	for _, l := range listeners {
		l(st, v)
	}
}

func (s *Store) persist(ctx context.Context, op string, st core.State, v uint64) {
	if s.persister == nil {
		return
	}
	// A cancelled request must not drop a write that already happened in memory.
	if err := s.persister.Persist(context.WithoutCancel(ctx), st); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist state",
			log.FieldOperation, op,
			log.FieldVersion, v,
			log.FieldError, err)
		return
	}
	s.logger.DebugContext(ctx, "State persisted", log.FieldOperation, op, log.FieldVersion, v)
}

func (s *Store) AddPerson(ctx context.Context, p core.Person) {
	s.Update(ctx, "add_person", func(st core.State) core.State { return AddPerson(st, p) })
}

func (s *Store) UpdatePerson(ctx context.Context, p core.Person) {
	s.Update(ctx, "update_person", func(st core.State) core.State { return UpdatePerson(st, p) })
}

func (s *Store) DeletePerson(ctx context.Context, id string) {
	s.Update(ctx, "delete_person", func(st core.State) core.State { return DeletePerson(st, id) })
}

func (s *Store) AddCard(ctx context.Context, c core.CreditCard) {
	s.Update(ctx, "add_card", func(st core.State) core.State { return AddCard(st, c) })
}

func (s *Store) UpdateCard(ctx context.Context, c core.CreditCard) {
	s.Update(ctx, "update_card", func(st core.State) core.State { return UpdateCard(st, c) })
}

func (s *Store) DeleteCard(ctx context.Context, id string) {
	s.Update(ctx, "delete_card", func(st core.State) core.State { return DeleteCard(st, id) })
}

func (s *Store) AddExpense(ctx context.Context, e core.Expense) {
	s.Update(ctx, "add_expense", func(st core.State) core.State { return AddExpense(st, e) })
}

func (s *Store) UpdateExpense(ctx context.Context, e core.Expense) {
	s.Update(ctx, "update_expense", func(st core.State) core.State { return UpdateExpense(st, e) })
}

func (s *Store) DeleteExpense(ctx context.Context, id string) {
	s.Update(ctx, "delete_expense", func(st core.State) core.State { return DeleteExpense(st, id) })
}

func (s *Store) AddPayment(ctx context.Context, p core.Payment) {
	s.Update(ctx, "add_payment", func(st core.State) core.State { return AddPayment(st, p) })
}

func (s *Store) DeletePayment(ctx context.Context, id string) {
	s.Update(ctx, "delete_payment", func(st core.State) core.State { return DeletePayment(st, id) })
}

// CreateInvoice adds an open invoice and returns its fresh id.
func (s *Store) CreateInvoice(ctx context.Context, name string) string {
	id := core.NewID()
	s.Update(ctx, "create_invoice", func(st core.State) core.State { return CreateInvoice(st, id, name) })
	return id
}

func (s *Store) ToggleInvoiceStatus(ctx context.Context, id string) {
	s.Update(ctx, "toggle_invoice", func(st core.State) core.State { return ToggleInvoiceStatus(st, id) })
}

func (s *Store) RenameInvoice(ctx context.Context, id, name string) {
	s.Update(ctx, "rename_invoice", func(st core.State) core.State { return RenameInvoice(st, id, name) })
}

func (s *Store) DeleteInvoice(ctx context.Context, id string) {
	s.Update(ctx, "delete_invoice", func(st core.State) core.State { return DeleteInvoice(st, id) })
}
