// Package storage persists the ledger state as a whole.
//
// Every backend stores a complete snapshot on Persist and returns it on
// Load; there are no partial updates. Load reports found=false when nothing
// has ever been saved so callers can seed a default state.
package storage

import (
	"context"

	"faturas/internal/core"
	"faturas/internal/log"
)

// Repository is implemented by every persistence backend.
type Repository interface {
	Load(ctx context.Context) (core.State, bool, error)
	Persist(ctx context.Context, s core.State) error
	Close() error
}

// LoadOrDefault loads the persisted state, falling back to
// core.DefaultState when nothing was saved yet.
func LoadOrDefault(ctx context.Context, repo Repository, logger *log.Logger) (core.State, error) {
	st, found, err := repo.Load(ctx)
	if err != nil {
		return core.State{}, err
	}
	if !found {
		if logger != nil {
			logger.InfoContext(ctx, "No persisted state, starting from defaults")
		}
		return core.DefaultState(), nil
	}
	if logger != nil {
		logger.InfoContext(ctx, "Loaded persisted state",
			"people", len(st.People),
			"expenses", len(st.Expenses),
			"payments", len(st.Payments),
			"invoices", len(st.Invoices))
	}
	return st, nil
}
