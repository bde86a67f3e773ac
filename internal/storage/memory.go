package storage

import (
	"context"
	"sync"

	"faturas/internal/core"
)

// MemoryRepository keeps the last persisted snapshot in process memory.
// It stores the encoded form so later mutations of the caller's slices can
// never leak into what was "saved".
type MemoryRepository struct {
	mu    sync.RWMutex
	blob  []byte
	saves int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Load(_ context.Context) (core.State, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.blob == nil {
		return core.State{}, false, nil
	}
	st, err := core.DecodeState(m.blob)
	if err != nil {
		return core.State{}, false, err
	}
	return st, true, nil
}

func (m *MemoryRepository) Persist(_ context.Context, s core.State) error {
	data, err := core.EncodeState(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blob = data
	m.saves++
	return nil
}

// Saves returns how many times Persist succeeded.
func (m *MemoryRepository) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

func (m *MemoryRepository) Close() error { return nil }
