package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"faturas/internal/core"
)

// FileRepository stores the state as one JSON document, the same layout a
// browser export of the ledger uses.
type FileRepository struct {
	mu   sync.Mutex
	path string
}

// NewFileRepository prepares path's directory. The file itself is created
// on the first Persist.
func NewFileRepository(path string) (*FileRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &FileRepository{path: path}, nil
}

func (f *FileRepository) Load(_ context.Context) (core.State, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return core.State{}, false, nil
	}
	if err != nil {
		return core.State{}, false, fmt.Errorf("read state file: %w", err)
	}
	st, err := core.DecodeState(data)
	if err != nil {
		return core.State{}, false, err
	}
	return st, true, nil
}

// Persist writes to a temporary file and renames it over the old one so a
// crash never leaves a half-written ledger.
func (f *FileRepository) Persist(_ context.Context, s core.State) error {
	data, err := core.EncodeState(s)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".ledger-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

func (f *FileRepository) Close() error { return nil }
