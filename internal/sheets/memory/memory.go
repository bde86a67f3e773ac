// Package memory is an in-process sheets.Writer used for local runs and
// tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type Store struct {
	mu     sync.Mutex
	sheets map[string][][]any
}

func New() *Store {
	return &Store{sheets: make(map[string][][]any)}
}

func (s *Store) EnsureSheet(_ context.Context, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheets[title] = nil
	return nil
}

func (s *Store) WriteRows(_ context.Context, title string, rows [][]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sheets[title]; !ok {
		return "", fmt.Errorf("sheet %q does not exist", title)
	}
	cp := make([][]any, len(rows))
	for i, r := range rows {
		cp[i] = append([]any(nil), r...)
	}
	s.sheets[title] = cp
	return fmt.Sprintf("mem:%s!A1:%d", title, len(rows)), nil
}

// Sheet returns a copy of the rows in a tab.
func (s *Store) Sheet(title string) ([][]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.sheets[title]
	if !ok {
		return nil, false
	}
	return append([][]any(nil), rows...), true
}

// Titles lists the tabs in name order.
func (s *Store) Titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sheets))
	for t := range s.sheets {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
