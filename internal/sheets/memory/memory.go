// Package memory is an in-process summary exporter for local runs and tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"cassa/internal/core"
	ports "cassa/internal/sheets"
)

var (
	_ ports.SummaryExporter = (*Store)(nil)
	_ ports.SummaryLister   = (*Store)(nil)
)

type Store struct {
	mu    sync.Mutex
	items []core.MonthlySummary
}

func New() *Store {
	return &Store{}
}

// ExportSummary records s unless its month is already present.
func (s *Store) ExportSummary(_ context.Context, summary core.MonthlySummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if core.HasSummary(s.items, summary.MonthKey) {
		return nil
	}
	s.items = core.SortSummaries(append(s.items, summary))
	return nil
}

func (s *Store) ExportedMonths(_ context.Context) ([]core.MonthKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]core.MonthKey, 0, len(s.items))
	for _, it := range s.items {
		keys = append(keys, it.MonthKey)
	}
	return keys, nil
}

// Summaries returns a copy of everything exported so far.
func (s *Store) Summaries() []core.MonthlySummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}
