// Package ledger holds the in-memory books, writes them through to a
// snapshot backend and runs the rollover reconciler at startup.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"cassa/internal/core"
	"cassa/internal/log"
	"cassa/internal/storage"
)

// Collection names one persisted list. The values are the storage keys.
type Collection string

const (
	Earnings     Collection = "earnings"
	Expenditures Collection = "expenditures"
	Summaries    Collection = "monthlySummaries"
)

var (
	ErrMissingID   = errors.New("entry has no id")
	ErrDuplicateID = errors.New("entry id already present")
)

// Store is the in-memory copy of the books backed by a Snapshotter.
// Every mutation is persisted before it becomes visible; when the write
// fails the in-memory state is left as it was.
//
// Store is not safe for concurrent use; Service serializes access.
type Store struct {
	snap   storage.Snapshotter
	logger *log.Logger
	books  core.Books
}

func NewStore(snap storage.Snapshotter, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Discard()
	}
	return &Store{
		snap:   snap,
		logger: logger.WithComponent(log.ComponentStorage),
		books:  emptyBooks(),
	}
}

// Load replaces the in-memory books with what the backend holds. A
// collection that is missing or unreadable loads as empty; the others are
// unaffected.
func (s *Store) Load(ctx context.Context) {
	s.books = core.Books{
		Earnings:     loadCollection[core.Earning](ctx, s, Earnings),
		Expenditures: loadCollection[core.Expenditure](ctx, s, Expenditures),
		Summaries:    core.SortSummaries(loadCollection[core.MonthlySummary](ctx, s, Summaries)),
	}
	s.logger.InfoContext(ctx, "Ledger loaded",
		log.FieldOperation, log.OpLoad,
		"earnings", len(s.books.Earnings),
		"expenditures", len(s.books.Expenditures),
		"summaries", len(s.books.Summaries))
}

func loadCollection[T any](ctx context.Context, s *Store, c Collection) []T {
	data, err := s.snap.Load(ctx, string(c))
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.DebugContext(ctx, "No snapshot stored, starting empty", log.FieldCollection, c)
		return []T{}
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to read snapshot, starting empty",
			log.FieldCollection, c, log.FieldError, err)
		return []T{}
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		s.logger.WarnContext(ctx, "Failed to decode snapshot, starting empty",
			log.FieldCollection, c, log.FieldError, err)
		return []T{}
	}
	if items == nil {
		items = []T{}
	}
	return items
}

// Books returns a copy of the current state.
func (s *Store) Books() core.Books {
	return core.Books{
		Earnings:     slices.Clone(s.books.Earnings),
		Expenditures: slices.Clone(s.books.Expenditures),
		Summaries:    slices.Clone(s.books.Summaries),
	}
}

// AppendEarning adds e to the earnings collection.
func (s *Store) AppendEarning(ctx context.Context, e core.Earning) error {
	if err := checkID(e.ID, s.books.Earnings, func(x core.Earning) string { return x.ID }); err != nil {
		return err
	}
	next := append(slices.Clone(s.books.Earnings), e)
	if err := s.save(ctx, Earnings, next); err != nil {
		return err
	}
	s.books.Earnings = next
	s.logger.DebugContext(ctx, "Earning appended", log.FieldOperation, log.OpAppend, log.FieldEntryID, e.ID)
	return nil
}

// AppendExpenditure adds e to the expenditures collection.
func (s *Store) AppendExpenditure(ctx context.Context, e core.Expenditure) error {
	if err := checkID(e.ID, s.books.Expenditures, func(x core.Expenditure) string { return x.ID }); err != nil {
		return err
	}
	next := append(slices.Clone(s.books.Expenditures), e)
	if err := s.save(ctx, Expenditures, next); err != nil {
		return err
	}
	s.books.Expenditures = next
	s.logger.DebugContext(ctx, "Expenditure appended", log.FieldOperation, log.OpAppend, log.FieldEntryID, e.ID)
	return nil
}

// Remove deletes the entry with id from an open collection. It reports
// whether an entry was removed; an unknown id is a no-op and nothing is
// written. Summaries are archive records and cannot be removed.
func (s *Store) Remove(ctx context.Context, c Collection, id string) (bool, error) {
	switch c {
	case Earnings:
		next, ok := without(s.books.Earnings, func(x core.Earning) bool { return x.ID == id })
		if !ok {
			return false, nil
		}
		if err := s.save(ctx, c, next); err != nil {
			return false, err
		}
		s.books.Earnings = next
	case Expenditures:
		next, ok := without(s.books.Expenditures, func(x core.Expenditure) bool { return x.ID == id })
		if !ok {
			return false, nil
		}
		if err := s.save(ctx, c, next); err != nil {
			return false, err
		}
		s.books.Expenditures = next
	default:
		return false, fmt.Errorf("unknown collection %q", c)
	}
	s.logger.DebugContext(ctx, "Entry removed",
		log.FieldOperation, log.OpRemove, log.FieldCollection, c, log.FieldEntryID, id)
	return true, nil
}

// ReplaceEarnings overwrites the whole earnings collection.
func (s *Store) ReplaceEarnings(ctx context.Context, items []core.Earning) error {
	items = nonNil(items)
	if err := s.save(ctx, Earnings, items); err != nil {
		return err
	}
	s.books.Earnings = slices.Clone(items)
	return nil
}

// ReplaceExpenditures overwrites the whole expenditures collection.
func (s *Store) ReplaceExpenditures(ctx context.Context, items []core.Expenditure) error {
	items = nonNil(items)
	if err := s.save(ctx, Expenditures, items); err != nil {
		return err
	}
	s.books.Expenditures = slices.Clone(items)
	return nil
}

// ReplaceSummaries overwrites the whole summaries collection.
func (s *Store) ReplaceSummaries(ctx context.Context, items []core.MonthlySummary) error {
	items = core.SortSummaries(slices.Clone(nonNil(items)))
	if err := s.save(ctx, Summaries, items); err != nil {
		return err
	}
	s.books.Summaries = items
	return nil
}

// Install replaces all three collections at once. Backends implementing
// storage.BatchSaver write them atomically. Other snapshotters get summaries
// first, then the open collections, and a failure part-way can leave a month
// on disk both archived and open; backend.Backend therefore requires
// BatchSaver.
func (s *Store) Install(ctx context.Context, b core.Books) error {
	next := core.Books{
		Earnings:     slices.Clone(nonNil(b.Earnings)),
		Expenditures: slices.Clone(nonNil(b.Expenditures)),
		Summaries:    core.SortSummaries(slices.Clone(nonNil(b.Summaries))),
	}

	snapshots := make(map[string][]byte, 3)
	for c, v := range map[Collection]any{
		Earnings:     next.Earnings,
		Expenditures: next.Expenditures,
		Summaries:    next.Summaries,
	} {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", c, err)
		}
		snapshots[string(c)] = data
	}

	if batch, ok := s.snap.(storage.BatchSaver); ok {
		if err := batch.SaveAll(ctx, snapshots); err != nil {
			return fmt.Errorf("persist books: %w", err)
		}
	} else {
		for _, c := range []Collection{Summaries, Earnings, Expenditures} {
			if err := s.snap.Save(ctx, string(c), snapshots[string(c)]); err != nil {
				return fmt.Errorf("persist %s: %w", c, err)
			}
		}
	}

	s.books = next
	s.logger.DebugContext(ctx, "Books installed", log.FieldOperation, log.OpReplace)
	return nil
}

// Persist writes the current in-memory state to the backend.
func (s *Store) Persist(ctx context.Context) error {
	return s.Install(ctx, s.books)
}

func (s *Store) save(ctx context.Context, c Collection, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c, err)
	}
	if err := s.snap.Save(ctx, string(c), data); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist collection",
			log.FieldOperation, log.OpPersist, log.FieldCollection, c, log.FieldError, err)
		return fmt.Errorf("persist %s: %w", c, err)
	}
	return nil
}

func checkID[T any](id string, items []T, idOf func(T) string) error {
	if id == "" {
		return ErrMissingID
	}
	if slices.ContainsFunc(items, func(x T) bool { return idOf(x) == id }) {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	return nil
}

func without[T any](items []T, match func(T) bool) ([]T, bool) {
	i := slices.IndexFunc(items, match)
	if i < 0 {
		return items, false
	}
	return slices.Delete(slices.Clone(items), i, i+1), true
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func emptyBooks() core.Books {
	return core.Books{
		Earnings:     []core.Earning{},
		Expenditures: []core.Expenditure{},
		Summaries:    []core.MonthlySummary{},
	}
}

// ReadSummaries decodes the archived months straight from a backend. Unlike
// Store.Load it reports failures, for readers that must not mistake a broken
// snapshot for an empty archive.
func ReadSummaries(ctx context.Context, snap storage.Snapshotter) ([]core.MonthlySummary, error) {
	data, err := snap.Load(ctx, string(Summaries))
	if errors.Is(err, storage.ErrNotFound) {
		return []core.MonthlySummary{}, nil
	}
	if err != nil {
		return nil, err
	}
	var items []core.MonthlySummary
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", Summaries, err)
	}
	return core.SortSummaries(nonNil(items)), nil
}
