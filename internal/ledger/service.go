package ledger

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"cassa/internal/core"
	"cassa/internal/log"
)

// Notifier is told about every month archived by the service.
type Notifier interface {
	MonthArchived(ctx context.Context, s core.MonthlySummary) error
}

// Order selects the sort direction of the summaries view.
type Order string

const (
	Ascending  Order = "asc"
	Descending Order = "desc"
)

// ParseOrder accepts "asc", "desc" or empty (ascending).
func ParseOrder(s string) (Order, error) {
	switch Order(s) {
	case "", Ascending:
		return Ascending, nil
	case Descending:
		return Descending, nil
	}
	return "", fmt.Errorf("%w: unknown order %q", core.ErrValidation, s)
}

// Totals are the running figures of the open month.
type Totals struct {
	Month  core.MonthKey
	Earned decimal.Decimal
	Spent  decimal.Decimal
	Profit decimal.Decimal
}

// Service is the single writer of the books. All operations are serialized.
type Service struct {
	mu          sync.Mutex
	store       *Store
	notifier    Notifier
	clock       func() time.Time
	newID       core.IDFunc
	logger      *log.Logger
	initialized bool
}

type Option func(*Service)

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

func WithIDFunc(f core.IDFunc) Option {
	return func(s *Service) { s.newID = f }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(store *Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		clock:  time.Now,
		newID:  NewID,
		logger: log.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentLedger)
	return s
}

// Initialize loads the books and archives every month before the month of
// now. It runs once per Service; later calls are no-ops returning nil.
//
// The archive is installed with one write. When that write fails nothing is
// replaced, the error is returned and the service keeps the loaded books.
func (s *Service) Initialize(ctx context.Context, now time.Time) ([]core.MonthlySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		s.logger.WarnContext(ctx, "Initialize called twice, ignoring")
		return nil, nil
	}
	s.initialized = true

	s.store.Load(ctx)

	rec := core.Rollover(s.store.Books(), now, s.newID)
	if !rec.Changed() {
		s.logger.InfoContext(ctx, "No past months to archive",
			log.FieldOperation, log.OpRollover, log.FieldMonthKey, core.MonthKeyOf(now))
		return nil, nil
	}

	if err := s.store.Install(ctx, rec.Books); err != nil {
		s.logger.ErrorContext(ctx, "Failed to install rollover",
			log.FieldOperation, log.OpRollover, log.FieldError, err)
		return nil, fmt.Errorf("rollover: %w", err)
	}

	for _, summary := range rec.Archived {
		s.logArchived(ctx, log.OpRollover, summary)
	}
	s.notify(ctx, rec.Archived)
	return rec.Archived, nil
}

// AddEarning validates in and records it under a fresh id. Invalid input
// fails with a *core.ValidationError. A date in a month that already has a
// summary fails with core.ErrMonthArchived; the HTTP layer answers 409.
func (s *Service) AddEarning(ctx context.Context, in core.EarningInput) (core.Earning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := core.NewEarning(s.newID(), in)
	if err != nil {
		return core.Earning{}, err
	}
	if err := s.checkOpen(e.Date); err != nil {
		return core.Earning{}, err
	}
	if err := s.store.AppendEarning(ctx, e); err != nil {
		return core.Earning{}, err
	}
	s.logger.InfoContext(ctx, "Earning recorded",
		log.FieldEntryID, e.ID, log.FieldMonthKey, e.Date.MonthKey(), log.FieldAmount, e.Amount.String())
	return e, nil
}

// AddExpense validates in and records it under a fresh id. It fails like
// AddEarning: *core.ValidationError for bad input and core.ErrMonthArchived
// for a date in an archived month.
func (s *Service) AddExpense(ctx context.Context, in core.ExpenseInput) (core.Expenditure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := core.NewExpenditure(s.newID(), in)
	if err != nil {
		return core.Expenditure{}, err
	}
	if err := s.checkOpen(e.Date); err != nil {
		return core.Expenditure{}, err
	}
	if err := s.store.AppendExpenditure(ctx, e); err != nil {
		return core.Expenditure{}, err
	}
	s.logger.InfoContext(ctx, "Expenditure recorded",
		log.FieldEntryID, e.ID, log.FieldMonthKey, e.Date.MonthKey(),
		log.FieldCategory, e.Category(), log.FieldAmount, e.Amount.String())
	return e, nil
}

// checkOpen rejects entries dated in a month that already has a summary;
// accepting them would make the next rollover archive that month twice.
func (s *Service) checkOpen(d core.Date) error {
	key := d.MonthKey()
	if core.HasSummary(s.store.books.Summaries, key) {
		return fmt.Errorf("%w: %s", core.ErrMonthArchived, key)
	}
	return nil
}

// DeleteEarning removes the earning with id. An unknown id is a no-op.
func (s *Service) DeleteEarning(ctx context.Context, id string) error {
	return s.remove(ctx, Earnings, id)
}

// DeleteExpense removes the expenditure with id. An unknown id is a no-op.
func (s *Service) DeleteExpense(ctx context.Context, id string) error {
	return s.remove(ctx, Expenditures, id)
}

func (s *Service) remove(ctx context.Context, c Collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.store.Remove(ctx, c, id)
	if err != nil {
		return err
	}
	if !removed {
		s.logger.DebugContext(ctx, "Nothing to delete", log.FieldCollection, c, log.FieldEntryID, id)
		return nil
	}
	s.logger.InfoContext(ctx, "Entry deleted", log.FieldCollection, c, log.FieldEntryID, id)
	return nil
}

// CompleteCurrentMonth archives the month of the service clock's now.
func (s *Service) CompleteCurrentMonth(ctx context.Context) (core.MonthlySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := core.CompleteMonth(s.store.Books(), s.clock(), s.newID)
	if err != nil {
		return core.MonthlySummary{}, err
	}
	if err := s.store.Install(ctx, rec.Books); err != nil {
		return core.MonthlySummary{}, fmt.Errorf("complete month: %w", err)
	}

	summary := rec.Archived[0]
	s.logArchived(ctx, log.OpComplete, summary)
	s.notify(ctx, rec.Archived)
	return summary, nil
}

// CurrentMonthEarnings lists the open month's earnings in insertion order.
func (s *Service) CurrentMonthEarnings() []core.Earning {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.EarningsIn(s.store.books.Earnings, core.MonthKeyOf(s.clock()))
}

// CurrentMonthExpenditures lists the open month's expenditures in insertion order.
func (s *Service) CurrentMonthExpenditures() []core.Expenditure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.ExpendituresIn(s.store.books.Expenditures, core.MonthKeyOf(s.clock()))
}

// CurrentMonthTotals sums the open month's entries.
func (s *Service) CurrentMonthTotals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := core.MonthKeyOf(s.clock())
	earned := core.SumEarnings(core.EarningsIn(s.store.books.Earnings, key))
	spent := core.SumExpenditures(core.ExpendituresIn(s.store.books.Expenditures, key))
	return Totals{Month: key, Earned: earned, Spent: spent, Profit: earned.Sub(spent)}
}

// Summaries returns every archived month in the requested order.
func (s *Service) Summaries(order Order) []core.MonthlySummary {
	s.mu.Lock()
	out := slices.Clone(s.store.books.Summaries)
	s.mu.Unlock()

	if order == Descending {
		slices.Reverse(out)
	}
	return out
}

// Initialized reports whether Initialize has run.
func (s *Service) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

func (s *Service) logArchived(ctx context.Context, op string, summary core.MonthlySummary) {
	fields := log.NewFields().
		WithOperation(op).
		WithSummary(string(summary.MonthKey), summary.TotalEarned.String(),
			summary.TotalSpent.String(), summary.TotalProfit.String())
	logger := s.logger
	if op == log.OpRollover {
		logger = logger.WithComponent(log.ComponentRollover)
	}
	logger.InfoContext(ctx, "Month archived", fields.ToSlice()...)
}

// notify publishes each summary. Failures are logged only; the archive is
// already durable.
func (s *Service) notify(ctx context.Context, summaries []core.MonthlySummary) {
	if s.notifier == nil {
		return
	}
	for _, summary := range summaries {
		if err := s.notifier.MonthArchived(ctx, summary); err != nil {
			s.logger.WarnContext(ctx, "Failed to announce archived month",
				log.FieldOperation, log.OpPublish, log.FieldMonthKey, summary.MonthKey, log.FieldError, err)
		}
	}
}
