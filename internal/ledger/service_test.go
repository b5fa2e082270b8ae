package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cassa/internal/core"
	"cassa/internal/storage"
	"cassa/internal/storage/file"
	"cassa/internal/storage/memory"
)

func newService(t *testing.T, mem *memory.Store, clock func() time.Time, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithClock(clock), WithIDFunc(sequentialIDs("id"))}, opts...)
	return NewService(NewStore(mem, nil), opts...)
}

func TestInitializeArchivesPastMonths(t *testing.T) {
	mem := memory.New()
	seed(t, mem, Earnings, []core.Earning{mustEarning(t, "e1", "2025-08-10", "1000")})
	seed(t, mem, Expenditures, []core.Expenditure{mustExpense(t, "x1", "2025-08-12", "Rent", "400", "")})
	notifier := &fakeNotifier{}
	clock := fixedClock(2025, time.September, 15)
	svc := newService(t, mem, clock, WithNotifier(notifier))

	archived, err := svc.Initialize(context.Background(), clock())
	require.NoError(t, err)
	require.Len(t, archived, 1)
	got := archived[0]
	assert.Equal(t, core.MonthKey("2025-08"), got.MonthKey)
	assert.True(t, got.TotalEarned.Equal(dec("1000")))
	assert.True(t, got.TotalSpent.Equal(dec("400")))
	assert.True(t, got.TotalProfit.Equal(dec("600")))

	assert.Empty(t, stored[core.Earning](t, mem, Earnings))
	assert.Empty(t, stored[core.Expenditure](t, mem, Expenditures))
	assert.Len(t, stored[core.MonthlySummary](t, mem, Summaries), 1)
	assert.Equal(t, archived, notifier.got)
	assert.True(t, svc.Initialized())
}

func TestInitializeRunsOnce(t *testing.T) {
	mem := memory.New()
	seed(t, mem, Earnings, []core.Earning{mustEarning(t, "e1", "2025-08-10", "1000")})
	clock := fixedClock(2025, time.September, 15)
	svc := newService(t, mem, clock)
	ctx := context.Background()

	first, err := svc.Initialize(ctx, clock())
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Even stale data injected behind the service's back is not re-archived.
	seed(t, mem, Earnings, []core.Earning{mustEarning(t, "e1", "2025-08-10", "1000")})
	second, err := svc.Initialize(ctx, clock())
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Len(t, svc.Summaries(Ascending), 1)
}

func TestInitializeWithoutPastMonthsWritesNothing(t *testing.T) {
	mem := memory.New()
	seed(t, mem, Earnings, []core.Earning{mustEarning(t, "e1", "2025-09-01", "50")})
	mem.FailSave = errors.New("unexpected write")
	notifier := &fakeNotifier{}
	clock := fixedClock(2025, time.September, 15)
	svc := newService(t, mem, clock, WithNotifier(notifier))

	archived, err := svc.Initialize(context.Background(), clock())
	require.NoError(t, err)
	assert.Empty(t, archived)
	assert.Empty(t, notifier.got)
	assert.Len(t, svc.CurrentMonthEarnings(), 1)
}

func TestInitializePersistFailureKeepsLoadedBooks(t *testing.T) {
	mem := memory.New()
	seed(t, mem, Earnings, []core.Earning{mustEarning(t, "e1", "2025-08-10", "1000")})
	mem.FailSave = errors.New("disk full")
	notifier := &fakeNotifier{}
	clock := fixedClock(2025, time.September, 15)
	svc := newService(t, mem, clock, WithNotifier(notifier))

	archived, err := svc.Initialize(context.Background(), clock())
	require.Error(t, err)
	assert.Empty(t, archived)
	assert.Empty(t, notifier.got)
	assert.Empty(t, svc.Summaries(Ascending))
	assert.Len(t, svc.store.Books().Earnings, 1)
}

func TestNotifierFailureDoesNotFailArchive(t *testing.T) {
	mem := memory.New()
	clock := fixedClock(2025, time.September, 15)
	svc := newService(t, mem, clock, WithNotifier(&fakeNotifier{err: errors.New("broker down")}))
	ctx := context.Background()

	_, err := svc.AddEarning(ctx, core.EarningInput{Date: "2025-09-03", Description: "Sale", Amount: "10"})
	require.NoError(t, err)

	summary, err := svc.CompleteCurrentMonth(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.MonthKey("2025-09"), summary.MonthKey)
}

func TestCompleteCurrentMonthTwice(t *testing.T) {
	mem := memory.New()
	clock := fixedClock(2025, time.September, 15)
	svc := newService(t, mem, clock)
	ctx := context.Background()

	_, err := svc.AddEarning(ctx, core.EarningInput{Date: "2025-09-03", Description: "Sale", Amount: "300"})
	require.NoError(t, err)
	_, err = svc.AddExpense(ctx, core.ExpenseInput{Date: "2025-09-04", Category: "Water Bill", Amount: "45.50"})
	require.NoError(t, err)

	summary, err := svc.CompleteCurrentMonth(ctx)
	require.NoError(t, err)
	assert.True(t, summary.TotalProfit.Equal(dec("254.5")))
	assert.Empty(t, svc.CurrentMonthEarnings())
	assert.Empty(t, svc.CurrentMonthExpenditures())

	after := svc.store.Books()

	_, err = svc.CompleteCurrentMonth(ctx)
	assert.ErrorIs(t, err, core.ErrAlreadyCompleted)
	assert.Equal(t, after, svc.store.Books())
	assert.Len(t, stored[core.MonthlySummary](t, mem, Summaries), 1)
}

func TestCompleteCurrentMonthWithoutData(t *testing.T) {
	mem := memory.New()
	clock := fixedClock(2025, time.September, 15)
	svc := newService(t, mem, clock)
	ctx := context.Background()

	// Entries of other months do not count.
	_, err := svc.AddEarning(ctx, core.EarningInput{Date: "2025-10-01", Description: "Deposit", Amount: "100"})
	require.NoError(t, err)

	_, err = svc.CompleteCurrentMonth(ctx)
	assert.ErrorIs(t, err, core.ErrNoData)
	assert.Empty(t, svc.Summaries(Ascending))
}

func TestAddRejectsArchivedMonth(t *testing.T) {
	mem := memory.New()
	seed(t, mem, Earnings, []core.Earning{mustEarning(t, "e1", "2025-08-10", "1000")})
	clock := fixedClock(2025, time.September, 15)
	svc := newService(t, mem, clock)
	ctx := context.Background()
	_, err := svc.Initialize(ctx, clock())
	require.NoError(t, err)

	_, err = svc.AddExpense(ctx, core.ExpenseInput{Date: "2025-08-20", Category: "Rent", Amount: "400"})
	assert.ErrorIs(t, err, core.ErrMonthArchived)

	_, err = svc.AddEarning(ctx, core.EarningInput{Date: "2025-08-31", Description: "Late sale", Amount: "5"})
	assert.ErrorIs(t, err, core.ErrMonthArchived)
	assert.NotErrorIs(t, err, core.ErrValidation)

	_, err = svc.AddEarning(ctx, core.EarningInput{Date: "2025-07-20", Description: "Late invoice", Amount: "10"})
	require.NoError(t, err, "months never summarized stay open")
}

func TestSummaryMonthsStayUnique(t *testing.T) {
	mem := memory.New()
	ctx := context.Background()

	sep := fixedClock(2025, time.September, 15)
	svc := newService(t, mem, sep)
	_, err := svc.Initialize(ctx, sep())
	require.NoError(t, err)
	_, err = svc.AddEarning(ctx, core.EarningInput{Date: "2025-09-01", Description: "Sale", Amount: "10"})
	require.NoError(t, err)
	_, err = svc.AddEarning(ctx, core.EarningInput{Date: "2025-08-01", Description: "Sale", Amount: "20"})
	require.NoError(t, err)
	_, err = svc.CompleteCurrentMonth(ctx)
	require.NoError(t, err)
	_, err = svc.AddEarning(ctx, core.EarningInput{Date: "2025-09-30", Description: "Sale", Amount: "5"})
	require.ErrorIs(t, err, core.ErrMonthArchived)

	// Next session, a month later.
	nov := fixedClock(2025, time.November, 2)
	next := NewService(NewStore(mem, nil), WithClock(nov), WithIDFunc(sequentialIDs("next")))
	_, err = next.Initialize(ctx, nov())
	require.NoError(t, err)

	seen := map[core.MonthKey]bool{}
	for _, s := range next.Summaries(Ascending) {
		assert.False(t, seen[s.MonthKey], "duplicate summary for %s", s.MonthKey)
		seen[s.MonthKey] = true
	}
	assert.Equal(t, map[core.MonthKey]bool{"2025-08": true, "2025-09": true}, seen)
}

func TestAddValidationDoesNotMutate(t *testing.T) {
	mem := memory.New()
	clock := fixedClock(2025, time.September, 15)
	svc := newService(t, mem, clock)
	ctx := context.Background()

	for _, in := range []core.EarningInput{
		{Date: "2025-09-01", Description: "Sale", Amount: "0"},
		{Date: "2025-09-01", Description: "Sale", Amount: "-5"},
		{Date: "", Description: "Sale", Amount: "5"},
		{Date: "2025-09-01", Description: "  ", Amount: "5"},
	} {
		_, err := svc.AddEarning(ctx, in)
		assert.ErrorIs(t, err, core.ErrValidation, "%+v", in)
	}

	_, err := svc.AddExpense(ctx, core.ExpenseInput{Date: "2025-09-01", Category: "Products & Items", Amount: "500"})
	assert.ErrorIs(t, err, core.ErrEmptyDescription)

	rent, err := svc.AddExpense(ctx, core.ExpenseInput{Date: "2025-09-01", Category: "Rent", Amount: "500", Description: "ignored"})
	require.NoError(t, err)
	assert.Empty(t, rent.Description())

	assert.Empty(t, svc.CurrentMonthEarnings())
	assert.Len(t, svc.CurrentMonthExpenditures(), 1)
	_, err = mem.Load(ctx, string(Earnings))
	assert.Error(t, err, "rejected earnings must never reach storage")
}

func TestAddPersistFailure(t *testing.T) {
	mem := memory.New()
	mem.FailSave = errors.New("disk full")
	clock := fixedClock(2025, time.September, 15)
	svc := newService(t, mem, clock)

	_, err := svc.AddEarning(context.Background(), core.EarningInput{Date: "2025-09-01", Description: "Sale", Amount: "5"})
	assert.ErrorIs(t, err, mem.FailSave)
	assert.Empty(t, svc.CurrentMonthEarnings())
}

func TestDelete(t *testing.T) {
	mem := memory.New()
	clock := fixedClock(2025, time.September, 15)
	svc := newService(t, mem, clock)
	ctx := context.Background()

	e, err := svc.AddEarning(ctx, core.EarningInput{Date: "2025-09-01", Description: "Sale", Amount: "5"})
	require.NoError(t, err)
	x, err := svc.AddExpense(ctx, core.ExpenseInput{Date: "2025-09-01", Category: "Electricity Bill", Amount: "5"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteEarning(ctx, e.ID))
	require.NoError(t, svc.DeleteExpense(ctx, x.ID))
	require.NoError(t, svc.DeleteExpense(ctx, "does-not-exist"))

	assert.Empty(t, svc.CurrentMonthEarnings())
	assert.Empty(t, svc.CurrentMonthExpenditures())
}

func TestCurrentMonthViews(t *testing.T) {
	mem := memory.New()
	clock := fixedClock(2025, time.September, 15)
	svc := newService(t, mem, clock)
	ctx := context.Background()

	for _, in := range []core.EarningInput{
		{Date: "2025-09-01", Description: "A", Amount: "100.10"},
		{Date: "2025-09-20", Description: "B", Amount: "0.20"},
		{Date: "2025-10-01", Description: "Next month", Amount: "999"},
	} {
		_, err := svc.AddEarning(ctx, in)
		require.NoError(t, err)
	}
	_, err := svc.AddExpense(ctx, core.ExpenseInput{Date: "2025-09-02", Category: "Products & Items", Amount: "150", Description: "Stock"})
	require.NoError(t, err)

	earnings := svc.CurrentMonthEarnings()
	require.Len(t, earnings, 2)
	assert.Equal(t, "A", earnings[0].Description)
	assert.Equal(t, "B", earnings[1].Description)

	totals := svc.CurrentMonthTotals()
	assert.Equal(t, core.MonthKey("2025-09"), totals.Month)
	assert.True(t, totals.Earned.Equal(dec("100.30")))
	assert.True(t, totals.Spent.Equal(dec("150")))
	assert.True(t, totals.Profit.Equal(dec("-49.70")))
}

func TestSummariesOrder(t *testing.T) {
	mem := memory.New()
	seed(t, mem, Summaries, []core.MonthlySummary{
		core.NewMonthlySummary("a", "2025-06", dec("1"), dec("0")),
		core.NewMonthlySummary("b", "2025-07", dec("1"), dec("0")),
	})
	clock := fixedClock(2025, time.September, 15)
	svc := newService(t, mem, clock)
	_, err := svc.Initialize(context.Background(), clock())
	require.NoError(t, err)

	desc := svc.Summaries(Descending)
	require.Len(t, desc, 2)
	assert.Equal(t, core.MonthKey("2025-07"), desc[0].MonthKey)

	asc := svc.Summaries(Ascending)
	assert.Equal(t, core.MonthKey("2025-06"), asc[0].MonthKey)

	_, err = ParseOrder("sideways")
	assert.ErrorIs(t, err, core.ErrValidation)
	order, err := ParseOrder("")
	require.NoError(t, err)
	assert.Equal(t, Ascending, order)
}

// failingKey is a file backend that cannot write one collection.
type failingKey struct {
	*file.Store
	key string
	err error
}

func (f *failingKey) Save(ctx context.Context, key string, data []byte) error {
	if key == f.key {
		return f.err
	}
	return f.Store.Save(ctx, key, data)
}

func (f *failingKey) SaveAll(ctx context.Context, snapshots map[string][]byte) error {
	if _, ok := snapshots[f.key]; ok {
		return f.err
	}
	return f.Store.SaveAll(ctx, snapshots)
}

func TestFailedRolloverOnFileBackendArchivesOnceAfterRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	clock := fixedClock(2025, time.September, 15)

	disk, err := file.New(dir)
	require.NoError(t, err)
	data, err := json.Marshal([]core.Earning{mustEarning(t, "e1", "2025-08-10", "1000")})
	require.NoError(t, err)
	require.NoError(t, disk.Save(ctx, string(Earnings), data))

	broken := &failingKey{Store: disk, key: string(Earnings), err: errors.New("disk full")}
	first := NewService(NewStore(broken, nil), WithClock(clock), WithIDFunc(sequentialIDs("a")))
	_, err = first.Initialize(ctx, clock())
	require.Error(t, err)

	_, err = disk.Load(ctx, string(Summaries))
	assert.ErrorIs(t, err, storage.ErrNotFound, "no summary may reach disk without its entries leaving")

	reopened, err := file.New(dir)
	require.NoError(t, err)
	second := NewService(NewStore(reopened, nil), WithClock(clock), WithIDFunc(sequentialIDs("b")))
	archived, err := second.Initialize(ctx, clock())
	require.NoError(t, err)
	require.Len(t, archived, 1)

	third := NewService(NewStore(reopened, nil), WithClock(clock), WithIDFunc(sequentialIDs("c")))
	_, err = third.Initialize(ctx, clock())
	require.NoError(t, err)

	summaries := third.Summaries(Ascending)
	require.Len(t, summaries, 1)
	assert.Equal(t, core.MonthKey("2025-08"), summaries[0].MonthKey)
	assert.True(t, summaries[0].TotalEarned.Equal(dec("1000")))
	assert.Empty(t, third.CurrentMonthEarnings())
}
