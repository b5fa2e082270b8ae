package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"cassa/internal/core"
	"cassa/internal/storage/memory"
)

func sequentialIDs(prefix string) core.IDFunc {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func fixedClock(year int, month time.Month, day int) func() time.Time {
	return func() time.Time { return time.Date(year, month, day, 12, 0, 0, 0, time.UTC) }
}

func mustEarning(t *testing.T, id, date, amount string) core.Earning {
	t.Helper()
	e, err := core.NewEarning(id, core.EarningInput{Date: date, Description: "sale " + id, Amount: amount})
	require.NoError(t, err)
	return e
}

func mustExpense(t *testing.T, id, date, category, amount, description string) core.Expenditure {
	t.Helper()
	e, err := core.NewExpenditure(id, core.ExpenseInput{Date: date, Category: category, Amount: amount, Description: description})
	require.NoError(t, err)
	return e
}

func seed(t *testing.T, mem *memory.Store, c Collection, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	mem.Put(string(c), data)
}

func stored[T any](t *testing.T, mem *memory.Store, c Collection) []T {
	t.Helper()
	data, err := mem.Load(context.Background(), string(c))
	require.NoError(t, err)
	var out []T
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

type fakeNotifier struct {
	got []core.MonthlySummary
	err error
}

func (f *fakeNotifier) MonthArchived(_ context.Context, s core.MonthlySummary) error {
	f.got = append(f.got, s)
	return f.err
}

// keysOnly records Save calls and does not implement storage.BatchSaver.
type keysOnly struct {
	inner *memory.Store
	saved []string
}

func (k *keysOnly) Load(ctx context.Context, key string) ([]byte, error) {
	return k.inner.Load(ctx, key)
}

func (k *keysOnly) Save(ctx context.Context, key string, data []byte) error {
	k.saved = append(k.saved, key)
	return k.inner.Save(ctx, key, data)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
