package core

import (
	"cmp"
	"fmt"
	"slices"
	"time"
)

type (
	// Books is the full ledger state: the open collections and the archive.
	Books struct {
		Earnings     []Earning
		Expenditures []Expenditure
		Summaries    []MonthlySummary
	}

	// IDFunc produces a fresh unique id for every new summary.
	IDFunc func() string

	// Reconciliation is the outcome of a rollover pass: the state to install
	// and the summaries created by the pass, ascending by month.
	Reconciliation struct {
		Books    Books
		Archived []MonthlySummary
	}
)

// Changed reports whether the pass archived anything. An unchanged
// reconciliation must not be persisted or announced.
func (r Reconciliation) Changed() bool {
	return len(r.Archived) > 0
}

// Rollover archives every month strictly before the month of now.
//
// Past entries of both open collections are grouped by month, each month
// becomes one new summary, and only entries of the current or later months
// stay open. When nothing is past the input is returned untouched.
//
// Rollover does not look at existing summaries: run on books that still hold
// entries of an archived month it emits a second summary for that month.
// Callers install the result atomically and run it once per session.
func Rollover(b Books, now time.Time, newID IDFunc) Reconciliation {
	current := MonthKeyOf(now)

	pastEarnings := map[MonthKey][]Earning{}
	keptEarnings := make([]Earning, 0, len(b.Earnings))
	for _, e := range b.Earnings {
		if key := e.Date.MonthKey(); key.Before(current) {
			pastEarnings[key] = append(pastEarnings[key], e)
			continue
		}
		keptEarnings = append(keptEarnings, e)
	}

	pastExpenditures := map[MonthKey][]Expenditure{}
	keptExpenditures := make([]Expenditure, 0, len(b.Expenditures))
	for _, e := range b.Expenditures {
		if key := e.Date.MonthKey(); key.Before(current) {
			pastExpenditures[key] = append(pastExpenditures[key], e)
			continue
		}
		keptExpenditures = append(keptExpenditures, e)
	}

	if len(pastEarnings) == 0 && len(pastExpenditures) == 0 {
		return Reconciliation{Books: b}
	}

	keys := make([]MonthKey, 0, len(pastEarnings)+len(pastExpenditures))
	for key := range pastEarnings {
		keys = append(keys, key)
	}
	for key := range pastExpenditures {
		if _, ok := pastEarnings[key]; !ok {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)

	archived := make([]MonthlySummary, 0, len(keys))
	for _, key := range keys {
		archived = append(archived, NewMonthlySummary(newID(), key,
			SumEarnings(pastEarnings[key]),
			SumExpenditures(pastExpenditures[key])))
	}

	return Reconciliation{
		Books: Books{
			Earnings:     keptEarnings,
			Expenditures: keptExpenditures,
			Summaries:    SortSummaries(slices.Concat(b.Summaries, archived)),
		},
		Archived: archived,
	}
}

// CompleteMonth closes the month of now ahead of time.
//
// It fails with ErrAlreadyCompleted when that month already has a summary and
// with ErrNoData when neither open collection has an entry in it; in both
// cases the returned books are the input unchanged.
func CompleteMonth(b Books, now time.Time, newID IDFunc) (Reconciliation, error) {
	target := MonthKeyOf(now)
	if HasSummary(b.Summaries, target) {
		return Reconciliation{Books: b}, fmt.Errorf("%w: %s", ErrAlreadyCompleted, target)
	}

	monthEarnings, keptEarnings := splitEarnings(b.Earnings, target)
	monthExpenditures, keptExpenditures := splitExpenditures(b.Expenditures, target)
	if len(monthEarnings) == 0 && len(monthExpenditures) == 0 {
		return Reconciliation{Books: b}, fmt.Errorf("%w: %s", ErrNoData, target)
	}

	summary := NewMonthlySummary(newID(), target, SumEarnings(monthEarnings), SumExpenditures(monthExpenditures))
	return Reconciliation{
		Books: Books{
			Earnings:     keptEarnings,
			Expenditures: keptExpenditures,
			Summaries:    SortSummaries(slices.Concat(b.Summaries, []MonthlySummary{summary})),
		},
		Archived: []MonthlySummary{summary},
	}, nil
}

// HasSummary reports whether a summary exists for key.
func HasSummary(summaries []MonthlySummary, key MonthKey) bool {
	return slices.ContainsFunc(summaries, func(s MonthlySummary) bool {
		return s.MonthKey == key
	})
}

// SortSummaries sorts summaries ascending by month key in place and returns them.
func SortSummaries(summaries []MonthlySummary) []MonthlySummary {
	slices.SortStableFunc(summaries, func(a, b MonthlySummary) int {
		return cmp.Compare(a.MonthKey, b.MonthKey)
	})
	return summaries
}

// EarningsIn returns the earnings dated in month key.
func EarningsIn(items []Earning, key MonthKey) []Earning {
	in, _ := splitEarnings(items, key)
	return in
}

// ExpendituresIn returns the expenditures dated in month key.
func ExpendituresIn(items []Expenditure, key MonthKey) []Expenditure {
	in, _ := splitExpenditures(items, key)
	return in
}

func splitEarnings(items []Earning, key MonthKey) (in, out []Earning) {
	in, out = []Earning{}, []Earning{}
	for _, e := range items {
		if e.Date.MonthKey() == key {
			in = append(in, e)
		} else {
			out = append(out, e)
		}
	}
	return in, out
}

func splitExpenditures(items []Expenditure, key MonthKey) (in, out []Expenditure) {
	in, out = []Expenditure{}, []Expenditure{}
	for _, e := range items {
		if e.Date.MonthKey() == key {
			in = append(in, e)
		} else {
			out = append(out, e)
		}
	}
	return in, out
}
