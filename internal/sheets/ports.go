// Package sheets defines the outbound ports used to publish archived months
// to a spreadsheet.
package sheets

import (
	"context"

	"cassa/internal/core"
)

type (
	// SummaryExporter writes one archived month. Exporting a month that is
	// already present is a no-op, so redelivered messages are harmless.
	SummaryExporter interface {
		ExportSummary(ctx context.Context, s core.MonthlySummary) error
	}

	// SummaryLister returns the months already exported, ascending.
	SummaryLister interface {
		ExportedMonths(ctx context.Context) ([]core.MonthKey, error)
	}
)

// Header is the first row of the summaries sheet.
var Header = []string{"Month", "Label", "Earned", "Spent", "Profit"}
