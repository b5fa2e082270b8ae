// Package worker exports archived months to a spreadsheet, driven by
// month-archived messages with a periodic catch-up pass over the archive.
package worker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"cassa/internal/amqp"
	"cassa/internal/core"
	"cassa/internal/ledger"
	"cassa/internal/log"
	"cassa/internal/sheets"
	"cassa/internal/storage"
)

// Consumer delivers month-archived messages until ctx is done.
type Consumer interface {
	ConsumeMonthArchived(ctx context.Context, handler func(context.Context, *amqp.MonthArchivedMessage) error) error
}

// ExportWorker copies archived months to a SummaryExporter.
type ExportWorker struct {
	exporter sheets.SummaryExporter
	archive  storage.Snapshotter
	logger   *log.Logger
}

// NewExportWorker creates a worker. archive may be nil, which disables the
// catch-up pass.
func NewExportWorker(exporter sheets.SummaryExporter, archive storage.Snapshotter, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportWorker{
		exporter: exporter,
		archive:  archive,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleMonthArchived exports the summary carried by msg.
func (w *ExportWorker) HandleMonthArchived(ctx context.Context, msg *amqp.MonthArchivedMessage) error {
	w.logger.InfoContext(ctx, "Processing month archived message",
		log.FieldMonthKey, msg.MonthKey, "summary_id", msg.SummaryID)

	if err := w.exporter.ExportSummary(ctx, msg.Summary()); err != nil {
		return fmt.Errorf("export %s: %w", msg.MonthKey, err)
	}
	return nil
}

// SyncArchive exports every archived month the exporter does not have yet.
// It is the backup for messages lost while the worker or broker was down.
func (w *ExportWorker) SyncArchive(ctx context.Context) (int, error) {
	if w.archive == nil {
		return 0, nil
	}

	summaries, err := ledger.ReadSummaries(ctx, w.archive)
	if err != nil {
		return 0, fmt.Errorf("read archive: %w", err)
	}
	if len(summaries) == 0 {
		return 0, nil
	}

	pending := summaries
	if lister, ok := w.exporter.(sheets.SummaryLister); ok {
		exported, err := lister.ExportedMonths(ctx)
		if err != nil {
			return 0, fmt.Errorf("list exported months: %w", err)
		}
		pending = slices.DeleteFunc(slices.Clone(summaries), func(s core.MonthlySummary) bool {
			return slices.Contains(exported, s.MonthKey)
		})
	}

	var errs []error
	count := 0
	for _, s := range pending {
		if err := w.exporter.ExportSummary(ctx, s); err != nil {
			w.logger.ErrorContext(ctx, "Failed to export archived month",
				log.FieldMonthKey, s.MonthKey, log.FieldError, err)
			errs = append(errs, fmt.Errorf("export %s: %w", s.MonthKey, err))
			continue
		}
		count++
	}

	w.logger.InfoContext(ctx, "Archive sync completed",
		log.FieldOperation, log.OpExport,
		"total", len(summaries),
		"exported", count,
		"errors", len(errs))
	return count, errors.Join(errs...)
}

// Run consumes messages and repeats SyncArchive every interval until ctx is
// done or the consumer fails. A cancelled ctx yields context.Canceled.
func (w *ExportWorker) Run(ctx context.Context, consumer Consumer, interval time.Duration) error {
	if _, err := w.SyncArchive(ctx); err != nil {
		// Not fatal: the periodic pass retries.
		w.logger.WarnContext(ctx, "Startup archive sync failed", log.FieldError, err)
	}

	g, ctx := errgroup.WithContext(ctx)

	if consumer != nil {
		g.Go(func() error {
			return consumer.ConsumeMonthArchived(ctx, w.HandleMonthArchived)
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if _, err := w.SyncArchive(ctx); err != nil {
					w.logger.ErrorContext(ctx, "Periodic archive sync failed", log.FieldError, err)
				}
			}
		}
	})

	return g.Wait()
}
