package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fabio1shot/card-price-extractor/internal/config"
	"github.com/fabio1shot/card-price-extractor/internal/model"
	"github.com/fabio1shot/card-price-extractor/internal/notify"
	"github.com/fabio1shot/card-price-extractor/internal/provider"
)

// BatchOptions tunes a BatchProcessor.
type BatchOptions struct {
	// Pacing is the fixed pause between two consecutive lookups. Zero disables it.
	Pacing time.Duration
	// LookupTimeout bounds each lookup. Zero means no per-call limit.
	LookupTimeout time.Duration
	// NotifyEvery emits a "processed N of total" notification for every
	// NotifyEvery-th name (and always for the last one).
	NotifyEvery int
	// ConfirmThreshold is the list size above which callers must ask the
	// user before starting a run. Run itself never checks it.
	ConfirmThreshold int
}

// BatchOptionsFrom maps the batch config section to processor options.
func BatchOptionsFrom(cfg config.BatchConfig) BatchOptions {
	return BatchOptions{
		Pacing:           cfg.Pacing,
		LookupTimeout:    cfg.LookupTimeout,
		NotifyEvery:      cfg.NotifyEvery,
		ConfirmThreshold: cfg.ConfirmThreshold,
	}
}

// BatchProcessor prices a list of card names, one lookup at a time.
//
// Runs are strictly sequential so the upstream API sees at most one request
// from a run at any moment. A processor holds no per-run state: concurrent
// Run calls each get their own report and progress.
type BatchProcessor struct {
	lookup provider.CardLookup
	sink   notify.Sink
	opts   BatchOptions
	logger *zap.Logger
	now    func() time.Time
}

// NewBatchProcessor creates a processor. sink may be nil.
func NewBatchProcessor(lookup provider.CardLookup, sink notify.Sink, opts BatchOptions, logger *zap.Logger) *BatchProcessor {
	if sink == nil {
		sink = notify.Discard
	}
	if opts.NotifyEvery < 1 {
		opts.NotifyEvery = 5
	}
	return &BatchProcessor{
		lookup: lookup,
		sink:   sink,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// NeedsConfirmation reports whether a list of n names needs explicit user
// consent before Run.
func (p *BatchProcessor) NeedsConfirmation(n int) bool {
	return p.opts.ConfirmThreshold > 0 && n > p.opts.ConfirmThreshold
}

// Run looks up every name in order and returns one entry per name.
//
// Per-name failures never abort the run: they are recorded as "Not found" or
// "Error" entries. Only cancellation of ctx stops early, in which case the
// report holds the entries processed so far and has status cancelled.
func (p *BatchProcessor) Run(ctx context.Context, names []string) *model.Report {
	report := &model.Report{
		ID:        uuid.NewString(),
		Total:     len(names),
		StartedAt: p.now().UTC(),
		Entries:   make([]model.ResultEntry, 0, len(names)),
	}

	if len(names) == 0 {
		p.sink.Notify(notify.Notification{
			Kind:    notify.KindValidationError,
			Title:   "No card names",
			Message: "No valid card names were provided.",
		})
		report.Status = model.RunEmpty
		report.FinishedAt = p.now().UTC()
		return report
	}

	total := len(names)
	p.sink.Progress(notify.Progress{Completed: 0, Total: total, Percent: 0})

	p.logger.Info("batch run started", zap.String("run_id", report.ID), zap.Int("total", total))

	for i, name := range names {
		if ctx.Err() != nil {
			report.Status = model.RunCancelled
			break
		}

		entry, outcome, ok := p.process(ctx, name)
		if !ok {
			report.Status = model.RunCancelled
			break
		}

		report.Entries = append(report.Entries, entry)
		switch outcome {
		case model.OutcomeFound:
			report.Succeeded++
		case model.OutcomeNotFound:
			report.NotFound++
		default:
			report.Failed++
		}

		completed := i + 1
		p.sink.Progress(notify.Progress{
			Completed: completed,
			Total:     total,
			Percent:   float64(completed) * 100 / float64(total),
		})

		if i%p.opts.NotifyEvery == 0 || completed == total {
			p.sink.Notify(notify.Notification{
				Kind:    notify.KindProgress,
				Title:   "Processing cards",
				Message: fmt.Sprintf("Processed %d of %d cards", completed, total),
			})
		}

		if completed < total {
			if err := pause(ctx, p.opts.Pacing); err != nil {
				report.Status = model.RunCancelled
				break
			}
		}
	}

	report.FinishedAt = p.now().UTC()
	p.finish(report)
	return report
}

// process prices one name. ok is false when the run's context ended during
// the lookup; nothing is recorded for that name then.
func (p *BatchProcessor) process(ctx context.Context, name string) (model.ResultEntry, model.LookupOutcome, bool) {
	callCtx := ctx
	if p.opts.LookupTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.opts.LookupTimeout)
		defer cancel()
	}

	cards, err := p.lookup.Lookup(callCtx, name)
	if err != nil {
		if ctx.Err() != nil {
			return model.ResultEntry{}, "", false
		}
		p.logger.Warn("lookup failed", zap.String("name", name), zap.Error(err))
		p.sink.Notify(notify.Notification{
			Kind:    notify.KindLookupError,
			Title:   "Error fetching card data",
			Message: fmt.Sprintf("%s: %v", name, err),
		})
		return model.ResultEntry{CardName: name, Price: model.PriceError}, model.OutcomeError, true
	}

	if len(cards) == 0 {
		return model.ResultEntry{CardName: name, Price: model.PriceNotFound}, model.OutcomeNotFound, true
	}

	card := cards[0]
	resolved := strings.TrimSpace(card.Name)
	if resolved == "" {
		resolved = name
	}
	return model.ResultEntry{CardName: resolved, Price: card.PrimaryPrice()}, model.OutcomeFound, true
}

func (p *BatchProcessor) finish(report *model.Report) {
	processed := len(report.Entries)

	switch {
	case report.Status == model.RunCancelled:
		p.sink.Notify(notify.Notification{
			Kind:    notify.KindBatchPartial,
			Title:   "Processing cancelled",
			Message: fmt.Sprintf("Stopped after %d of %d cards", processed, report.Total),
		})
	case report.Misses() > 0:
		report.Status = model.RunPartial
		p.sink.Notify(notify.Notification{
			Kind:    notify.KindBatchPartial,
			Title:   "Processing complete",
			Message: fmt.Sprintf("Found %d cards, %d not found or errors", report.Succeeded, report.Misses()),
		})
	default:
		report.Status = model.RunSuccess
		p.sink.Notify(notify.Notification{
			Kind:    notify.KindBatchSuccess,
			Title:   "Processing complete",
			Message: fmt.Sprintf("Successfully processed all %d cards", report.Succeeded),
		})
	}

	p.logger.Info("batch run finished",
		zap.String("run_id", report.ID),
		zap.String("status", string(report.Status)),
		zap.Int("total", report.Total),
		zap.Int("processed", processed),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("not_found", report.NotFound),
		zap.Int("failed", report.Failed),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
}

// pause waits d, returning early with ctx's error if it ends first.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
