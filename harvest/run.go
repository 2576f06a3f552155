// CLAUDE:SUMMARY Resumable batch run loop: bounded worker pool, per-id outcomes, monotonic watermark.
package harvest

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/sigharv/harvest/internal/extract"
	"github.com/hazyhaar/sigharv/harvest/internal/plan"
	"github.com/hazyhaar/sigharv/harvest/internal/store"
	"github.com/hazyhaar/sigharv/harvest/internal/taxonomy"
)

// Summary is the outcome tally of one run. Skipped counts ids the pipeline
// touched and found already stored; Excluded counts ids the planner removed
// up front (resume watermark or skip-existing set difference).
type Summary struct {
	Planned  int64 `json:"planned"`
	Scraped  int64 `json:"scraped"`
	NotFound int64 `json:"not_found"`
	Skipped  int64 `json:"skipped"`
	Errors   int64 `json:"errors"`
	Excluded int64 `json:"excluded"`
}

type runCounters struct {
	scraped  atomic.Int64
	skipped  atomic.Int64
	notFound atomic.Int64
	errors   atomic.Int64
}

// Run harvests the configured id range. Ids are processed in batches of
// BatchSize: within a batch up to Concurrency fetches run at once, and batch
// K+1 starts only after every id in batch K reached a terminal outcome.
// An id already stored is skipped without a network call unless Force is
// set. Every outcome advances the watermark, so a crash loses at most one
// batch of progress. A canceled context stops cleanly at the next batch
// boundary.
func (svc *Service) Run(ctx context.Context) (*Summary, error) {
	if err := svc.fetcher.Probe(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	var existing map[int64]struct{}
	if !svc.config.Force {
		var err error
		existing, err = svc.store.ExistingIDs(ctx, svc.config.StartID, svc.config.EndID)
		if err != nil {
			return nil, fmt.Errorf("scan existing: %w", err)
		}
	}

	opts := plan.Options{Resume: svc.config.Resume}
	if opts.Resume {
		watermark, err := svc.store.Watermark(ctx)
		if err != nil {
			return nil, fmt.Errorf("read watermark: %w", err)
		}
		opts.Watermark = watermark
	}
	if svc.config.SkipExisting && !svc.config.Force {
		opts.SkipExisting = true
		opts.Existing = existing
	}

	ids, err := plan.IDs(svc.config.StartID, svc.config.EndID, opts)
	if err != nil {
		return nil, err
	}

	total := svc.config.EndID - svc.config.StartID + 1
	summary := &Summary{
		Planned:  int64(len(ids)),
		Excluded: total - int64(len(ids)),
	}
	if len(ids) == 0 {
		svc.logger.InfoContext(ctx, "nothing to harvest",
			"start_id", svc.config.StartID, "end_id", svc.config.EndID)
		return summary, ErrEmptyPlan
	}

	// The taxonomy snapshot may be empty when sync never ran; resolution
	// then simply yields no ids.
	table, err := svc.store.LoadTaxonomy(ctx)
	if err != nil {
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}

	if err := svc.store.BeginRun(ctx); err != nil {
		return nil, fmt.Errorf("stamp run start: %w", err)
	}

	svc.logger.InfoContext(ctx, "run started",
		"planned", summary.Planned,
		"excluded", summary.Excluded,
		"concurrency", svc.config.Concurrency,
		"batch_size", svc.config.BatchSize)

	var counters runCounters
	sem := make(chan struct{}, svc.config.Concurrency)

	for start := 0; start < len(ids); start += svc.config.BatchSize {
		if ctx.Err() != nil {
			break
		}
		end := start + svc.config.BatchSize
		if end > len(ids) {
			end = len(ids)
		}

		var wg sync.WaitGroup
		for _, id := range ids[start:end] {
			sem <- struct{}{}
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				outcome := svc.harvestOne(ctx, id, table, existing, &counters)
				// The politeness pause runs after the slot is freed so
				// sleeping workers do not serialize the batch. A skipped
				// id made no network call and owes no pause.
				<-sem
				if outcome != store.OutcomeSkipped {
					svc.pause(ctx)
				}
			}(id)
		}
		wg.Wait()
	}

	summary.Scraped = counters.scraped.Load()
	summary.Skipped = counters.skipped.Load()
	summary.NotFound = counters.notFound.Load()
	summary.Errors = counters.errors.Load()

	svc.logger.InfoContext(ctx, "run finished",
		"scraped", summary.Scraped,
		"skipped", summary.Skipped,
		"not_found", summary.NotFound,
		"errors", summary.Errors)

	if ctx.Err() != nil {
		return summary, ctx.Err()
	}

	// On clean completion the whole range has settled: planned ids just
	// reached a terminal outcome, excluded ids were stored by an earlier
	// run. Lifting the watermark covers an excluded tail the per-item
	// advances never reach.
	if summary.Excluded > 0 {
		if err := svc.store.RaiseWatermark(ctx, svc.config.EndID); err != nil {
			svc.logger.ErrorContext(ctx, "watermark raise failed", "error", err)
		}
	}
	return summary, nil
}

// harvestOne drives a single id to a terminal outcome. It never returns an
// error: failures go to the error log, and the watermark advances in every
// case so one bad id cannot stall the run.
func (svc *Service) harvestOne(ctx context.Context, id int64, table *taxonomy.Table, existing map[int64]struct{}, counters *runCounters) (outcome store.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = store.OutcomeError
			counters.errors.Add(1)
			msg := fmt.Sprintf("%v\n%s", r, debug.Stack())
			if err := svc.store.LogError(ctx, id, "panic", msg); err != nil {
				svc.logger.ErrorContext(ctx, "error log write failed", "id", id, "error", err)
			}
			svc.advance(ctx, id, store.OutcomeError)
		}
	}()

	outcome = svc.processOne(ctx, id, table, existing)
	switch outcome {
	case store.OutcomeScraped:
		counters.scraped.Add(1)
	case store.OutcomeSkipped:
		counters.skipped.Add(1)
	case store.OutcomeNotFound:
		counters.notFound.Add(1)
	case store.OutcomeError:
		counters.errors.Add(1)
	}
	svc.advance(ctx, id, outcome)
	return outcome
}

func (svc *Service) advance(ctx context.Context, id int64, outcome store.Outcome) {
	if err := svc.store.Advance(ctx, id, outcome); err != nil {
		svc.logger.ErrorContext(ctx, "watermark advance failed", "id", id, "error", err)
	}
}

// pause applies the per-item politeness delay.
func (svc *Service) pause(ctx context.Context) {
	d := svc.config.delay()
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (svc *Service) processOne(ctx context.Context, id int64, table *taxonomy.Table, existing map[int64]struct{}) store.Outcome {
	if _, ok := existing[id]; ok {
		svc.logger.DebugContext(ctx, "record already stored", "id", id)
		return store.OutcomeSkipped
	}

	var res *fetchResult
	err := svc.retry.Do(ctx, func(ctx context.Context) error {
		r, err := svc.fetcher.FetchSignal(ctx, id)
		if err != nil {
			return err
		}
		res = &fetchResult{body: r.Body, exists: r.Exists}
		return nil
	})
	if err != nil {
		svc.logError(ctx, id, "fetch", err)
		return store.OutcomeError
	}
	if !res.exists {
		svc.logger.DebugContext(ctx, "record not found", "id", id)
		return store.OutcomeNotFound
	}

	rec, err := extract.Extract(res.body, id)
	if err != nil {
		svc.logError(ctx, id, "extract", err)
		return store.OutcomeError
	}
	if rec == nil {
		return store.OutcomeNotFound
	}

	svc.resolveClassification(rec, table)

	if svc.config.KeepRaw && rec.RawMarkdown == nil {
		if md, err := svc.mdConverter.ConvertString(string(res.body)); err == nil && md != "" {
			rec.RawMarkdown = &md
		}
	}

	if err := svc.store.UpsertRecord(ctx, rec); err != nil {
		svc.logError(ctx, id, "persist", err)
		return store.OutcomeError
	}

	if svc.config.FetchHistory {
		if rows := svc.fetcher.FetchStatusHistory(ctx, id); len(rows) > 0 {
			if err := svc.store.ReplaceStatusHistory(ctx, id, rows); err != nil {
				svc.logger.WarnContext(ctx, "status history store failed", "id", id, "error", err)
			}
		}
		if rows := svc.fetcher.FetchAnswerHistory(ctx, id); len(rows) > 0 {
			if err := svc.store.ReplaceAnswerHistory(ctx, id, rows); err != nil {
				svc.logger.WarnContext(ctx, "answer history store failed", "id", id, "error", err)
			}
		}
	}

	return store.OutcomeScraped
}

// resolveClassification fills numeric classification ids from names when the
// page itself did not expose them, and derives a missing category id from
// the subcategory id prefix.
func (svc *Service) resolveClassification(rec *extract.Record, table *taxonomy.Table) {
	if rec.CategoryID != nil && rec.SubcategoryID != nil {
		return
	}
	var catName, subName string
	if rec.CategoryName != nil {
		catName = *rec.CategoryName
	}
	if rec.SubcategoryName != nil {
		subName = *rec.SubcategoryName
	}
	catID, subID := table.Resolve(catName, subName)
	if rec.CategoryID == nil {
		rec.CategoryID = catID
	}
	if rec.SubcategoryID == nil {
		rec.SubcategoryID = subID
	}
	if rec.CategoryID == nil && rec.SubcategoryID != nil {
		if parent := taxonomy.ParentFromID(*rec.SubcategoryID, table.ParentIDs()); parent != 0 {
			rec.CategoryID = &parent
		}
	}
}

func (svc *Service) logError(ctx context.Context, id int64, stage string, cause error) {
	svc.logger.WarnContext(ctx, "harvest failed", "id", id, "stage", stage, "error", cause)
	if err := svc.store.LogError(ctx, id, stage, cause.Error()); err != nil {
		svc.logger.ErrorContext(ctx, "error log write failed", "id", id, "error", err)
	}
}

type fetchResult struct {
	body   []byte
	exists bool
}
