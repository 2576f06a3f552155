// CLAUDE:SUMMARY Main Service orchestrator: taxonomy sync, resumable harvest runs, stats and error reads.
// Package harvest drives the signal register harvester.
//
// A Service owns one SQLite database and one HTTP fetcher. The main entry
// point is Run, which walks a configured id range in concurrency-bounded
// batches, extracts each detail page, and upserts the result. SyncTaxonomy
// refreshes the classification snapshot from the register's list endpoints.
package harvest

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/hazyhaar/sigharv/harvest/internal/fetch"
	"github.com/hazyhaar/sigharv/harvest/internal/store"
	"github.com/hazyhaar/sigharv/harvest/internal/taxonomy"
)

// Service is the harvester orchestrator.
type Service struct {
	store       *store.Store
	fetcher     *fetch.Fetcher
	retry       fetch.Policy
	mdConverter *converter.Converter
	logger      *slog.Logger
	config      *Config
}

// New creates a Service on an already-opened database. The schema must have
// been applied (dbopen.WithSchema(store.Schema)).
func New(db *sql.DB, cfg *Config, logger *slog.Logger) (*Service, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:   store.NewStore(db),
		fetcher: fetch.New(cfg.Fetch),
		retry: fetch.Policy{
			Attempts:  cfg.RetryAttempts,
			BaseDelay: cfg.retryBaseDelay(),
			Logger:    logger,
		},
		mdConverter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		logger: logger,
		config: cfg,
	}, nil
}

// Store exposes the data layer for read-side callers (API, export, stats).
func (svc *Service) Store() *store.Store { return svc.store }

// SyncTaxonomy fetches both classification lists and replaces the stored
// snapshot. Subcategory display text arrives as "Parent - Sub"; the parent
// link is resolved by name first, then by the id-prefix heuristic.
func (svc *Service) SyncTaxonomy(ctx context.Context) (categories, subcategories int, err error) {
	catItems, err := svc.fetcher.FetchCategories(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch categories: %w", err)
	}
	subItems, err := svc.fetcher.FetchSubcategories(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch subcategories: %w", err)
	}

	cats := make([]taxonomy.Category, 0, len(catItems))
	byName := make(map[string]int64, len(catItems))
	parentIDs := make([]int64, 0, len(catItems))
	for _, it := range catItems {
		cats = append(cats, taxonomy.Category{ID: it.ID, Name: it.Text})
		byName[it.Text] = it.ID
		parentIDs = append(parentIDs, it.ID)
	}

	subs := make([]taxonomy.Subcategory, 0, len(subItems))
	for _, it := range subItems {
		parentName, subName := taxonomy.SplitDisplay(it.Text)
		parentID, ok := byName[parentName]
		if !ok {
			parentID = taxonomy.ParentFromID(it.ID, parentIDs)
		}
		subs = append(subs, taxonomy.Subcategory{ID: it.ID, ParentID: parentID, Name: subName})
	}

	if err := svc.store.ReplaceTaxonomy(ctx, cats, subs); err != nil {
		return 0, 0, fmt.Errorf("replace taxonomy: %w", err)
	}
	svc.logger.InfoContext(ctx, "taxonomy synced",
		"categories", len(cats), "subcategories", len(subs))
	return len(cats), len(subs), nil
}

// Stats aggregates stored counts for display.
type Stats struct {
	Records    int64              `json:"records"`
	Progress   *store.RunProgress `json:"progress"`
	Errors     int64              `json:"errors"`
	ByStatus   map[string]int64   `json:"by_status"`
	ByCategory map[string]int64   `json:"by_category"`
}

// Stats returns aggregate counters.
func (svc *Service) Stats(ctx context.Context) (*Stats, error) {
	records, err := svc.store.CountRecords(ctx)
	if err != nil {
		return nil, err
	}
	progress, err := svc.store.Progress(ctx)
	if err != nil {
		return nil, err
	}
	errCount, err := svc.store.CountErrors(ctx)
	if err != nil {
		return nil, err
	}
	byStatus, err := svc.store.StatusCounts(ctx)
	if err != nil {
		return nil, err
	}
	byCategory, err := svc.store.CategoryCounts(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Records:    records,
		Progress:   progress,
		Errors:     errCount,
		ByStatus:   byStatus,
		ByCategory: byCategory,
	}, nil
}

// Errors returns recent failures, newest first.
func (svc *Service) Errors(ctx context.Context, limit int) ([]*store.ErrorEntry, error) {
	return svc.store.ListErrors(ctx, limit)
}

// Progress returns the watermark and cumulative run counters.
func (svc *Service) Progress(ctx context.Context) (*store.RunProgress, error) {
	return svc.store.Progress(ctx)
}

// ResetProgress zeroes the watermark and the cumulative counters.
func (svc *Service) ResetProgress(ctx context.Context) error {
	return svc.store.ResetProgress(ctx)
}

// GetRecord returns one stored record by id.
func (svc *Service) GetRecord(ctx context.Context, id int64) (*store.StoredRecord, error) {
	return svc.store.GetRecord(ctx, id)
}
