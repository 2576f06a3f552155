package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Outcome is the terminal state of one harvested id. Every outcome advances
// the watermark: a missing, skipped, or failed id is still finished work.
type Outcome string

const (
	OutcomeScraped  Outcome = "scraped"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeNotFound Outcome = "notfound"
	OutcomeError    Outcome = "error"
)

// RunProgress is the singleton progress row: the watermark plus cumulative
// outcome counters. Counters keep accumulating across runs; ResetProgress
// is the only thing that clears them.
type RunProgress struct {
	LastID    int64 `json:"last_id"`
	Scraped   int64 `json:"scraped"`
	Skipped   int64 `json:"skipped"`
	NotFound  int64 `json:"not_found"`
	Errors    int64 `json:"errors"`
	StartedAt int64 `json:"started_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// Watermark returns the highest id whose processing has completed. Zero
// means no run has recorded progress yet.
func (s *Store) Watermark(ctx context.Context) (int64, error) {
	var last int64
	err := s.DB.QueryRowContext(ctx,
		`SELECT COALESCE((SELECT last_id FROM progress WHERE id = 1), 0)`).Scan(&last)
	return last, err
}

// Progress returns the full progress row. A database with no recorded
// progress yields the zero value, not an error.
func (s *Store) Progress(ctx context.Context) (*RunProgress, error) {
	var p RunProgress
	err := s.DB.QueryRowContext(ctx,
		`SELECT last_id, scraped, skipped, not_found, errors, started_at, updated_at
		FROM progress WHERE id = 1`).Scan(
		&p.LastID, &p.Scraped, &p.Skipped, &p.NotFound, &p.Errors,
		&p.StartedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &RunProgress{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// BeginRun stamps the start of a run. The watermark and counters are left
// untouched.
func (s *Store) BeginRun(ctx context.Context) error {
	now := time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO progress (id, started_at, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			started_at = excluded.started_at,
			updated_at = excluded.updated_at`,
		now, now)
	return err
}

// Advance records that processing of id reached the given terminal outcome,
// incrementing the matching counter. The watermark only ever grows:
// out-of-order completions within a batch cannot move it backwards, so a
// crash re-scrapes at most one batch.
func (s *Store) Advance(ctx context.Context, id int64, outcome Outcome) error {
	var col string
	switch outcome {
	case OutcomeScraped:
		col = "scraped"
	case OutcomeSkipped:
		col = "skipped"
	case OutcomeNotFound:
		col = "not_found"
	case OutcomeError:
		col = "errors"
	default:
		return fmt.Errorf("store: unknown outcome %q", outcome)
	}
	now := time.Now().UnixMilli()
	query := fmt.Sprintf(
		`INSERT INTO progress (id, last_id, %s, started_at, updated_at) VALUES (1, ?, 1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_id    = MAX(progress.last_id, excluded.last_id),
			%s         = progress.%s + 1,
			updated_at = excluded.updated_at`,
		col, col, col)
	_, err := s.DB.ExecContext(ctx, query, id, now, now)
	return err
}

// RaiseWatermark lifts the watermark without touching the counters. Used
// when a run settles a range whose tail was excluded from the plan because
// the records were already stored by an earlier run.
func (s *Store) RaiseWatermark(ctx context.Context, id int64) error {
	now := time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO progress (id, last_id, started_at, updated_at) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_id    = MAX(progress.last_id, excluded.last_id),
			updated_at = excluded.updated_at`,
		id, now, now)
	return err
}

// ResetProgress deletes the progress row, zeroing the watermark and the
// cumulative counters, so the next resumed run starts from the configured
// range start.
func (s *Store) ResetProgress(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM progress WHERE id = 1`)
	return err
}
