package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ErrorEntry is one logged failure.
type ErrorEntry struct {
	ID         string `json:"id"`
	RecordID   int64  `json:"record_id"`
	Stage      string `json:"stage"` // "fetch", "extract", "persist", "panic"
	Message    string `json:"message"`
	OccurredAt int64  `json:"occurred_at"`
}

// LogError appends one failure. Logging never blocks the pipeline: the run
// loop records the error and advances past the id.
func (s *Store) LogError(ctx context.Context, recordID int64, stage, message string) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO error_log (id, record_id, stage, message, occurred_at)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), recordID, stage, message, time.Now().UnixMilli())
	return err
}

// ListErrors returns the most recent failures, newest first.
func (s *Store) ListErrors(ctx context.Context, limit int) ([]*ErrorEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, record_id, stage, message, occurred_at
		FROM error_log ORDER BY occurred_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ErrorEntry
	for rows.Next() {
		var e ErrorEntry
		if err := rows.Scan(&e.ID, &e.RecordID, &e.Stage, &e.Message, &e.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// CountErrors returns the total number of logged failures.
func (s *Store) CountErrors(ctx context.Context) (int64, error) {
	var n int64
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM error_log`).Scan(&n)
	return n, err
}
