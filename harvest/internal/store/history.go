package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/hazyhaar/sigharv/dbopen"
	"github.com/hazyhaar/sigharv/harvest/internal/fetch"
)

// ReplaceStatusHistory swaps the stored status rows for one record.
func (s *Store) ReplaceStatusHistory(ctx context.Context, recordID int64, rows []fetch.HistoryRow) error {
	return s.replaceHistory(ctx, "signal_statuses", recordID, rows)
}

// ReplaceAnswerHistory swaps the stored answer rows for one record.
func (s *Store) ReplaceAnswerHistory(ctx context.Context, recordID int64, rows []fetch.HistoryRow) error {
	return s.replaceHistory(ctx, "signal_answers", recordID, rows)
}

func (s *Store) replaceHistory(ctx context.Context, table string, recordID int64, rows []fetch.HistoryRow) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UnixMilli()
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE record_id = ?`, recordID); err != nil {
			return err
		}
		for seq, row := range rows {
			cells, err := json.Marshal(row)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO `+table+` (record_id, seq, cells, fetched_at) VALUES (?, ?, ?, ?)`,
				recordID, seq, string(cells), now); err != nil {
				return err
			}
		}
		return nil
	})
}

// StatusHistory reads back the stored status rows for one record, in order.
func (s *Store) StatusHistory(ctx context.Context, recordID int64) ([]fetch.HistoryRow, error) {
	return s.history(ctx, "signal_statuses", recordID)
}

// AnswerHistory reads back the stored answer rows for one record, in order.
func (s *Store) AnswerHistory(ctx context.Context, recordID int64) ([]fetch.HistoryRow, error) {
	return s.history(ctx, "signal_answers", recordID)
}

func (s *Store) history(ctx context.Context, table string, recordID int64) ([]fetch.HistoryRow, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT cells FROM `+table+` WHERE record_id = ? ORDER BY seq`, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []fetch.HistoryRow
	for rows.Next() {
		var cells string
		if err := rows.Scan(&cells); err != nil {
			return nil, err
		}
		var row fetch.HistoryRow
		if err := json.Unmarshal([]byte(cells), &row); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
