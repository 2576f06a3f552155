package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/hazyhaar/sigharv/dbopen"
	"github.com/hazyhaar/sigharv/harvest/internal/taxonomy"
)

// ReplaceTaxonomy swaps the stored classification snapshot in one
// transaction so a concurrent reader never sees a half-synced tree.
func (s *Store) ReplaceTaxonomy(ctx context.Context, cats []taxonomy.Category, subs []taxonomy.Subcategory) error {
	now := time.Now().UnixMilli()
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM subcategories`); err != nil {
			return err
		}
		for _, c := range cats {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO categories (id, name, synced_at) VALUES (?, ?, ?)`,
				c.ID, c.Name, now); err != nil {
				return err
			}
		}
		for _, sub := range subs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO subcategories (id, parent_id, name, synced_at) VALUES (?, ?, ?, ?)`,
				sub.ID, sub.ParentID, sub.Name, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadTaxonomy reads the stored snapshot back into a lookup table.
func (s *Store) LoadTaxonomy(ctx context.Context) (*taxonomy.Table, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []taxonomy.Category
	for rows.Next() {
		var c taxonomy.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	subRows, err := s.DB.QueryContext(ctx, `SELECT id, parent_id, name FROM subcategories ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer subRows.Close()

	var subs []taxonomy.Subcategory
	for subRows.Next() {
		var sub taxonomy.Subcategory
		if err := subRows.Scan(&sub.ID, &sub.ParentID, &sub.Name); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := subRows.Err(); err != nil {
		return nil, err
	}

	return taxonomy.NewTable(cats, subs), nil
}
