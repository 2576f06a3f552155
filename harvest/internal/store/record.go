// CLAUDE:SUMMARY Record upsert with null-preserving merge, existence scan, and single-record reads.
package store

import (
	"context"
	"time"

	"github.com/hazyhaar/sigharv/harvest/internal/extract"
)

// StoredRecord is a records row as persisted. Nullable columns come back as
// pointers, mirroring the extractor's optional fields.
type StoredRecord struct {
	ID              int64
	RegNumber       *string
	SubmittedAt     *string
	Status          *string
	Description     *string
	Neighborhood    *string
	Address         *string
	LocationText    *string
	LocationType    *string
	Lat             *float64
	Lng             *float64
	CategoryID      *int64
	CategoryName    *string
	SubcategoryID   *int64
	SubcategoryName *string
	HasDocuments    bool
	RawMarkdown     *string
	ScrapedAt       int64
	UpdatedAt       int64
}

// UpsertRecord inserts or merges one record. The merge preserves existing
// column values wherever the incoming field is nil: a re-scrape that fails
// to find a field never erases data a previous scrape captured. An incoming
// pointer to the empty string is a deliberate value and does overwrite.
func (s *Store) UpsertRecord(ctx context.Context, rec *extract.Record) error {
	now := time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO records (id, reg_number, submitted_at, status, description,
		neighborhood, address, location_text, location_type, lat, lng,
		category_id, category_name, subcategory_id, subcategory_name,
		has_documents, raw_markdown, scraped_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			reg_number       = COALESCE(excluded.reg_number, records.reg_number),
			submitted_at     = COALESCE(excluded.submitted_at, records.submitted_at),
			status           = COALESCE(excluded.status, records.status),
			description      = COALESCE(excluded.description, records.description),
			neighborhood     = COALESCE(excluded.neighborhood, records.neighborhood),
			address          = COALESCE(excluded.address, records.address),
			location_text    = COALESCE(excluded.location_text, records.location_text),
			location_type    = COALESCE(excluded.location_type, records.location_type),
			lat              = COALESCE(excluded.lat, records.lat),
			lng              = COALESCE(excluded.lng, records.lng),
			category_id      = COALESCE(excluded.category_id, records.category_id),
			category_name    = COALESCE(excluded.category_name, records.category_name),
			subcategory_id   = COALESCE(excluded.subcategory_id, records.subcategory_id),
			subcategory_name = COALESCE(excluded.subcategory_name, records.subcategory_name),
			has_documents    = excluded.has_documents,
			raw_markdown     = COALESCE(excluded.raw_markdown, records.raw_markdown),
			updated_at       = excluded.updated_at`,
		rec.ID, rec.RegNumber, rec.SubmittedAt, rec.Status, rec.Description,
		rec.Neighborhood, rec.Address, rec.LocationText, rec.LocationType,
		rec.Lat, rec.Lng,
		rec.CategoryID, rec.CategoryName, rec.SubcategoryID, rec.SubcategoryName,
		rec.HasDocuments, rec.RawMarkdown, now, now,
	)
	return err
}

// GetRecord retrieves one record by id. Returns sql.ErrNoRows when absent.
func (s *Store) GetRecord(ctx context.Context, id int64) (*StoredRecord, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, reg_number, submitted_at, status, description,
		neighborhood, address, location_text, location_type, lat, lng,
		category_id, category_name, subcategory_id, subcategory_name,
		has_documents, raw_markdown, scraped_at, updated_at
		FROM records WHERE id = ?`, id)

	var r StoredRecord
	err := row.Scan(&r.ID, &r.RegNumber, &r.SubmittedAt, &r.Status, &r.Description,
		&r.Neighborhood, &r.Address, &r.LocationText, &r.LocationType, &r.Lat, &r.Lng,
		&r.CategoryID, &r.CategoryName, &r.SubcategoryID, &r.SubcategoryName,
		&r.HasDocuments, &r.RawMarkdown, &r.ScrapedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ExistingIDs returns the set of record ids already stored within [start, end].
// The run planner uses it to skip work without touching the network.
func (s *Store) ExistingIDs(ctx context.Context, start, end int64) (map[int64]struct{}, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id FROM records WHERE id >= ? AND id <= ?`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// ListRecords returns stored records ordered by id, for export.
func (s *Store) ListRecords(ctx context.Context, limit, offset int) ([]*StoredRecord, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, reg_number, submitted_at, status, description,
		neighborhood, address, location_text, location_type, lat, lng,
		category_id, category_name, subcategory_id, subcategory_name,
		has_documents, raw_markdown, scraped_at, updated_at
		FROM records ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*StoredRecord
	for rows.Next() {
		var r StoredRecord
		if err := rows.Scan(&r.ID, &r.RegNumber, &r.SubmittedAt, &r.Status, &r.Description,
			&r.Neighborhood, &r.Address, &r.LocationText, &r.LocationType, &r.Lat, &r.Lng,
			&r.CategoryID, &r.CategoryName, &r.SubcategoryID, &r.SubcategoryName,
			&r.HasDocuments, &r.RawMarkdown, &r.ScrapedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// CountRecords returns the number of stored records.
func (s *Store) CountRecords(ctx context.Context) (int64, error) {
	var n int64
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n)
	return n, err
}

// StatusCounts returns record counts grouped by status. Records without a
// status are grouped under the empty string.
func (s *Store) StatusCounts(ctx context.Context) (map[string]int64, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT COALESCE(status, ''), COUNT(*) FROM records GROUP BY COALESCE(status, '')`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// CategoryCounts returns record counts grouped by category name.
func (s *Store) CategoryCounts(ctx context.Context) (map[string]int64, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT COALESCE(category_name, ''), COUNT(*) FROM records GROUP BY COALESCE(category_name, '')`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var name string
		var n int64
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		counts[name] = n
	}
	return counts, rows.Err()
}
