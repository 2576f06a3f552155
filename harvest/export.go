package harvest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/hazyhaar/sigharv/harvest/internal/store"
)

const exportPageSize = 500

// ExportCSV writes every stored record to w as CSV, ordered by id.
// Nullable fields render as empty cells.
func (svc *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	cw := csv.NewWriter(w)
	header := []string{
		"id", "reg_number", "submitted_at", "status", "description",
		"neighborhood", "address", "location_text", "location_type",
		"lat", "lng", "category_id", "category_name",
		"subcategory_id", "subcategory_name", "has_documents",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for offset := 0; ; offset += exportPageSize {
		recs, err := svc.store.ListRecords(ctx, exportPageSize, offset)
		if err != nil {
			return fmt.Errorf("list records: %w", err)
		}
		if len(recs) == 0 {
			break
		}
		for _, r := range recs {
			row := []string{
				strconv.FormatInt(r.ID, 10),
				strOrEmpty(r.RegNumber),
				strOrEmpty(r.SubmittedAt),
				strOrEmpty(r.Status),
				strOrEmpty(r.Description),
				strOrEmpty(r.Neighborhood),
				strOrEmpty(r.Address),
				strOrEmpty(r.LocationText),
				strOrEmpty(r.LocationType),
				floatOrEmpty(r.Lat),
				floatOrEmpty(r.Lng),
				intOrEmpty(r.CategoryID),
				strOrEmpty(r.CategoryName),
				intOrEmpty(r.SubcategoryID),
				strOrEmpty(r.SubcategoryName),
				strconv.FormatBool(r.HasDocuments),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportJSON writes every stored record to w as a JSON array, ordered by id.
func (svc *Service) ExportJSON(ctx context.Context, w io.Writer) error {
	if _, err := io.WriteString(w, "[\n"); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	first := true
	for offset := 0; ; offset += exportPageSize {
		recs, err := svc.store.ListRecords(ctx, exportPageSize, offset)
		if err != nil {
			return fmt.Errorf("list records: %w", err)
		}
		if len(recs) == 0 {
			break
		}
		for _, r := range recs {
			if !first {
				if _, err := io.WriteString(w, ",\n"); err != nil {
					return err
				}
			}
			first = false
			if err := enc.Encode(exportRecord(r)); err != nil {
				return err
			}
		}
	}
	_, err := io.WriteString(w, "]\n")
	return err
}

// ExportedRecord is the JSON export shape. Raw markdown is deliberately
// excluded; it can dominate the file size and GetRecord serves it on demand.
type ExportedRecord struct {
	ID              int64    `json:"id"`
	RegNumber       *string  `json:"reg_number,omitempty"`
	SubmittedAt     *string  `json:"submitted_at,omitempty"`
	Status          *string  `json:"status,omitempty"`
	Description     *string  `json:"description,omitempty"`
	Neighborhood    *string  `json:"neighborhood,omitempty"`
	Address         *string  `json:"address,omitempty"`
	LocationText    *string  `json:"location_text,omitempty"`
	LocationType    *string  `json:"location_type,omitempty"`
	Lat             *float64 `json:"lat,omitempty"`
	Lng             *float64 `json:"lng,omitempty"`
	CategoryID      *int64   `json:"category_id,omitempty"`
	CategoryName    *string  `json:"category_name,omitempty"`
	SubcategoryID   *int64   `json:"subcategory_id,omitempty"`
	SubcategoryName *string  `json:"subcategory_name,omitempty"`
	HasDocuments    bool     `json:"has_documents"`
	ScrapedAt       int64    `json:"scraped_at"`
	UpdatedAt       int64    `json:"updated_at"`
}

func exportRecord(r *store.StoredRecord) *ExportedRecord {
	return &ExportedRecord{
		ID:              r.ID,
		RegNumber:       r.RegNumber,
		SubmittedAt:     r.SubmittedAt,
		Status:          r.Status,
		Description:     r.Description,
		Neighborhood:    r.Neighborhood,
		Address:         r.Address,
		LocationText:    r.LocationText,
		LocationType:    r.LocationType,
		Lat:             r.Lat,
		Lng:             r.Lng,
		CategoryID:      r.CategoryID,
		CategoryName:    r.CategoryName,
		SubcategoryID:   r.SubcategoryID,
		SubcategoryName: r.SubcategoryName,
		HasDocuments:    r.HasDocuments,
		ScrapedAt:       r.ScrapedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func floatOrEmpty(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

func intOrEmpty(p *int64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatInt(*p, 10)
}
