// CLAUDE:SUMMARY HTTP client for the signal register: detail pages, taxonomy lists, best-effort history tables.
// Package fetch talks to the signal register over HTTP.
//
// The detail-page fetch distinguishes "record does not exist" from transient
// failure: the register reports missing records both as HTTP 404 and as an
// in-body marker phrase on a 200 page, and neither is an error here. The two
// history fetches are best-effort and degrade to an empty slice.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/hazyhaar/sigharv/harvest/internal/extract"
)

// Result is the outcome of a detail-page fetch.
type Result struct {
	Body       []byte
	StatusCode int
	// Exists is false when the register reports no record under this id,
	// either as HTTP 404 or as an in-body not-found marker.
	Exists bool
}

// ListItem is one entry from a taxonomy list endpoint.
type ListItem struct {
	ID   int64
	Text string
}

// HistoryRow is one positional-cell row from a history endpoint.
type HistoryRow []string

// Config configures the fetcher. Path templates take the record id via %d.
type Config struct {
	BaseURL   string        // register origin, no trailing slash.
	Timeout   time.Duration // HTTP timeout. Default: 30s.
	MaxBytes  int64         // Max response body size. Default: 5MB.
	UserAgent string

	SignalPath        string // default: /bg/signal/%d
	CategoriesPath    string // default: /api/categories
	SubcategoriesPath string // default: /api/subcategories
	StatusHistoryPath string // default: /api/signals/%d/statuses
	AnswerHistoryPath string // default: /api/signals/%d/answers
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 5 * 1024 * 1024 // 5MB
	}
	if c.UserAgent == "" {
		c.UserAgent = "sigharv/1.0"
	}
	if c.SignalPath == "" {
		c.SignalPath = "/bg/signal/%d"
	}
	if c.CategoriesPath == "" {
		c.CategoriesPath = "/api/categories"
	}
	if c.SubcategoriesPath == "" {
		c.SubcategoriesPath = "/api/subcategories"
	}
	if c.StatusHistoryPath == "" {
		c.StatusHistoryPath = "/api/signals/%d/statuses"
	}
	if c.AnswerHistoryPath == "" {
		c.AnswerHistoryPath = "/api/signals/%d/answers"
	}
}

// Fetcher performs HTTP requests against the register. It holds no mutable
// cross-call state and is safe for concurrent use.
type Fetcher struct {
	client *http.Client
	config Config
}

// New creates a Fetcher.
func New(cfg Config) *Fetcher {
	cfg.defaults()
	return &Fetcher{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
	}
}

// FetchSignal retrieves the detail page for one record id.
// A missing record (404 or in-body marker) yields Exists=false and a nil
// error so callers never retry it. Transport failures and server errors
// return a non-nil error.
func (f *Fetcher) FetchSignal(ctx context.Context, id int64) (*Result, error) {
	url := f.config.BaseURL + fmt.Sprintf(f.config.SignalPath, id)
	body, status, err := f.get(ctx, url)
	if err != nil {
		if status == http.StatusNotFound {
			return &Result{StatusCode: status, Exists: false}, nil
		}
		return nil, err
	}
	for _, marker := range extract.NotFoundMarkers {
		if bytes.Contains(body, []byte(marker)) {
			return &Result{Body: body, StatusCode: status, Exists: false}, nil
		}
	}
	return &Result{Body: body, StatusCode: status, Exists: true}, nil
}

// FetchCategories retrieves the top-level category list.
func (f *Fetcher) FetchCategories(ctx context.Context) ([]ListItem, error) {
	return f.fetchList(ctx, f.config.BaseURL+f.config.CategoriesPath)
}

// FetchSubcategories retrieves the subcategory list. Display text joins
// parent and subcategory names with " - ".
func (f *Fetcher) FetchSubcategories(ctx context.Context) ([]ListItem, error) {
	return f.fetchList(ctx, f.config.BaseURL+f.config.SubcategoriesPath)
}

// FetchStatusHistory retrieves the status-change table for one record.
// Best-effort: any failure or unrecognized shape yields an empty slice and
// a nil error.
func (f *Fetcher) FetchStatusHistory(ctx context.Context, id int64) []HistoryRow {
	return f.fetchHistory(ctx, f.config.BaseURL+fmt.Sprintf(f.config.StatusHistoryPath, id))
}

// FetchAnswerHistory retrieves the secondary-answer table for one record.
// Best-effort, same contract as FetchStatusHistory.
func (f *Fetcher) FetchAnswerHistory(ctx context.Context, id int64) []HistoryRow {
	return f.fetchHistory(ctx, f.config.BaseURL+fmt.Sprintf(f.config.AnswerHistoryPath, id))
}

// Probe checks that the register answers at all. Run startup treats a probe
// failure as fatal rather than burning the retry budget on every id.
func (f *Fetcher) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.config.BaseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 500 {
		return fmt.Errorf("probe: http %d", resp.StatusCode)
	}
	return nil
}

func (f *Fetcher) get(ctx context.Context, url string) (body []byte, status int, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, resp.StatusCode, fmt.Errorf("http %d", resp.StatusCode)
	}

	body, err = io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// listEntry tolerates both string and numeric id encodings.
type listEntry struct {
	ID   json.Number `json:"id"`
	Text string      `json:"text"`
	Name string      `json:"name"`
}

func (f *Fetcher) fetchList(ctx context.Context, url string) ([]ListItem, error) {
	body, _, err := f.get(ctx, url)
	if err != nil {
		return nil, err
	}
	var entries []listEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		// Some deployments wrap the list in a data envelope.
		var wrapped struct {
			Data []listEntry `json:"data"`
		}
		if err2 := json.Unmarshal(body, &wrapped); err2 != nil || wrapped.Data == nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		entries = wrapped.Data
	}
	items := make([]ListItem, 0, len(entries))
	for _, e := range entries {
		id, err := e.ID.Int64()
		if err != nil {
			continue
		}
		text := e.Text
		if text == "" {
			text = e.Name
		}
		items = append(items, ListItem{ID: id, Text: text})
	}
	return items, nil
}

// fetchHistory decodes a paged positional-cell table. The endpoint shape is
// advisory: rows live under "rows" or "data", cells may be strings or
// numbers, and anything unrecognized degrades to nil.
func (f *Fetcher) fetchHistory(ctx context.Context, url string) []HistoryRow {
	body, _, err := f.get(ctx, url)
	if err != nil {
		return nil
	}
	var envelope struct {
		Rows [][]any `json:"rows"`
		Data [][]any `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}
	raw := envelope.Rows
	if raw == nil {
		raw = envelope.Data
	}
	rows := make([]HistoryRow, 0, len(raw))
	for _, cells := range raw {
		row := make(HistoryRow, 0, len(cells))
		for _, c := range cells {
			row = append(row, cellString(c))
		}
		rows = append(rows, row)
	}
	return rows
}

func cellString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return ""
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}
