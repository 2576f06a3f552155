package harvest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/sigharv/dbopen"
	"github.com/hazyhaar/sigharv/harvest/internal/store"
	"github.com/hazyhaar/sigharv/harvest/internal/taxonomy"
)

// WHAT: a write failure during upsert is logged under the persist phase.
// WHY: the error log's phase vocabulary is fetch, extract, persist; readers
// filtering by phase must find storage failures under persist.
func TestProcessOnePersistFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><h1>Сигнал СОА21-КЦ01-7 от 12.05.2021 14:33</h1></body></html>`))
	}))
	t.Cleanup(srv.Close)

	db := dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema))
	svc, err := New(db, &Config{
		BaseURL: srv.URL, StartID: 7, EndID: 7,
		DelayMs: 1, RetryAttempts: 1, RetryBaseDelayMs: 1,
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	// Break the records table; the error log must stay writable.
	if _, err := db.ExecContext(ctx, `DROP TABLE records`); err != nil {
		t.Fatalf("drop records: %v", err)
	}

	outcome := svc.processOne(ctx, 7, taxonomy.NewTable(nil, nil), nil)
	if outcome != store.OutcomeError {
		t.Fatalf("outcome = %s, want error", outcome)
	}

	entries, err := svc.store.ListErrors(ctx, 10)
	if err != nil {
		t.Fatalf("ListErrors: %v", err)
	}
	if len(entries) != 1 || entries[0].Stage != "persist" {
		t.Fatalf("entries = %+v, want one persist-phase entry", entries)
	}
}
