package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestFetcher(t *testing.T, handler http.Handler) *Fetcher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL})
}

// WHAT: a 200 page without markers comes back Exists=true with the body.
func TestFetchSignalExists(t *testing.T) {
	f := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bg/signal/536304" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte("<html><h1>Сигнал 536304</h1></html>"))
	}))
	res, err := f.FetchSignal(context.Background(), 536304)
	if err != nil {
		t.Fatalf("FetchSignal: %v", err)
	}
	if !res.Exists || len(res.Body) == 0 {
		t.Fatalf("Exists=%v len=%d, want true with body", res.Exists, len(res.Body))
	}
}

// WHAT: HTTP 404 means missing record, not an error.
// WHY: missing ids are a normal outcome and must never be retried.
func TestFetchSignalHTTP404(t *testing.T) {
	f := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	res, err := f.FetchSignal(context.Background(), 1)
	if err != nil {
		t.Fatalf("FetchSignal: %v", err)
	}
	if res.Exists {
		t.Fatal("Exists = true, want false on 404")
	}
}

// WHAT: a 200 page carrying an in-body not-found marker also means missing.
// WHY: the register reports missing records as text on an otherwise OK page.
func TestFetchSignalBodyMarker(t *testing.T) {
	for _, marker := range []string{"Няма такъв сигнал", "Невалиден номер на сигнал"} {
		f := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html><div>" + marker + "</div></html>"))
		}))
		res, err := f.FetchSignal(context.Background(), 2)
		if err != nil {
			t.Fatalf("marker %q: %v", marker, err)
		}
		if res.Exists {
			t.Fatalf("marker %q: Exists = true, want false", marker)
		}
	}
}

// WHAT: server errors surface as errors so the retry policy engages.
func TestFetchSignalServerError(t *testing.T) {
	f := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	if _, err := f.FetchSignal(context.Background(), 3); err == nil {
		t.Fatal("expected error on 500")
	}
}

// WHAT: list endpoints decode both bare arrays and data envelopes,
// with string or numeric ids.
func TestFetchCategories(t *testing.T) {
	f := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":3,"text":"Пътна инфраструктура"},{"id":"12","name":"Зелена система"}]`))
	}))
	items, err := f.FetchCategories(context.Background())
	if err != nil {
		t.Fatalf("FetchCategories: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].ID != 3 || items[0].Text != "Пътна инфраструктура" {
		t.Fatalf("item 0 = %+v", items[0])
	}
	if items[1].ID != 12 || items[1].Text != "Зелена система" {
		t.Fatalf("item 1 = %+v", items[1])
	}
}

func TestFetchSubcategoriesEnvelope(t *testing.T) {
	f := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":30271,"text":"Пътна инфраструктура - Проблеми с велосипедната инфраструктура"}]}`))
	}))
	items, err := f.FetchSubcategories(context.Background())
	if err != nil {
		t.Fatalf("FetchSubcategories: %v", err)
	}
	if len(items) != 1 || items[0].ID != 30271 {
		t.Fatalf("items = %+v", items)
	}
}

// WHAT: history rows decode from positional cells, stringifying numbers.
func TestFetchStatusHistory(t *testing.T) {
	f := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rows":[["12.05.2021 14:33","Приет",1],["13.05.2021 09:00","В обработка",2]]}`))
	}))
	rows := f.FetchStatusHistory(context.Background(), 536304)
	if len(rows) != 2 {
		t.Fatalf("len = %d, want 2", len(rows))
	}
	if rows[0][1] != "Приет" || rows[0][2] != "1" {
		t.Fatalf("row 0 = %v", rows[0])
	}
}

// WHAT: history failures degrade to an empty slice, never an error.
// WHY: auxiliary enrichment must not block or fail the main pipeline.
func TestFetchHistoryBestEffort(t *testing.T) {
	bodies := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", 500, "boom"},
		{"not json", 200, "<html>oops</html>"},
		{"wrong shape", 200, `{"items":[{"when":"x"}]}`},
	}
	for _, tc := range bodies {
		f := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(tc.body))
		}))
		if rows := f.FetchAnswerHistory(context.Background(), 7); len(rows) != 0 {
			t.Fatalf("%s: rows = %v, want empty", tc.name, rows)
		}
	}
}

// WHAT: the probe accepts any non-5xx answer and fails on server errors.
func TestProbe(t *testing.T) {
	ok := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	if err := ok.Probe(context.Background()); err != nil {
		t.Fatalf("Probe: %v", err)
	}

	down := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	if err := down.Probe(context.Background()); err == nil {
		t.Fatal("expected probe failure on 502")
	}
}
