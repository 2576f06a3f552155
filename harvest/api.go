// CLAUDE:SUMMARY Read-only HTTP status API over the harvest database: progress, stats, errors, records.
package harvest

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/sigharv/harvest/internal/store"
)

// Router returns the read-only status API. It serves the stored data and
// never triggers network activity against the register.
func (svc *Service) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/progress", func(w http.ResponseWriter, req *http.Request) {
		progress, err := svc.store.Progress(req.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, progress)
	})

	r.Get("/api/stats", func(w http.ResponseWriter, req *http.Request) {
		stats, err := svc.Stats(req.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	})

	r.Get("/api/errors", func(w http.ResponseWriter, req *http.Request) {
		limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
		entries, err := svc.Errors(req.Context(), limit)
		if err != nil {
			writeError(w, err)
			return
		}
		if entries == nil {
			entries = []*store.ErrorEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
	})

	r.Get("/api/records/{id}", func(w http.ResponseWriter, req *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
			return
		}
		rec, err := svc.store.GetRecord(req.Context(), id)
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "record not found"})
			return
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, exportRecord(rec))
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
