package harvest

import (
	"github.com/hazyhaar/sigharv/harvest/internal/extract"
	"github.com/hazyhaar/sigharv/harvest/internal/store"
)

// Schema is the database schema, re-exported for callers that open the
// database themselves (dbopen.WithSchema(harvest.Schema)).
const Schema = store.Schema

// Record is one extracted signal, as produced by a scrape.
type Record = extract.Record

// StoredRecord is one persisted signal row.
type StoredRecord = store.StoredRecord

// ErrorEntry is one logged harvest failure.
type ErrorEntry = store.ErrorEntry

// RunProgress is the watermark plus cumulative run counters.
type RunProgress = store.RunProgress
