// Package store provides the data access layer for the harvester.
//
// The store receives a *sql.DB opened by dbopen and owns every query the
// service issues: record upserts, the progress watermark, the error log,
// taxonomy tables, and the auxiliary history tables.
package store

import "database/sql"

// Store wraps the harvester database.
type Store struct {
	DB *sql.DB
}

// NewStore creates a Store from an already-opened database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}
