// CLAUDE:SUMMARY Applies the harvester SQL schema: records, progress watermark, error log, taxonomy, history.
package store

// Schema is the complete harvester schema. Timestamps are UnixMilli.
const Schema = `
-- Harvested signal records. Columns beyond id are nullable: scraping an id
-- that yields nothing for a field leaves the stored value untouched.
CREATE TABLE IF NOT EXISTS records (
    id               INTEGER PRIMARY KEY,
    reg_number       TEXT,
    submitted_at     TEXT,
    status           TEXT,
    description      TEXT,
    neighborhood     TEXT,
    address          TEXT,
    location_text    TEXT,
    location_type    TEXT,
    lat              REAL,
    lng              REAL,
    category_id      INTEGER,
    category_name    TEXT,
    subcategory_id   INTEGER,
    subcategory_name TEXT,
    has_documents    INTEGER NOT NULL DEFAULT 0,
    raw_markdown     TEXT,
    scraped_at       INTEGER NOT NULL,
    updated_at       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_category ON records(category_id, subcategory_id);
CREATE INDEX IF NOT EXISTS idx_records_status ON records(status);

-- Single-row run progress. last_id only ever grows; the outcome counters
-- are cumulative across runs until an explicit reset.
CREATE TABLE IF NOT EXISTS progress (
    id          INTEGER PRIMARY KEY CHECK (id = 1),
    last_id     INTEGER NOT NULL DEFAULT 0,
    scraped     INTEGER NOT NULL DEFAULT 0,
    skipped     INTEGER NOT NULL DEFAULT 0,
    not_found   INTEGER NOT NULL DEFAULT 0,
    errors      INTEGER NOT NULL DEFAULT 0,
    started_at  INTEGER NOT NULL DEFAULT 0,
    updated_at  INTEGER NOT NULL
);

-- Per-id failure log, append only.
CREATE TABLE IF NOT EXISTS error_log (
    id          TEXT PRIMARY KEY,
    record_id   INTEGER NOT NULL,
    stage       TEXT NOT NULL,
    message     TEXT NOT NULL,
    occurred_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_error_log_record ON error_log(record_id, occurred_at DESC);

-- Classification snapshot, replaced atomically by sync.
CREATE TABLE IF NOT EXISTS categories (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    synced_at  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS subcategories (
    id         INTEGER PRIMARY KEY,
    parent_id  INTEGER NOT NULL DEFAULT 0,
    name       TEXT NOT NULL,
    synced_at  INTEGER NOT NULL
);

-- Auxiliary history rows, best-effort positional cells stored as JSON.
CREATE TABLE IF NOT EXISTS signal_statuses (
    record_id  INTEGER NOT NULL,
    seq        INTEGER NOT NULL,
    cells      TEXT NOT NULL,
    fetched_at INTEGER NOT NULL,
    PRIMARY KEY (record_id, seq)
);
CREATE TABLE IF NOT EXISTS signal_answers (
    record_id  INTEGER NOT NULL,
    seq        INTEGER NOT NULL,
    cells      TEXT NOT NULL,
    fetched_at INTEGER NOT NULL,
    PRIMARY KEY (record_id, seq)
);
`
