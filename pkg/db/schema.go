package db

const schema = `
-- Performance and reliability settings
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- Runs: one row per aggregation invocation
CREATE TABLE IF NOT EXISTS runs (
    run_id INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    max_size INTEGER NOT NULL,
    truncate BOOLEAN NOT NULL,
    input_count INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);

-- Aggregates: one reduced frequency map per grouping key within a run
CREATE TABLE IF NOT EXISTS aggregates (
    aggregate_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    group_key TEXT NOT NULL,
    status TEXT NOT NULL,            -- success, failed
    error_message TEXT,
    shard_count INTEGER NOT NULL DEFAULT 0,
    key_count INTEGER NOT NULL DEFAULT 0,
    total INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE,
    UNIQUE(run_id, group_key)
);

CREATE INDEX IF NOT EXISTS idx_aggregates_run ON aggregates(run_id);
CREATE INDEX IF NOT EXISTS idx_aggregates_group ON aggregates(group_key);

-- Aggregate counts: position keeps the map's iteration order
CREATE TABLE IF NOT EXISTS aggregate_counts (
    aggregate_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    key TEXT NOT NULL,
    count INTEGER NOT NULL CHECK (count >= 0),
    PRIMARY KEY (aggregate_id, position),
    FOREIGN KEY (aggregate_id) REFERENCES aggregates(aggregate_id) ON DELETE CASCADE,
    UNIQUE(aggregate_id, key)
);
`
