package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dtnitsch/freqmerge/pkg/freqmap"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// ErrNotFound is returned when a run or aggregate does not exist.
var ErrNotFound = errors.New("not found")

// Run represents one aggregation invocation
type Run struct {
	RunID      int64
	CreatedAt  time.Time
	MaxSize    int
	Truncate   bool
	InputCount int
}

// Aggregate is the stored summary of one group's reduction
type Aggregate struct {
	AggregateID  int64
	RunID        int64
	GroupKey     string
	Status       string
	ErrorMessage string
	ShardCount   int
	KeyCount     int
	Total        int64
}

// CreateRun records a new run and returns its run_id.
func (db *DB) CreateRun(cfg freqmap.MergeConfig, inputCount int) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO runs (max_size, truncate, input_count)
		VALUES (?, ?, ?)
	`, cfg.MaxSize, cfg.Truncate, inputCount)
	if err != nil {
		return 0, fmt.Errorf("failed to create run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}
	return runID, nil
}

// SaveAggregate stores a reduced frequency map for group within a run.
// Counts are written in iteration order in a single transaction.
func (db *DB) SaveAggregate(runID int64, group string, shardCount int, fm *freqmap.FreqMap) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // No-op after Commit
	}()

	result, err := tx.Exec(`
		INSERT INTO aggregates (run_id, group_key, status, shard_count, key_count, total)
		VALUES (?, ?, ?, ?, ?, ?)
	`, runID, group, StatusSuccess, shardCount, fm.Size(), fm.Total())
	if err != nil {
		return 0, fmt.Errorf("failed to insert aggregate: %w", err)
	}

	aggregateID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get aggregate ID: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO aggregate_counts (aggregate_id, position, key, count)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare count insert: %w", err)
	}
	defer stmt.Close()

	position := 0
	for key, count := range fm.Entries() {
		if _, err := stmt.Exec(aggregateID, position, key, count); err != nil {
			return 0, fmt.Errorf("failed to insert count for %q: %w", key, err)
		}
		position++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit aggregate: %w", err)
	}
	return aggregateID, nil
}

// SaveFailedGroup records a group whose reduction failed.
func (db *DB) SaveFailedGroup(runID int64, group string, shardCount int, groupErr error) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO aggregates (run_id, group_key, status, error_message, shard_count)
		VALUES (?, ?, ?, ?, ?)
	`, runID, group, StatusFailed, groupErr.Error(), shardCount)
	if err != nil {
		return 0, fmt.Errorf("failed to insert failed group: %w", err)
	}

	aggregateID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get aggregate ID: %w", err)
	}
	return aggregateID, nil
}

// GetRun returns a single run.
func (db *DB) GetRun(runID int64) (*Run, error) {
	var r Run
	err := db.QueryRow(`
		SELECT run_id, created_at, max_size, truncate, input_count
		FROM runs WHERE run_id = ?
	`, runID).Scan(&r.RunID, &r.CreatedAt, &r.MaxSize, &r.Truncate, &r.InputCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &r, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.Query(`
		SELECT run_id, created_at, max_size, truncate, input_count
		FROM runs
		ORDER BY run_id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.CreatedAt, &r.MaxSize, &r.Truncate, &r.InputCount); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRunAggregates returns every group stored for a run, ordered by group key.
func (db *DB) GetRunAggregates(runID int64) ([]Aggregate, error) {
	rows, err := db.Query(`
		SELECT aggregate_id, run_id, group_key, status, error_message, shard_count, key_count, total
		FROM aggregates
		WHERE run_id = ?
		ORDER BY group_key
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run aggregates: %w", err)
	}
	defer rows.Close()

	var aggregates []Aggregate
	for rows.Next() {
		var a Aggregate
		var errorMessage sql.NullString
		if err := rows.Scan(&a.AggregateID, &a.RunID, &a.GroupKey, &a.Status, &errorMessage,
			&a.ShardCount, &a.KeyCount, &a.Total); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate: %w", err)
		}
		a.ErrorMessage = errorMessage.String
		aggregates = append(aggregates, a)
	}
	return aggregates, rows.Err()
}

// LoadAggregate rebuilds a stored frequency map in its original order.
func (db *DB) LoadAggregate(aggregateID int64) (*freqmap.FreqMap, error) {
	var status string
	err := db.QueryRow("SELECT status FROM aggregates WHERE aggregate_id = ?", aggregateID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("aggregate %d: %w", aggregateID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get aggregate: %w", err)
	}
	if status != StatusSuccess {
		return nil, fmt.Errorf("aggregate %d has status %s", aggregateID, status)
	}

	rows, err := db.Query(`
		SELECT key, count
		FROM aggregate_counts
		WHERE aggregate_id = ?
		ORDER BY position
	`, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load aggregate counts: %w", err)
	}
	defer rows.Close()

	fm := freqmap.New(0)
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		fm.Put(key, count)
	}
	return fm, rows.Err()
}
