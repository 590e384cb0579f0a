// Package db stores aggregation runs and their per-group frequency maps in
// SQLite.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// DefaultDBName is the file created next to the binary when no path is given.
const DefaultDBName = "freqmerge.db"

// schemaTables are the tables a usable database must hold.
var schemaTables = []string{"runs", "aggregates", "aggregate_counts"}

// DB is a run store. It embeds *sql.DB so callers can run ad hoc queries.
type DB struct {
	*sql.DB
	path string
}

func openDB(dbPath string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to :memory: is a separate database
	if dbPath == ":memory:" {
		sqlDB.SetMaxOpenConns(1)
	}

	// Counts cascade with their aggregate, and aggregates with their run
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return sqlDB, nil
}

// DefaultPath returns DefaultDBName in the directory of the running binary.
func DefaultPath() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}
	return filepath.Join(filepath.Dir(execPath), DefaultDBName), nil
}

// Open opens or creates the run store at dbPath. An empty dbPath uses
// DefaultPath. Missing tables are created.
func Open(dbPath string) (*DB, error) {
	if dbPath == "" {
		var err error
		dbPath, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	sqlDB, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}

	db := &DB{DB: sqlDB, path: dbPath}
	if err := db.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

// ensureSchema runs InitSchema unless every table in schemaTables exists.
func (db *DB) ensureSchema() error {
	missing, err := db.missingTables()
	if err != nil {
		return fmt.Errorf("failed to check schema: %w", err)
	}
	if len(missing) == 0 {
		return nil
	}
	return db.InitSchema()
}

func (db *DB) missingTables() ([]string, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(schemaTables)), ",")
	args := make([]any, len(schemaTables))
	for i, name := range schemaTables {
		args[i] = name
	}

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' AND name IN ("+placeholders+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		found[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []string
	for _, name := range schemaTables {
		if !found[name] {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// InitSchema creates every table and index that does not exist yet.
func (db *DB) InitSchema() error {
	_, err := db.Exec(schema)
	return err
}
