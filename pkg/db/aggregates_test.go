package db

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/dtnitsch/freqmerge/pkg/freqmap"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	database := &DB{path: ":memory:"}
	var err error
	database.DB, err = openDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := database.InitSchema(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}

	return database
}

func TestCreateRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	runID, err := db.CreateRun(freqmap.MergeConfig{MaxSize: 50, Truncate: false}, 7)
	if err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	if runID == 0 {
		t.Fatal("CreateRun() returned 0 ID")
	}

	run, err := db.GetRun(runID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run.MaxSize != 50 || run.Truncate || run.InputCount != 7 {
		t.Errorf("GetRun() = %+v", run)
	}
	if run.CreatedAt.IsZero() {
		t.Error("GetRun() CreatedAt is zero")
	}
}

func TestGetRun_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if _, err := db.GetRun(999); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRun() error = %v, want ErrNotFound", err)
	}
}

func TestSaveAndLoadAggregate(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	runID, err := db.CreateRun(freqmap.DefaultMergeConfig(), 2)
	if err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	want := freqmap.New(0)
	want.Put("zeta", 5)
	want.Put("alpha", 2)
	want.Put("mid", 9)

	aggregateID, err := db.SaveAggregate(runID, "en", 2, want)
	if err != nil {
		t.Fatalf("SaveAggregate() error = %v", err)
	}

	got, err := db.LoadAggregate(aggregateID)
	if err != nil {
		t.Fatalf("LoadAggregate() error = %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("LoadAggregate() = %v, want %v", got, want)
	}

	wantKeys := want.Keys()
	for i, k := range got.Keys() {
		if k != wantKeys[i] {
			t.Errorf("LoadAggregate() key %d = %q, want %q", i, k, wantKeys[i])
		}
	}
}

func TestSaveAggregate_DuplicateGroup(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	runID, err := db.CreateRun(freqmap.DefaultMergeConfig(), 1)
	if err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	fm := freqmap.FromMap(map[string]int64{"a": 1})
	if _, err := db.SaveAggregate(runID, "en", 1, fm); err != nil {
		t.Fatalf("SaveAggregate() error = %v", err)
	}
	if _, err := db.SaveAggregate(runID, "en", 1, fm); err == nil {
		t.Error("SaveAggregate() accepted a duplicate group for the same run")
	}

	// The failed transaction left no partial rows behind.
	var rows int
	if err := db.QueryRow("SELECT COUNT(*) FROM aggregate_counts").Scan(&rows); err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	if rows != 1 {
		t.Errorf("aggregate_counts rows = %d, want 1", rows)
	}
}

func TestGetRunAggregates(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	runID, err := db.CreateRun(freqmap.MergeConfig{MaxSize: 2, Truncate: false}, 4)
	if err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	if _, err := db.SaveAggregate(runID, "en", 3, freqmap.FromMap(map[string]int64{"a": 4, "b": 1})); err != nil {
		t.Fatalf("SaveAggregate() error = %v", err)
	}
	failedID, err := db.SaveFailedGroup(runID, "de", 1, freqmap.ErrCapacityExceeded)
	if err != nil {
		t.Fatalf("SaveFailedGroup() error = %v", err)
	}

	aggregates, err := db.GetRunAggregates(runID)
	if err != nil {
		t.Fatalf("GetRunAggregates() error = %v", err)
	}
	if len(aggregates) != 2 {
		t.Fatalf("GetRunAggregates() returned %d rows, want 2", len(aggregates))
	}

	de, en := aggregates[0], aggregates[1]
	if de.GroupKey != "de" || de.Status != StatusFailed || de.ErrorMessage != freqmap.ErrCapacityExceeded.Error() {
		t.Errorf("de aggregate = %+v", de)
	}
	if en.GroupKey != "en" || en.Status != StatusSuccess || en.KeyCount != 2 || en.Total != 5 || en.ShardCount != 3 {
		t.Errorf("en aggregate = %+v", en)
	}

	if _, err := db.LoadAggregate(failedID); err == nil {
		t.Error("LoadAggregate() loaded a failed group")
	}
	if _, err := db.LoadAggregate(12345); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadAggregate() error = %v, want ErrNotFound", err)
	}
}

func TestListRuns(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	for i := 1; i <= 3; i++ {
		if _, err := db.CreateRun(freqmap.MergeConfig{MaxSize: i, Truncate: true}, i); err != nil {
			t.Fatalf("CreateRun() error = %v", err)
		}
	}

	runs, err := db.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRuns() returned %d runs, want 2", len(runs))
	}
	if runs[0].MaxSize != 3 || runs[1].MaxSize != 2 {
		t.Errorf("ListRuns() order = %d, %d, want newest first", runs[0].MaxSize, runs[1].MaxSize)
	}
}

func TestOpen_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	first, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	runID, err := first.CreateRun(freqmap.DefaultMergeConfig(), 1)
	if err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	_ = first.Close()

	// Reopening keeps existing data and skips schema initialization.
	second, err := Open(path)
	if err != nil {
		t.Fatalf("Open() second time error = %v", err)
	}
	defer second.Close()

	if second.Path() != path {
		t.Errorf("Path() = %q, want %q", second.Path(), path)
	}
	if _, err := second.GetRun(runID); err != nil {
		t.Errorf("GetRun() after reopen error = %v", err)
	}
}

func TestOpen_RestoresMissingTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.db")

	first, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := first.Exec("DROP TABLE aggregate_counts"); err != nil {
		t.Fatalf("DROP TABLE error = %v", err)
	}
	missing, err := first.missingTables()
	if err != nil {
		t.Fatalf("missingTables() error = %v", err)
	}
	if len(missing) != 1 || missing[0] != "aggregate_counts" {
		t.Errorf("missingTables() = %v, want [aggregate_counts]", missing)
	}
	_ = first.Close()

	second, err := Open(path)
	if err != nil {
		t.Fatalf("Open() second time error = %v", err)
	}
	defer second.Close()

	if missing, err := second.missingTables(); err != nil || len(missing) != 0 {
		t.Errorf("missingTables() after reopen = %v, %v; want none", missing, err)
	}
	runID, err := second.CreateRun(freqmap.DefaultMergeConfig(), 1)
	if err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	if _, err := second.SaveAggregate(runID, "en", 1, freqmap.FromMap(map[string]int64{"a": 1})); err != nil {
		t.Errorf("SaveAggregate() after restore error = %v", err)
	}
}
