package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dtnitsch/freqmerge/pkg/freqmap"
	"github.com/dtnitsch/freqmerge/pkg/mapreduce"
	"github.com/dtnitsch/freqmerge/pkg/storage"
)

func TestBuild(t *testing.T) {
	inputs := []InputResult{
		{Source: "a.html", Group: "en", Shard: freqmap.FromMap(map[string]int64{"merge": 2, "shard": 1})},
		{Source: "https://example.com/x", Error: errors.New("status code: 404"), ErrorType: "fetch_error"},
	}
	groups := []GroupOutcome{
		{
			Result:      mapreduce.GroupResult{Group: "en", ShardCount: 1, Aggregate: freqmap.FromMap(map[string]int64{"merge": 2, "shard": 1})},
			AggregateID: 7,
		},
		{
			Result: mapreduce.GroupResult{Group: "de", ShardCount: 2, Error: freqmap.ErrCapacityExceeded},
		},
	}

	m := Build(3, freqmap.DefaultMergeConfig(), inputs, groups, 1)

	if m.RunID != 3 || m.MaxSize != freqmap.DefaultMaxSize || !m.Truncate {
		t.Errorf("header = %+v", m)
	}
	if m.TotalInputs != 2 || m.Successful != 1 || m.Failed != 1 {
		t.Errorf("counts = %d/%d/%d, want 2/1/1", m.TotalInputs, m.Successful, m.Failed)
	}
	if m.Inputs[0].KeyCount != 2 || m.Inputs[1].ErrorType != "fetch_error" {
		t.Errorf("inputs = %+v", m.Inputs)
	}

	en := m.Groups[0]
	if en.Status != "success" || en.Total != 3 || en.AggregateID != 7 {
		t.Errorf("en group = %+v", en)
	}
	if len(en.TopKeywords) != 1 || en.TopKeywords[0] != "merge:2" {
		t.Errorf("en TopKeywords = %v", en.TopKeywords)
	}
	if de := m.Groups[1]; de.Status != "error" || de.ErrorMessage == "" {
		t.Errorf("de group = %+v", de)
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.yaml")
	m := Build(1, freqmap.DefaultMergeConfig(), nil, nil, 5)

	if err := Save(m, path, &storage.Storage{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}
	if !strings.Contains(string(data), "max_size: 1000") {
		t.Errorf("manifest = %s", data)
	}
}
