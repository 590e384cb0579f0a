package models

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dtnitsch/freqmerge/pkg/freqmap"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
merge:
  max_size: 250
  truncate: false
workers: 8
group_by: domain
languages: [en, it]
fetch_timeout: 5s
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if config.Merge.MaxSize != 250 || config.Merge.Truncate {
		t.Errorf("Merge = %+v, want {250 false}", config.Merge)
	}
	if config.WorkerCount != 8 {
		t.Errorf("WorkerCount = %d, want 8", config.WorkerCount)
	}
	if len(config.Languages) != 2 || config.Languages[1] != "it" {
		t.Errorf("Languages = %v", config.Languages)
	}
	if config.FetchTimeout != 5*time.Second {
		t.Errorf("FetchTimeout = %v, want 5s", config.FetchTimeout)
	}
	if config.GroupBy != "domain" {
		t.Errorf("GroupBy = %q, want domain", config.GroupBy)
	}
	// Unset values keep their defaults.
	if config.Top != 25 || config.MinWordLength != 2 {
		t.Errorf("defaults lost: Top = %d, MinWordLength = %d", config.Top, config.MinWordLength)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "zero capacity", content: "merge:\n  max_size: 0\n", wantErr: freqmap.ErrInvalidCapacity},
		{name: "no workers", content: "workers: 0\n"},
		{name: "unknown grouping", content: "group_by: planet\n"},
		{name: "bad yaml", content: "merge: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("LoadConfig() succeeded, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("LoadConfig() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadConfig() succeeded for a missing file")
	}
}
