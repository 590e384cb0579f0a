package manifest

import (
	"fmt"
	"time"

	"github.com/dtnitsch/freqmerge/pkg/freqmap"
	"github.com/dtnitsch/freqmerge/pkg/mapreduce"
	"github.com/dtnitsch/freqmerge/pkg/storage"
	"gopkg.in/yaml.v3"
)

// InputResult is the outcome of turning one input into a shard.
// It is passed in by the CLI layer to avoid circular dependencies.
type InputResult struct {
	Source    string
	Group     string
	Shard     *freqmap.FreqMap
	Error     error
	ErrorType string
}

// GroupOutcome pairs a reduced group with the ID it was stored under.
type GroupOutcome struct {
	Result      mapreduce.GroupResult
	AggregateID int64
}

// Build assembles the manifest of a run. top limits keywords per group.
func Build(runID int64, cfg freqmap.MergeConfig, inputs []InputResult, groups []GroupOutcome, top int) *SummaryManifest {
	manifest := &SummaryManifest{
		GeneratedAt: time.Now().Format(time.RFC3339),
		RunID:       runID,
		MaxSize:     cfg.MaxSize,
		Truncate:    cfg.Truncate,
		TotalInputs: len(inputs),
	}

	for _, input := range inputs {
		summary := InputSummary{Source: input.Source}
		if input.Error != nil {
			manifest.Failed++
			summary.Status = "error"
			summary.ErrorType = input.ErrorType
			summary.ErrorMessage = input.Error.Error()
		} else {
			manifest.Successful++
			summary.Status = "success"
			summary.Group = input.Group
			summary.KeyCount = input.Shard.Size()
		}
		manifest.Inputs = append(manifest.Inputs, summary)
	}

	for _, g := range groups {
		summary := GroupSummary{
			Group:       g.Result.Group,
			ShardCount:  g.Result.ShardCount,
			AggregateID: g.AggregateID,
		}
		if g.Result.Error != nil {
			summary.Status = "error"
			summary.ErrorMessage = g.Result.Error.Error()
		} else {
			summary.Status = "success"
			summary.KeyCount = g.Result.Aggregate.Size()
			summary.Total = g.Result.Aggregate.Total()
			summary.TopKeywords = mapreduce.TopKeywords(g.Result.Aggregate, top)
		}
		manifest.Groups = append(manifest.Groups, summary)
	}

	return manifest
}

// Save writes the manifest as YAML to path.
func Save(manifest *SummaryManifest, path string, s *storage.Storage) error {
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("error marshalling manifest: %w", err)
	}
	if err := s.SaveFile(path, data); err != nil {
		return fmt.Errorf("error saving manifest: %w", err)
	}
	return nil
}
