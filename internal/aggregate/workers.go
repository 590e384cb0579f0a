package aggregate

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dtnitsch/freqmerge/internal/common"
	"github.com/dtnitsch/freqmerge/models"
	"github.com/dtnitsch/freqmerge/pkg/analytics"
	"github.com/dtnitsch/freqmerge/pkg/caching"
	"github.com/dtnitsch/freqmerge/pkg/detector"
	"github.com/dtnitsch/freqmerge/pkg/fetcher"
	"github.com/dtnitsch/freqmerge/pkg/freqmap"
	"github.com/dtnitsch/freqmerge/pkg/manifest"
	"github.com/dtnitsch/freqmerge/pkg/mapreduce"
	"github.com/dtnitsch/freqmerge/pkg/parser"
	"github.com/dtnitsch/freqmerge/pkg/storage"
)

// DefaultGroup is the grouping key used when grouping is off.
const DefaultGroup = detector.DefaultGroup

// Job defines an input for a worker to turn into a shard.
type Job struct {
	Index  int
	Source string
}

type indexedResult struct {
	index  int
	result manifest.InputResult
}

// stages holds everything a worker needs to produce a shard.
// grouper may be nil, in which case every document lands in DefaultGroup.
// cache may be nil; it only holds shards built from URLs.
type stages struct {
	logger     *slog.Logger
	fetcher    *fetcher.Fetcher
	parser     *parser.Parser
	analytics  *analytics.Analytics
	grouper    *detector.Grouper
	storage    *storage.Storage
	cache      *caching.Cache
	shardGroup string
}

// run processes sources with workerCount goroutines. Results keep the order
// of sources, so grouping and reduction do not depend on scheduling.
func (s *stages) run(ctx context.Context, sources []string, workerCount int) []manifest.InputResult {
	if workerCount < 1 {
		workerCount = 1
	}

	s.logger.Info("Starting concurrent shard phase", "input_count", len(sources), "workers", workerCount)
	var wg sync.WaitGroup
	jobs := make(chan Job, len(sources))
	results := make(chan indexedResult, len(sources))

	for w := 1; w <= workerCount; w++ {
		wg.Add(1)
		go s.worker(ctx, w, &wg, jobs, results)
	}

	for i, source := range sources {
		jobs <- Job{Index: i, Source: source}
	}
	close(jobs)

	wg.Wait()
	close(results)
	s.logger.Info("All shard workers finished")

	ordered := make([]manifest.InputResult, len(sources))
	for r := range results {
		ordered[r.index] = r.result
	}
	return ordered
}

func (s *stages) worker(ctx context.Context, id int, wg *sync.WaitGroup, jobs <-chan Job, results chan<- indexedResult) {
	defer wg.Done()
	for job := range jobs {
		s.logger.Debug("Worker started job", "worker_id", id, "source", job.Source)
		result := s.process(ctx, job.Source)
		if result.Error != nil {
			s.logger.Error("Failed to build shard", "worker_id", id, "source", job.Source, "error_type", result.ErrorType, "error", result.Error)
		} else {
			s.logger.Debug("Worker finished job", "worker_id", id, "source", job.Source, "group", result.Group, "keys", result.Shard.Size())
		}
		results <- indexedResult{index: job.Index, result: result}
	}
}

// process turns one input into a shard. Shard files are loaded as-is; URLs
// and document files are extracted, tokenized and assigned a group by the
// grouper.
func (s *stages) process(ctx context.Context, source string) manifest.InputResult {
	result := manifest.InputResult{Source: source}

	if err := ctx.Err(); err != nil {
		result.Error = err
		result.ErrorType = "cancelled"
		return result
	}

	if storage.IsShardFile(source) {
		shard, err := s.storage.LoadShard(source)
		if err != nil {
			result.Error = err
			result.ErrorType = "load_error"
			return result
		}
		result.Shard = shard
		result.Group = s.shardGroup
		return result
	}

	remote := common.IsURL(source)
	if remote && s.cache != nil {
		if group, shard, ok := s.cache.Get(source); ok {
			s.logger.Debug("Cache hit", "source", source, "group", group)
			result.Group = group
			result.Shard = shard
			return result
		}
	}

	doc, errType, err := s.document(ctx, source)
	if err != nil {
		result.Error = err
		result.ErrorType = errType
		return result
	}

	result.Shard = mapreduce.Map(doc.Text, s.analytics)
	result.Group = s.grouper.Group(doc.Source, doc.Text)

	if remote && s.cache != nil {
		if err := s.cache.Set(source, result.Group, result.Shard); err != nil {
			s.logger.Warn("Failed to cache shard", "source", source, "error", err)
		}
	}
	return result
}

// document loads the text of a URL or a local file.
func (s *stages) document(ctx context.Context, source string) (*models.Document, string, error) {
	if common.IsURL(source) {
		cleaned, ok := common.ValidateURL(source)
		if !ok {
			return nil, "invalid_url", &invalidURLError{source: source}
		}
		body, err := s.fetcher.GetHTMLBytes(ctx, cleaned)
		if err != nil {
			return nil, "fetch_error", err
		}
		doc, err := s.parser.ExtractText(cleaned, string(body))
		if err != nil {
			return nil, "parse_error", err
		}
		return doc, "", nil
	}

	data, err := s.storage.ReadFile(source)
	if err != nil {
		return nil, "read_error", err
	}

	switch strings.ToLower(filepath.Ext(source)) {
	case ".html", ".htm":
		doc, err := s.parser.ExtractText(filepath.ToSlash(source), string(data))
		if err != nil {
			return nil, "parse_error", err
		}
		return doc, "", nil
	default:
		return &models.Document{Source: source, Text: string(data)}, "", nil
	}
}

// groupShards collects successful shards per group, in input order.
func groupShards(results []manifest.InputResult) map[string][]*freqmap.FreqMap {
	groups := make(map[string][]*freqmap.FreqMap)
	for _, r := range results {
		if r.Error != nil || r.Shard == nil {
			continue
		}
		groups[r.Group] = append(groups[r.Group], r.Shard)
	}
	return groups
}

type invalidURLError struct {
	source string
}

func (e *invalidURLError) Error() string {
	return "invalid URL: " + e.source
}
