package mapreduce

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"sync"

	"github.com/dtnitsch/freqmerge/pkg/analytics"
	"github.com/dtnitsch/freqmerge/pkg/freqmap"
)

// Map generates a word frequency shard for a single document's content.
func Map(content string, a *analytics.Analytics) *freqmap.FreqMap {
	return a.WordFrequency(content)
}

// Reduce folds shards left to right into a fresh aggregate. The shards are not
// modified. A strict-mode capacity error aborts the fold.
func Reduce(shards []*freqmap.FreqMap, cfg freqmap.MergeConfig) (*freqmap.FreqMap, error) {
	agg, err := freqmap.NewAggregator(cfg)
	if err != nil {
		return nil, err
	}
	return agg.Fold(freqmap.New(0), shards...)
}

// TreeReduce merges shards pairwise, level by level, using up to workers
// goroutines. Neighbours are paired by index ((0,1), (2,3), ...), so the
// result only depends on the order of shards. The shards are not modified.
//
// Cancelling ctx stops the reduction between levels.
func TreeReduce(ctx context.Context, shards []*freqmap.FreqMap, cfg freqmap.MergeConfig, workers int) (*freqmap.FreqMap, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}
	if len(shards) == 0 {
		return freqmap.New(0), nil
	}

	// Clone once so every merge below mutates only maps this call owns.
	level := make([]*freqmap.FreqMap, len(shards))
	spans := make([]span, len(shards))
	for i, s := range shards {
		level[i] = s.Clone()
		spans[i] = span{first: i, last: i}
	}
	if len(level) == 1 {
		return freqmap.Merge(freqmap.New(0), level[0], cfg)
	}

	for len(level) > 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next := make([]*freqmap.FreqMap, (len(level)+1)/2)
		nextSpans := make([]span, len(next))
		errs := make([]error, len(next))
		pairs := make(chan int, len(next))

		var wg sync.WaitGroup
		for w := 0; w < min(workers, len(next)); w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for p := range pairs {
					left := level[2*p]
					if 2*p+1 == len(level) {
						next[p] = left
						continue
					}
					next[p], errs[p] = freqmap.Merge(left, level[2*p+1], cfg)
				}
			}()
		}
		for p := range next {
			pairs <- p
		}
		close(pairs)
		wg.Wait()

		for p, err := range errs {
			if err != nil {
				return nil, fmt.Errorf("failed to merge shards %s with %s: %w", spans[2*p], spans[2*p+1], err)
			}
		}
		for p := range nextSpans {
			nextSpans[p] = spans[2*p]
			if 2*p+1 < len(spans) {
				nextSpans[p].last = spans[2*p+1].last
			}
		}
		level, spans = next, nextSpans
	}

	return level[0], nil
}

// span is the range of input shard positions folded into one tree node.
type span struct {
	first, last int
}

func (s span) String() string {
	if s.first == s.last {
		return strconv.Itoa(s.first)
	}
	return fmt.Sprintf("%d-%d", s.first, s.last)
}

// GroupResult is the outcome of reducing one grouping key.
type GroupResult struct {
	Group      string
	ShardCount int
	Aggregate  *freqmap.FreqMap
	Error      error
}

// ReduceGroups reduces each group's shards independently. A failing group is
// reported in its GroupResult and does not stop the others. Results are
// sorted by group key.
func ReduceGroups(ctx context.Context, logger *slog.Logger, groups map[string][]*freqmap.FreqMap, cfg freqmap.MergeConfig, workers int) []GroupResult {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	results := make([]GroupResult, 0, len(keys))
	for _, group := range keys {
		shards := groups[group]
		result := GroupResult{Group: group, ShardCount: len(shards)}

		if err := ValidateGroupKey(group); err != nil {
			result.Error = err
			results = append(results, result)
			logger.Error("Invalid group key", "group", group, "error", err)
			continue
		}

		logger.Debug("Reducing group", "group", group, "shards", len(shards), "max_size", cfg.MaxSize, "truncate", cfg.Truncate)
		agg, err := TreeReduce(ctx, shards, cfg, workers)
		if err != nil {
			result.Error = err
			logger.Error("Group reduction failed", "group", group, "shards", len(shards), "error", err)
		} else {
			result.Aggregate = agg
			logger.Info("Group reduced", "group", group, "shards", len(shards), "keys", agg.Size(), "total", agg.Total())
		}
		results = append(results, result)
	}

	return results
}

var groupKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9|_-]+$`)

// ValidateGroupKey rejects grouping keys outside [a-zA-Z0-9|_-]+.
func ValidateGroupKey(group string) error {
	if !groupKeyPattern.MatchString(group) {
		return fmt.Errorf("group is invalid: %q", group)
	}
	return nil
}
