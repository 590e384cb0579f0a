package aggregate

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dtnitsch/freqmerge/internal/common"
	"github.com/dtnitsch/freqmerge/models"
	"github.com/dtnitsch/freqmerge/pkg/analytics"
	"github.com/dtnitsch/freqmerge/pkg/caching"
	"github.com/dtnitsch/freqmerge/pkg/db"
	"github.com/dtnitsch/freqmerge/pkg/detector"
	"github.com/dtnitsch/freqmerge/pkg/fetcher"
	"github.com/dtnitsch/freqmerge/pkg/freqmap"
	"github.com/dtnitsch/freqmerge/pkg/manifest"
	"github.com/dtnitsch/freqmerge/pkg/mapreduce"
	"github.com/dtnitsch/freqmerge/pkg/parser"
	"github.com/dtnitsch/freqmerge/pkg/storage"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// AggregateAction turns every input into a shard, reduces the shards per
// group and prints the run manifest.
func AggregateAction(c *cli.Context) error {
	logger := common.NewLogger(c)
	startTime := time.Now()

	config, err := common.ConfigFromFlags(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), 2)
	}

	sources := c.Args().Slice()
	if len(sources) == 0 {
		return cli.Exit("at least one input (URL, file or shard) is required", 2)
	}

	s, err := newStages(logger, config, c)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	inputs := s.run(c.Context, sources, config.WorkerCount)
	groups := groupShards(inputs)
	logger.Info("Grouped shards", "groups", len(groups))

	results := mapreduce.ReduceGroups(c.Context, logger, groups, config.Merge, config.WorkerCount)
	outcomes := make([]manifest.GroupOutcome, len(results))
	for i, r := range results {
		outcomes[i] = manifest.GroupOutcome{Result: r}
	}

	var runID int64
	if !c.Bool("no-db") {
		runID, err = persist(logger, config, len(sources), outcomes)
		if err != nil {
			logger.Error("failed to store run", "error", err)
			return cli.Exit(err.Error(), 2)
		}
	}

	summary := manifest.Build(runID, config.Merge, inputs, outcomes, config.Top)
	if path := c.String("output"); path != "" {
		if err := manifest.Save(summary, path, s.storage); err != nil {
			logger.Warn("Failed to write manifest", "path", path, "error", err)
		}
	}

	if err := writeManifest(c, summary); err != nil {
		return cli.Exit(err.Error(), 2)
	}
	logger.Info("Run complete", "run_id", runID, "duration", time.Since(startTime).String())

	if summary.Successful == 0 {
		return cli.Exit("no input could be turned into a shard", 2)
	}
	for _, g := range summary.Groups {
		if g.Status != "success" {
			return cli.Exit("one or more groups failed to reduce", 1)
		}
	}
	return nil
}

// MergeAction folds shard files left to right into one shard.
func MergeAction(c *cli.Context) error {
	logger := common.NewLogger(c)

	config, err := common.ConfigFromFlags(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), 2)
	}
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return cli.Exit("at least one shard file is required", 2)
	}

	st := &storage.Storage{}
	shards := make([]*freqmap.FreqMap, 0, len(paths))
	for _, path := range paths {
		shard, err := st.LoadShard(path)
		if err != nil {
			return cli.Exit(err.Error(), 2)
		}
		logger.Debug("Loaded shard", "path", path, "keys", shard.Size())
		shards = append(shards, shard)
	}

	merged, err := mapreduce.Reduce(shards, config.Merge)
	if err != nil {
		logger.Error("merge failed", "shards", len(shards), "error", err)
		return cli.Exit(err.Error(), 1)
	}
	logger.Info("Merged shards", "shards", len(shards), "keys", merged.Size(), "total", merged.Total())

	if out := c.String("out"); out != "" {
		if err := st.SaveShard(out, merged); err != nil {
			return cli.Exit(err.Error(), 2)
		}
	}

	fmt.Fprintf(c.App.Writer, "keys: %d\ntotal: %d\n", merged.Size(), merged.Total())
	mapreduce.PrintTopKeywords(c.App.Writer, merged, config.Top)
	return nil
}

// ShardAction turns a single document into a shard file.
func ShardAction(c *cli.Context) error {
	logger := common.NewLogger(c)

	config, err := common.ConfigFromFlags(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), 2)
	}
	if c.NArg() != 1 {
		return cli.Exit("exactly one input is required", 2)
	}
	out := c.String("out")
	if out == "" {
		return cli.Exit("--out is required", 2)
	}

	s, err := newStages(logger, config, c)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	result := s.process(c.Context, c.Args().First())
	if result.Error != nil {
		return cli.Exit(fmt.Sprintf("%s: %v", result.ErrorType, result.Error), 1)
	}
	if err := s.storage.SaveShard(out, result.Shard); err != nil {
		return cli.Exit(err.Error(), 2)
	}

	fmt.Fprintf(c.App.Writer, "%s\t%s\t%d keys\n", out, result.Group, result.Shard.Size())
	return nil
}

func newStages(logger *slog.Logger, config *models.Config, c *cli.Context) (*stages, error) {
	s := &stages{
		logger:     logger,
		fetcher:    fetcher.NewFetcher(config.FetchTimeout),
		parser:     &parser.Parser{},
		analytics:  &analytics.Analytics{MinWordLength: config.MinWordLength},
		storage:    &storage.Storage{},
		shardGroup: c.String("group"),
	}
	if s.shardGroup == "" {
		s.shardGroup = DefaultGroup
	}
	if err := mapreduce.ValidateGroupKey(s.shardGroup); err != nil {
		return nil, err
	}

	if config.GroupBy != detector.ByNone {
		g, err := detector.NewGrouper(config.GroupBy, config.Languages)
		if err != nil {
			return nil, err
		}
		s.grouper = g
	}

	if config.CacheDir != "" {
		variant := fmt.Sprintf("min=%d;group=%s;langs=%s", config.MinWordLength, s.grouper.Mode(), strings.Join(config.Languages, ","))
		cache, err := caching.NewCache(config.CacheDir, config.CacheMaxAge, variant)
		if err != nil {
			return nil, err
		}
		s.cache = cache
	}
	return s, nil
}

// persist stores the run and every group outcome. AggregateIDs are written
// back into outcomes.
func persist(logger *slog.Logger, config *models.Config, inputCount int, outcomes []manifest.GroupOutcome) (int64, error) {
	database, err := db.Open(config.DBPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	runID, err := database.CreateRun(config.Merge, inputCount)
	if err != nil {
		return 0, err
	}

	for i := range outcomes {
		r := outcomes[i].Result
		var id int64
		if r.Error != nil {
			id, err = database.SaveFailedGroup(runID, r.Group, r.ShardCount, r.Error)
		} else {
			id, err = database.SaveAggregate(runID, r.Group, r.ShardCount, r.Aggregate)
		}
		if err != nil {
			logger.Warn("Failed to store group", "run_id", runID, "group", r.Group, "error", err)
			continue
		}
		outcomes[i].AggregateID = id
	}

	logger.Info("Stored run", "run_id", runID, "db", database.Path())
	return runID, nil
}

func writeManifest(c *cli.Context, summary *manifest.SummaryManifest) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(c.String("format")) {
	case "json":
		data, err = json.MarshalIndent(summary, "", "  ")
	case "", "yaml":
		data, err = yaml.Marshal(summary)
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", c.String("format"))
	}
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	fmt.Fprintln(c.App.Writer, strings.TrimRight(string(data), "\n"))
	return nil
}
