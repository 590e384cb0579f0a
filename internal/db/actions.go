package db

import (
	"fmt"
	"strings"

	"github.com/dtnitsch/freqmerge/internal/common"
	dbpkg "github.com/dtnitsch/freqmerge/pkg/db"
	"github.com/dtnitsch/freqmerge/pkg/mapreduce"
	"github.com/dtnitsch/freqmerge/pkg/storage"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

func RunsAction(c *cli.Context) error {
	database, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer database.Close()

	runs, err := database.ListRuns(c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	w := c.App.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found")
		return nil
	}

	fmt.Fprintf(w, "%-6s %-20s %-8s %-9s %-8s\n", "ID", "Created", "Inputs", "Max Size", "Mode")
	fmt.Fprintln(w, strings.Repeat("-", 56))
	for _, r := range runs {
		fmt.Fprintf(w, "%-6d %-20s %-8d %-9d %-8s\n",
			r.RunID,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.InputCount,
			r.MaxSize,
			modeName(r.Truncate),
		)
	}

	fmt.Fprintf(w, "\nTotal: %d runs\n", len(runs))
	fmt.Fprintf(w, "\nTip: Use 'freqmerge db show <id>' to see details\n")
	return nil
}

// ShowAction prints a run and the groups it produced
func ShowAction(c *cli.Context) error {
	database, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer database.Close()

	runID, err := GetRunIDOrLatest(c, database)
	if err != nil {
		return err
	}

	run, err := database.GetRun(runID)
	if err != nil {
		return err
	}
	aggregates, err := database.GetRunAggregates(runID)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Run %d\n", run.RunID)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Created:     %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Inputs:      %d\n", run.InputCount)
	fmt.Fprintf(w, "Max Size:    %d (%s)\n", run.MaxSize, modeName(run.Truncate))

	fmt.Fprintf(w, "\nGroups (%d):\n", len(aggregates))
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, a := range aggregates {
		fmt.Fprintf(w, "%4d. [%s] %s (%d shards)\n", a.AggregateID, a.Status, a.GroupKey, a.ShardCount)
		if a.Status == dbpkg.StatusFailed {
			fmt.Fprintf(w, "      Error: %s\n", a.ErrorMessage)
			continue
		}
		fmt.Fprintf(w, "      Keys: %d | Total: %d\n", a.KeyCount, a.Total)
	}

	fmt.Fprintf(w, "\nTip: Use 'freqmerge db export <aggregate-id>' to dump counts\n")
	return nil
}

// ExportAction writes a stored aggregate to --out, or as YAML to stdout
func ExportAction(c *cli.Context) error {
	logger := common.NewLogger(c)

	if c.NArg() != 1 {
		return cli.Exit("exactly one aggregate ID is required", 2)
	}
	aggregateID, err := parseID("aggregate", c.Args().First())
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	database, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer database.Close()

	fm, err := database.LoadAggregate(aggregateID)
	if err != nil {
		return err
	}

	if top := c.Int("top"); top > 0 {
		mapreduce.PrintTopKeywords(c.App.Writer, fm, top)
		return nil
	}

	if out := c.String("out"); out != "" {
		if err := (&storage.Storage{}).SaveShard(out, fm); err != nil {
			return err
		}
		logger.Info("Exported aggregate", "aggregate_id", aggregateID, "path", out, "keys", fm.Size())
		return nil
	}

	data, err := yaml.Marshal(fm)
	if err != nil {
		return fmt.Errorf("failed to marshal aggregate: %w", err)
	}
	fmt.Fprint(c.App.Writer, string(data))
	return nil
}

func modeName(truncate bool) string {
	if truncate {
		return "truncate"
	}
	return "strict"
}
