// Package commands wires the CLI actions into a urfave/cli application.
package commands

import (
	"time"

	"github.com/dtnitsch/freqmerge/internal/aggregate"
	"github.com/dtnitsch/freqmerge/internal/db"
	"github.com/dtnitsch/freqmerge/pkg/freqmap"
	"github.com/urfave/cli/v2"
)

func logFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "only log errors"},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log per-input progress"},
	}
}

func mergeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file", EnvVars: []string{"FREQMERGE_CONFIG"}},
		&cli.IntFlag{Name: "max-size", Value: freqmap.DefaultMergeConfig().MaxSize, Usage: "maximum number of distinct keys in a merged map", EnvVars: []string{"FREQMERGE_MAX_SIZE"}},
		&cli.BoolFlag{Name: "strict", Usage: "reject merges that may exceed --max-size instead of truncating"},
		&cli.IntFlag{Name: "top", Value: 25, Usage: "number of top keywords to report"},
	}
}

func extractFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "group-by", Value: "language", Usage: "group documents by language, domain, country, category or none"},
		&cli.StringFlag{Name: "languages", Value: "en,de,fr,es", Usage: "comma-separated ISO 639-1 codes used for language grouping"},
		&cli.BoolFlag{Name: "no-detect", Usage: "same as --group-by none"},
		&cli.StringFlag{Name: "group", Value: aggregate.DefaultGroup, Usage: "group assigned to pre-built shard inputs"},
		&cli.IntFlag{Name: "min-word-length", Value: 2, Usage: "drop tokens shorter than this"},
		&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second, Usage: "HTTP timeout for URL inputs"},
		&cli.StringFlag{Name: "cache-dir", Usage: "reuse shards built from URLs in this directory", EnvVars: []string{"FREQMERGE_CACHE_DIR"}},
		&cli.DurationFlag{Name: "max-age", Value: 24 * time.Hour, Usage: "how long cached URL shards stay fresh"},
	}
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{Name: "db", Usage: "SQLite database path (default: next to the binary)", EnvVars: []string{"FREQMERGE_DB"}}
}

func flags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// App returns the freqmerge command line application.
func App() *cli.App {
	return &cli.App{
		Name:  "freqmerge",
		Usage: "Build word-frequency shards and merge them under a size bound",
		Commands: []*cli.Command{
			{
				Name:      "aggregate",
				Usage:     "Shard every input, reduce per group and store the run",
				ArgsUsage: "<url|file|shard>...",
				Flags: flags(logFlags(), mergeFlags(), extractFlags(), []cli.Flag{
					dbFlag(),
					&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Value: 4, Usage: "number of concurrent workers"},
					&cli.BoolFlag{Name: "no-db", Usage: "do not store the run"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "also write the manifest YAML to this file"},
					&cli.StringFlag{Name: "format", Value: "yaml", Usage: "manifest format on stdout: yaml or json"},
				}),
				Action: aggregate.AggregateAction,
			},
			{
				Name:      "merge",
				Usage:     "Merge shard files left to right",
				ArgsUsage: "<shard>...",
				Flags: flags(logFlags(), mergeFlags(), []cli.Flag{
					&cli.StringFlag{Name: "out", Usage: "write the merged map here (.shard, .yaml or .json)"},
				}),
				Action: aggregate.MergeAction,
			},
			{
				Name:      "shard",
				Usage:     "Turn one document into a shard file",
				ArgsUsage: "<url|file>",
				Flags: flags(logFlags(), extractFlags(), []cli.Flag{
					&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file", EnvVars: []string{"FREQMERGE_CONFIG"}},
					&cli.StringFlag{Name: "out", Usage: "shard file to write (.shard, .yaml or .json)"},
				}),
				Action: aggregate.ShardAction,
			},
			{
				Name:  "db",
				Usage: "Inspect stored runs",
				Subcommands: []*cli.Command{
					{
						Name:   "runs",
						Usage:  "List recent runs",
						Flags:  []cli.Flag{dbFlag(), &cli.IntFlag{Name: "limit", Value: 20}},
						Action: db.RunsAction,
					},
					{
						Name:      "show",
						Usage:     "Show the groups of a run (latest if omitted)",
						ArgsUsage: "[run-id]",
						Flags:     []cli.Flag{dbFlag()},
						Action:    db.ShowAction,
					},
					{
						Name:      "export",
						Usage:     "Export a stored aggregate",
						ArgsUsage: "<aggregate-id>",
						Flags: flags(logFlags(), []cli.Flag{
							dbFlag(),
							&cli.StringFlag{Name: "out", Usage: "write the aggregate to this shard file"},
							&cli.IntFlag{Name: "top", Usage: "print only the top N keywords"},
						}),
						Action: db.ExportAction,
					},
				},
			},
		},
	}
}
