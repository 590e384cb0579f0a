package common

import (
	"log/slog"
	"strings"

	"github.com/dtnitsch/freqmerge/models"
	"github.com/dtnitsch/freqmerge/pkg/detector"
	"github.com/urfave/cli/v2"
)

// NewLogger builds the JSON logger on stderr shared by every command.
func NewLogger(c *cli.Context) *slog.Logger {
	logLevel := slog.LevelInfo
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	} else if c.Bool("verbose") {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: logLevel}))
}

// ConfigFromFlags layers the --config file (if any) and explicit flags on
// top of models.DefaultConfig. Flags only win when they were actually set.
func ConfigFromFlags(c *cli.Context) (*models.Config, error) {
	config := models.DefaultConfig()
	if path := c.String("config"); path != "" {
		loaded, err := models.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	if c.IsSet("max-size") {
		config.Merge.MaxSize = c.Int("max-size")
	}
	if c.IsSet("strict") {
		config.Merge.Truncate = !c.Bool("strict")
	}
	if c.IsSet("workers") {
		config.WorkerCount = c.Int("workers")
	}
	if c.IsSet("top") {
		config.Top = c.Int("top")
	}
	if c.IsSet("group-by") {
		config.GroupBy = strings.ToLower(c.String("group-by"))
	}
	if c.Bool("no-detect") {
		config.GroupBy = detector.ByNone
	}
	if c.IsSet("languages") {
		config.Languages = splitList(c.String("languages"))
	}
	if c.IsSet("min-word-length") {
		config.MinWordLength = c.Int("min-word-length")
	}
	if c.IsSet("db") {
		config.DBPath = c.String("db")
	}
	if c.IsSet("timeout") {
		config.FetchTimeout = c.Duration("timeout")
	}
	if c.IsSet("cache-dir") {
		config.CacheDir = c.String("cache-dir")
	}
	if c.IsSet("max-age") {
		config.CacheMaxAge = c.Duration("max-age")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
