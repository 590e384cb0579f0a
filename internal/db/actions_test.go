package db

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	dbpkg "github.com/dtnitsch/freqmerge/pkg/db"
	"github.com/dtnitsch/freqmerge/pkg/freqmap"
	"github.com/dtnitsch/freqmerge/pkg/storage"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

type seeded struct {
	path     string
	firstRun int64
	lastRun  int64
	okID     int64
	failedID int64
	counts   *freqmap.FreqMap
}

// seedDB stores two runs; the latest has one reduced and one failed group.
func seedDB(t *testing.T) seeded {
	t.Helper()
	s := seeded{
		path:   filepath.Join(t.TempDir(), "runs.db"),
		counts: freqmap.FromMap(map[string]int64{"alpha": 5, "bravo": 2, "charlie": 9}),
	}

	database, err := dbpkg.Open(s.path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer database.Close()

	if s.firstRun, err = database.CreateRun(freqmap.MergeConfig{MaxSize: 10, Truncate: false}, 1); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	if s.lastRun, err = database.CreateRun(freqmap.DefaultMergeConfig(), 3); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	if s.okID, err = database.SaveAggregate(s.lastRun, "en", 2, s.counts); err != nil {
		t.Fatalf("SaveAggregate() error = %v", err)
	}
	if s.failedID, err = database.SaveFailedGroup(s.lastRun, "de", 1, errors.New("boom")); err != nil {
		t.Fatalf("SaveFailedGroup() error = %v", err)
	}
	return s
}

// runDB executes a db subcommand against dbPath and returns stdout.
func runDB(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()

	dbFlag := func() cli.Flag { return &cli.StringFlag{Name: "db"} }
	var out bytes.Buffer
	app := &cli.App{
		Name:           "test",
		Writer:         &out,
		ErrWriter:      io.Discard,
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			{Name: "runs", Flags: []cli.Flag{dbFlag(), &cli.IntFlag{Name: "limit", Value: 20}}, Action: RunsAction},
			{Name: "show", Flags: []cli.Flag{dbFlag()}, Action: ShowAction},
			{Name: "export", Flags: []cli.Flag{
				dbFlag(),
				&cli.BoolFlag{Name: "quiet"},
				&cli.StringFlag{Name: "out"},
				&cli.IntFlag{Name: "top"},
			}, Action: ExportAction},
		},
	}

	command := append([]string{"test", args[0], "--db", dbPath}, args[1:]...)
	err := app.Run(command)
	return out.String(), err
}

func TestRunsAction(t *testing.T) {
	s := seedDB(t)

	stdout, err := runDB(t, s.path, "runs")
	if err != nil {
		t.Fatalf("runs error = %v", err)
	}
	for _, want := range []string{"Total: 2 runs", "strict", "truncate"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("runs output missing %q:\n%s", want, stdout)
		}
	}

	stdout, err = runDB(t, s.path, "runs", "--limit", "1")
	if err != nil {
		t.Fatalf("runs --limit error = %v", err)
	}
	if !strings.Contains(stdout, "Total: 1 runs") {
		t.Errorf("runs --limit 1 output:\n%s", stdout)
	}
}

func TestRunsAction_Empty(t *testing.T) {
	stdout, err := runDB(t, filepath.Join(t.TempDir(), "empty.db"), "runs")
	if err != nil {
		t.Fatalf("runs error = %v", err)
	}
	if !strings.Contains(stdout, "No runs found") {
		t.Errorf("runs output = %q, want No runs found", stdout)
	}
}

func TestShowAction(t *testing.T) {
	s := seedDB(t)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "latest",
			want: []string{"Run " + strconv.FormatInt(s.lastRun, 10), "[success] en (2 shards)", "Keys: 3 | Total: 16", "[failed] de", "Error: boom"},
		},
		{
			name: "by id",
			args: []string{strconv.FormatInt(s.firstRun, 10)},
			want: []string{"Run " + strconv.FormatInt(s.firstRun, 10), "Max Size:    10 (strict)", "Groups (0)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, err := runDB(t, s.path, append([]string{"show"}, tt.args...)...)
			if err != nil {
				t.Fatalf("show error = %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(stdout, want) {
					t.Errorf("show output missing %q:\n%s", want, stdout)
				}
			}
		})
	}
}

func TestShowAction_Errors(t *testing.T) {
	if _, err := runDB(t, filepath.Join(t.TempDir(), "empty.db"), "show"); err == nil || !strings.Contains(err.Error(), "no runs found") {
		t.Errorf("show on empty database error = %v, want no runs found", err)
	}

	s := seedDB(t)
	if _, err := runDB(t, s.path, "show", "abc"); err == nil {
		t.Error("show abc succeeded, want error")
	}
	if _, err := runDB(t, s.path, "show", "999"); !errors.Is(err, dbpkg.ErrNotFound) {
		t.Errorf("show 999 error = %v, want ErrNotFound", err)
	}
}

func TestExportAction(t *testing.T) {
	s := seedDB(t)
	id := strconv.FormatInt(s.okID, 10)

	stdout, err := runDB(t, s.path, "export", id)
	if err != nil {
		t.Fatalf("export error = %v", err)
	}
	decoded := freqmap.New(0)
	if err := yaml.Unmarshal([]byte(stdout), decoded); err != nil {
		t.Fatalf("export output is not YAML: %v", err)
	}
	if !decoded.Equal(s.counts) {
		t.Errorf("exported = %v, want %v", decoded, s.counts)
	}

	stdout, err = runDB(t, s.path, "export", "--top", "1", id)
	if err != nil {
		t.Fatalf("export --top error = %v", err)
	}
	if strings.TrimSpace(stdout) != "1. charlie: 9" {
		t.Errorf("export --top 1 = %q, want 1. charlie: 9", stdout)
	}

	out := filepath.Join(t.TempDir(), "en.shard")
	if _, err := runDB(t, s.path, "export", "--out", out, "--quiet", id); err != nil {
		t.Fatalf("export --out error = %v", err)
	}
	saved, err := (&storage.Storage{}).LoadShard(out)
	if err != nil {
		t.Fatalf("LoadShard() error = %v", err)
	}
	if !saved.Equal(s.counts) {
		t.Errorf("saved shard = %v, want %v", saved, s.counts)
	}
}

func TestExportAction_Errors(t *testing.T) {
	s := seedDB(t)

	tests := []struct {
		name     string
		args     []string
		wantExit int
	}{
		{name: "no id", args: nil, wantExit: 2},
		{name: "bad id", args: []string{"x1"}, wantExit: 2},
		{name: "failed group", args: []string{strconv.FormatInt(s.failedID, 10)}},
		{name: "unknown id", args: []string{"999"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runDB(t, s.path, append([]string{"export"}, tt.args...)...)
			if err == nil {
				t.Fatal("export succeeded, want error")
			}
			var coder cli.ExitCoder
			if tt.wantExit != 0 && (!errors.As(err, &coder) || coder.ExitCode() != tt.wantExit) {
				t.Errorf("export error = %v, want exit code %d", err, tt.wantExit)
			}
		})
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		arg     string
		want    int64
		wantErr bool
	}{
		{arg: "7", want: 7},
		{arg: "0", wantErr: true},
		{arg: "-3", wantErr: true},
		{arg: "seven", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseID("run", tt.arg)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseID(%q) error = %v, wantErr %v", tt.arg, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseID(%q) = %d, want %d", tt.arg, got, tt.want)
		}
	}
}

func TestModeName(t *testing.T) {
	if modeName(true) != "truncate" || modeName(false) != "strict" {
		t.Errorf("modeName() = %q, %q", modeName(true), modeName(false))
	}
}
