package main

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"agentgrid.ai/internal/persistence/indexdb"
)

const tinyConfig = `seed: 3
index_db: results.db
traces: false
agent_types: [goal_based]
scenarios:
  - name: tiny
    width: 6
    height: 6
    agents: 1
    resources: 1
    goals: 1
    max_steps: 20
    trials: 2
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "experiments.yaml")
	if err := os.WriteFile(path, []byte(tinyConfig), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestRun_FailureStillCommitsIndex(t *testing.T) {
	dataDir := t.TempDir()
	// A directory in place of results.csv makes the sweep fail at the very end.
	if err := os.MkdirAll(filepath.Join(dataDir, "results.csv"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	logger := log.New(io.Discard, "", 0)

	err := run(context.Background(), logger, options{configPath: writeConfig(t), dataDir: dataDir})
	if err == nil || !strings.Contains(err.Error(), "write results") {
		t.Fatalf("err=%v", err)
	}

	idx, err := indexdb.OpenSQLite(filepath.Join(dataDir, "results.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer func() { _ = idx.Close() }()
	ctx := context.Background()
	runs, err := idx.Runs(ctx)
	if err != nil || len(runs) != 1 {
		t.Fatalf("runs=%+v err=%v", runs, err)
	}
	trials, err := idx.Trials(ctx, runs[0].RunID)
	if err != nil || len(trials) != 2 {
		t.Fatalf("trials=%+v err=%v", trials, err)
	}
}

func TestRun_UnknownScenario(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	err := run(context.Background(), logger, options{configPath: writeConfig(t), dataDir: t.TempDir(), only: "nope", disableDB: true})
	if err == nil || !strings.Contains(err.Error(), `no scenario named "nope"`) {
		t.Fatalf("err=%v", err)
	}
}
