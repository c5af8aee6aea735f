package tuning

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_RepoConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "..", "configs", "experiments.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Scenarios) != 4 || len(cfg.AgentTypes) != 3 {
		t.Fatalf("scenarios=%d agent_types=%d", len(cfg.Scenarios), len(cfg.AgentTypes))
	}
	maze := cfg.Scenarios[1]
	if maze.Name != "maze_navigation" || maze.Hazards != 3 || maze.MaxSteps != 300 || maze.PerceptionRadius != 2 {
		t.Fatalf("maze=%+v", maze)
	}
	classic := cfg.Scenarios[3]
	if classic.Layout == nil || classic.Agents != 1 {
		t.Fatalf("classic=%+v", classic)
	}
	if got := Positions(classic.Layout.Goals); len(got) != 2 || got[1].X != 6 || got[1].Y != 6 {
		t.Fatalf("goals=%v", got)
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if cfg.Seed != 42 || !cfg.StopWhenFrozen || cfg.Scenarios[0].Trials != 5 {
		t.Fatalf("defaults=%+v", cfg)
	}
}

func TestParse_PartialOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("seed: 7\nscenarios:\n  - name: tiny\n    width: 5\n    height: 5\n    max_steps: 10\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Seed != 7 || len(cfg.Scenarios) != 1 || len(cfg.AgentTypes) != 3 {
		t.Fatalf("cfg=%+v", cfg)
	}
	s := cfg.Scenarios[0]
	if s.Trials != 5 || s.Agents != 1 || s.PerceptionRadius != 2 {
		t.Fatalf("normalized=%+v", s)
	}
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"schema: unknown key":  "sed: 1\n",
		"schema: bad agent":    "agent_types: [utility]\n",
		"schema: small grid":   "scenarios:\n  - {name: a, width: 2, height: 5, max_steps: 1}\n",
		"schema: bad xy":       "scenarios:\n  - {name: a, width: 5, height: 5, max_steps: 1, layout: {goals: [[1]]}}\n",
		"validate: duplicate":  "scenarios:\n  - {name: a, width: 5, height: 5, max_steps: 1}\n  - {name: a, width: 5, height: 5, max_steps: 1}\n",
		"validate: overfilled": "scenarios:\n  - {name: a, width: 3, height: 3, max_steps: 1, resources: 2}\n",
	}
	for name, doc := range cases {
		_, err := Parse([]byte(doc))
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if !strings.HasPrefix(err.Error(), "experiments.yaml: ") {
			t.Fatalf("%s: error not prefixed: %v", name, err)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); !os.IsNotExist(err) {
		t.Fatalf("err=%v", err)
	}
}
