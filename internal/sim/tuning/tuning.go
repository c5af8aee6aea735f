package tuning

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"agentgrid.ai/internal/sim/agents"
	"agentgrid.ai/internal/sim/model"
	"agentgrid.ai/schemas"
)

// Experiment is the sweep configuration read from experiments.yaml.
type Experiment struct {
	Seed           int64      `yaml:"seed" json:"seed"`
	OutputDir      string     `yaml:"output_dir" json:"output_dir"`
	IndexDB        string     `yaml:"index_db" json:"index_db"`
	Traces         bool       `yaml:"traces" json:"traces"`
	StopWhenFrozen bool       `yaml:"stop_when_frozen" json:"stop_when_frozen"`
	AgentTypes     []string   `yaml:"agent_types" json:"agent_types"`
	Scenarios      []Scenario `yaml:"scenarios" json:"scenarios"`
}

type Scenario struct {
	Name             string  `yaml:"name" json:"name"`
	Width            int     `yaml:"width" json:"width"`
	Height           int     `yaml:"height" json:"height"`
	Agents           int     `yaml:"agents" json:"agents"`
	Resources        int     `yaml:"resources" json:"resources"`
	Goals            int     `yaml:"goals" json:"goals"`
	Hazards          int     `yaml:"hazards" json:"hazards"`
	MaxSteps         int     `yaml:"max_steps" json:"max_steps"`
	Trials           int     `yaml:"trials" json:"trials"`
	PerceptionRadius int     `yaml:"perception_radius" json:"perception_radius"`
	WallDensity      float64 `yaml:"wall_density" json:"wall_density"`
	Layout           *Layout `yaml:"layout,omitempty" json:"layout,omitempty"`
}

// Layout pins terrain and starts. Any non-empty list replaces the generated one.
type Layout struct {
	Walls     [][2]int `yaml:"walls,omitempty" json:"walls,omitempty"`
	Resources [][2]int `yaml:"resources,omitempty" json:"resources,omitempty"`
	Goals     [][2]int `yaml:"goals,omitempty" json:"goals,omitempty"`
	Hazards   [][2]int `yaml:"hazards,omitempty" json:"hazards,omitempty"`
	Starts    [][2]int `yaml:"starts,omitempty" json:"starts,omitempty"`
}

func Positions(xy [][2]int) []model.Position {
	if len(xy) == 0 {
		return nil
	}
	out := make([]model.Position, len(xy))
	for i, p := range xy {
		out[i] = model.Position{X: p[0], Y: p[1]}
	}
	return out
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Experiment, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (Experiment, error) {
	cfg := Defaults()
	if err := validateDocument(raw); err != nil {
		return cfg, fmt.Errorf("experiments.yaml: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("experiments.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("experiments.yaml: %w", err)
	}
	return cfg, nil
}

// validateDocument checks the raw YAML against the embedded JSON schema.
// The document goes through JSON first so numbers have the types the
// validator expects.
func validateDocument(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	s, err := schemas.Compile(schemas.Experiments)
	if err != nil {
		return err
	}
	return s.Validate(v)
}

func Defaults() Experiment {
	return Experiment{
		Seed:           42,
		OutputDir:      "./data",
		IndexDB:        "results.db",
		Traces:         true,
		StopWhenFrozen: true,
		AgentTypes: []string{
			string(agents.KindSimpleReflex),
			string(agents.KindModelBasedReflex),
			string(agents.KindGoalBased),
		},
		Scenarios: []Scenario{
			{Name: "simple_collection", Width: 8, Height: 8, Agents: 2, Resources: 4, Goals: 2, Hazards: 0, MaxSteps: 200, Trials: 5},
			{Name: "maze_navigation", Width: 10, Height: 10, Agents: 2, Resources: 4, Goals: 2, Hazards: 3, MaxSteps: 300, Trials: 5, WallDensity: 0.15},
			{Name: "competitive_collection", Width: 12, Height: 12, Agents: 3, Resources: 3, Goals: 2, Hazards: 2, MaxSteps: 400, Trials: 5},
			Classic(),
		},
	}
}

func (c *Experiment) Normalize() {
	if c == nil {
		return
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		c.OutputDir = "./data"
	}
	for i := range c.AgentTypes {
		c.AgentTypes[i] = strings.TrimSpace(c.AgentTypes[i])
	}
	for i := range c.Scenarios {
		s := &c.Scenarios[i]
		if s.PerceptionRadius <= 0 {
			s.PerceptionRadius = 2
		}
		if s.Trials <= 0 {
			s.Trials = 5
		}
		if s.Agents <= 0 {
			s.Agents = 1
		}
		// A fixed layout with explicit starts decides the agent count.
		if s.Layout != nil && len(s.Layout.Starts) > 0 {
			s.Agents = len(s.Layout.Starts)
		}
	}
}

func (c Experiment) Validate() error {
	if len(c.AgentTypes) == 0 {
		return fmt.Errorf("agent_types must not be empty")
	}
	for _, k := range c.AgentTypes {
		if _, err := agents.ParseKind(k); err != nil {
			return err
		}
	}
	if len(c.Scenarios) == 0 {
		return fmt.Errorf("scenarios must not be empty")
	}
	seen := map[string]bool{}
	for _, s := range c.Scenarios {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("scenario name must not be empty")
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate scenario name: %s", s.Name)
		}
		seen[s.Name] = true
		if s.Width < 3 || s.Height < 3 {
			return fmt.Errorf("scenario %s grid must be at least 3x3", s.Name)
		}
		if s.MaxSteps <= 0 {
			return fmt.Errorf("scenario %s max_steps must be > 0", s.Name)
		}
		if s.Resources < 0 || s.Goals < 0 || s.Hazards < 0 {
			return fmt.Errorf("scenario %s counts must be >= 0", s.Name)
		}
		if s.WallDensity < 0 || s.WallDensity > 0.5 {
			return fmt.Errorf("scenario %s wall_density must be in [0, 0.5]", s.Name)
		}
		interior := (s.Width - 2) * (s.Height - 2)
		if need := s.Agents + s.Resources + s.Goals + s.Hazards; need > interior {
			return fmt.Errorf("scenario %s needs %d cells but the interior has %d", s.Name, need, interior)
		}
	}
	return nil
}

// Classic is the fixed single-agent layout: border walls, resources at (3,3)
// and (5,5), goals at (2,2) and (6,6), one agent at (1,1).
func Classic() Scenario {
	return Scenario{
		Name: "classic", Width: 8, Height: 8, Agents: 1, Resources: 2, Goals: 2,
		MaxSteps: 200, Trials: 5, PerceptionRadius: 2,
		Layout: &Layout{
			Resources: [][2]int{{3, 3}, {5, 5}},
			Goals:     [][2]int{{2, 2}, {6, 6}},
			Starts:    [][2]int{{1, 1}},
		},
	}
}
