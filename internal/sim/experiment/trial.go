// Package experiment runs scenario sweeps: every scenario is played by every
// configured agent type for a number of independent trials.
package experiment

import (
	"context"
	"fmt"
	"math/rand"

	"agentgrid.ai/internal/sim/agents"
	"agentgrid.ai/internal/sim/model"
	"agentgrid.ai/internal/sim/scenario"
	"agentgrid.ai/internal/sim/tuning"
	"agentgrid.ai/internal/sim/world"
	"agentgrid.ai/internal/sim/world/logic/mathx"
)

// TrialSpec is everything needed to reproduce one trial. It is also the
// header line of a trace file.
type TrialSpec struct {
	Type           string          `json:"type"`
	RunID          string          `json:"run_id"`
	Scenario       tuning.Scenario `json:"scenario"`
	AgentType      agents.Kind     `json:"agent_type"`
	Trial          int             `json:"trial"`
	Seed           int64           `json:"seed"`
	StopWhenFrozen bool            `json:"stop_when_frozen"`
}

const specType = "TRIAL"

// TrialSeed derives the seed shared by every agent type for one trial of a
// scenario, so all types face the same layout.
func TrialSeed(base int64, scenarioIndex, trial int) int64 {
	return mathx.Seed(mathx.Hash2(base, scenarioIndex, trial))
}

func agentSeed(trialSeed int64, i int) int64 {
	return mathx.Seed(mathx.Hash3(trialSeed, i, 2, 0))
}

type TrialResult struct {
	Spec          TrialSpec     `json:"spec"`
	Metrics       world.Metrics `json:"metrics"`
	DeliveryTicks []uint64      `json:"delivery_ticks"`
	Digest        string        `json:"digest"`
	Rules         []RuleUsage   `json:"rules,omitempty"`
}

type RuleUsage struct {
	AgentID int    `json:"agent_id"`
	Rule    string `json:"rule"`
	Count   int    `json:"count"`
}

// Trial is a fully set-up world ready to step.
type Trial struct {
	Spec   TrialSpec
	World  *world.World
	Agents []agents.Policy
	Layout scenario.Layout
}

// Setup builds the world, installs the layout and registers freshly reset
// agents at the layout starts.
func Setup(spec TrialSpec) (*Trial, error) {
	sc := spec.Scenario
	layout, err := scenario.Build(sc, spec.Seed)
	if err != nil {
		return nil, err
	}
	w, err := world.New(world.Config{Width: sc.Width, Height: sc.Height, PerceptionRadius: sc.PerceptionRadius})
	if err != nil {
		return nil, err
	}
	scenario.Apply(w, layout)

	t := &Trial{Spec: spec, World: w, Layout: layout}
	for i, start := range layout.Starts {
		name := fmt.Sprintf("%s_trial_%d_%d", spec.AgentType, spec.Trial, i+1)
		a, err := agents.New(spec.AgentType, name, rand.New(rand.NewSource(agentSeed(spec.Seed, i))))
		if err != nil {
			return nil, err
		}
		a.Reset()
		if !w.AddAgent(a, start) {
			return nil, fmt.Errorf("trial %s/%s/%d: cannot place agent at %v", sc.Name, spec.AgentType, spec.Trial, start)
		}
		t.Agents = append(t.Agents, a)
	}
	return t, nil
}

// Done reports whether the trial has nothing left to run.
func (t *Trial) Done() bool {
	if t.World.CurrentTick() >= uint64(t.Spec.Scenario.MaxSteps) {
		return true
	}
	return t.Spec.StopWhenFrozen && t.World.AllFrozen()
}

// RunTrial plays one trial to completion. logger may be nil.
func RunTrial(ctx context.Context, spec TrialSpec, logger world.TickLogger) (TrialResult, error) {
	t, err := Setup(spec)
	if err != nil {
		return TrialResult{}, err
	}
	if logger != nil {
		t.World.SetTickLogger(logger)
	}
	return t.Run(ctx)
}

// Run steps the world until Done. Cancellation is checked between ticks.
func (t *Trial) Run(ctx context.Context) (TrialResult, error) {
	var digest string
	for !t.Done() {
		if err := ctx.Err(); err != nil {
			return TrialResult{}, err
		}
		_, digest = t.World.Step()
	}
	if digest == "" {
		digest = t.World.StateDigest()
	}
	return t.result(digest), nil
}

func (t *Trial) result(digest string) TrialResult {
	r := TrialResult{
		Spec:          t.Spec,
		Metrics:       t.World.Metrics(),
		DeliveryTicks: t.World.DeliveryTicks(),
		Digest:        digest,
	}
	for _, a := range t.Agents {
		st := a.State()
		for _, rc := range st.RuleActivations() {
			r.Rules = append(r.Rules, RuleUsage{AgentID: st.ID, Rule: rc.Rule, Count: rc.Count})
		}
	}
	return r
}

func toXY(ps []model.Position) [][2]int {
	out := make([][2]int, len(ps))
	for i, p := range ps {
		out[i] = [2]int{p.X, p.Y}
	}
	return out
}
