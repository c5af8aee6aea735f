// Package agents implements the decision policies that drive grid agents:
// a pure reflex policy, a model-based reflex policy and a goal-based policy
// that plans with bounded A*.
package agents

import (
	"fmt"
	"math/rand"

	"agentgrid.ai/internal/sim/model"
)

type Kind string

const (
	KindSimpleReflex     Kind = "simple_reflex"
	KindModelBasedReflex Kind = "model_based_reflex"
	KindGoalBased        Kind = "goal_based"
)

var Kinds = []Kind{KindSimpleReflex, KindModelBasedReflex, KindGoalBased}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown agent type %q", s)
}

// Policy is the decision contract every agent kind satisfies.
type Policy interface {
	Name() string
	State() *model.AgentState
	DecideAction(p model.Perception) (model.Action, string)
	Reset()
}

// New builds a policy of the given kind. rng drives exploration; nil uses a fixed seed.
func New(kind Kind, name string, rng *rand.Rand) (Policy, error) {
	switch kind {
	case KindSimpleReflex:
		return NewSimpleReflex(name, rng), nil
	case KindModelBasedReflex:
		return NewModelBasedReflex(name, rng), nil
	case KindGoalBased:
		return NewGoalBased(name, rng), nil
	}
	return nil, fmt.Errorf("unknown agent type %q", kind)
}

func defaultRand(rng *rand.Rand) *rand.Rand {
	if rng != nil {
		return rng
	}
	return rand.New(rand.NewSource(1))
}

// DirectionToward resolves the vertical difference first, then the horizontal one.
// ok is false when a == b.
func DirectionToward(a, b model.Position) (model.Direction, bool) {
	switch {
	case a.Y > b.Y:
		return model.North, true
	case a.Y < b.Y:
		return model.South, true
	case a.X < b.X:
		return model.East, true
	case a.X > b.X:
		return model.West, true
	}
	return 0, false
}

// RandomValidMove picks uniformly among moves whose destination is neither
// Wall nor Hazard in the perceived window, or Wait when none qualify.
func RandomValidMove(p model.Perception, rng *rand.Rand) model.Action {
	valid := make([]model.Action, 0, 4)
	for _, d := range model.Directions {
		t, _ := p.CellAt(p.Position.Add(d))
		if t == model.Wall || t == model.Hazard {
			continue
		}
		valid = append(valid, model.MoveAction(d))
	}
	if len(valid) == 0 {
		return model.Wait
	}
	return valid[rng.Intn(len(valid))]
}

// closest returns the first position of targets with the smallest Manhattan distance to from.
func closest(from model.Position, targets []model.Position) (model.Position, bool) {
	if len(targets) == 0 {
		return model.Position{}, false
	}
	best := targets[0]
	bestD := from.Manhattan(best)
	for _, t := range targets[1:] {
		if d := from.Manhattan(t); d < bestD {
			best, bestD = t, d
		}
	}
	return best, true
}
