package agents

import (
	"math/rand"

	"agentgrid.ai/internal/sim/model"
)

// SimpleReflex reacts to the current window only.
type SimpleReflex struct {
	state model.AgentState
	rng   *rand.Rand
}

func NewSimpleReflex(name string, rng *rand.Rand) *SimpleReflex {
	return &SimpleReflex{state: model.NewAgentState(name), rng: defaultRand(rng)}
}

func (a *SimpleReflex) Name() string             { return a.state.Name }
func (a *SimpleReflex) State() *model.AgentState { return &a.state }
func (a *SimpleReflex) Reset()                   { a.state.Reset() }

func (a *SimpleReflex) DecideAction(p model.Perception) (model.Action, string) {
	here := p.Current()

	if p.HasResource && here == model.Goal {
		a.state.CountRule("drop_on_goal")
		return model.Drop, "on goal with resource, dropping"
	}
	if !p.HasResource && here == model.Resource {
		a.state.CountRule("pickup_on_resource")
		return model.Pickup, "on a resource, picking up"
	}

	if p.HasResource {
		if g, ok := p.FirstOf(model.Goal); ok {
			if d, ok := DirectionToward(p.Position, g); ok {
				a.state.CountRule("toward_goal")
				return model.MoveAction(d), "carrying resource, moving toward goal"
			}
		}
	} else {
		if r, ok := p.FirstOf(model.Resource); ok {
			if d, ok := DirectionToward(p.Position, r); ok {
				a.state.CountRule("toward_resource")
				return model.MoveAction(d), "seeking resource, moving toward it"
			}
		}
	}

	a.state.CountRule("explore")
	return RandomValidMove(p, a.rng), "random exploration"
}
