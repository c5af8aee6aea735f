package agents

import (
	"fmt"
	"math/rand"

	"agentgrid.ai/internal/sim/model"
)

// ModelBasedReflex applies reflex rules against a cumulative model of
// everything it has seen.
type ModelBasedReflex struct {
	state model.AgentState
	rng   *rand.Rand
	mem   worldModel
}

func NewModelBasedReflex(name string, rng *rand.Rand) *ModelBasedReflex {
	return &ModelBasedReflex{
		state: model.NewAgentState(name),
		rng:   defaultRand(rng),
		mem:   newWorldModel(true),
	}
}

func (a *ModelBasedReflex) Name() string             { return a.state.Name }
func (a *ModelBasedReflex) State() *model.AgentState { return &a.state }

func (a *ModelBasedReflex) Reset() {
	a.state.Reset()
	a.mem.reset()
}

func (a *ModelBasedReflex) KnownResources() []model.Position { return a.mem.resources.Slice() }
func (a *ModelBasedReflex) KnownGoals() []model.Position     { return a.mem.goals.Slice() }
func (a *ModelBasedReflex) KnownHazards() []model.Position   { return a.mem.hazards.Slice() }
func (a *ModelBasedReflex) Visited() int                     { return a.mem.visited.Len() }

func (a *ModelBasedReflex) DecideAction(p model.Perception) (model.Action, string) {
	a.mem.observe(p, &a.state)
	pos := p.Position

	if p.HasResource && a.mem.goals.Has(pos) {
		a.state.CountRule("drop_on_goal")
		return model.Drop, "on goal with resource, dropping"
	}
	if !p.HasResource && a.mem.resources.Has(pos) {
		a.state.CountRule("pickup_on_resource")
		return model.Pickup, "on a resource, picking up"
	}

	if p.HasResource && a.mem.goals.Len() > 0 {
		if g, ok := closest(pos, a.mem.goals.Slice()); ok {
			if d, ok := DirectionToward(pos, g); ok {
				a.state.CountRule("toward_goal")
				return model.MoveAction(d), fmt.Sprintf("moving toward known goal at %v", g)
			}
		}
	}
	if !p.HasResource && a.mem.resources.Len() > 0 {
		if r, ok := closest(pos, a.mem.resources.Slice()); ok {
			if d, ok := DirectionToward(pos, r); ok {
				a.state.CountRule("toward_resource")
				return model.MoveAction(d), fmt.Sprintf("moving toward known resource at %v", r)
			}
		}
	}

	a.state.CountRule("explore")
	return RandomValidMove(p, a.rng), "exploration"
}
