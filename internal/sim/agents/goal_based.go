package agents

import (
	"fmt"
	"math/rand"

	"agentgrid.ai/internal/sim/model"
	"agentgrid.ai/internal/sim/world/logic/movement"
)

const (
	deliveryUtility   = 20.0
	collectionUtility = 10.0
)

// GoalBased picks the highest-utility known target and follows an A* plan to it.
type GoalBased struct {
	state model.AgentState
	rng   *rand.Rand
	mem   worldModel
	plan  []model.PlanStep
}

func NewGoalBased(name string, rng *rand.Rand) *GoalBased {
	return &GoalBased{
		state: model.NewAgentState(name),
		rng:   defaultRand(rng),
		mem:   newWorldModel(false),
	}
}

func (a *GoalBased) Name() string             { return a.state.Name }
func (a *GoalBased) State() *model.AgentState { return &a.state }

func (a *GoalBased) Reset() {
	a.state.Reset()
	a.mem.reset()
	a.plan = nil
}

// Plan returns the queued steps that have not been executed yet.
func (a *GoalBased) Plan() []model.PlanStep {
	out := make([]model.PlanStep, len(a.plan))
	copy(out, a.plan)
	return out
}

func (a *GoalBased) KnownResources() []model.Position { return a.mem.resources.Slice() }
func (a *GoalBased) KnownGoals() []model.Position     { return a.mem.goals.Slice() }

func (a *GoalBased) DecideAction(p model.Perception) (model.Action, string) {
	a.mem.observe(p, &a.state)
	pos := p.Position

	// Short-circuits leave any queued plan in place.
	if p.HasResource && a.mem.goals.Has(pos) {
		a.state.CountRule("drop_on_goal")
		return model.Drop, "on goal with resource, dropping"
	}
	if !p.HasResource && a.mem.resources.Has(pos) {
		a.state.CountRule("pickup_on_resource")
		return model.Pickup, "on a resource, picking up"
	}

	var why string
	if len(a.plan) == 0 {
		why = a.buildPlan(p)
	}
	if len(a.plan) > 0 {
		next := a.plan[0]
		a.plan = a.plan[1:]
		a.state.CountRule("plan_step")
		if why != "" {
			return next.Action, fmt.Sprintf("%s; executing %s", why, next.Action)
		}
		return next.Action, fmt.Sprintf("executing plan: %s", next.Action)
	}

	a.state.CountRule("explore")
	return RandomValidMove(p, a.rng), "no plan available, exploring"
}

func (a *GoalBased) buildPlan(p model.Perception) string {
	pos := p.Position

	var (
		candidates []model.Position
		weight     float64
		final      model.Action
		label      string
	)
	if p.HasResource {
		candidates, weight, final, label = a.mem.goals.Slice(), deliveryUtility, model.Drop, "deliver"
	} else {
		candidates, weight, final, label = a.mem.resources.Slice(), collectionUtility, model.Pickup, "collect"
	}
	if len(candidates) == 0 {
		return ""
	}

	best := candidates[0]
	bestU := weight / float64(pos.Manhattan(best)+1)
	for _, c := range candidates[1:] {
		if u := weight / float64(pos.Manhattan(c)+1); u > bestU {
			best, bestU = c, u
		}
	}

	path := movement.AStar(pos, best, a.mem.walls)
	if len(path) == 0 {
		return ""
	}
	plan := make([]model.PlanStep, 0, len(path)+1)
	for _, act := range path {
		plan = append(plan, model.PlanStep{Action: act})
	}
	plan = append(plan, model.PlanStep{Action: final})
	a.plan = plan
	a.state.CountRule("plan_built")
	return fmt.Sprintf("new plan: %s at %v", label, best)
}
