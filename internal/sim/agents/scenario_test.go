package agents

import (
	"math/rand"
	"testing"

	"agentgrid.ai/internal/sim/model"
	"agentgrid.ai/internal/sim/world"
)

type decision struct {
	p   model.Perception
	act model.Action
	why string
}

// recorder wraps a policy and keeps every decision it makes.
type recorder struct {
	Policy
	log []decision
}

func (r *recorder) DecideAction(p model.Perception) (model.Action, string) {
	act, why := r.Policy.DecideAction(p)
	r.log = append(r.log, decision{p: p, act: act, why: why})
	return act, why
}

func TestSimpleReflex_CollectThenExploreThenDeliver(t *testing.T) {
	w, err := world.New(world.Config{Width: 6, Height: 1, PerceptionRadius: 2})
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	w.AddResources([]model.Position{{X: 2, Y: 0}})
	w.AddGoals([]model.Position{{X: 5, Y: 0}})
	rec := &recorder{Policy: NewSimpleReflex("s", rand.New(rand.NewSource(3)))}
	if !w.AddAgent(rec, model.Position{X: 0, Y: 0}) {
		t.Fatalf("AddAgent failed")
	}

	for i := 0; i < 90 && w.Metrics().Deliveries == 0; i++ {
		w.Step()
	}
	if w.Metrics().Deliveries != 1 {
		t.Fatalf("no delivery after %d ticks", w.CurrentTick())
	}

	want := []model.Action{model.MoveEast, model.MoveEast, model.Pickup}
	for i, a := range want {
		if rec.log[i].act != a {
			t.Fatalf("decision %d=%v want %v", i, rec.log[i].act, a)
		}
	}

	sawGoal := false
	lastX := -1
	for _, d := range rec.log[3:] {
		if !d.p.HasResource {
			t.Fatalf("agent dropped before reaching goal")
		}
		_, goalVisible := d.p.FirstOf(model.Goal)
		if !sawGoal && !goalVisible {
			if d.why != "random exploration" {
				t.Fatalf("expected exploration without goal in view, got %q", d.why)
			}
			continue
		}
		sawGoal = true
		if d.act == model.Drop {
			break
		}
		if d.act != model.MoveEast || d.p.Position.X <= lastX {
			t.Fatalf("not monotone toward goal: %v at %v", d.act, d.p.Position)
		}
		lastX = d.p.Position.X
	}
	if !sawGoal {
		t.Fatalf("goal never came into view")
	}
}

func TestGoalBased_PlanRunsWithoutReplanning(t *testing.T) {
	w, err := world.New(world.Config{Width: 10, Height: 10, PerceptionRadius: 3})
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	start := model.Position{X: 1, Y: 1}
	res := model.Position{X: 4, Y: 1}  // distance 3, utility 10/4
	goal := model.Position{X: 3, Y: 4} // distance 5
	w.AddResources([]model.Position{res})
	w.AddGoals([]model.Position{goal})

	g := NewGoalBased("g", rand.New(rand.NewSource(1)))
	rec := &recorder{Policy: g}
	if !w.AddAgent(rec, start) {
		t.Fatalf("AddAgent failed")
	}

	for i := 0; i < 4; i++ {
		w.Step()
	}
	want := []model.Action{model.MoveEast, model.MoveEast, model.MoveEast, model.Pickup}
	for i, a := range want {
		if rec.log[i].act != a {
			t.Fatalf("tick %d: %v want %v", i+1, rec.log[i].act, a)
		}
	}
	if !g.State().Carrying() {
		t.Fatalf("expected carrying after plan")
	}
	built := 0
	for _, rc := range g.State().RuleActivations() {
		if rc.Rule == "plan_built" {
			built = rc.Count
		}
	}
	if built != 1 {
		t.Fatalf("plan built %d times", built)
	}

	// The immediate pickup bypassed the queue, so the trailing Pickup is still queued.
	if plan := g.Plan(); len(plan) != 1 || plan[0].Action != model.Pickup {
		t.Fatalf("plan=%v", plan)
	}
	w.Step()
	if got := rec.log[4].act; got != model.Pickup {
		t.Fatalf("stale plan step=%v", got)
	}
	if len(g.Plan()) != 0 {
		t.Fatalf("plan not consumed")
	}
}

func TestGoalBased_DeliversAfterPickup(t *testing.T) {
	w, err := world.New(world.Config{Width: 10, Height: 10, PerceptionRadius: 3})
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	w.AddResources([]model.Position{{X: 4, Y: 1}})
	w.AddGoals([]model.Position{{X: 3, Y: 4}})
	g := NewGoalBased("g", rand.New(rand.NewSource(1)))
	w.AddAgent(g, model.Position{X: 1, Y: 1})

	for i := 0; i < 20 && w.Metrics().Deliveries == 0; i++ {
		w.Step()
	}
	if w.Metrics().Deliveries != 1 {
		t.Fatalf("no delivery by tick %d", w.CurrentTick())
	}
}

func TestGoalBased_UnreachableFallsBackToExploration(t *testing.T) {
	g := NewGoalBased("g", rand.New(rand.NewSource(1)))
	pos := model.Position{X: 2, Y: 2}
	// The resource at (3,3) is walled in on all four sides.
	p := model.Perception{Position: pos, Radius: 2, Messages: []string{}}
	cells := map[model.Position]model.CellType{
		{X: 3, Y: 3}: model.Resource,
		{X: 3, Y: 2}: model.Wall,
		{X: 2, Y: 3}: model.Wall,
		{X: 4, Y: 3}: model.Wall,
		{X: 3, Y: 4}: model.Wall,
	}
	for y := 0; y <= 4; y++ {
		for x := 0; x <= 4; x++ {
			q := model.Position{X: x, Y: y}
			p.Cells = append(p.Cells, model.VisibleCell{Pos: q, Type: cells[q]})
		}
	}
	_, why := g.DecideAction(p)
	if why != "no plan available, exploring" {
		t.Fatalf("why=%q", why)
	}
	if len(g.Plan()) != 0 {
		t.Fatalf("plan=%v", g.Plan())
	}
}

// view builds a perception of the given radius at pos with the given overrides.
func view(pos model.Position, radius int, carrying bool, cells map[model.Position]model.CellType) model.Perception {
	p := model.Perception{Position: pos, Radius: radius, Energy: 100, HasResource: carrying, Messages: []string{}}
	for y := pos.Y - radius; y <= pos.Y+radius; y++ {
		for x := pos.X - radius; x <= pos.X+radius; x++ {
			q := model.Position{X: x, Y: y}
			p.Cells = append(p.Cells, model.VisibleCell{Pos: q, Type: cells[q]})
		}
	}
	return p
}

func TestGoalBased_TargetSelection(t *testing.T) {
	pos := model.Position{X: 3, Y: 3}
	cases := []struct {
		name     string
		carrying bool
		cells    map[model.Position]model.CellType
		act      model.Action
		plan     []model.Action
	}{
		{
			// (3,0) is seen first but (4,3) has the higher utility 10/2.
			name: "closer resource wins",
			cells: map[model.Position]model.CellType{
				{X: 3, Y: 0}: model.Resource,
				{X: 4, Y: 3}: model.Resource,
			},
			act:  model.MoveEast,
			plan: []model.Action{model.Pickup},
		},
		{
			name: "tie keeps first seen",
			cells: map[model.Position]model.CellType{
				{X: 5, Y: 3}: model.Resource,
				{X: 3, Y: 5}: model.Resource,
			},
			act:  model.MoveEast,
			plan: []model.Action{model.MoveEast, model.Pickup},
		},
		{
			// Carrying ignores the adjacent resource and heads for the nearest goal.
			name:     "carrying delivers to nearest goal",
			carrying: true,
			cells: map[model.Position]model.CellType{
				{X: 0, Y: 3}: model.Goal,
				{X: 3, Y: 5}: model.Goal,
				{X: 4, Y: 3}: model.Resource,
			},
			act:  model.MoveSouth,
			plan: []model.Action{model.MoveSouth, model.Drop},
		},
	}
	for _, c := range cases {
		g := NewGoalBased("g", rand.New(rand.NewSource(1)))
		act, _ := g.DecideAction(view(pos, 3, c.carrying, c.cells))
		if act != c.act {
			t.Fatalf("%s: act=%v want %v", c.name, act, c.act)
		}
		plan := g.Plan()
		if len(plan) != len(c.plan) {
			t.Fatalf("%s: plan=%v want %v", c.name, plan, c.plan)
		}
		for i, step := range plan {
			if step.Action != c.plan[i] {
				t.Fatalf("%s: plan=%v want %v", c.name, plan, c.plan)
			}
		}
	}
}
