package movement

import (
	"testing"

	"agentgrid.ai/internal/sim/model"
)

func TestAStar_OpenGrid(t *testing.T) {
	got := AStar(model.Position{X: 0, Y: 0}, model.Position{X: 2, Y: 0}, model.NewPosSet())
	if len(got) != 2 || got[0] != model.MoveEast || got[1] != model.MoveEast {
		t.Fatalf("path=%v", got)
	}
}

func TestAStar_VerticalFirstOnTies(t *testing.T) {
	// Equal-f nodes pop in push order, and North/South are pushed before East/West.
	got := AStar(model.Position{X: 0, Y: 0}, model.Position{X: 1, Y: 1}, nil)
	if len(got) != 2 || got[0] != model.MoveSouth || got[1] != model.MoveEast {
		t.Fatalf("path=%v", got)
	}
}

func TestAStar_SameCellIsEmpty(t *testing.T) {
	p := model.Position{X: 3, Y: 3}
	if got := AStar(p, p, nil); len(got) != 0 {
		t.Fatalf("expected empty plan, got %v", got)
	}
}

func TestAStar_EnclosedGoal(t *testing.T) {
	goal := model.Position{X: 5, Y: 5}
	walls := model.NewPosSet()
	for _, d := range model.Directions {
		walls.Add(goal.Add(d))
	}
	if got := AStar(model.Position{X: 0, Y: 0}, goal, walls); len(got) != 0 {
		t.Fatalf("expected empty plan, got %v", got)
	}
}

func TestAStar_ExpansionCap(t *testing.T) {
	// A long wall between start and goal forces a detour far beyond the cap.
	walls := model.NewPosSet()
	for y := -60; y <= 60; y++ {
		walls.Add(model.Position{X: 1, Y: y})
	}
	if got := AStar(model.Position{X: 0, Y: 0}, model.Position{X: 2, Y: 0}, walls); len(got) != 0 {
		t.Fatalf("expected empty plan at cap, got %d steps", len(got))
	}
}

func TestAStar_DetourAroundWall(t *testing.T) {
	walls := model.NewPosSet()
	walls.Add(model.Position{X: 1, Y: 0})
	got := AStar(model.Position{X: 0, Y: 0}, model.Position{X: 2, Y: 0}, walls)
	if len(got) != 4 {
		t.Fatalf("path=%v", got)
	}
	p := model.Position{X: 0, Y: 0}
	for _, a := range got {
		d, ok := a.Direction()
		if !ok {
			t.Fatalf("non-move action %v", a)
		}
		p = p.Add(d)
		if walls.Has(p) {
			t.Fatalf("path enters wall at %v", p)
		}
	}
	if p != (model.Position{X: 2, Y: 0}) {
		t.Fatalf("path ends at %v", p)
	}
}

func TestReachable(t *testing.T) {
	inBounds := func(p model.Position) bool { return p.X >= 0 && p.Y >= 0 && p.X < 3 && p.Y < 3 }
	solid := func(p model.Position) bool { return p.X == 1 }
	got := Reachable(model.Position{X: 0, Y: 0}, inBounds, solid)
	if len(got) != 3 {
		t.Fatalf("reachable=%v", got)
	}
	if got[0] != (model.Position{X: 0, Y: 0}) || got[1] != (model.Position{X: 0, Y: 1}) {
		t.Fatalf("order=%v", got)
	}
	if got := Reachable(model.Position{X: 1, Y: 1}, inBounds, solid); got != nil {
		t.Fatalf("solid start should yield nil, got %v", got)
	}
}
