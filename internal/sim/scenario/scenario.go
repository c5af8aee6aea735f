// Package scenario turns a scenario definition into concrete terrain and
// agent start positions.
package scenario

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	opensimplex "github.com/ojrac/opensimplex-go"

	"agentgrid.ai/internal/sim/model"
	"agentgrid.ai/internal/sim/tuning"
	"agentgrid.ai/internal/sim/world"
	"agentgrid.ai/internal/sim/world/logic/mathx"
	"agentgrid.ai/internal/sim/world/logic/movement"
)

const noiseFrequency = 0.35

type Layout struct {
	Width     int              `json:"width"`
	Height    int              `json:"height"`
	Walls     []model.Position `json:"walls"`
	Hazards   []model.Position `json:"hazards"`
	Resources []model.Position `json:"resources"`
	Goals     []model.Position `json:"goals"`
	Starts    []model.Position `json:"starts"`
}

// Build is deterministic in (sc, seed). Border walls are always present.
// Interior walls come from OpenSimplex noise; hazards, resources, goals and
// starts are drawn from the largest open region so every agent can reach
// every target.
func Build(sc tuning.Scenario, seed int64) (Layout, error) {
	need := sc.Agents + sc.Resources + sc.Goals + sc.Hazards
	l, pool := carve(sc, seed, sc.WallDensity)
	if len(pool) < need && sc.WallDensity > 0 {
		l, pool = carve(sc, seed, 0)
	}

	var pin tuning.Layout
	if sc.Layout != nil {
		pin = *sc.Layout
	}
	pinned := map[model.Position]bool{}
	for _, list := range [][][2]int{pin.Walls, pin.Hazards, pin.Resources, pin.Goals, pin.Starts} {
		for _, p := range tuning.Positions(list) {
			pinned[p] = true
		}
	}
	free := pool[:0:0]
	for _, p := range pool {
		if !pinned[p] {
			free = append(free, p)
		}
	}

	rng := rand.New(rand.NewSource(mathx.Seed(mathx.Hash2(seed, 1, 0))))
	rng.Shuffle(len(free), func(i, j int) { free[i], free[j] = free[j], free[i] })
	take := func(n int) ([]model.Position, error) {
		if n > len(free) {
			return nil, fmt.Errorf("scenario %s: need %d more free cells, have %d", sc.Name, n, len(free))
		}
		out := append([]model.Position(nil), free[:n]...)
		free = free[n:]
		return out, nil
	}

	var err error
	l.Walls = append(l.Walls, tuning.Positions(pin.Walls)...)
	if l.Hazards = tuning.Positions(pin.Hazards); l.Hazards == nil {
		if l.Hazards, err = take(sc.Hazards); err != nil {
			return l, err
		}
	}
	if l.Resources = tuning.Positions(pin.Resources); l.Resources == nil {
		if l.Resources, err = take(sc.Resources); err != nil {
			return l, err
		}
	}
	if l.Goals = tuning.Positions(pin.Goals); l.Goals == nil {
		if l.Goals, err = take(sc.Goals); err != nil {
			return l, err
		}
	}
	if l.Starts = tuning.Positions(pin.Starts); l.Starts == nil {
		if l.Starts, err = take(sc.Agents); err != nil {
			return l, err
		}
	}
	return l, nil
}

// carve places border and noise walls and returns the open cells of the
// largest connected region in discovery order.
func carve(sc tuning.Scenario, seed int64, density float64) (Layout, []model.Position) {
	l := Layout{Width: sc.Width, Height: sc.Height}
	solid := map[model.Position]bool{}
	for x := 0; x < sc.Width; x++ {
		solid[model.Position{X: x, Y: 0}] = true
		solid[model.Position{X: x, Y: sc.Height - 1}] = true
	}
	for y := 0; y < sc.Height; y++ {
		solid[model.Position{X: 0, Y: y}] = true
		solid[model.Position{X: sc.Width - 1, Y: y}] = true
	}

	if density > 0 {
		type scored struct {
			p model.Position
			v float64
		}
		noise := opensimplex.NewNormalized(seed)
		var cells []scored
		for y := 1; y < sc.Height-1; y++ {
			for x := 1; x < sc.Width-1; x++ {
				cells = append(cells, scored{
					p: model.Position{X: x, Y: y},
					v: noise.Eval2(float64(x)*noiseFrequency, float64(y)*noiseFrequency),
				})
			}
		}
		sort.SliceStable(cells, func(i, j int) bool { return cells[i].v > cells[j].v })
		n := int(math.Round(density * float64(len(cells))))
		for _, c := range cells[:n] {
			solid[c.p] = true
		}
	}

	for y := 0; y < sc.Height; y++ {
		for x := 0; x < sc.Width; x++ {
			if p := (model.Position{X: x, Y: y}); solid[p] {
				l.Walls = append(l.Walls, p)
			}
		}
	}

	inBounds := func(p model.Position) bool {
		return p.X >= 0 && p.Y >= 0 && p.X < sc.Width && p.Y < sc.Height
	}
	isSolid := func(p model.Position) bool { return solid[p] }
	seen := map[model.Position]bool{}
	var best []model.Position
	for y := 1; y < sc.Height-1; y++ {
		for x := 1; x < sc.Width-1; x++ {
			p := model.Position{X: x, Y: y}
			if solid[p] || seen[p] {
				continue
			}
			region := movement.Reachable(p, inBounds, isSolid)
			for _, q := range region {
				seen[q] = true
			}
			if len(region) > len(best) {
				best = region
			}
		}
	}
	return l, best
}

// Apply installs the layout's terrain. Agents are registered by the caller.
func Apply(w *world.World, l Layout) {
	w.AddWalls(l.Walls)
	w.AddHazards(l.Hazards)
	w.AddGoals(l.Goals)
	w.AddResources(l.Resources)
}
