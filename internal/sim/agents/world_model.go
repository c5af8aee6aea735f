package agents

import "agentgrid.ai/internal/sim/model"

// worldModel is the cumulative memory of the model-based and goal-based
// policies. Sets only grow, except for the pickup correction in observe.
type worldModel struct {
	trackHazards bool

	visited   *model.PosSet
	walls     *model.PosSet
	resources *model.PosSet
	goals     *model.PosSet
	hazards   *model.PosSet
}

func newWorldModel(trackHazards bool) worldModel {
	m := worldModel{trackHazards: trackHazards}
	m.reset()
	return m
}

func (m *worldModel) reset() {
	m.visited = model.NewPosSet()
	m.walls = model.NewPosSet()
	m.resources = model.NewPosSet()
	m.goals = model.NewPosSet()
	m.hazards = model.NewPosSet()
}

func (m *worldModel) observe(p model.Perception, st *model.AgentState) {
	m.visited.Add(p.Position)
	for _, c := range p.Cells {
		switch c.Type {
		case model.Wall:
			m.walls.Add(c.Pos)
		case model.Resource:
			m.resources.Add(c.Pos)
		case model.Goal:
			m.goals.Add(c.Pos)
		case model.Hazard:
			if m.trackHazards {
				m.hazards.Add(c.Pos)
			}
		}
	}

	// Reconcile an own pickup whose source cell has already cleared.
	if last, ok := st.LastAction(); ok && last == model.Pickup &&
		!p.HasResource && m.resources.Has(p.Position) {
		m.resources.Remove(p.Position)
	}
}
