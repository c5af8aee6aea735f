package world

import "agentgrid.ai/internal/sim/model"

const (
	actionCost = 1.0
	waitRefund = 0.5
)

// Perception builds the (2R+1)^2 window around agent id. Cells outside the
// grid read as Wall.
func (w *World) Perception(id int) (model.Perception, bool) {
	s := w.slot(id)
	if s == nil {
		return model.Perception{}, false
	}
	r := w.cfg.PerceptionRadius
	side := 2*r + 1
	cells := make([]model.VisibleCell, 0, side*side)
	for y := s.pos.Y - r; y <= s.pos.Y+r; y++ {
		for x := s.pos.X - r; x <= s.pos.X+r; x++ {
			p := model.Position{X: x, Y: y}
			t := model.Wall
			if w.InBounds(p) {
				t = w.grid[p]
			}
			cells = append(cells, model.VisibleCell{Pos: p, Type: t})
		}
	}
	st := s.agent.State()
	return model.Perception{
		Position:    s.pos,
		Radius:      r,
		Cells:       cells,
		Energy:      st.Energy,
		HasResource: st.Carrying(),
		Messages:    []string{},
	}, true
}

// ExecuteAction applies one action for agent id. Energy is charged before
// anything else; blocked moves, pickups off a resource and drops while empty
// handed are no-ops. The result reports whether the action changed anything
// besides energy.
func (w *World) ExecuteAction(id int, a model.Action) bool {
	s := w.slot(id)
	if s == nil {
		return false
	}
	st := s.agent.State()
	st.Energy -= actionCost

	switch a {
	case model.MoveNorth, model.MoveSouth, model.MoveEast, model.MoveWest:
		d, _ := a.Direction()
		dst := s.pos.Add(d)
		if !w.free(dst) {
			return false
		}
		s.pos = dst
		return true

	case model.Pickup:
		if w.grid[s.pos] != model.Resource {
			return false
		}
		st.Record(model.Pickup)
		w.setCell(s.pos, model.Empty)
		return true

	case model.Drop:
		if !st.Carrying() {
			return false
		}
		st.Record(model.Drop)
		if w.grid[s.pos] == model.Goal {
			w.deliveries++
			w.deliveryTicks = append(w.deliveryTicks, w.tick)
		} else {
			w.setCell(s.pos, model.Resource)
		}
		return true

	case model.Wait:
		st.Energy += waitRefund
		return true
	}
	return false
}

// Step advances one tick and returns it together with the post-tick digest.
func (w *World) Step() (tick uint64, digest string) {
	w.tick++
	nowTick := w.tick

	recorded := make([]RecordedAction, 0, len(w.agents))
	for i := range w.agents {
		id := i + 1
		st := w.agents[i].agent.State()
		// Frozen agents are never asked again.
		if st.Energy <= 0 {
			continue
		}
		p, _ := w.Perception(id)
		act, why := w.agents[i].agent.DecideAction(p)
		applied := w.ExecuteAction(id, act)
		recorded = append(recorded, RecordedAction{
			AgentID:   id,
			Action:    act,
			Rationale: why,
			Applied:   applied,
			Pos:       w.agents[i].pos,
			Energy:    st.Energy,
			Carrying:  st.Carrying(),
		})
	}

	digest = w.StateDigest()
	if w.tickLogger != nil {
		_ = w.tickLogger.WriteTick(TickLogEntry{Tick: nowTick, Actions: recorded, Deliveries: w.deliveries, Digest: digest})
	}
	return nowTick, digest
}
