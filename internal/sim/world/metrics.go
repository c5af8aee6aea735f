package world

import "agentgrid.ai/internal/sim/model"

type Metrics struct {
	Deliveries       int     `json:"deliveries"`
	Tick             uint64  `json:"tick"`
	MeanEnergy       float64 `json:"mean_energy"`
	LastDeliveryTick float64 `json:"last_delivery_tick"`
	InitialResources int     `json:"initial_resources"`
}

// Metrics reports the run so far. Only the latest delivery tick survives.
func (w *World) Metrics() Metrics {
	m := Metrics{
		Deliveries:       w.deliveries,
		Tick:             w.tick,
		InitialResources: w.initialResources,
	}
	if n := len(w.agents); n > 0 {
		var sum float64
		for _, s := range w.agents {
			sum += s.agent.State().Energy
		}
		m.MeanEnergy = sum / float64(n)
	}
	var last uint64
	for _, t := range w.deliveryTicks {
		if t > last {
			last = t
		}
	}
	m.LastDeliveryTick = float64(last)
	return m
}

func (w *World) DeliveryTicks() []uint64 {
	out := make([]uint64, len(w.deliveryTicks))
	copy(out, w.deliveryTicks)
	return out
}

// AgentView is a read-only copy of one agent's runtime state.
type AgentView struct {
	ID       int            `json:"id"`
	Name     string         `json:"name"`
	Pos      model.Position `json:"pos"`
	Energy   float64        `json:"energy"`
	Carrying bool           `json:"carrying"`
	Frozen   bool           `json:"frozen"`
}

func (w *World) Agents() []AgentView {
	out := make([]AgentView, 0, len(w.agents))
	for i, s := range w.agents {
		st := s.agent.State()
		out = append(out, AgentView{
			ID:       i + 1,
			Name:     s.agent.Name(),
			Pos:      s.pos,
			Energy:   st.Energy,
			Carrying: st.Carrying(),
			Frozen:   st.Energy <= 0,
		})
	}
	return out
}
