package experiment

import (
	"agentgrid.ai/internal/observerproto"
	"agentgrid.ai/internal/sim/model"
	"agentgrid.ai/internal/sim/world"
)

func trialFrame(t *Trial) observerproto.TrialMsg {
	l := t.Layout
	return observerproto.TrialMsg{
		Type:            observerproto.TypeTrial,
		ProtocolVersion: observerproto.Version,
		RunID:           t.Spec.RunID,
		Scenario:        t.Spec.Scenario.Name,
		AgentType:       string(t.Spec.AgentType),
		Trial:           t.Spec.Trial,
		Seed:            t.Spec.Seed,
		Width:           l.Width,
		Height:          l.Height,
		MaxSteps:        t.Spec.Scenario.MaxSteps,
		Walls:           toXY(l.Walls),
		Hazards:         toXY(l.Hazards),
		Goals:           toXY(l.Goals),
		Resources:       toXY(l.Resources),
	}
}

func tickFrame(t *Trial, e world.TickLogEntry) observerproto.TickMsg {
	acted := make(map[int]world.RecordedAction, len(e.Actions))
	for _, ra := range e.Actions {
		acted[ra.AgentID] = ra
	}
	views := t.World.Agents()
	out := make([]observerproto.AgentState, 0, len(views))
	for _, v := range views {
		s := observerproto.AgentState{
			ID:       v.ID,
			Name:     v.Name,
			Pos:      [2]int{v.Pos.X, v.Pos.Y},
			Energy:   v.Energy,
			Carrying: v.Carrying,
			Frozen:   v.Frozen,
		}
		if ra, ok := acted[v.ID]; ok {
			s.Action = ra.Action.String()
			s.Rationale = ra.Rationale
		}
		out = append(out, s)
	}
	return observerproto.TickMsg{
		Type:            observerproto.TypeTick,
		ProtocolVersion: observerproto.Version,
		RunID:           t.Spec.RunID,
		Scenario:        t.Spec.Scenario.Name,
		AgentType:       string(t.Spec.AgentType),
		Trial:           t.Spec.Trial,
		Tick:            e.Tick,
		Deliveries:      e.Deliveries,
		Agents:          out,
		Resources:       toXY(t.World.Positions(model.Resource)),
		Digest:          e.Digest,
	}
}

// tee fans one tick entry out to the trace and the observer.
type tee struct {
	trial *Trial
	trace world.TickLogger
	pub   Publisher
}

func (t tee) WriteTick(e world.TickLogEntry) error {
	if t.pub != nil && t.pub.Subscribers() > 0 {
		t.pub.PublishTick(tickFrame(t.trial, e))
	}
	if t.trace != nil {
		return t.trace.WriteTick(e)
	}
	return nil
}
