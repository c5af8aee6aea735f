package worldtest

import (
	"testing"

	"agentgrid.ai/internal/sim/agents"
	"agentgrid.ai/internal/sim/experiment"
	"agentgrid.ai/internal/sim/model"
	"agentgrid.ai/internal/sim/tuning"
	"agentgrid.ai/internal/sim/world"
)

// Harness drives a fully set-up trial through exported APIs only and keeps
// every tick entry it produced.
type Harness struct {
	T     *testing.T
	Trial *experiment.Trial
	W     *world.World

	Log []world.TickLogEntry
}

func NewHarness(t *testing.T, sc tuning.Scenario, kind agents.Kind, seed int64) *Harness {
	t.Helper()
	tr, err := experiment.Setup(experiment.TrialSpec{
		Type:           "TRIAL",
		Scenario:       sc,
		AgentType:      kind,
		Seed:           seed,
		StopWhenFrozen: true,
	})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	h := &Harness{T: t, Trial: tr, W: tr.World}
	h.W.SetTickLogger(h)
	return h
}

func (h *Harness) WriteTick(e world.TickLogEntry) error {
	h.Log = append(h.Log, e)
	return nil
}

func (h *Harness) Step() world.TickLogEntry {
	h.T.Helper()
	before := len(h.Log)
	h.W.Step()
	if len(h.Log) != before+1 {
		h.T.Fatalf("step produced %d log entries", len(h.Log)-before)
	}
	return h.Log[len(h.Log)-1]
}

// StepFor steps up to n ticks, stopping early once the trial is done.
func (h *Harness) StepFor(n int) {
	h.T.Helper()
	for i := 0; i < n && !h.Trial.Done(); i++ {
		h.Step()
	}
}

// StepUntil steps until cond holds or the trial is done, and reports which.
func (h *Harness) StepUntil(cond func() bool) bool {
	h.T.Helper()
	for !cond() {
		if h.Trial.Done() {
			return false
		}
		h.Step()
	}
	return true
}

func (h *Harness) State(id int) *model.AgentState {
	h.T.Helper()
	a, ok := h.W.Agent(id)
	if !ok {
		h.T.Fatalf("no agent %d", id)
	}
	return a.State()
}

func (h *Harness) Pos(id int) model.Position {
	h.T.Helper()
	p, ok := h.W.AgentPos(id)
	if !ok {
		h.T.Fatalf("no agent %d", id)
	}
	return p
}

// Actions returns the actions agent id took, in tick order.
func (h *Harness) Actions(id int) []world.RecordedAction {
	var out []world.RecordedAction
	for _, e := range h.Log {
		for _, a := range e.Actions {
			if a.AgentID == id {
				out = append(out, a)
			}
		}
	}
	return out
}
