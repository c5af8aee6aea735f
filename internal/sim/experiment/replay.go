package experiment

import (
	"errors"
	"fmt"

	"agentgrid.ai/internal/sim/world"
)

var ErrDivergence = errors.New("replay diverged")

// Replayer re-simulates a trial from its spec and checks recorded ticks
// against it one at a time.
type Replayer struct {
	t       *Trial
	last    world.TickLogEntry
	checked uint64
}

func NewReplayer(spec TrialSpec) (*Replayer, error) {
	t, err := Setup(spec)
	if err != nil {
		return nil, err
	}
	r := &Replayer{t: t}
	t.World.SetTickLogger(r)
	return r, nil
}

func (r *Replayer) WriteTick(e world.TickLogEntry) error {
	r.last = e
	return nil
}

func (r *Replayer) Checked() uint64 { return r.checked }
func (r *Replayer) Trial() *Trial   { return r.t }

// Check steps the world once and compares the result with want.
func (r *Replayer) Check(want world.TickLogEntry) error {
	if next := r.t.World.CurrentTick() + 1; want.Tick != next {
		return fmt.Errorf("%w: expected tick %d, trace has %d", ErrDivergence, next, want.Tick)
	}
	r.t.World.Step()
	got := r.last
	if len(got.Actions) != len(want.Actions) {
		return fmt.Errorf("%w: tick %d: %d actions, trace has %d", ErrDivergence, want.Tick, len(got.Actions), len(want.Actions))
	}
	for i, a := range got.Actions {
		w := want.Actions[i]
		if a.AgentID != w.AgentID || a.Action != w.Action || a.Applied != w.Applied {
			return fmt.Errorf("%w: tick %d agent %d: got %s applied=%v, trace has %s applied=%v",
				ErrDivergence, want.Tick, w.AgentID, a.Action, a.Applied, w.Action, w.Applied)
		}
	}
	if got.Digest != want.Digest {
		return fmt.Errorf("%w: digest mismatch at tick %d: got=%s want=%s", ErrDivergence, want.Tick, got.Digest, want.Digest)
	}
	r.checked++
	return nil
}
