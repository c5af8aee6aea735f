package experiment

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"agentgrid.ai/internal/observerproto"
	"agentgrid.ai/internal/sim/agents"
	"agentgrid.ai/internal/sim/tuning"
	"agentgrid.ai/internal/sim/world"
)

func classicSpec(kind agents.Kind) TrialSpec {
	return TrialSpec{
		Type:           specType,
		RunID:          "test",
		Scenario:       tuning.Classic(),
		AgentType:      kind,
		Seed:           TrialSeed(42, 0, 0),
		StopWhenFrozen: true,
	}
}

func TestRunTrial_GoalBasedClassic(t *testing.T) {
	res, err := RunTrial(context.Background(), classicSpec(agents.KindGoalBased), nil)
	if err != nil {
		t.Fatalf("RunTrial: %v", err)
	}
	m := res.Metrics
	// One delivery at (2,2) on tick 9, then the agent keeps retrying the
	// emptied resource cell it still remembers until its energy runs out.
	if m.Deliveries != 1 || m.LastDeliveryTick != 9 {
		t.Fatalf("metrics=%+v", m)
	}
	if m.Tick != 100 || m.MeanEnergy != 0 {
		t.Fatalf("expected freeze at tick 100, metrics=%+v", m)
	}
	if len(res.DeliveryTicks) != 1 || res.DeliveryTicks[0] != 9 {
		t.Fatalf("delivery ticks=%v", res.DeliveryTicks)
	}
}

func TestRunTrial_Deterministic(t *testing.T) {
	sc := tuning.Defaults().Scenarios[2] // competitive_collection, 3 agents
	for _, kind := range agents.Kinds {
		spec := TrialSpec{Type: specType, Scenario: sc, AgentType: kind, Trial: 1, Seed: TrialSeed(7, 2, 1), StopWhenFrozen: true}
		var l1, l2 collectLogger
		r1, err := RunTrial(context.Background(), spec, &l1)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		r2, err := RunTrial(context.Background(), spec, &l2)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		if r1.Digest != r2.Digest || r1.Metrics != r2.Metrics {
			t.Fatalf("%s: runs diverged: %+v vs %+v", kind, r1.Metrics, r2.Metrics)
		}
		if len(l1.entries) != len(l2.entries) {
			t.Fatalf("%s: tick count %d vs %d", kind, len(l1.entries), len(l2.entries))
		}
		for i := range l1.entries {
			a, b := l1.entries[i], l2.entries[i]
			if a.Digest != b.Digest || len(a.Actions) != len(b.Actions) {
				t.Fatalf("%s: tick %d diverged", kind, a.Tick)
			}
			for j := range a.Actions {
				if a.Actions[j] != b.Actions[j] {
					t.Fatalf("%s: tick %d action %d: %+v vs %+v", kind, a.Tick, j, a.Actions[j], b.Actions[j])
				}
			}
		}
	}
}

func TestRunTrial_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := RunTrial(ctx, classicSpec(agents.KindSimpleReflex), nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
}

func TestSummarize(t *testing.T) {
	trials := []TrialResult{
		{Metrics: world.Metrics{Deliveries: 2, LastDeliveryTick: 30, MeanEnergy: 10}},
		{Metrics: world.Metrics{Deliveries: 0, LastDeliveryTick: 0, MeanEnergy: 0}},
		{Metrics: world.Metrics{Deliveries: 1, LastDeliveryTick: 50, MeanEnergy: 20}},
	}
	s := Summarize("a", "goal_based", trials)
	if s.AvgTasksCompleted != 1 || s.AvgCompletionTime != 40 || s.AvgFinalEnergy != 10 || s.NumTrials != 3 {
		t.Fatalf("summary=%+v", s)
	}
	if z := Summarize("a", "x", trials[1:2]); z.AvgCompletionTime != 0 {
		t.Fatalf("no deliveries should give 0 completion time: %+v", z)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, []Summary{{Scenario: "simple_collection", AgentType: "goal_based", AvgTasksCompleted: 1.5, AvgCompletionTime: 12, NumTrials: 5, AvgFinalEnergy: 3.25}})
	if err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "config_name,agent_type,avg_tasks_completed,avg_completion_time,num_trials,avg_final_energy\n" +
		"simple_collection,goal_based,1.5,12,5,3.25\n"
	if buf.String() != want {
		t.Fatalf("csv=%q", buf.String())
	}
}

type collectLogger struct{ entries []world.TickLogEntry }

func (c *collectLogger) WriteTick(e world.TickLogEntry) error {
	c.entries = append(c.entries, e)
	return nil
}

type fakeTrace struct {
	collectLogger
	closed bool
}

func (f *fakeTrace) Close() error { f.closed = true; return nil }

type fakeTraces struct{ opened []*fakeTrace }

func (f *fakeTraces) OpenTrace(spec TrialSpec) (TraceWriter, error) {
	tr := &fakeTrace{}
	f.opened = append(f.opened, tr)
	return tr, nil
}

type fakeResults struct {
	runs      []string
	trials    []TrialResult
	summaries []Summary
}

func (f *fakeResults) RecordRun(runID string, cfg tuning.Experiment) { f.runs = append(f.runs, runID) }
func (f *fakeResults) RecordTrial(r TrialResult)                     { f.trials = append(f.trials, r) }
func (f *fakeResults) RecordSummary(runID string, s Summary)         { f.summaries = append(f.summaries, s) }

type fakePub struct {
	subs   int
	trials []observerproto.TrialMsg
	ticks  int
}

func (f *fakePub) PublishTrial(m observerproto.TrialMsg) { f.trials = append(f.trials, m) }
func (f *fakePub) PublishTick(m observerproto.TickMsg)   { f.ticks++ }
func (f *fakePub) Subscribers() int                      { return f.subs }

func TestRunner_Sweep(t *testing.T) {
	cfg := tuning.Defaults()
	cfg.Scenarios = []tuning.Scenario{
		{Name: "tiny", Width: 6, Height: 6, Agents: 2, Resources: 2, Goals: 1, MaxSteps: 30, Trials: 2, PerceptionRadius: 2},
	}
	traces := &fakeTraces{}
	results := &fakeResults{}
	pub := &fakePub{subs: 1}
	csvPath := filepath.Join(t.TempDir(), "out", "results.csv")
	r := &Runner{Traces: traces, Results: results, Observer: pub, CSVPath: csvPath}

	rep, err := r.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.RunID == "" || len(results.runs) != 1 || results.runs[0] != rep.RunID {
		t.Fatalf("run id not recorded: %q %v", rep.RunID, results.runs)
	}
	if rep.Trials != 6 || len(results.trials) != 6 || len(traces.opened) != 6 || len(pub.trials) != 6 {
		t.Fatalf("trials=%d recorded=%d traces=%d frames=%d", rep.Trials, len(results.trials), len(traces.opened), len(pub.trials))
	}
	if len(rep.Summaries) != 3 || len(results.summaries) != 3 {
		t.Fatalf("summaries=%d", len(rep.Summaries))
	}
	var ticks uint64
	for i, tr := range traces.opened {
		if !tr.closed {
			t.Fatalf("trace %d not closed", i)
		}
		if uint64(len(tr.entries)) != results.trials[i].Metrics.Tick {
			t.Fatalf("trace %d has %d entries for %d ticks", i, len(tr.entries), results.trials[i].Metrics.Tick)
		}
		ticks += results.trials[i].Metrics.Tick
	}
	if rep.Ticks != ticks || uint64(pub.ticks) != ticks {
		t.Fatalf("ticks=%d published=%d want %d", rep.Ticks, pub.ticks, ticks)
	}

	// Same trial index shares a layout across agent types.
	if results.trials[0].Spec.Seed != results.trials[2].Spec.Seed {
		t.Fatalf("trial seeds differ across agent types")
	}
	if pub.trials[0].Width != 6 || len(pub.trials[0].Goals) != 1 {
		t.Fatalf("trial frame=%+v", pub.trials[0])
	}

	b, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(string(b)), "\n"); len(lines) != 4 {
		t.Fatalf("csv lines=%d", len(lines))
	}
}

func TestRunner_SkipsTickFramesWithoutSubscribers(t *testing.T) {
	cfg := tuning.Defaults()
	cfg.AgentTypes = []string{string(agents.KindGoalBased)}
	cfg.Scenarios = []tuning.Scenario{tuning.Classic()}
	cfg.Scenarios[0].Trials = 1
	pub := &fakePub{}
	r := &Runner{Observer: pub}

	rep, err := r.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Ticks == 0 || len(pub.trials) != 1 {
		t.Fatalf("ticks=%d trial frames=%d", rep.Ticks, len(pub.trials))
	}
	if pub.ticks != 0 {
		t.Fatalf("published %d tick frames with no subscribers", pub.ticks)
	}
}

func TestReplayer_MatchesRecordedTrial(t *testing.T) {
	spec := classicSpec(agents.KindModelBasedReflex)
	var rec collectLogger
	if _, err := RunTrial(context.Background(), spec, &rec); err != nil {
		t.Fatalf("RunTrial: %v", err)
	}

	r, err := NewReplayer(spec)
	if err != nil {
		t.Fatalf("NewReplayer: %v", err)
	}
	for _, e := range rec.entries {
		if err := r.Check(e); err != nil {
			t.Fatalf("Check: %v", err)
		}
	}
	if r.Checked() != uint64(len(rec.entries)) {
		t.Fatalf("checked=%d want %d", r.Checked(), len(rec.entries))
	}
}

func TestReplayer_DetectsTampering(t *testing.T) {
	spec := classicSpec(agents.KindGoalBased)
	var rec collectLogger
	if _, err := RunTrial(context.Background(), spec, &rec); err != nil {
		t.Fatalf("RunTrial: %v", err)
	}

	r, err := NewReplayer(spec)
	if err != nil {
		t.Fatalf("NewReplayer: %v", err)
	}
	bad := rec.entries[0]
	bad.Digest = strings.Repeat("0", 64)
	if err := r.Check(bad); !errors.Is(err, ErrDivergence) {
		t.Fatalf("err=%v", err)
	}

	r, _ = NewReplayer(spec)
	if err := r.Check(rec.entries[1]); !errors.Is(err, ErrDivergence) {
		t.Fatalf("skipped tick accepted: %v", err)
	}
}
