package experiment

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"agentgrid.ai/internal/observerproto"
	"agentgrid.ai/internal/sim/agents"
	"agentgrid.ai/internal/sim/tuning"
	"agentgrid.ai/internal/sim/world"
)

type TraceWriter interface {
	world.TickLogger
	Close() error
}

// TraceSink opens one tick trace per trial.
type TraceSink interface {
	OpenTrace(spec TrialSpec) (TraceWriter, error)
}

// ResultSink receives results as they are produced. Implementations must not
// block the sweep.
type ResultSink interface {
	RecordRun(runID string, cfg tuning.Experiment)
	RecordTrial(r TrialResult)
	RecordSummary(runID string, s Summary)
}

// Publisher receives live frames. Implementations must not block the sweep.
// Tick frames are only built while Subscribers reports someone listening.
type Publisher interface {
	PublishTrial(m observerproto.TrialMsg)
	PublishTick(m observerproto.TickMsg)
	Subscribers() int
}

// Runner executes every scenario x agent type x trial combination in a fixed
// order. Every sink is optional.
type Runner struct {
	Log      *log.Logger
	Traces   TraceSink
	Results  ResultSink
	Observer Publisher

	// CSVPath, when set, receives the summary table after the sweep.
	CSVPath string
}

type Report struct {
	RunID     string
	Summaries []Summary
	Trials    int
	Ticks     uint64
	Elapsed   time.Duration
}

func (r *Runner) logf(format string, args ...any) {
	if r.Log != nil {
		r.Log.Printf(format, args...)
	}
}

func (r *Runner) Run(ctx context.Context, cfg tuning.Experiment) (Report, error) {
	rep := Report{RunID: uuid.NewString()}
	start := time.Now()
	if r.Results != nil {
		r.Results.RecordRun(rep.RunID, cfg)
	}
	r.logf("run %s: %d scenarios x %d agent types", rep.RunID, len(cfg.Scenarios), len(cfg.AgentTypes))

	for si, sc := range cfg.Scenarios {
		for _, name := range cfg.AgentTypes {
			kind, err := agents.ParseKind(name)
			if err != nil {
				return rep, err
			}
			r.logf("running %s in %s (%d trials)", kind, sc.Name, sc.Trials)

			results := make([]TrialResult, 0, sc.Trials)
			var ticks uint64
			for trial := 0; trial < sc.Trials; trial++ {
				spec := TrialSpec{
					Type:           specType,
					RunID:          rep.RunID,
					Scenario:       sc,
					AgentType:      kind,
					Trial:          trial,
					Seed:           TrialSeed(cfg.Seed, si, trial),
					StopWhenFrozen: cfg.StopWhenFrozen,
				}
				res, err := r.runOne(ctx, spec)
				if err != nil {
					return rep, err
				}
				if r.Results != nil {
					r.Results.RecordTrial(res)
				}
				results = append(results, res)
				ticks += res.Metrics.Tick
			}

			s := Summarize(sc.Name, string(kind), results)
			rep.Summaries = append(rep.Summaries, s)
			rep.Trials += len(results)
			rep.Ticks += ticks
			if r.Results != nil {
				r.Results.RecordSummary(rep.RunID, s)
			}
			r.logf("done %s in %s: avg_tasks=%.2f avg_completion=%.1f ticks=%s",
				kind, sc.Name, s.AvgTasksCompleted, s.AvgCompletionTime, humanize.Comma(int64(ticks)))
		}
	}

	if r.CSVPath != "" {
		if err := WriteCSVFile(r.CSVPath, rep.Summaries); err != nil {
			return rep, fmt.Errorf("write results: %w", err)
		}
	}
	rep.Elapsed = time.Since(start)
	return rep, nil
}

func (r *Runner) runOne(ctx context.Context, spec TrialSpec) (res TrialResult, err error) {
	t, err := Setup(spec)
	if err != nil {
		return TrialResult{}, err
	}

	var trace TraceWriter
	if r.Traces != nil {
		trace, err = r.Traces.OpenTrace(spec)
		if err != nil {
			return TrialResult{}, fmt.Errorf("open trace: %w", err)
		}
		defer func() {
			if cerr := trace.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close trace: %w", cerr)
			}
		}()
	}
	if r.Observer != nil {
		r.Observer.PublishTrial(trialFrame(t))
	}
	if trace != nil || r.Observer != nil {
		t.World.SetTickLogger(tee{trial: t, trace: trace, pub: r.Observer})
	}
	return t.Run(ctx)
}
