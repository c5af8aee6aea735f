package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"agentgrid.ai/internal/persistence/indexdb"
	persistlog "agentgrid.ai/internal/persistence/log"
	"agentgrid.ai/internal/sim/experiment"
	"agentgrid.ai/internal/sim/tuning"
	"agentgrid.ai/internal/transport/observer"
)

type options struct {
	configPath  string
	dataDir     string
	seed        int64
	only        string
	disableDB   bool
	noTraces    bool
	observeAddr string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "./configs/experiments.yaml", "path to experiments.yaml (empty: built-in defaults)")
	flag.StringVar(&opts.dataDir, "data", "", "output directory (default: output_dir from the config)")
	flag.Int64Var(&opts.seed, "seed", 0, "override the base seed (0 keeps the config value)")
	flag.StringVar(&opts.only, "scenario", "", "run only this scenario")
	flag.BoolVar(&opts.disableDB, "disable_db", false, "disable the sqlite results index")
	flag.BoolVar(&opts.noTraces, "no_traces", false, "do not write per-trial tick traces")
	flag.StringVar(&opts.observeAddr, "observe", "", "loopback address for the live observer (e.g. 127.0.0.1:8081; empty to disable)")
	flag.Parse()

	logger := log.New(os.Stdout, "[gridsim] ", log.LstdFlags|log.Lmicroseconds)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, logger, opts)
	stop()
	if err != nil {
		logger.Printf("%v", err)
		os.Exit(1)
	}
}

// run owns every resource it opens, so the index is flushed and closed
// before main decides the exit status.
func run(ctx context.Context, logger *log.Logger, opts options) error {
	cfg, err := tuning.Load(strings.TrimSpace(opts.configPath))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.seed != 0 {
		cfg.Seed = opts.seed
	}
	if opts.only != "" {
		cfg.Scenarios = filterScenarios(cfg.Scenarios, opts.only)
		if len(cfg.Scenarios) == 0 {
			return fmt.Errorf("no scenario named %q", opts.only)
		}
	}
	outDir := cfg.OutputDir
	if opts.dataDir != "" {
		outDir = opts.dataDir
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("data dir: %w", err)
	}

	runner := &experiment.Runner{
		Log:     logger,
		CSVPath: filepath.Join(outDir, "results.csv"),
	}

	var idx *indexdb.SQLiteIndex
	if !opts.disableDB && cfg.IndexDB != "" {
		idx, err = indexdb.OpenSQLite(filepath.Join(outDir, cfg.IndexDB))
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		defer func() {
			if err := idx.Close(); err != nil {
				logger.Printf("close index: %v", err)
			}
		}()
		runner.Results = idx
	}
	if cfg.Traces && !opts.noTraces {
		runner.Traces = persistlog.TraceDir{Dir: filepath.Join(outDir, "traces")}
	}

	if opts.observeAddr != "" {
		obs := observer.NewServer(logger)
		srv, err := serveObserver(opts.observeAddr, obs)
		if err != nil {
			return fmt.Errorf("observer: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
		runner.Observer = obs
		logger.Printf("observer listening on ws://%s/observer/ws", opts.observeAddr)
	}

	rep, err := runner.Run(ctx, cfg)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Printf("interrupted after %d trials", rep.Trials)
			return nil
		}
		return fmt.Errorf("run: %w", err)
	}

	for _, s := range rep.Summaries {
		logger.Printf("%-24s %-20s tasks=%.2f completion=%.1f energy=%.1f trials=%d",
			s.Scenario, s.AgentType, s.AvgTasksCompleted, s.AvgCompletionTime, s.AvgFinalEnergy, s.NumTrials)
	}
	if idx != nil {
		if st := idx.Stats(); st.DropTrialTotal+st.DropSummaryTotal+st.DropRunTotal+st.LostTotal > 0 {
			logger.Printf("index dropped writes: %+v", st)
		}
	}
	logger.Printf("run %s: %s trials, %s ticks in %s, results in %s",
		rep.RunID, humanize.Comma(int64(rep.Trials)), humanize.Comma(int64(rep.Ticks)),
		rep.Elapsed.Round(time.Millisecond), runner.CSVPath)
	return nil
}

func filterScenarios(all []tuning.Scenario, name string) []tuning.Scenario {
	var out []tuning.Scenario
	for _, s := range all {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

func serveObserver(addr string, obs *observer.Server) (*http.Server, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/observer/bootstrap", obs.BootstrapHandler())
	mux.HandleFunc("/observer/ws", obs.WSHandler())

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	return srv, nil
}
