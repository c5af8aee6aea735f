package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	persistlog "agentgrid.ai/internal/persistence/log"
	"agentgrid.ai/internal/sim/experiment"
	"agentgrid.ai/internal/sim/world"
)

func main() {
	var (
		tracePath = flag.String("trace", "", "path to one .jsonl.zst trial trace")
		traceDir  = flag.String("dir", "", "verify every trace under this directory")
		toTick    = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
	)
	flag.Parse()

	var files []string
	switch {
	case *tracePath != "":
		files = []string{*tracePath}
	case *traceDir != "":
		var err error
		files, err = listTraces(*traceDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "list traces:", err)
			os.Exit(1)
		}
		if len(files) == 0 {
			fmt.Fprintln(os.Stderr, "no traces found in", *traceDir)
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "missing -trace or -dir")
		os.Exit(2)
	}

	var total uint64
	for _, path := range files {
		n, err := replayFile(path, *toTick)
		if err != nil {
			fmt.Fprintf(os.Stderr, "replay %s: %v\n", path, err)
			os.Exit(1)
		}
		total += n
	}
	fmt.Printf("replay ok: checked=%d ticks in %d traces\n", total, len(files))
}

func listTraces(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".jsonl.zst") {
			out = append(out, path)
		}
		return nil
	})
	sort.Strings(out)
	return out, err
}

var errStop = errors.New("stop")

func replayFile(path string, toTick uint64) (uint64, error) {
	var (
		spec experiment.TrialSpec
		r    *experiment.Replayer
	)
	err := persistlog.ReadTrace(path, &spec, func(e world.TickLogEntry) error {
		if r == nil {
			var err error
			r, err = experiment.NewReplayer(spec)
			if err != nil {
				return err
			}
			fmt.Printf("trial run=%s scenario=%s agent_type=%s trial=%d seed=%d\n",
				spec.RunID, spec.Scenario.Name, spec.AgentType, spec.Trial, spec.Seed)
		}
		if toTick != 0 && e.Tick > toTick {
			return errStop
		}
		return r.Check(e)
	})
	if err != nil && !errors.Is(err, errStop) {
		return 0, err
	}
	if r == nil {
		return 0, nil
	}
	return r.Checked(), nil
}
