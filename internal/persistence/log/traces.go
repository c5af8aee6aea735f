package log

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"agentgrid.ai/internal/sim/experiment"
	"agentgrid.ai/internal/sim/world"
)

// TraceWriter writes a trial trace: a header line followed by one line per tick.
type TraceWriter struct{ w *JSONLZstdWriter }

func CreateTrace(path string, header any) (*TraceWriter, error) {
	w, err := CreateJSONLZstd(path)
	if err != nil {
		return nil, err
	}
	if err := w.Write(header); err != nil {
		_ = w.Close()
		return nil, err
	}
	return &TraceWriter{w: w}, nil
}

func (t *TraceWriter) WriteTick(e world.TickLogEntry) error { return t.w.Write(e) }
func (t *TraceWriter) Close() error                         { return t.w.Close() }

// TraceDir lays traces out as <dir>/<run>/<scenario>/<agent type>-<trial>.jsonl.zst.
type TraceDir struct {
	Dir string
}

func (d TraceDir) Path(spec experiment.TrialSpec) string {
	return filepath.Join(d.Dir, spec.RunID, spec.Scenario.Name,
		fmt.Sprintf("%s-%03d.jsonl.zst", spec.AgentType, spec.Trial))
}

func (d TraceDir) OpenTrace(spec experiment.TrialSpec) (experiment.TraceWriter, error) {
	return CreateTrace(d.Path(spec), spec)
}

var ErrNoHeader = errors.New("trace has no header line")

// ReadTrace decodes the header line into header and hands every following
// tick entry to fn in file order.
func ReadTrace(path string, header any, fn func(world.TickLogEntry) error) error {
	first := true
	err := ScanJSONLZstd(path, func(line []byte) error {
		if first {
			first = false
			if err := json.Unmarshal(line, header); err != nil {
				return fmt.Errorf("header: %w", err)
			}
			return nil
		}
		var e world.TickLogEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("tick line: %w", err)
		}
		return fn(e)
	})
	if err != nil {
		return err
	}
	if first {
		return ErrNoHeader
	}
	return nil
}
