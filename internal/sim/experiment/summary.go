package experiment

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// Summary aggregates the trials of one (scenario, agent type) pair.
type Summary struct {
	Scenario          string  `json:"config_name" db:"scenario"`
	AgentType         string  `json:"agent_type" db:"agent_type"`
	AvgTasksCompleted float64 `json:"avg_tasks_completed" db:"avg_tasks_completed"`
	AvgCompletionTime float64 `json:"avg_completion_time" db:"avg_completion_time"`
	NumTrials         int     `json:"num_trials" db:"num_trials"`
	AvgFinalEnergy    float64 `json:"avg_final_energy" db:"avg_final_energy"`
}

// Summarize averages deliveries and final energy over all trials. The
// completion time only averages trials that delivered at least once, and is 0
// when none did.
func Summarize(scenario, agentType string, trials []TrialResult) Summary {
	s := Summary{Scenario: scenario, AgentType: agentType, NumTrials: len(trials)}
	if len(trials) == 0 {
		return s
	}
	var tasks, energy, done float64
	var completed int
	for _, r := range trials {
		tasks += float64(r.Metrics.Deliveries)
		energy += r.Metrics.MeanEnergy
		if r.Metrics.LastDeliveryTick > 0 {
			done += r.Metrics.LastDeliveryTick
			completed++
		}
	}
	n := float64(len(trials))
	s.AvgTasksCompleted = tasks / n
	s.AvgFinalEnergy = energy / n
	if completed > 0 {
		s.AvgCompletionTime = done / float64(completed)
	}
	return s
}

var csvHeader = []string{"config_name", "agent_type", "avg_tasks_completed", "avg_completion_time", "num_trials", "avg_final_energy"}

func WriteCSV(w io.Writer, summaries []Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, s := range summaries {
		rec := []string{
			s.Scenario,
			s.AgentType,
			formatFloat(s.AvgTasksCompleted),
			formatFloat(s.AvgCompletionTime),
			strconv.Itoa(s.NumTrials),
			formatFloat(s.AvgFinalEnergy),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteCSVFile(path string, summaries []Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, summaries); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
