package indexdb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"agentgrid.ai/internal/sim/experiment"
	"agentgrid.ai/internal/sim/tuning"
)

// SQLiteIndex stores runs, per-trial results and summaries. Writes go through
// a buffered channel drained by a single writer goroutine so the sweep never
// waits on disk.
type SQLiteIndex struct {
	db *sqlx.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropRun     atomic.Uint64
	dropTrial   atomic.Uint64
	dropSummary atomic.Uint64
	lost        atomic.Uint64
}

type reqKind int

const (
	reqRun reqKind = iota + 1
	reqTrial
	reqSummary
	reqFlush
)

type req struct {
	kind reqKind

	run     RunRow
	trial   TrialRow
	summary SummaryRow
	done    chan struct{}
}

type RunRow struct {
	RunID      string `db:"run_id"`
	Seed       int64  `db:"seed"`
	Scenarios  int    `db:"scenarios"`
	ConfigJSON string `db:"config_json"`
	StartedAt  string `db:"started_at"`
}

type TrialRow struct {
	RunID            string  `db:"run_id"`
	Scenario         string  `db:"scenario"`
	AgentType        string  `db:"agent_type"`
	Trial            int     `db:"trial"`
	Seed             int64   `db:"seed"`
	Ticks            int64   `db:"ticks"`
	Deliveries       int     `db:"deliveries"`
	MeanEnergy       float64 `db:"mean_energy"`
	LastDeliveryTick float64 `db:"last_delivery_tick"`
	InitialResources int     `db:"initial_resources"`
	Digest           string  `db:"digest"`
	RulesJSON        string  `db:"rules_json"`
}

type SummaryRow struct {
	RunID string `db:"run_id"`
	experiment.Summary
}

type Stats struct {
	QueueDepth       int
	QueueCapacity    int
	DropRunTotal     uint64
	DropTrialTotal   uint64
	DropSummaryTotal uint64
	// LostTotal counts dequeued writes that failed to execute.
	LostTotal uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s := &SQLiteIndex{db: db, ch: make(chan req, 4096)}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sqlx.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		scenarios INTEGER NOT NULL,
		config_json TEXT NOT NULL,
		started_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS trials (
		run_id TEXT NOT NULL,
		scenario TEXT NOT NULL,
		agent_type TEXT NOT NULL,
		trial INTEGER NOT NULL,
		seed INTEGER NOT NULL,
		ticks INTEGER NOT NULL,
		deliveries INTEGER NOT NULL,
		mean_energy REAL NOT NULL,
		last_delivery_tick REAL NOT NULL,
		initial_resources INTEGER NOT NULL,
		digest TEXT NOT NULL,
		rules_json TEXT NOT NULL,
		PRIMARY KEY (run_id, scenario, agent_type, trial)
	);

	CREATE TABLE IF NOT EXISTS summaries (
		run_id TEXT NOT NULL,
		scenario TEXT NOT NULL,
		agent_type TEXT NOT NULL,
		avg_tasks_completed REAL NOT NULL,
		avg_completion_time REAL NOT NULL,
		num_trials INTEGER NOT NULL,
		avg_final_energy REAL NOT NULL,
		PRIMARY KEY (run_id, scenario, agent_type)
	);

	CREATE INDEX IF NOT EXISTS idx_trials_agent ON trials(agent_type, scenario);
	`
	_, err := db.Exec(schema)
	return err
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:       len(s.ch),
		QueueCapacity:    cap(s.ch),
		DropRunTotal:     s.dropRun.Load(),
		DropTrialTotal:   s.dropTrial.Load(),
		DropSummaryTotal: s.dropSummary.Load(),
		LostTotal:        s.lost.Load(),
	}
}

func (s *SQLiteIndex) enqueue(r req, drops *atomic.Uint64) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		// The CSV and trace files still carry the data.
		drops.Add(1)
	}
}

func (s *SQLiteIndex) RecordRun(runID string, cfg tuning.Experiment) {
	b, _ := json.Marshal(cfg)
	s.enqueue(req{kind: reqRun, run: RunRow{
		RunID:      runID,
		Seed:       cfg.Seed,
		Scenarios:  len(cfg.Scenarios),
		ConfigJSON: string(b),
		StartedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}}, &s.dropRun)
}

func (s *SQLiteIndex) RecordTrial(r experiment.TrialResult) {
	rules, _ := json.Marshal(r.Rules)
	s.enqueue(req{kind: reqTrial, trial: TrialRow{
		RunID:            r.Spec.RunID,
		Scenario:         r.Spec.Scenario.Name,
		AgentType:        string(r.Spec.AgentType),
		Trial:            r.Spec.Trial,
		Seed:             r.Spec.Seed,
		Ticks:            int64(r.Metrics.Tick),
		Deliveries:       r.Metrics.Deliveries,
		MeanEnergy:       r.Metrics.MeanEnergy,
		LastDeliveryTick: r.Metrics.LastDeliveryTick,
		InitialResources: r.Metrics.InitialResources,
		Digest:           r.Digest,
		RulesJSON:        string(rules),
	}}, &s.dropTrial)
}

func (s *SQLiteIndex) RecordSummary(runID string, sum experiment.Summary) {
	s.enqueue(req{kind: reqSummary, summary: SummaryRow{RunID: runID, Summary: sum}}, &s.dropSummary)
}

// Flush blocks until everything queued so far is committed.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqFlush, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLiteIndex) Runs(ctx context.Context) ([]RunRow, error) {
	var out []RunRow
	err := s.db.SelectContext(ctx, &out, `SELECT run_id,seed,scenarios,config_json,started_at FROM runs ORDER BY started_at`)
	return out, err
}

func (s *SQLiteIndex) Trials(ctx context.Context, runID string) ([]TrialRow, error) {
	var out []TrialRow
	err := s.db.SelectContext(ctx, &out, `SELECT * FROM trials WHERE run_id=? ORDER BY scenario, agent_type, trial`, runID)
	return out, err
}

func (s *SQLiteIndex) Summaries(ctx context.Context, runID string) ([]experiment.Summary, error) {
	var out []experiment.Summary
	err := s.db.SelectContext(ctx, &out, `SELECT scenario,agent_type,avg_tasks_completed,avg_completion_time,num_trials,avg_final_energy
		FROM summaries WHERE run_id=? ORDER BY rowid`, runID)
	return out, err
}

const (
	insertRun = `INSERT OR REPLACE INTO runs(run_id,seed,scenarios,config_json,started_at)
		VALUES(:run_id,:seed,:scenarios,:config_json,:started_at)`
	insertTrial = `INSERT OR REPLACE INTO trials(run_id,scenario,agent_type,trial,seed,ticks,deliveries,mean_energy,last_delivery_tick,initial_resources,digest,rules_json)
		VALUES(:run_id,:scenario,:agent_type,:trial,:seed,:ticks,:deliveries,:mean_energy,:last_delivery_tick,:initial_resources,:digest,:rules_json)`
	insertSummary = `INSERT OR REPLACE INTO summaries(run_id,scenario,agent_type,avg_tasks_completed,avg_completion_time,num_trials,avg_final_energy)
		VALUES(:run_id,:scenario,:agent_type,:avg_tasks_completed,:avg_completion_time,:num_trials,:avg_final_energy)`
)

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	var (
		tx            *sqlx.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	// exec runs one write inside a savepoint so a failure only undoes that
	// write and keeps the rest of the batch.
	exec := func(query string, arg any) error {
		if _, err := tx.Exec(`SAVEPOINT op`); err != nil {
			return err
		}
		if _, err := tx.NamedExec(query, arg); err != nil {
			_, _ = tx.Exec(`ROLLBACK TO SAVEPOINT op`)
			_, _ = tx.Exec(`RELEASE SAVEPOINT op`)
			return err
		}
		_, err := tx.Exec(`RELEASE SAVEPOINT op`)
		return err
	}

	for r := range s.ch {
		if r.kind == reqFlush {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			s.lost.Add(1)
			continue
		}
		var err error
		switch r.kind {
		case reqRun:
			err = exec(insertRun, r.run)
		case reqTrial:
			err = exec(insertTrial, r.trial)
		case reqSummary:
			err = exec(insertSummary, r.summary)
		}
		if err != nil {
			s.lost.Add(1)
			continue
		}
		opCount++
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}
