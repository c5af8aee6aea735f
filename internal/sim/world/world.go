package world

import (
	"errors"
	"fmt"

	"agentgrid.ai/internal/sim/model"
)

const DefaultPerceptionRadius = 2

var ErrBadDimensions = errors.New("grid width and height must be > 0")

type Config struct {
	Width            int
	Height           int
	PerceptionRadius int
}

// Agent is the decision contract the world drives each tick.
type Agent interface {
	Name() string
	State() *model.AgentState
	DecideAction(p model.Perception) (model.Action, string)
	Reset()
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type TickLogEntry struct {
	Tick       uint64           `json:"tick"`
	Actions    []RecordedAction `json:"actions,omitempty"`
	Deliveries int              `json:"deliveries"`
	Digest     string           `json:"digest"`
}

type RecordedAction struct {
	AgentID   int            `json:"agent_id"`
	Action    model.Action   `json:"action"`
	Rationale string         `json:"rationale,omitempty"`
	Applied   bool           `json:"applied"`
	Pos       model.Position `json:"pos"`
	Energy    float64        `json:"energy"`
	Carrying  bool           `json:"carrying"`
}

type agentSlot struct {
	agent Agent
	pos   model.Position
}

// World is a single-threaded grid environment. Agents act one at a time in
// ascending id order and later agents see the effects of earlier ones within
// the same tick.
type World struct {
	cfg Config

	tick uint64
	grid map[model.Position]model.CellType

	// agents[i] has id i+1.
	agents []agentSlot

	deliveries       int
	deliveryTicks    []uint64
	initialResources int

	// Optional (may be nil).
	tickLogger TickLogger
}

func New(cfg Config) (*World, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("world %dx%d: %w", cfg.Width, cfg.Height, ErrBadDimensions)
	}
	if cfg.PerceptionRadius <= 0 {
		cfg.PerceptionRadius = DefaultPerceptionRadius
	}
	return &World{
		cfg:  cfg,
		grid: map[model.Position]model.CellType{},
	}, nil
}

func (w *World) Config() Config             { return w.cfg }
func (w *World) CurrentTick() uint64        { return w.tick }
func (w *World) SetTickLogger(l TickLogger) { w.tickLogger = l }

func (w *World) InBounds(p model.Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < w.cfg.Width && p.Y < w.cfg.Height
}

// Cell returns the stored type at p, Empty for unset cells. It never inserts.
func (w *World) Cell(p model.Position) model.CellType {
	return w.grid[p]
}

// Positions lists every cell of type t in row-major order.
func (w *World) Positions(t model.CellType) []model.Position {
	var out []model.Position
	for y := 0; y < w.cfg.Height; y++ {
		for x := 0; x < w.cfg.Width; x++ {
			p := model.Position{X: x, Y: y}
			if w.grid[p] == t {
				out = append(out, p)
			}
		}
	}
	return out
}

func (w *World) setCell(p model.Position, t model.CellType) {
	if t == model.Empty {
		delete(w.grid, p)
		return
	}
	w.grid[p] = t
}

func (w *World) place(positions []model.Position, t model.CellType) {
	for _, p := range positions {
		if !w.InBounds(p) {
			continue
		}
		w.setCell(p, t)
	}
}

func (w *World) AddWalls(positions []model.Position)   { w.place(positions, model.Wall) }
func (w *World) AddGoals(positions []model.Position)   { w.place(positions, model.Goal) }
func (w *World) AddHazards(positions []model.Position) { w.place(positions, model.Hazard) }

// AddResources places resources and records len(positions) as the initial
// resource count, replacing any earlier value.
func (w *World) AddResources(positions []model.Position) {
	w.place(positions, model.Resource)
	w.initialResources = len(positions)
}

func (w *World) occupied(p model.Position) bool {
	for _, s := range w.agents {
		if s.pos == p {
			return true
		}
	}
	return false
}

func (w *World) free(p model.Position) bool {
	return w.InBounds(p) && w.grid[p] != model.Wall && !w.occupied(p)
}

// AddAgent registers a at pos and assigns it the next id. It reports false and
// leaves the registry unchanged when pos is out of bounds, a wall or occupied.
func (w *World) AddAgent(a Agent, pos model.Position) bool {
	if a == nil || !w.free(pos) {
		return false
	}
	a.State().ID = len(w.agents) + 1
	w.agents = append(w.agents, agentSlot{agent: a, pos: pos})
	return true
}

func (w *World) slot(id int) *agentSlot {
	if id < 1 || id > len(w.agents) {
		return nil
	}
	return &w.agents[id-1]
}

// AgentIDs returns every registered id in ascending order.
func (w *World) AgentIDs() []int {
	out := make([]int, len(w.agents))
	for i := range w.agents {
		out[i] = i + 1
	}
	return out
}

func (w *World) AgentPos(id int) (model.Position, bool) {
	s := w.slot(id)
	if s == nil {
		return model.Position{}, false
	}
	return s.pos, true
}

func (w *World) Agent(id int) (Agent, bool) {
	s := w.slot(id)
	if s == nil {
		return nil, false
	}
	return s.agent, true
}

// AllFrozen reports whether no registered agent has energy left.
func (w *World) AllFrozen() bool {
	for _, s := range w.agents {
		if s.agent.State().Energy > 0 {
			return false
		}
	}
	return true
}
