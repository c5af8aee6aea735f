package model

type VisibleCell struct {
	Pos  Position `json:"pos"`
	Type CellType `json:"type"`
}

// Perception is the per-tick snapshot handed to an agent. Cells are in scan
// order: rows top to bottom, each row left to right.
type Perception struct {
	Position    Position      `json:"position"`
	Radius      int           `json:"radius"`
	Cells       []VisibleCell `json:"cells"`
	Energy      float64       `json:"energy"`
	HasResource bool          `json:"has_resource"`
	Messages    []string      `json:"messages"`
}

// CellAt returns the perceived type at p. ok is false when p is outside the window.
func (p Perception) CellAt(pos Position) (CellType, bool) {
	dx := pos.X - p.Position.X
	dy := pos.Y - p.Position.Y
	r := p.Radius
	if dx < -r || dx > r || dy < -r || dy > r {
		return Empty, false
	}
	side := 2*r + 1
	i := (dy+r)*side + (dx + r)
	if i < 0 || i >= len(p.Cells) {
		return Empty, false
	}
	return p.Cells[i].Type, true
}

// Current is the type of the agent's own cell.
func (p Perception) Current() CellType {
	t, _ := p.CellAt(p.Position)
	return t
}

// FirstOf returns the first visible cell of type t in scan order.
func (p Perception) FirstOf(t CellType) (Position, bool) {
	for _, c := range p.Cells {
		if c.Type == t {
			return c.Pos, true
		}
	}
	return Position{}, false
}
