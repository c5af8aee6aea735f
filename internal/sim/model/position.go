package model

import "fmt"

// Position is a grid coordinate. Y grows downward (North is y-1).
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) Add(d Direction) Position {
	dx, dy := d.Delta()
	return Position{X: p.X + dx, Y: p.Y + dy}
}

func (p Position) Manhattan(o Position) int {
	return absInt(p.X-o.X) + absInt(p.Y-o.Y)
}

func (p Position) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

type Direction uint8

const (
	North Direction = iota
	South
	East
	West
)

// Directions is the canonical iteration order used by exploration and planning.
var Directions = [4]Direction{North, South, East, West}

func (d Direction) Delta() (dx, dy int) {
	switch d {
	case North:
		return 0, -1
	case South:
		return 0, 1
	case East:
		return 1, 0
	case West:
		return -1, 0
	}
	return 0, 0
}

func (d Direction) String() string {
	switch d {
	case North:
		return "NORTH"
	case South:
		return "SOUTH"
	case East:
		return "EAST"
	case West:
		return "WEST"
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

// CellType is the terrain of one grid cell. The zero value is Empty.
type CellType uint8

const (
	Empty CellType = iota
	Wall
	Goal
	Resource
	Hazard
)

func (c CellType) String() string {
	switch c {
	case Empty:
		return "EMPTY"
	case Wall:
		return "WALL"
	case Goal:
		return "GOAL"
	case Resource:
		return "RESOURCE"
	case Hazard:
		return "HAZARD"
	}
	return fmt.Sprintf("CellType(%d)", uint8(c))
}

func (c CellType) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *CellType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "EMPTY":
		*c = Empty
	case "WALL":
		*c = Wall
	case "GOAL":
		*c = Goal
	case "RESOURCE":
		*c = Resource
	case "HAZARD":
		*c = Hazard
	default:
		return fmt.Errorf("unknown cell type %q", string(b))
	}
	return nil
}
