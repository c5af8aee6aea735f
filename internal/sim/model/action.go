package model

import "fmt"

type Action uint8

const (
	MoveNorth Action = iota
	MoveSouth
	MoveEast
	MoveWest
	Pickup
	Drop
	Wait
)

var actionNames = [...]string{
	MoveNorth: "MOVE_NORTH",
	MoveSouth: "MOVE_SOUTH",
	MoveEast:  "MOVE_EAST",
	MoveWest:  "MOVE_WEST",
	Pickup:    "PICKUP",
	Drop:      "DROP",
	Wait:      "WAIT",
}

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return fmt.Sprintf("Action(%d)", uint8(a))
}

func ParseAction(s string) (Action, error) {
	for i, name := range actionNames {
		if name == s {
			return Action(i), nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

func (a Action) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Action) UnmarshalText(b []byte) error {
	v, err := ParseAction(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// MoveAction maps a direction to its move action.
func MoveAction(d Direction) Action {
	switch d {
	case North:
		return MoveNorth
	case South:
		return MoveSouth
	case East:
		return MoveEast
	default:
		return MoveWest
	}
}

// Direction reports the direction of a move action; ok is false for Pickup, Drop and Wait.
func (a Action) Direction() (d Direction, ok bool) {
	switch a {
	case MoveNorth:
		return North, true
	case MoveSouth:
		return South, true
	case MoveEast:
		return East, true
	case MoveWest:
		return West, true
	}
	return 0, false
}

func (a Action) IsMove() bool {
	_, ok := a.Direction()
	return ok
}

// PlanStep is one queued action of a goal-based plan.
type PlanStep struct {
	Action Action
}
