package movement

import (
	"container/heap"

	"agentgrid.ai/internal/sim/model"
)

// MaxExpansions bounds the number of frontier pops of one AStar call.
const MaxExpansions = 200

// Blocked reports cells the planner must not enter. *model.PosSet satisfies it.
type Blocked interface {
	Has(p model.Position) bool
}

// AStar plans a 4-connected path from start to goal with unit step cost and a
// Manhattan heuristic. Only blocked cells are avoided; grid bounds are not
// checked. The result is empty when start == goal, when the goal is unreachable
// or when more than MaxExpansions pops would be needed.
func AStar(start, goal model.Position, walls Blocked) []model.Action {
	return AStarLimit(start, goal, walls, MaxExpansions)
}

func AStarLimit(start, goal model.Position, walls Blocked, limit int) []model.Action {
	type link struct {
		prev model.Position
		act  model.Action
	}

	var seq uint64
	frontier := &openSet{}
	heap.Push(frontier, node{f: 0, seq: seq, pos: start})

	cameFrom := map[model.Position]link{}
	cost := map[model.Position]int{start: 0}

	pops := 0
	for frontier.Len() > 0 {
		pops++
		if pops > limit {
			return nil
		}
		cur := heap.Pop(frontier).(node).pos
		if cur == goal {
			break
		}
		// Fixed neighbor order for determinism.
		for _, d := range model.Directions {
			next := cur.Add(d)
			if walls != nil && walls.Has(next) {
				continue
			}
			g := cost[cur] + 1
			if old, ok := cost[next]; ok && g >= old {
				continue
			}
			cost[next] = g
			seq++
			heap.Push(frontier, node{f: g + next.Manhattan(goal), seq: seq, pos: next})
			cameFrom[next] = link{prev: cur, act: model.MoveAction(d)}
		}
	}

	if goal == start {
		return nil
	}
	if _, ok := cameFrom[goal]; !ok {
		return nil
	}
	var path []model.Action
	for p := goal; p != start; {
		l := cameFrom[p]
		path = append(path, l.act)
		p = l.prev
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

type node struct {
	f   int
	seq uint64
	pos model.Position
}

// openSet is a min-heap on (f, seq, pos). seq is unique so pos never decides.
type openSet []node

func (h openSet) Len() int { return len(h) }

func (h openSet) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.f != b.f {
		return a.f < b.f
	}
	if a.seq != b.seq {
		return a.seq < b.seq
	}
	if a.pos.X != b.pos.X {
		return a.pos.X < b.pos.X
	}
	return a.pos.Y < b.pos.Y
}

func (h openSet) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *openSet) Push(x any) { *h = append(*h, x.(node)) }

func (h *openSet) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}
