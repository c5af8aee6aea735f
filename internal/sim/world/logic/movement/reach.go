package movement

import "agentgrid.ai/internal/sim/model"

// Reachable returns every cell reachable from start through passable cells,
// in breadth-first discovery order. start itself is first. The visit order is
// fixed (N,S,E,W) so callers can pick from the result deterministically.
func Reachable(start model.Position, inBounds func(model.Position) bool, isSolid func(model.Position) bool) []model.Position {
	if !inBounds(start) || isSolid(start) {
		return nil
	}
	visited := make(map[model.Position]bool, 256)
	visited[start] = true
	queue := make([]model.Position, 0, 256)
	queue = append(queue, start)

	for head := 0; head < len(queue); head++ {
		p := queue[head]
		for _, d := range model.Directions {
			np := p.Add(d)
			if visited[np] {
				continue
			}
			if !inBounds(np) {
				continue
			}
			if isSolid(np) {
				continue
			}
			visited[np] = true
			queue = append(queue, np)
		}
	}
	return queue
}
