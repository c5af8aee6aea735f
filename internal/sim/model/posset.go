package model

// PosSet is a set of positions that iterates in insertion order.
type PosSet struct {
	idx   map[Position]int
	items []Position
}

func NewPosSet() *PosSet {
	return &PosSet{idx: map[Position]int{}}
}

func (s *PosSet) Add(p Position) {
	if s.idx == nil {
		s.idx = map[Position]int{}
	}
	if _, ok := s.idx[p]; ok {
		return
	}
	s.idx[p] = len(s.items)
	s.items = append(s.items, p)
}

func (s *PosSet) Remove(p Position) {
	i, ok := s.idx[p]
	if !ok {
		return
	}
	delete(s.idx, p)
	s.items = append(s.items[:i], s.items[i+1:]...)
	for j := i; j < len(s.items); j++ {
		s.idx[s.items[j]] = j
	}
}

func (s *PosSet) Has(p Position) bool {
	if s == nil {
		return false
	}
	_, ok := s.idx[p]
	return ok
}

func (s *PosSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

func (s *PosSet) Slice() []Position {
	out := make([]Position, len(s.items))
	copy(out, s.items)
	return out
}

func (s *PosSet) Clear() {
	s.idx = map[Position]int{}
	s.items = nil
}
