package model

import "sort"

const InitialEnergy = 100.0

// AgentState is the runtime record every policy carries. Energy is owned by the
// environment; History only contains successful Pickup and Drop actions.
type AgentState struct {
	ID     int
	Name   string
	Energy float64

	history []Action
	pickups int
	drops   int

	rules map[string]int
}

func NewAgentState(name string) AgentState {
	return AgentState{Name: name, Energy: InitialEnergy}
}

func (s *AgentState) Record(a Action) {
	switch a {
	case Pickup:
		s.pickups++
	case Drop:
		s.drops++
	}
	s.history = append(s.history, a)
}

func (s *AgentState) History() []Action {
	out := make([]Action, len(s.history))
	copy(out, s.history)
	return out
}

func (s *AgentState) LastAction() (Action, bool) {
	if len(s.history) == 0 {
		return 0, false
	}
	return s.history[len(s.history)-1], true
}

// Carrying reports whether successful pickups outnumber drops.
func (s *AgentState) Carrying() bool { return s.pickups > s.drops }

func (s *AgentState) CountRule(name string) {
	if s.rules == nil {
		s.rules = map[string]int{}
	}
	s.rules[name]++
}

type RuleCount struct {
	Rule  string `json:"rule"`
	Count int    `json:"count"`
}

// RuleActivations returns the counters sorted by rule name.
func (s *AgentState) RuleActivations() []RuleCount {
	out := make([]RuleCount, 0, len(s.rules))
	for k, v := range s.rules {
		out = append(out, RuleCount{Rule: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rule < out[j].Rule })
	return out
}

// Reset restores a fresh run state. The id assigned by the environment is kept.
func (s *AgentState) Reset() {
	s.Energy = InitialEnergy
	s.history = nil
	s.pickups = 0
	s.drops = 0
	s.rules = nil
}
