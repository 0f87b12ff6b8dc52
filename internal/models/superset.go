package models

import "sort"

// SupersetGroup is a set of exercise positions that rotate set-by-set.
// Positions index into Workout.ExerciseIDs and are kept in ascending order.
type SupersetGroup struct {
	Positions   []int `json:"positions"`
	RestSeconds int   `json:"restSeconds,omitempty"`
}

// NewSupersetGroup returns a group over the given positions, sorted and deduplicated.
func NewSupersetGroup(restSeconds int, positions ...int) SupersetGroup {
	ps := append([]int(nil), positions...)
	sort.Ints(ps)
	out := ps[:0]
	for i, p := range ps {
		if i > 0 && p == ps[i-1] {
			continue
		}
		out = append(out, p)
	}
	return SupersetGroup{Positions: out, RestSeconds: restSeconds}
}

// Contains reports whether position belongs to the group.
func (g SupersetGroup) Contains(position int) bool {
	return g.indexOf(position) >= 0
}

// First returns the group's first position.
func (g SupersetGroup) First() int {
	if len(g.Positions) == 0 {
		return -1
	}
	return g.Positions[0]
}

// Last returns the group's highest position.
func (g SupersetGroup) Last() int {
	if len(g.Positions) == 0 {
		return -1
	}
	return g.Positions[len(g.Positions)-1]
}

// Next returns the position following after. With wrap set, the last
// position is followed by the first; otherwise ok is false past the end.
func (g SupersetGroup) Next(after int, wrap bool) (int, bool) {
	i := g.indexOf(after)
	if i < 0 {
		return 0, false
	}
	if i+1 < len(g.Positions) {
		return g.Positions[i+1], true
	}
	if wrap {
		return g.Positions[0], true
	}
	return 0, false
}

// CycleComplete reports whether moving to next closes a horizontal pass.
func (g SupersetGroup) CycleComplete(next int) bool {
	return next == g.First()
}

func (g SupersetGroup) indexOf(position int) int {
	for i, p := range g.Positions {
		if p == position {
			return i
		}
	}
	return -1
}
