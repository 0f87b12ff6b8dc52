// Package progression is the pure session state machine: given the cursor
// position and what just happened at it, Advance computes where the session
// goes next and how long to rest first. Nothing here performs I/O or
// validates input.
package progression

import "github.com/claude/repflow/internal/models"

// Position is a session cursor. Both indices are zero-based.
type Position struct {
	ExerciseIndex int `json:"exerciseIndex"`
	SetIndex      int `json:"setIndex"`
}

// Exercise is the view of one workout position the algorithm reads.
type Exercise struct {
	ExerciseID  string
	InstanceID  string
	SetIDs      []string
	Sets        []models.Completion
	RestSeconds int
}

// Pending reports whether the set at index is still open.
func (e Exercise) Pending(index int) bool {
	if index < 0 || index >= len(e.Sets) {
		return false
	}
	return e.Sets[index] == models.CompletionPending || e.Sets[index] == ""
}

// FirstPending returns the lowest pending set index at or after from.
func (e Exercise) FirstPending(from int) (int, bool) {
	for i := max(from, 0); i < len(e.Sets); i++ {
		if e.Pending(i) {
			return i, true
		}
	}
	return 0, false
}

// Done reports whether no pending set remains. An exercise with no sets is
// done from the start.
func (e Exercise) Done() bool {
	_, ok := e.FirstPending(0)
	return !ok
}

// Layout is the per-position completion state of a workout.
type Layout struct {
	Exercises []Exercise
	Groups    []models.SupersetGroup
}

// FromTree builds a Layout from a (merged) workout tree. A position with no
// matching instance gets an empty exercise.
func FromTree(t models.WorkoutTree) Layout {
	l := Layout{
		Exercises: make([]Exercise, len(t.Workout.ExerciseIDs)),
		Groups:    t.Workout.Supersets,
	}
	for pos, exID := range t.Workout.ExerciseIDs {
		ex := Exercise{ExerciseID: exID}
		if inst, ok := t.InstanceAt(pos); ok {
			ex.InstanceID = inst.ID
			ex.RestSeconds = inst.RestSeconds
			for _, s := range t.SetsOf(*inst) {
				ex.SetIDs = append(ex.SetIDs, s.ID)
				ex.Sets = append(ex.Sets, s.Completion)
			}
		}
		l.Exercises[pos] = ex
	}
	return l
}

// Len is the number of exercise positions.
func (l Layout) Len() int { return len(l.Exercises) }

// At returns the exercise at position, or an empty one when out of range.
func (l Layout) At(position int) Exercise {
	if position < 0 || position >= len(l.Exercises) {
		return Exercise{}
	}
	return l.Exercises[position]
}

// Finished reports whether p is past the last exercise.
func (l Layout) Finished(p Position) bool {
	return p.ExerciseIndex >= len(l.Exercises)
}

// Group returns the superset group containing position, if any. Groups with
// fewer than two positions behave as standalone exercises.
func (l Layout) Group(position int) (models.SupersetGroup, bool) {
	for _, g := range l.Groups {
		if len(g.Positions) > 1 && g.Contains(position) {
			return g, true
		}
	}
	return models.SupersetGroup{}, false
}

func (l Layout) pending(position, set int) bool {
	return l.At(position).Pending(set)
}
