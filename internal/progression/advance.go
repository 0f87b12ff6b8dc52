package progression

import "github.com/claude/repflow/internal/models"

// Default rest durations, in seconds.
const (
	DefaultStandaloneRest = 90
	DefaultSupersetRest   = 30
)

// Rules carries the configurable rest durations. A non-zero
// ExerciseInstance.RestSeconds overrides StandaloneRest and a non-zero
// SupersetGroup.RestSeconds overrides SupersetRest.
type Rules struct {
	StandaloneRest int
	SupersetRest   int
}

// DefaultRules returns the stock rest durations.
func DefaultRules() Rules {
	return Rules{StandaloneRest: DefaultStandaloneRest, SupersetRest: DefaultSupersetRest}
}

// Transition classifies the move Advance made.
type Transition string

const (
	// NextSet stays on a standalone exercise and moves to its next set.
	NextSet Transition = "nextSet"
	// NextExercise leaves a finished standalone exercise.
	NextExercise Transition = "nextExercise"
	// Rotate moves horizontally to another position of a superset.
	Rotate Transition = "rotate"
	// NextRound starts the next set index of a superset after a full cycle.
	NextRound Transition = "nextRound"
	// ExitGroup leaves a superset, either exhausted or bailed out by a skip.
	ExitGroup Transition = "exitGroup"
)

// SetRef addresses one set by workout position and set index.
type SetRef struct {
	Position int
	SetIndex int
}

// Step is the outcome of Advance.
type Step struct {
	Next              Position
	Rest              int
	CompletedSetIndex int
	Transition        Transition
	// SkipSets lists partner sets a skip-triggered group exit abandons. The
	// caller stamps them skipped.
	SkipSets []SetRef
}

// Resting reports whether the step schedules a rest.
func (s Step) Resting() bool { return s.Rest > 0 }

// Advance computes the next cursor after the set at at.SetIndex was logged
// or, with skipped, after the exercise at at.ExerciseIndex was skipped. A
// logged set never passes skipped, even when it was the exercise's last:
// inside a superset a skip abandons the group while a final log keeps
// rotating through the partners. The layout must already reflect the
// logged or skipped sets.
//
// A Next position past the last exercise means the workout is over; acting
// on that is left to the caller.
func Advance(l Layout, at Position, skipped bool, r Rules) Step {
	if g, ok := l.Group(at.ExerciseIndex); ok {
		return advanceGroup(l, g, at, skipped, r)
	}

	step := Step{CompletedSetIndex: at.SetIndex}
	ex := l.At(at.ExerciseIndex)
	if !skipped {
		next, ok := ex.FirstPending(at.SetIndex + 1)
		if !ok {
			next, ok = ex.FirstPending(0)
		}
		if ok {
			step.Next = Position{ExerciseIndex: at.ExerciseIndex, SetIndex: next}
			step.Rest = restOr(ex.RestSeconds, r.StandaloneRest)
			step.Transition = NextSet
			return step
		}
	}
	step.Next = Settle(l, at.ExerciseIndex+1)
	step.Transition = NextExercise
	return step
}

// advanceGroup rotates through a superset: set S of every position before
// set S+1 of any.
func advanceGroup(l Layout, g models.SupersetGroup, at Position, skipped bool, r Rules) Step {
	step := Step{CompletedSetIndex: at.SetIndex}
	p, s := at.ExerciseIndex, at.SetIndex

	exit := func() Step {
		step.Next = Settle(l, g.Last()+1)
		step.Transition = ExitGroup
		return step
	}

	if skipped {
		for _, pos := range g.Positions {
			if pos != p && l.pending(pos, s) {
				step.SkipSets = append(step.SkipSets, SetRef{Position: pos, SetIndex: s})
			}
		}
		return exit()
	}

	rest := restOr(g.RestSeconds, r.SupersetRest)
	if next, _ := g.Next(p, true); !g.CycleComplete(next) {
		if pos, ok := searchFrom(l, g, next, s); ok {
			step.Next = Position{ExerciseIndex: pos, SetIndex: s}
			step.Rest = rest
			step.Transition = Rotate
			return step
		}
	}

	if set, pos, ok := nextRound(l, g, s); ok {
		step.Next = Position{ExerciseIndex: pos, SetIndex: set}
		step.Rest = rest
		step.Transition = NextRound
		return step
	}
	return exit()
}

// searchFrom walks the group from start, wrapping at most once, for the first
// position with a pending set at index s.
func searchFrom(l Layout, g models.SupersetGroup, start, s int) (int, bool) {
	pos := start
	for range g.Positions {
		if l.pending(pos, s) {
			return pos, true
		}
		pos, _ = g.Next(pos, true)
	}
	return 0, false
}

// nextRound finds the lowest set index above s with a pending set anywhere in
// the group, and the first position holding one.
func nextRound(l Layout, g models.SupersetGroup, s int) (set, pos int, ok bool) {
	deepest := 0
	for _, p := range g.Positions {
		deepest = max(deepest, len(l.At(p).Sets))
	}
	for set = s + 1; set < deepest; set++ {
		for _, p := range g.Positions {
			if l.pending(p, set) {
				return set, p, true
			}
		}
	}
	return 0, 0, false
}

// Settle returns the first actionable cursor at or after exercise index
// from. Exercises with no pending sets, including those with zero sets, are
// passed over; landing inside a superset picks its earliest open round.
func Settle(l Layout, from int) Position {
	for e := max(from, 0); e < l.Len(); {
		if g, ok := l.Group(e); ok {
			if set, pos, ok := nextRound(l, g, -1); ok {
				return Position{ExerciseIndex: pos, SetIndex: set}
			}
			e = max(g.Last(), e) + 1
			continue
		}
		if set, ok := l.At(e).FirstPending(0); ok {
			return Position{ExerciseIndex: e, SetIndex: set}
		}
		e++
	}
	return Position{ExerciseIndex: l.Len()}
}

// Start is the cursor a fresh session begins at.
func Start(l Layout) Position {
	return Settle(l, 0)
}

func restOr(override, fallback int) int {
	if override > 0 {
		return override
	}
	return fallback
}
