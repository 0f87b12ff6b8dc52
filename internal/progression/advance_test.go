package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claude/repflow/internal/models"
)

func pending(n int) []models.Completion {
	out := make([]models.Completion, n)
	for i := range out {
		out[i] = models.CompletionPending
	}
	return out
}

func layout(sets []int, groups ...models.SupersetGroup) Layout {
	l := Layout{Groups: groups}
	for _, n := range sets {
		l.Exercises = append(l.Exercises, Exercise{Sets: pending(n)})
	}
	return l
}

// logSet marks the set at p completed, as the coordinator does before advancing.
func logSet(l Layout, p Position) {
	l.Exercises[p.ExerciseIndex].Sets[p.SetIndex] = models.CompletionCompleted
}

func TestAdvance_StandaloneSequence(t *testing.T) {
	// Two exercises with one set each.
	l := layout([]int{1, 1})
	at := Start(l)
	assert.Equal(t, Position{0, 0}, at)

	logSet(l, at)
	step := Advance(l, at, false, DefaultRules())
	assert.Equal(t, Position{ExerciseIndex: 1, SetIndex: 0}, step.Next)
	assert.False(t, step.Resting())
	assert.Equal(t, NextExercise, step.Transition)

	logSet(l, step.Next)
	step = Advance(l, step.Next, false, DefaultRules())
	assert.True(t, l.Finished(step.Next))
}

func TestAdvance_StandaloneNSets(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5} {
		l := layout([]int{n})
		at := Start(l)
		rests := 0
		for i := 0; i < n; i++ {
			require.Equal(t, Position{0, i}, at)
			logSet(l, at)
			step := Advance(l, at, false, DefaultRules())
			if step.Resting() {
				rests++
				assert.Equal(t, DefaultStandaloneRest, step.Rest)
				assert.Equal(t, NextSet, step.Transition)
			}
			assert.Equal(t, i, step.CompletedSetIndex)
			at = step.Next
		}
		assert.Equal(t, Position{ExerciseIndex: 1, SetIndex: 0}, at, "n=%d", n)
		assert.True(t, l.Finished(at))
		assert.Equal(t, n-1, rests)
	}
}

func TestAdvance_InstanceRestOverride(t *testing.T) {
	l := layout([]int{2})
	l.Exercises[0].RestSeconds = 120
	logSet(l, Position{0, 0})
	step := Advance(l, Position{0, 0}, false, DefaultRules())
	assert.Equal(t, 120, step.Rest)
}

func TestAdvance_SupersetWalkthrough(t *testing.T) {
	l := layout([]int{2, 2}, models.NewSupersetGroup(0, 0, 1))
	r := DefaultRules()

	expect := []struct {
		at   Position
		next Position
		rest int
		tr   Transition
	}{
		{Position{0, 0}, Position{1, 0}, 30, Rotate},
		{Position{1, 0}, Position{0, 1}, 30, NextRound},
		{Position{0, 1}, Position{1, 1}, 30, Rotate},
		{Position{1, 1}, Position{2, 0}, 0, ExitGroup},
	}
	at := Start(l)
	for _, e := range expect {
		require.Equal(t, e.at, at)
		logSet(l, at)
		step := Advance(l, at, false, r)
		assert.Equal(t, e.next, step.Next)
		assert.Equal(t, e.rest, step.Rest)
		assert.Equal(t, e.tr, step.Transition)
		at = step.Next
	}
	assert.True(t, l.Finished(at))
}

func TestAdvance_SupersetKTimesS(t *testing.T) {
	for _, tc := range []struct{ k, s int }{{2, 1}, {2, 3}, {3, 2}, {4, 4}} {
		sets := make([]int, tc.k+1)
		positions := make([]int, tc.k)
		for i := 0; i < tc.k; i++ {
			sets[i] = tc.s
			positions[i] = i
		}
		sets[tc.k] = 1 // trailing standalone exercise
		l := layout(sets, models.NewSupersetGroup(0, positions...))

		at := Start(l)
		calls, rests := 0, 0
		for at.ExerciseIndex < tc.k {
			logSet(l, at)
			step := Advance(l, at, false, DefaultRules())
			calls++
			if step.Resting() {
				rests++
			}
			at = step.Next
			require.LessOrEqual(t, calls, tc.k*tc.s, "k=%d s=%d", tc.k, tc.s)
		}
		assert.Equal(t, tc.k*tc.s, calls, "k=%d s=%d", tc.k, tc.s)
		assert.Equal(t, tc.k*tc.s-1, rests, "k=%d s=%d", tc.k, tc.s)
		assert.Equal(t, Position{ExerciseIndex: tc.k, SetIndex: 0}, at)
	}
}

func TestAdvance_SupersetPreCompletedSetsReduceRests(t *testing.T) {
	l := layout([]int{2, 2}, models.NewSupersetGroup(0, 0, 1))
	l.Exercises[1].Sets[0] = models.CompletionSkipped

	logSet(l, Position{0, 0})
	step := Advance(l, Position{0, 0}, false, DefaultRules())
	assert.Equal(t, Position{0, 1}, step.Next, "skipped partner set is passed over")
	assert.Equal(t, NextRound, step.Transition)
}

func TestAdvance_SupersetUnevenSets(t *testing.T) {
	l := layout([]int{3, 1}, models.NewSupersetGroup(0, 0, 1))
	at := Start(l)
	var path []Position
	for !l.Finished(at) {
		path = append(path, at)
		logSet(l, at)
		at = Advance(l, at, false, DefaultRules()).Next
	}
	assert.Equal(t, []Position{{0, 0}, {1, 0}, {0, 1}, {0, 2}}, path)
}

func TestAdvance_LastSetOfMemberKeepsRotating(t *testing.T) {
	l := layout([]int{2, 2, 1}, models.NewSupersetGroup(0, 0, 1))
	logSet(l, Position{0, 0})
	logSet(l, Position{1, 0})
	logSet(l, Position{0, 1})
	require.True(t, l.At(0).Done())

	step := Advance(l, Position{0, 1}, false, DefaultRules())
	assert.Equal(t, Rotate, step.Transition)
	assert.Equal(t, Position{1, 1}, step.Next)
	assert.Equal(t, DefaultSupersetRest, step.Rest)
	assert.Empty(t, step.SkipSets)
}

func TestAdvance_SkipExitsSuperset(t *testing.T) {
	l := layout([]int{2, 2, 1}, models.NewSupersetGroup(0, 0, 1))
	// Set 0 at position 0 is done; the user skips position 0 while on set 1.
	logSet(l, Position{0, 0})
	l.Exercises[0].Sets[1] = models.CompletionSkipped

	step := Advance(l, Position{0, 1}, true, DefaultRules())
	assert.Equal(t, ExitGroup, step.Transition)
	assert.Equal(t, Position{ExerciseIndex: 2, SetIndex: 0}, step.Next)
	assert.False(t, step.Resting())
	assert.Equal(t, []SetRef{{Position: 1, SetIndex: 1}}, step.SkipSets)
}

func TestAdvance_SkipStandalone(t *testing.T) {
	l := layout([]int{3, 2})
	l.Exercises[0].Sets = []models.Completion{models.CompletionCompleted, models.CompletionSkipped, models.CompletionSkipped}
	step := Advance(l, Position{0, 1}, true, DefaultRules())
	assert.Equal(t, Position{1, 0}, step.Next)
	assert.False(t, step.Resting())
	assert.Empty(t, step.SkipSets)
}

func TestSettle_PassesEmptyAndFinishedExercises(t *testing.T) {
	l := layout([]int{0, 2, 1})
	l.Exercises[1].Sets = []models.Completion{models.CompletionCompleted, models.CompletionSkipped}
	assert.Equal(t, Position{2, 0}, Start(l))

	assert.Equal(t, Position{ExerciseIndex: 2}, Start(layout([]int{0, 0})))
}

func TestSettle_LandsOnEarliestOpenRound(t *testing.T) {
	l := layout([]int{1, 2, 2}, models.NewSupersetGroup(0, 1, 2))
	l.Exercises[1].Sets[0] = models.CompletionCompleted
	assert.Equal(t, Position{2, 0}, Settle(l, 1))
}

func TestFromTree(t *testing.T) {
	tree := models.WorkoutTree{
		Workout: models.Workout{ID: "w", ExerciseIDs: []string{"a", "b", "c"},
			Supersets: []models.SupersetGroup{models.NewSupersetGroup(20, 1, 2)}},
		Instances: []models.ExerciseInstance{
			{ID: "w_ex2", OrderIndex: 1, SetIDs: []string{"w_ex2_s1"}},
			{ID: "w_ex1", OrderIndex: 0, SetIDs: []string{"w_ex1_s1", "w_ex1_s2"}, RestSeconds: 60},
		},
		Sets: []models.ExerciseSet{
			{ID: "w_ex1_s2", Completion: models.CompletionCompleted},
			{ID: "w_ex1_s1", Completion: models.CompletionPending},
			{ID: "w_ex2_s1", Completion: models.CompletionPending},
		},
	}
	l := FromTree(tree)
	require.Equal(t, 3, l.Len())
	assert.Equal(t, []string{"w_ex1_s1", "w_ex1_s2"}, l.At(0).SetIDs)
	assert.Equal(t, []models.Completion{models.CompletionPending, models.CompletionCompleted}, l.At(0).Sets)
	assert.Equal(t, 60, l.At(0).RestSeconds)
	assert.True(t, l.At(2).Done(), "position without an instance has no sets")

	_, grouped := l.Group(1)
	assert.True(t, grouped)
	_, grouped = l.Group(0)
	assert.False(t, grouped)

	logSet(l, Position{1, 0})
	step := Advance(l, Position{1, 0}, false, DefaultRules())
	assert.Equal(t, Position{ExerciseIndex: 3}, step.Next)
	assert.Equal(t, ExitGroup, step.Transition)
}

func TestAdvance_GroupRestOverride(t *testing.T) {
	l := layout([]int{1, 1}, models.NewSupersetGroup(45, 0, 1))
	logSet(l, Position{0, 0})
	step := Advance(l, Position{0, 0}, false, DefaultRules())
	assert.Equal(t, 45, step.Rest)
}
