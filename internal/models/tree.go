package models

import "sort"

// WorkoutTree is a workout with its instances and sets, the unit pushed to
// the remote store by saveFullWorkout.
type WorkoutTree struct {
	Workout   Workout            `json:"workout"`
	Instances []ExerciseInstance `json:"instances"`
	Sets      []ExerciseSet      `json:"sets"`
}

// SortInstances orders instances by their position in the workout.
func (t *WorkoutTree) SortInstances() {
	sort.SliceStable(t.Instances, func(i, j int) bool {
		return t.Instances[i].OrderIndex < t.Instances[j].OrderIndex
	})
}

// InstanceAt returns the instance at the given workout position.
func (t *WorkoutTree) InstanceAt(position int) (*ExerciseInstance, bool) {
	for i := range t.Instances {
		if t.Instances[i].OrderIndex == position {
			return &t.Instances[i], true
		}
	}
	return nil, false
}

// Instance returns the instance with the given id.
func (t *WorkoutTree) Instance(id string) (*ExerciseInstance, bool) {
	for i := range t.Instances {
		if t.Instances[i].ID == id {
			return &t.Instances[i], true
		}
	}
	return nil, false
}

// Set returns the set with the given id.
func (t *WorkoutTree) Set(id string) (*ExerciseSet, bool) {
	for i := range t.Sets {
		if t.Sets[i].ID == id {
			return &t.Sets[i], true
		}
	}
	return nil, false
}

// SetsOf returns pointers to an instance's sets in SetIDs order. Ids with no
// matching set are dropped.
func (t *WorkoutTree) SetsOf(inst ExerciseInstance) []*ExerciseSet {
	out := make([]*ExerciseSet, 0, len(inst.SetIDs))
	for _, id := range inst.SetIDs {
		if s, ok := t.Set(id); ok {
			out = append(out, s)
		}
	}
	return out
}

// AnyCompleted reports whether at least one set in the tree was performed.
func (t *WorkoutTree) AnyCompleted() bool {
	for _, s := range t.Sets {
		if s.Completion == CompletionCompleted {
			return true
		}
	}
	return false
}

// EntityIDs returns the workout id followed by every instance and set id.
func (t *WorkoutTree) EntityIDs() []string {
	ids := make([]string, 0, 1+len(t.Instances)+len(t.Sets))
	ids = append(ids, t.Workout.ID)
	for _, in := range t.Instances {
		ids = append(ids, in.ID)
	}
	for _, s := range t.Sets {
		ids = append(ids, s.ID)
	}
	return ids
}

// Clone returns a copy of t that shares no slices with it. Pointer fields are
// shared; the engine only ever replaces them, never writes through them.
func (t WorkoutTree) Clone() WorkoutTree {
	out := WorkoutTree{Workout: t.Workout}
	out.Workout.ExerciseIDs = append([]string(nil), t.Workout.ExerciseIDs...)
	out.Workout.Supersets = append([]SupersetGroup(nil), t.Workout.Supersets...)
	out.Instances = make([]ExerciseInstance, len(t.Instances))
	for i, in := range t.Instances {
		in.SetIDs = append([]string(nil), in.SetIDs...)
		out.Instances[i] = in
	}
	out.Sets = append([]ExerciseSet(nil), t.Sets...)
	return out
}
