package overlay

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/claude/repflow/internal/models"
)

// resolve picks the winning value of every field across the deltas that
// target (kind, id).
func resolve(kind Kind, id string, deltas []Delta) map[Field]json.RawMessage {
	winners := map[Field]Delta{}
	for _, d := range deltas {
		if d.Kind != kind || d.EntityID != id {
			continue
		}
		for f := range d.Fields {
			if cur, ok := winners[f]; !ok || d.newer(cur) {
				winners[f] = d
			}
		}
	}
	out := make(map[Field]json.RawMessage, len(winners))
	for f, d := range winners {
		out[f] = d.Fields[f]
	}
	return out
}

// MergeWorkout folds deltas over base and returns the merged copy.
func MergeWorkout(base models.Workout, deltas []Delta) (models.Workout, error) {
	w := base
	w.ExerciseIDs = append([]string(nil), base.ExerciseIDs...)
	w.Supersets = append([]models.SupersetGroup(nil), base.Supersets...)
	for f, raw := range resolve(KindWorkout, base.ID, deltas) {
		var err error
		switch f {
		case FieldStatus:
			err = json.Unmarshal(raw, &w.Status)
		case FieldCompletedDate:
			w.CompletedDate, err = decodeTime(raw)
		default:
			continue
		}
		if err != nil {
			return base, fmt.Errorf("merging workout %s field %s: %w", base.ID, f, err)
		}
	}
	return w, nil
}

// MergeInstance folds deltas over base and returns the merged copy.
func MergeInstance(base models.ExerciseInstance, deltas []Delta) (models.ExerciseInstance, error) {
	in := base
	in.SetIDs = append([]string(nil), base.SetIDs...)
	for f, raw := range resolve(KindInstance, base.ID, deltas) {
		if f != FieldStatus {
			continue
		}
		if err := json.Unmarshal(raw, &in.Status); err != nil {
			return base, fmt.Errorf("merging instance %s field %s: %w", base.ID, f, err)
		}
	}
	return in, nil
}

// MergeSet folds deltas over base and returns the merged copy.
func MergeSet(base models.ExerciseSet, deltas []Delta) (models.ExerciseSet, error) {
	s := base
	for f, raw := range resolve(KindSet, base.ID, deltas) {
		var err error
		switch f {
		case FieldCompletion:
			err = json.Unmarshal(raw, &s.Completion)
		case FieldActualWeight:
			s.ActualWeight, err = decodePtr[float64](raw)
		case FieldActualReps:
			s.ActualReps, err = decodePtr[int](raw)
		case FieldActualDuration:
			s.ActualDurationSec, err = decodePtr[int](raw)
		case FieldActualDistance:
			s.ActualDistance, err = decodePtr[float64](raw)
		case FieldRecordedDate:
			s.RecordedDate, err = decodeTime(raw)
		default:
			continue
		}
		if err != nil {
			return base, fmt.Errorf("merging set %s field %s: %w", base.ID, f, err)
		}
	}
	return s, nil
}

// MergeTree folds deltas over every entity in the tree. The input tree is
// left untouched.
func MergeTree(base models.WorkoutTree, deltas []Delta) (models.WorkoutTree, error) {
	var out models.WorkoutTree
	var err error
	if out.Workout, err = MergeWorkout(base.Workout, deltas); err != nil {
		return base, err
	}
	out.Instances = make([]models.ExerciseInstance, len(base.Instances))
	for i, in := range base.Instances {
		if out.Instances[i], err = MergeInstance(in, deltas); err != nil {
			return base, err
		}
	}
	out.Sets = make([]models.ExerciseSet, len(base.Sets))
	for i, s := range base.Sets {
		if out.Sets[i], err = MergeSet(s, deltas); err != nil {
			return base, err
		}
	}
	out.SortInstances()
	return out, nil
}

func decodePtr[T any](raw json.RawMessage) (*T, error) {
	if string(raw) == "null" {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func decodeTime(raw json.RawMessage) (*time.Time, error) {
	return decodePtr[time.Time](raw)
}
