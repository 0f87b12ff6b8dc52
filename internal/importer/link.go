package importer

import (
	"slices"

	"github.com/claude/repflow/internal/models"
	"github.com/google/uuid"
)

// linkTree fills the back references a hand-written dataset tends to omit:
// missing set ids, instance set lists, and the workout's exercise order.
// Explicit lists are kept as given.
func linkTree(t *models.WorkoutTree) {
	for i := range t.Instances {
		if t.Instances[i].WorkoutID == "" {
			t.Instances[i].WorkoutID = t.Workout.ID
		}
	}
	t.SortInstances()

	for i := range t.Sets {
		if t.Sets[i].ID == "" {
			t.Sets[i].ID = uuid.Must(uuid.NewV7()).String()
		}
	}
	slices.SortStableFunc(t.Sets, func(a, b models.ExerciseSet) int {
		return a.SetNumber - b.SetNumber
	})

	for i := range t.Instances {
		in := &t.Instances[i]
		if len(in.SetIDs) > 0 {
			continue
		}
		for _, s := range t.Sets {
			if s.InstanceID == in.ID {
				in.SetIDs = append(in.SetIDs, s.ID)
			}
		}
	}

	if len(t.Workout.ExerciseIDs) == 0 {
		for _, in := range t.Instances {
			t.Workout.ExerciseIDs = append(t.Workout.ExerciseIDs, in.ExerciseID)
		}
	}
}
