package models

import "time"

// Status is the lifecycle vocabulary shared by workouts and exercise instances.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "inProgress"
	StatusCompleted  Status = "completed"
	StatusSkipped    Status = "skipped"
)

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusSkipped:
		return true
	}
	return false
}

// Finished reports whether s is terminal (completed or skipped).
func (s Status) Finished() bool {
	return s == StatusCompleted || s == StatusSkipped
}

// Completion is the per-set outcome.
type Completion string

const (
	CompletionPending   Completion = "pending"
	CompletionCompleted Completion = "completed"
	CompletionSkipped   Completion = "skipped"
)

// Workout is an ordered list of exercises owned by a Program. It is built
// upstream; the engine only moves its status.
type Workout struct {
	ID            string          `json:"id"`
	ProgramID     string          `json:"programId,omitempty"`
	Name          string          `json:"name,omitempty"`
	ScheduledDate *time.Time      `json:"scheduledDate,omitempty"`
	ExerciseIDs   []string        `json:"exerciseIds"`
	Supersets     []SupersetGroup `json:"supersetGroups,omitempty"`
	Status        Status          `json:"status"`
	CompletedDate *time.Time      `json:"completedDate,omitempty"`
}

// GroupFor returns the superset group containing position, if any.
func (w Workout) GroupFor(position int) (SupersetGroup, bool) {
	for _, g := range w.Supersets {
		if g.Contains(position) {
			return g, true
		}
	}
	return SupersetGroup{}, false
}

// ExerciseInstance is one exercise's occurrence within a workout.
type ExerciseInstance struct {
	ID          string   `json:"id"`
	WorkoutID   string   `json:"workoutId"`
	ExerciseID  string   `json:"exerciseId"`
	OrderIndex  int      `json:"orderIndex"`
	SetIDs      []string `json:"setIds"`
	Status      Status   `json:"status"`
	RestSeconds int      `json:"restSeconds,omitempty"`
}

// ExerciseSet is the atomic unit of work. Targets are prescribed upstream;
// actuals are recorded by the engine.
type ExerciseSet struct {
	ID                string     `json:"id"`
	InstanceID        string     `json:"exerciseInstanceId"`
	SetNumber         int        `json:"setNumber"`
	TargetWeight      *float64   `json:"targetWeight,omitempty"`
	TargetReps        *int       `json:"targetReps,omitempty"`
	TargetDurationSec *int       `json:"targetDuration,omitempty"`
	TargetDistance    *float64   `json:"targetDistance,omitempty"`
	ActualWeight      *float64   `json:"actualWeight,omitempty"`
	ActualReps        *int       `json:"actualReps,omitempty"`
	ActualDurationSec *int       `json:"actualDuration,omitempty"`
	ActualDistance    *float64   `json:"actualDistance,omitempty"`
	Completion        Completion `json:"completion"`
	RecordedDate      *time.Time `json:"recordedDate,omitempty"`
}

// IsCardio reports whether the set is prescribed by duration or distance
// rather than weight and reps.
func (s ExerciseSet) IsCardio() bool {
	return s.TargetDurationSec != nil || (s.TargetDistance != nil && s.TargetReps == nil)
}

// Pending reports whether the set still awaits a log or skip.
func (s ExerciseSet) Pending() bool {
	return s.Completion == CompletionPending || s.Completion == ""
}

// ClearActuals drops every recorded value.
func (s *ExerciseSet) ClearActuals() {
	s.ActualWeight = nil
	s.ActualReps = nil
	s.ActualDurationSec = nil
	s.ActualDistance = nil
	s.RecordedDate = nil
}
