package models

import "time"

// WorkoutSnapshot is the body of a saveFullWorkout push. SentAt orders
// pushes on the server: an older push never overwrites a newer one.
type WorkoutSnapshot struct {
	MemberID string      `json:"memberId"`
	Tree     WorkoutTree `json:"tree"`
	SentAt   time.Time   `json:"sentAt"`
}

// SetUpdate is the body of a saveSet push.
type SetUpdate struct {
	MemberID  string      `json:"memberId"`
	WorkoutID string      `json:"workoutId"`
	Set       ExerciseSet `json:"set"`
	SentAt    time.Time   `json:"sentAt"`
}

// StoredWorkout is the server's record of a workout subtree.
type StoredWorkout struct {
	MemberID  string      `json:"memberId"`
	Tree      WorkoutTree `json:"tree"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// PushResult is returned by the sync server for every accepted push.
// Applied is false when a newer record already existed.
type PushResult struct {
	Applied  bool `json:"applied"`
	Sets     int  `json:"sets"`
	Stale    int  `json:"stale"`
	Rejected int  `json:"rejected"`
}
