package models

import "time"

// SessionStatus is the Session lifecycle: active until completed. Reset
// deletes the session instead of transitioning it.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

// RestTimer is an active rest countdown.
type RestTimer struct {
	StartedAt time.Time `json:"startedAt"`
	Seconds   int       `json:"seconds"`
	SetIndex  int       `json:"setIndex"`
}

// EndsAt is the wall time the rest is over.
func (r RestTimer) EndsAt() time.Time {
	return r.StartedAt.Add(time.Duration(r.Seconds) * time.Second)
}

// Session is the live cursor over a Workout. It references the workout by
// id only.
type Session struct {
	ID            string        `json:"id"`
	MemberID      string        `json:"memberId"`
	WorkoutID     string        `json:"workoutId"`
	ExerciseIndex int           `json:"currentExerciseIndex"`
	SetIndex      int           `json:"currentSetIndex"`
	Status        SessionStatus `json:"status"`
	StartedAt     time.Time     `json:"startedAt"`
	EndedAt       *time.Time    `json:"endedAt,omitempty"`
	Rest          *RestTimer    `json:"restTimer,omitempty"`
}

// Active reports whether the session is still running.
func (s Session) Active() bool {
	return s.Status == SessionActive
}
