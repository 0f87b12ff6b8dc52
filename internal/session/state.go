package session

import "github.com/claude/repflow/internal/models"

// State is an observable snapshot of the coordinator, safe to read from any
// goroutine.
type State struct {
	Active        bool            `json:"active"`
	SessionID     string          `json:"sessionId,omitempty"`
	WorkoutID     string          `json:"workoutId,omitempty"`
	WorkoutName   string          `json:"workoutName,omitempty"`
	WorkoutStatus models.Status   `json:"workoutStatus,omitempty"`
	ExerciseIndex int             `json:"currentExerciseIndex"`
	SetIndex      int             `json:"currentSetIndex"`
	ExerciseCount int             `json:"exerciseCount"`
	Current       *SetPreview     `json:"current,omitempty"`
	Resting       bool            `json:"resting"`
	RestRemaining int             `json:"restSecondsRemaining"`
	Session       *models.Session `json:"session,omitempty"`
}

// State returns the current snapshot.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.session == nil {
		return State{}
	}
	st := State{
		Active:        c.session.Active(),
		SessionID:     c.session.ID,
		WorkoutID:     c.session.WorkoutID,
		WorkoutName:   c.tree.Workout.Name,
		WorkoutStatus: c.tree.Workout.Status,
		ExerciseIndex: c.session.ExerciseIndex,
		SetIndex:      c.session.SetIndex,
		ExerciseCount: c.layout.Len(),
		Current:       c.preview(c.cursor()),
		Session:       c.sessionCopy(),
	}
	if c.session.Rest != nil {
		st.Resting = true
		st.RestRemaining = c.restLeft
	}
	return st
}

// Tree returns a copy of the active workout tree, merged with its deltas.
// The second value is false when no session is active.
func (c *Coordinator) Tree() (models.WorkoutTree, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return models.WorkoutTree{}, false
	}
	return c.tree.Clone(), true
}
