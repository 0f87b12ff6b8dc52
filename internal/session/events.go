package session

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/progression"
)

// Event is a notification for downstream observers (UI, voice).
type Event interface {
	EventType() string
}

// Event type names.
const (
	TypeWorkoutStarted     = "workout.started"
	TypeSetLogged          = "set.logged"
	TypeExerciseTransition = "exercise.transition"
	TypeSupersetRotation   = "superset.rotation"
	TypeRestStarted        = "rest.started"
	TypeRestWarning        = "rest.warning"
	TypeRestFinished       = "rest.finished"
	TypeRestSkipped        = "rest.skipped"
	TypeWorkoutCompleted   = "workout.completed"
	TypeWorkoutReset       = "workout.reset"
	TypePhaseAdvanced      = "phase.advanced"
)

// SetPreview describes the set the cursor moves to.
type SetPreview struct {
	ExerciseID        string   `json:"exerciseId"`
	SetID             string   `json:"setId"`
	SetIndex          int      `json:"setIndex"`
	TargetWeight      *float64 `json:"targetWeight,omitempty"`
	TargetReps        *int     `json:"targetReps,omitempty"`
	TargetDurationSec *int     `json:"targetDuration,omitempty"`
}

type WorkoutStarted struct {
	WorkoutID string
	SessionID string
	At        progression.Position
	Started   time.Time
}

// SetLogged carries the logged set and, unless the workout just ended, a
// preview of the next one.
type SetLogged struct {
	WorkoutID string
	Set       models.ExerciseSet
	Next      *SetPreview
}

type ExerciseTransition struct {
	WorkoutID string
	From      int
	To        int
	Skipped   bool
}

type SupersetRotation struct {
	WorkoutID string
	From      progression.Position
	To        progression.Position
	NewRound  bool
}

type RestStarted struct {
	WorkoutID string
	Seconds   int
	SetIndex  int
}

type RestWarning struct {
	WorkoutID string
	Remaining int
}

type RestFinished struct {
	WorkoutID string
}

type RestSkipped struct {
	WorkoutID string
	Remaining int
}

// WorkoutCompleted reports the final status, completed or skipped.
type WorkoutCompleted struct {
	WorkoutID string
	Status    models.Status
	Completed int
	Skipped   int
}

type WorkoutReset struct {
	WorkoutID     string
	ClearedDeltas int64
}

// PhaseAdvanced reports a completion cascade that changed a program or plan.
type PhaseAdvanced struct {
	ProgramID     string
	NextProgramID string
	PlanID        string
	PlanCompleted bool
}

func (WorkoutStarted) EventType() string     { return TypeWorkoutStarted }
func (SetLogged) EventType() string          { return TypeSetLogged }
func (ExerciseTransition) EventType() string { return TypeExerciseTransition }
func (SupersetRotation) EventType() string   { return TypeSupersetRotation }
func (RestStarted) EventType() string        { return TypeRestStarted }
func (RestWarning) EventType() string        { return TypeRestWarning }
func (RestFinished) EventType() string       { return TypeRestFinished }
func (RestSkipped) EventType() string        { return TypeRestSkipped }
func (WorkoutCompleted) EventType() string   { return TypeWorkoutCompleted }
func (WorkoutReset) EventType() string       { return TypeWorkoutReset }
func (PhaseAdvanced) EventType() string      { return TypePhaseAdvanced }

// Handler handles an event.
type Handler func(Event)

type subscription struct {
	id        string
	eventType string
	handler   Handler
}

// Bus is a synchronous pub-sub event bus. Handlers run on the publishing
// goroutine, in registration order.
type Bus struct {
	mu            sync.RWMutex
	subscriptions map[string][]subscription
	nextID        atomic.Uint64
	log           *slog.Logger
}

// NewBus creates a new event bus.
func NewBus(log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{subscriptions: make(map[string][]subscription), log: log}
}

// Subscribe registers a handler for one event type and returns its id.
func (b *Bus) Subscribe(eventType string, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := fmt.Sprintf("sub-%d", b.nextID.Add(1))
	b.subscriptions[eventType] = append(b.subscriptions[eventType], subscription{
		id:        id,
		eventType: eventType,
		handler:   handler,
	})
	return id
}

// SubscribeAll registers a handler for every event type.
func (b *Bus) SubscribeAll(handler Handler) string {
	return b.Subscribe("*", handler)
}

// Unsubscribe removes a subscription. It reports whether it was found.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.subscriptions {
		for i, sub := range subs {
			if sub.id == id {
				b.subscriptions[eventType] = append(subs[:i], subs[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Publish dispatches an event to its type's handlers, then to wildcard
// handlers. A panicking handler is logged and skipped.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	specific := append([]subscription(nil), b.subscriptions[event.EventType()]...)
	wildcard := append([]subscription(nil), b.subscriptions["*"]...)
	b.mu.RUnlock()

	for _, sub := range specific {
		b.safeCall(sub.handler, event)
	}
	for _, sub := range wildcard {
		b.safeCall(sub.handler, event)
	}
}

func (b *Bus) safeCall(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked", "event", event.EventType(), "panic", r, "stack", string(debug.Stack()))
		}
	}()
	handler(event)
}
