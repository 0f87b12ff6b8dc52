package session

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/claude/repflow/internal/models"
)

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBus_SpecificBeforeWildcard(t *testing.T) {
	bus := NewBus(quietLog())
	var got []string
	bus.SubscribeAll(func(Event) { got = append(got, "all") })
	bus.Subscribe(TypeRestFinished, func(Event) { got = append(got, "rest") })
	bus.Subscribe(TypeWorkoutStarted, func(Event) { got = append(got, "start") })

	bus.Publish(RestFinished{WorkoutID: "w1"})
	assert.Equal(t, []string{"rest", "all"}, got)
}

func TestBus_UnsubscribeAndPanics(t *testing.T) {
	bus := NewBus(quietLog())
	calls := 0
	bus.Subscribe(TypeRestWarning, func(Event) { panic("boom") })
	id := bus.Subscribe(TypeRestWarning, func(Event) { calls++ })

	bus.Publish(RestWarning{Remaining: 3})
	assert.Equal(t, 1, calls, "a panicking handler does not block the next one")

	assert.True(t, bus.Unsubscribe(id))
	assert.False(t, bus.Unsubscribe(id))
	bus.Publish(RestWarning{Remaining: 3})
	assert.Equal(t, 1, calls)
}

type panickyPusher struct{}

func (panickyPusher) SaveFullWorkout(context.Context, models.WorkoutTree, string) error {
	panic("remote client bug")
}

func (panickyPusher) SaveSet(context.Context, models.ExerciseSet, string, string) error {
	return nil
}

func TestEffectRunner_RecoversBackgroundPanics(t *testing.T) {
	r := NewEffectRunner(nil, quietLog(), WithPusher(panickyPusher{}))
	r.Run([]Effect{PushWorkout{Snapshot: models.WorkoutTree{Workout: models.Workout{ID: "w1"}}}})
	assert.NotPanics(t, r.Wait)
}

func TestEffectRunner_NoRemote(t *testing.T) {
	bus := NewBus(quietLog())
	var seen []string
	bus.SubscribeAll(func(e Event) { seen = append(seen, e.EventType()) })

	r := NewEffectRunner(bus, quietLog())
	r.Run([]Effect{
		PushSet{Set: models.ExerciseSet{ID: "s1"}},
		Calibrate{WorkoutID: "w1"},
		Notify{WorkoutReset{WorkoutID: "w1"}},
	})
	r.Wait()
	assert.Equal(t, []string{TypeWorkoutReset}, seen)
}
