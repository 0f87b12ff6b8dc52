// Package overlay records pending field-level mutations to otherwise
// immutable base entities and folds them back over those entities on read.
//
// Conflicts are resolved per field: the delta with the latest timestamp
// wins, ties go to the later store sequence, and a final tie (which only a
// hand-built delta set can produce) goes to the greater delta id. Selection
// is a max over a total order, so merging any permutation of the same delta
// set, any number of times, converges to the same result.
package overlay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/claude/repflow/internal/models"
)

// Kind names the entity type a delta patches.
type Kind string

const (
	KindWorkout  Kind = "workout"
	KindInstance Kind = "instance"
	KindSet      Kind = "set"
)

// Field is a logical, independently resolved attribute of an entity.
type Field string

const (
	FieldStatus         Field = "status"
	FieldCompletedDate  Field = "completedDate"
	FieldCompletion     Field = "completion"
	FieldActualWeight   Field = "actualWeight"
	FieldActualReps     Field = "actualReps"
	FieldActualDuration Field = "actualDuration"
	FieldActualDistance Field = "actualDistance"
	FieldRecordedDate   Field = "recordedDate"
)

// Delta is a timestamped partial patch to one entity. A JSON null value
// clears the field.
type Delta struct {
	ID       string                    `json:"id"`
	Kind     Kind                      `json:"kind"`
	EntityID string                    `json:"entityId"`
	Fields   map[Field]json.RawMessage `json:"fields"`
	At       time.Time                 `json:"at"`
	Seq      int64                     `json:"seq"`
}

// New starts an empty delta for the given entity.
func New(kind Kind, entityID string) Delta {
	return Delta{Kind: kind, EntityID: entityID, Fields: map[Field]json.RawMessage{}}
}

// Set returns a copy of d with field set to v. Values are plain JSON scalars
// or timestamps, so encoding cannot fail for the types this package uses.
func (d Delta) Set(field Field, v any) Delta {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("overlay: encoding %s: %v", field, err))
	}
	return d.with(field, raw)
}

// Clear returns a copy of d that nulls field.
func (d Delta) Clear(field Field) Delta {
	return d.with(field, json.RawMessage("null"))
}

// StampedAt returns a copy of d with a caller-supplied timestamp.
func (d Delta) StampedAt(t time.Time) Delta {
	d.At = t
	return d
}

func (d Delta) with(field Field, raw json.RawMessage) Delta {
	fields := make(map[Field]json.RawMessage, len(d.Fields)+1)
	for k, v := range d.Fields {
		fields[k] = v
	}
	fields[field] = raw
	d.Fields = fields
	return d
}

// newer reports whether d beats other in last-write-wins order.
func (d Delta) newer(other Delta) bool {
	if !d.At.Equal(other.At) {
		return d.At.After(other.At)
	}
	if d.Seq != other.Seq {
		return d.Seq > other.Seq
	}
	return d.ID > other.ID
}

// WorkoutStatus patches a workout's status and completion date. A nil
// completedAt clears the date.
func WorkoutStatus(workoutID string, status models.Status, completedAt *time.Time) Delta {
	d := New(KindWorkout, workoutID).Set(FieldStatus, status)
	if completedAt == nil {
		return d.Clear(FieldCompletedDate)
	}
	return d.Set(FieldCompletedDate, completedAt.UTC())
}

// InstanceStatus patches an exercise instance's status.
func InstanceStatus(instanceID string, status models.Status) Delta {
	return New(KindInstance, instanceID).Set(FieldStatus, status)
}

// Actuals are the recorded values of a logged set.
type Actuals struct {
	Weight      *float64
	Reps        *int
	DurationSec *int
	Distance    *float64
}

// SetLogged marks a set completed with the given actuals. Actuals left nil
// are cleared so a re-log never keeps stale values.
func SetLogged(setID string, a Actuals, recordedAt time.Time) Delta {
	d := New(KindSet, setID).
		Set(FieldCompletion, models.CompletionCompleted).
		Set(FieldRecordedDate, recordedAt.UTC())
	d = setOrClear(d, FieldActualWeight, a.Weight)
	d = setOrClear(d, FieldActualReps, a.Reps)
	d = setOrClear(d, FieldActualDuration, a.DurationSec)
	return setOrClear(d, FieldActualDistance, a.Distance)
}

// SetSkipped stamps a set skipped without touching its actuals.
func SetSkipped(setID string) Delta {
	return New(KindSet, setID).Set(FieldCompletion, models.CompletionSkipped)
}

// SetPending returns a set to pending and clears its actuals.
func SetPending(setID string) Delta {
	return New(KindSet, setID).
		Set(FieldCompletion, models.CompletionPending).
		Clear(FieldActualWeight).
		Clear(FieldActualReps).
		Clear(FieldActualDuration).
		Clear(FieldActualDistance).
		Clear(FieldRecordedDate)
}

func setOrClear[T any](d Delta, field Field, v *T) Delta {
	if v == nil {
		return d.Clear(field)
	}
	return d.Set(field, *v)
}

// Store is the local, durable delta log. Writes are serialized by the
// single writer; reads may come from any goroutine.
type Store interface {
	// Save appends d, or replaces the delta with the same id. A zero At is
	// stamped with the store clock; an empty ID is generated. The stored
	// delta, with its sequence number, is returned.
	Save(ctx context.Context, d Delta) (Delta, error)
	// Deltas returns every delta for the given entity ids in store order.
	Deltas(ctx context.Context, entityIDs ...string) ([]Delta, error)
	// Clear removes all deltas for the given ids and reports how many went.
	Clear(ctx context.Context, entityIDs ...string) (int64, error)
	// HasDeltas reports whether any delta exists for id.
	HasDeltas(ctx context.Context, entityID string) (bool, error)
}
