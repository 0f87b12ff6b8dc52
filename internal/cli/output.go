package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/claude/repflow/internal/models"
	"github.com/claude/repflow/internal/session"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation refused (no active session, invalid input, etc.)
	ExitCommandError = 2 // Command error (bad config, store not readable, etc.)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Response is the JSON output of a command.
type Response struct {
	Status  string        `json:"status"`
	Message string        `json:"message,omitempty"`
	Data    any           `json:"data,omitempty"`
	Events  []EventRecord `json:"events,omitempty"`
}

// EventRecord is an event as it appears in JSON output.
type EventRecord struct {
	Type  string        `json:"type"`
	Event session.Event `json:"event"`
}

// Output prints command results and session events. In text mode events are
// printed as they arrive; in JSON mode they are collected into the response.
type Output struct {
	mu     sync.Mutex
	format string
	w      io.Writer
	events []EventRecord
}

// NewOutput creates an Output writing to w.
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Reset points the output at a new writer and drops collected events.
func (o *Output) Reset(format string, w io.Writer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.format, o.w, o.events = format, w, nil
}

// Event is a bus handler.
func (o *Output) Event(e session.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.format == "json" {
		o.events = append(o.events, EventRecord{Type: e.EventType(), Event: e})
		return
	}
	if line := describeEvent(e); line != "" {
		fmt.Fprintln(o.w, line)
	}
}

// Done prints the final message and data of a command.
func (o *Output) Done(message string, data any) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.format == "json" {
		resp := Response{Status: "ok", Message: message, Data: data, Events: o.events}
		o.events = nil
		enc := json.NewEncoder(o.w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	if message != "" {
		fmt.Fprintln(o.w, message)
	}
	if st, ok := data.(session.State); ok {
		fmt.Fprint(o.w, describeState(st))
	}
	return nil
}

// exerciseName turns an exercise id like "bench_press" into "Bench Press".
func exerciseName(id string) string {
	if id == "" {
		return "exercise"
	}
	words := strings.NewReplacer("_", " ", "-", " ").Replace(id)
	return cases.Title(language.English).String(words)
}

func describeState(st session.State) string {
	if !st.Active {
		return "No active workout.\n"
	}
	var b strings.Builder
	name := st.WorkoutName
	if name == "" {
		name = st.WorkoutID
	}
	fmt.Fprintf(&b, "%s (%s)\n", name, st.WorkoutStatus)
	if p := st.Current; p != nil {
		fmt.Fprintf(&b, "  Exercise %d/%d: %s, set %d%s\n",
			st.ExerciseIndex+1, st.ExerciseCount, exerciseName(p.ExerciseID), p.SetIndex+1, describeTargets(p))
	} else {
		fmt.Fprintln(&b, "  All sets done. Run complete to finish.")
	}
	if st.Resting {
		fmt.Fprintf(&b, "  Resting: %ds left\n", st.RestRemaining)
	}
	return b.String()
}

func describeTargets(p *session.SetPreview) string {
	var parts []string
	if p.TargetWeight != nil {
		parts = append(parts, formatFloat(*p.TargetWeight)+" kg")
	}
	if p.TargetReps != nil {
		parts = append(parts, strconv.Itoa(*p.TargetReps)+" reps")
	}
	if p.TargetDurationSec != nil {
		parts = append(parts, strconv.Itoa(*p.TargetDurationSec)+"s")
	}
	if len(parts) == 0 {
		return ""
	}
	return " (target " + strings.Join(parts, " x ") + ")"
}

func describeSet(s models.ExerciseSet) string {
	var parts []string
	if s.ActualWeight != nil {
		parts = append(parts, formatFloat(*s.ActualWeight)+" kg")
	}
	if s.ActualReps != nil {
		parts = append(parts, strconv.Itoa(*s.ActualReps)+" reps")
	}
	if s.ActualDurationSec != nil {
		parts = append(parts, strconv.Itoa(*s.ActualDurationSec)+"s")
	}
	if s.ActualDistance != nil {
		parts = append(parts, formatFloat(*s.ActualDistance)+" km")
	}
	return strings.Join(parts, " x ")
}

func describeEvent(e session.Event) string {
	switch e := e.(type) {
	case session.WorkoutStarted:
		return "Workout started."
	case session.SetLogged:
		line := fmt.Sprintf("Logged set %d: %s", e.Set.SetNumber, describeSet(e.Set))
		if e.Next != nil {
			line += fmt.Sprintf(". Next: %s set %d%s", exerciseName(e.Next.ExerciseID), e.Next.SetIndex+1, describeTargets(e.Next))
		}
		return line
	case session.ExerciseTransition:
		if e.Skipped {
			return fmt.Sprintf("Skipped to exercise %d.", e.To+1)
		}
		return fmt.Sprintf("Moving on to exercise %d.", e.To+1)
	case session.SupersetRotation:
		if e.NewRound {
			return fmt.Sprintf("Superset round %d.", e.To.SetIndex+1)
		}
		return fmt.Sprintf("Superset: switch to exercise %d.", e.To.ExerciseIndex+1)
	case session.RestStarted:
		return fmt.Sprintf("Rest %ds.", e.Seconds)
	case session.RestWarning:
		return fmt.Sprintf("%ds left.", e.Remaining)
	case session.RestFinished:
		return "Rest over."
	case session.RestSkipped:
		return "Rest skipped."
	case session.WorkoutCompleted:
		return fmt.Sprintf("Workout %s: %d sets done, %d skipped.", e.Status, e.Completed, e.Skipped)
	case session.WorkoutReset:
		return fmt.Sprintf("Workout reset (%d changes discarded).", e.ClearedDeltas)
	case session.PhaseAdvanced:
		if e.PlanCompleted {
			return "Plan completed."
		}
		if e.NextProgramID != "" {
			return "Program completed. Next program: " + e.NextProgramID
		}
		return "Program completed."
	}
	return ""
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
