package session

import (
	"context"
	"slices"
	"time"

	"github.com/claude/repflow/internal/models"
)

// beginRest installs rt on the session and starts a countdown of left ticks.
// Any earlier countdown is cancelled first.
func (c *Coordinator) beginRest(rt models.RestTimer, left int) {
	c.cancelTimer()
	c.session.Rest = &rt
	c.restLeft = left

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	gen := c.restGen
	c.restCancel, c.restDone = cancel, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(c.cfg.Tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !c.restTick(gen) {
					return
				}
			}
		}
	}()
}

// restTick counts one tick down. It reports whether the countdown should
// keep running; ticks from a cancelled countdown are dropped.
func (c *Coordinator) restTick(gen uint64) bool {
	c.mu.Lock()
	if gen != c.restGen || c.session == nil || c.session.Rest == nil {
		c.mu.Unlock()
		return false
	}
	c.restLeft--
	left := c.restLeft
	wid := c.session.WorkoutID

	var effects []Effect
	if left <= 0 {
		c.stopRest()
		if err := c.store.SaveSession(context.Background(), *c.session); err != nil {
			c.log.Error("saving session after rest", "workout_id", wid, "error", err)
		}
		effects = append(effects, Notify{RestFinished{WorkoutID: wid}})
	} else if slices.Contains(c.cfg.RestWarnings, left) {
		effects = append(effects, Notify{RestWarning{WorkoutID: wid, Remaining: left}})
	}
	c.mu.Unlock()

	c.log.Debug("rest tick", "workout_id", wid, "remaining", left)
	if c.runner != nil {
		c.runner.Run(effects)
	}
	return left > 0
}

// stopRest cancels the countdown and clears the session rest timer. It never
// moves the cursor and is safe to call with no rest running.
func (c *Coordinator) stopRest() {
	c.cancelTimer()
	c.restLeft = 0
	if c.session != nil {
		c.session.Rest = nil
	}
}

// cancelTimer stops the countdown goroutine without touching the session.
// The goroutine may still be waiting on the lock; bumping the generation
// makes its pending tick a no-op.
func (c *Coordinator) cancelTimer() {
	c.restGen++
	if c.restCancel != nil {
		c.restCancel()
		c.restCancel = nil
	}
	c.restDone = nil
}
