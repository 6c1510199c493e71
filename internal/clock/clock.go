// Package clock supplies the current instant to a running control network
// and advances it by a fixed or caller-specified increment.
//
// Two interchangeable modes exist. Logical time starts at a caller-specified
// origin and moves only when explicitly advanced, which makes replays exactly
// reproducible. Paced time tracks the wall clock: Advance sleeps until the
// next scheduled instant, anchored at construction so that step boundaries
// never drift. Advancing is the only mutator; time never moves backward
// except through Restore.
package clock

import (
	"fmt"
	"time"
)

// Mode selects how a Clock advances.
type Mode string

const (
	// Logical time advances only when told to.
	Logical Mode = "logical"
	// Paced time tracks the wall clock, sleeping until each scheduled instant.
	Paced Mode = "paced"
)

// State is the serializable snapshot of a Clock, used by checkpointing.
type State struct {
	Instant float64 `json:"instant"`
	Mode    Mode    `json:"mode"`
	Step    float64 `json:"step"`
}

// Clock is a monotonically non-decreasing time source measured in seconds.
type Clock struct {
	mode    Mode
	step    float64
	instant float64

	// Paced mode: anchor is the wall time corresponding to the origin
	// instant, so scheduled instants are absolute and sleep error does not
	// accumulate.
	origin float64
	anchor time.Time
	sleep  func(time.Duration)
}

// NewLogical returns a manually-advanced clock starting at origin.
func NewLogical(origin, step float64) (*Clock, error) {
	if step <= 0 {
		return nil, fmt.Errorf("step must be positive, got %g", step)
	}
	return &Clock{mode: Logical, step: step, instant: origin, origin: origin}, nil
}

// NewPaced returns a wall-clock-paced clock starting at origin. The wall
// instant of construction is taken as the anchor for all scheduled instants.
func NewPaced(origin, step float64) (*Clock, error) {
	if step <= 0 {
		return nil, fmt.Errorf("step must be positive, got %g", step)
	}
	return &Clock{
		mode:    Paced,
		step:    step,
		instant: origin,
		origin:  origin,
		anchor:  time.Now(),
		sleep:   time.Sleep,
	}, nil
}

// New constructs a clock in the given mode.
func New(mode Mode, origin, step float64) (*Clock, error) {
	switch mode {
	case Logical:
		return NewLogical(origin, step)
	case Paced:
		return NewPaced(origin, step)
	default:
		return nil, fmt.Errorf("unknown clock mode %q", mode)
	}
}

// Now returns the current instant in seconds.
func (c *Clock) Now() float64 { return c.instant }

// Step returns the fixed step increment in seconds.
func (c *Clock) Step() float64 { return c.step }

// Mode returns the clock's execution mode.
func (c *Clock) Mode() Mode { return c.mode }

// Advance moves the clock forward by its fixed step. In paced mode the call
// blocks until the wall clock reaches the new instant.
func (c *Clock) Advance() float64 {
	next, _ := c.AdvanceBy(c.step)
	return next
}

// AdvanceBy moves the clock forward by dt seconds. dt must be positive. In
// paced mode the call blocks until the wall clock reaches the new instant;
// the sleep target is computed from the anchor, so pacing stays aligned even
// when individual sleeps overshoot.
func (c *Clock) AdvanceBy(dt float64) (float64, error) {
	if dt <= 0 {
		return c.instant, fmt.Errorf("advance increment must be positive, got %g", dt)
	}
	c.instant += dt
	if c.mode == Paced {
		target := c.anchor.Add(secondsToDuration(c.instant - c.origin))
		if d := time.Until(target); d > 0 {
			c.sleep(d)
		}
	}
	return c.instant, nil
}

// State returns the clock's serializable state.
func (c *Clock) State() State {
	return State{Instant: c.instant, Mode: c.mode, Step: c.step}
}

// Restore replaces the clock's state from a snapshot. This is the only way
// time may move backward. A paced clock re-anchors to the current wall
// instant: the restored instant becomes "now" and pacing resumes from there.
func (c *Clock) Restore(s State) error {
	switch s.Mode {
	case Logical, Paced:
	default:
		return fmt.Errorf("unknown clock mode %q", s.Mode)
	}
	if s.Step <= 0 {
		return fmt.Errorf("step must be positive, got %g", s.Step)
	}

	c.mode = s.Mode
	c.step = s.Step
	c.instant = s.Instant
	c.origin = s.Instant
	if c.mode == Paced {
		c.anchor = time.Now()
		if c.sleep == nil {
			c.sleep = time.Sleep
		}
	}
	return nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
