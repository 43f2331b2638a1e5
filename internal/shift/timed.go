package shift

import (
	"time"

	"github.com/threeworlds/loopshift/internal/core/event"
	"github.com/threeworlds/loopshift/internal/core/sched"
)

// MinCycleInterval is the shortest accepted timed-solid period.
const MinCycleInterval = 10 * time.Millisecond

// TimedSolidCycle alternates the process-wide timed-solid phase (true =
// solid) on a fixed interval and raises a pre-warning shortly before each
// flip. It is the only writer of the phase; every TimedSolid object reads
// it from here or from the PhaseChanged payload.
type TimedSolidCycle struct {
	sched      *sched.Scheduler
	interval   time.Duration
	preWarning time.Duration

	phase     bool
	running   bool
	flipTimer sched.Handle
	warnTimer sched.Handle

	// PhaseChanged carries the new phase after each flip.
	PhaseChanged event.Signal[bool]
	// PreWarning carries the phase the cycle is about to flip to.
	PreWarning event.Signal[bool]
}

// NewTimedSolidCycle creates a stopped cycle in the solid phase. interval is
// clamped to MinCycleInterval.
func NewTimedSolidCycle(s *sched.Scheduler, interval, preWarning time.Duration) *TimedSolidCycle {
	if interval < MinCycleInterval {
		interval = MinCycleInterval
	}
	return &TimedSolidCycle{
		sched:      s,
		interval:   interval,
		preWarning: preWarning,
		phase:      true,
	}
}

func (c *TimedSolidCycle) Phase() bool                   { return c.phase }
func (c *TimedSolidCycle) Running() bool                 { return c.running }
func (c *TimedSolidCycle) Interval() time.Duration       { return c.interval }
func (c *TimedSolidCycle) PreWarningTime() time.Duration { return c.preWarning }

// WarningEnabled reports whether a pre-warning fits inside one interval.
func (c *TimedSolidCycle) WarningEnabled() bool {
	return c.preWarning > 0 && c.preWarning < c.interval
}

// Start (re)arms both timers from now and puts the phase back to solid.
// Calling Start on a running cycle restarts it.
func (c *TimedSolidCycle) Start() {
	if c == nil {
		return
	}
	c.Stop()
	c.running = true
	c.flipTimer = c.sched.Every(c.interval, c.flip)
	c.armWarning()
	c.solid()
}

// solid puts the phase back to solid without touching the timers.
func (c *TimedSolidCycle) solid() {
	if !c.phase {
		c.phase = true
		c.PhaseChanged.Emit(true)
	}
}

// Stop cancels both timers. The phase keeps its last value.
func (c *TimedSolidCycle) Stop() {
	if c == nil {
		return
	}
	c.sched.Cancel(c.flipTimer)
	c.sched.Cancel(c.warnTimer)
	c.flipTimer, c.warnTimer = 0, 0
	c.running = false
}

// Reset stops the cycle and starts a fresh solid phase.
func (c *TimedSolidCycle) Reset() {
	c.Stop()
	c.Start()
}

func (c *TimedSolidCycle) armWarning() {
	if !c.WarningEnabled() {
		return
	}
	c.sched.Cancel(c.warnTimer)
	c.warnTimer = c.sched.After(c.interval-c.preWarning, c.warn)
}

func (c *TimedSolidCycle) warn() {
	c.warnTimer = 0
	c.PreWarning.Emit(!c.phase)
}

func (c *TimedSolidCycle) flip() {
	c.phase = !c.phase
	// Arm the next warning before fanning out so a handler that restarts
	// the cycle replaces it instead of racing it.
	c.armWarning()
	c.PhaseChanged.Emit(c.phase)
}
