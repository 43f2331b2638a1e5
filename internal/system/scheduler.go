package system

import (
	"time"

	"github.com/threeworlds/loopshift/internal/core/sched"
	coresys "github.com/threeworlds/loopshift/internal/core/system"
)

// SchedulerSystem advances simulation time. Phase flips, pre-warnings,
// button resets, door animations and hazard ticks all fire from here.
// Phase 2 (Update).
type SchedulerSystem struct {
	sched *sched.Scheduler
	fired int
}

func NewSchedulerSystem(s *sched.Scheduler) *SchedulerSystem {
	return &SchedulerSystem{sched: s}
}

func (s *SchedulerSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *SchedulerSystem) Update(dt time.Duration) {
	s.fired += s.sched.Advance(dt)
}

// Fired returns the number of timer callbacks run so far.
func (s *SchedulerSystem) Fired() int { return s.fired }
