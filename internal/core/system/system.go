package system

import "time"

// Phase orders systems within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: drain console / host commands
	PhasePreUpdate               // 1: apply hot-reloaded data
	PhaseUpdate                  // 2: advance the timer queue (phase flips, buttons, doors)
	PhasePostUpdate              // 3: continuous effects
	PhaseOutput                  // 4: telemetry
	PhasePersist                 // 5: loop memory autosave
	PhaseCleanup                 // 6: destroy queued entities
)

var phaseNames = [...]string{"input", "pre_update", "update", "post_update", "output", "persist", "cleanup"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
