package system

import (
	"time"

	coresys "github.com/threeworlds/loopshift/internal/core/system"
	"github.com/threeworlds/loopshift/internal/world"
)

// MovementSystem integrates actor velocities. Phase 3 (PostUpdate).
type MovementSystem struct {
	world *world.State
}

func NewMovementSystem(ws *world.State) *MovementSystem {
	return &MovementSystem{world: ws}
}

func (s *MovementSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *MovementSystem) Update(dt time.Duration) {
	s.world.Integrate(dt.Seconds())
}
