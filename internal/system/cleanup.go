package system

import (
	"time"

	"github.com/threeworlds/loopshift/internal/core/ecs"
	coresys "github.com/threeworlds/loopshift/internal/core/system"
)

// CleanupSystem reaps actors despawned during the tick: consumed pickups,
// spent buttons and torn-down levels. Runs last so every earlier phase still
// sees them as alive.
type CleanupSystem struct {
	world  *ecs.World
	reaped int
}

func NewCleanupSystem(world *ecs.World) *CleanupSystem {
	return &CleanupSystem{world: world}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	s.reaped += s.world.FlushDestroyQueue()
}

// Reaped returns how many actors have been destroyed since start.
func (s *CleanupSystem) Reaped() int { return s.reaped }
