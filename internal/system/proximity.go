package system

import (
	"time"

	"github.com/threeworlds/loopshift/internal/core/ecs"
	coresys "github.com/threeworlds/loopshift/internal/core/system"
	"github.com/threeworlds/loopshift/internal/world"
)

// ProximitySystem turns distance to the player into overlap begin/end
// reports. Only overlaps it began are ended by it. Phase 3 (PostUpdate),
// registered after MovementSystem.
type ProximitySystem struct {
	world   *world.State
	radius  float64
	tracked map[ecs.EntityID]struct{}
}

func NewProximitySystem(ws *world.State, radius float64) *ProximitySystem {
	return &ProximitySystem{world: ws, radius: radius, tracked: make(map[ecs.EntityID]struct{})}
}

func (s *ProximitySystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *ProximitySystem) Update(_ time.Duration) {
	player := s.world.Player()
	loc, ok := s.world.Location(player)
	if !ok {
		clear(s.tracked)
		return
	}
	near := make(map[ecs.EntityID]struct{})
	for _, id := range s.world.Within(loc, s.radius, player) {
		near[id] = struct{}{}
		if _, ok := s.tracked[id]; ok {
			continue
		}
		if s.world.BeginOverlap(player, id) {
			s.tracked[id] = struct{}{}
		}
	}
	for id := range s.tracked {
		if _, ok := near[id]; ok {
			continue
		}
		delete(s.tracked, id)
		if s.world.Alive(id) {
			s.world.EndOverlap(player, id)
		}
	}
}
