package actor

import (
	"github.com/threeworlds/loopshift/internal/core/ecs"
	"github.com/threeworlds/loopshift/internal/core/event"
	"github.com/threeworlds/loopshift/internal/shift"
	"github.com/threeworlds/loopshift/internal/world"
)

const DefaultPickupHeal = 10.0

type PickupConfig struct {
	Name   string
	Amount float64
	Sound  string
}

// HealthPickup heals the first Healable actor that touches it while its
// behavior state is Solid, then despawns. Full-health actors leave it be.
type HealthPickup struct {
	cfg      PickupConfig
	env      Env
	id       ecs.EntityID
	behavior *shift.Behavior
	consumed bool

	// Collected carries the actor that was healed.
	Collected event.Signal[ecs.EntityID]
}

func NewHealthPickup(env Env, id ecs.EntityID, cfg PickupConfig, behavior *shift.Behavior) *HealthPickup {
	if cfg.Amount <= 0 {
		cfg.Amount = DefaultPickupHeal
	}
	p := &HealthPickup{cfg: cfg, env: env, id: id, behavior: behavior}
	env.World.Attach(id, p)
	return p
}

func (p *HealthPickup) ID() ecs.EntityID { return p.id }
func (p *HealthPickup) Consumed() bool   { return p.consumed }

// CanBeCollected reports whether a touch would be accepted now.
func (p *HealthPickup) CanBeCollected() bool {
	if p.consumed {
		return false
	}
	return p.behavior == nil || p.behavior.CurrentState() == shift.Solid
}

func (p *HealthPickup) BeginOverlap(other ecs.EntityID) {
	if !p.CanBeCollected() {
		return
	}
	h, ok := world.Find[Healable](p.env.World, other)
	if !ok || !h.Heal(p.cfg.Amount) {
		return
	}
	p.consumed = true
	p.env.sound(p.cfg.Sound, p.env.location(p.id))
	p.Collected.Emit(other)
	p.env.World.Despawn(p.id)
}

func (p *HealthPickup) EndOverlap(ecs.EntityID) {}

func (p *HealthPickup) Teardown() {}
