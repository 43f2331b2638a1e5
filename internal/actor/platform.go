package actor

import (
	"github.com/threeworlds/loopshift/internal/core/ecs"
	"github.com/threeworlds/loopshift/internal/shift"
)

// Platform is a plain shifting platform: a named behavior on an actor.
type Platform struct {
	id       ecs.EntityID
	behavior *shift.Behavior
}

// NewPlatform binds behavior to env.Orch.
func NewPlatform(env Env, id ecs.EntityID, behavior *shift.Behavior) *Platform {
	p := &Platform{id: id, behavior: behavior}
	behavior.Bind(env.Orch)
	env.World.Attach(id, p)
	return p
}

func (p *Platform) ID() ecs.EntityID          { return p.id }
func (p *Platform) Behavior() *shift.Behavior { return p.behavior }

// Solid reports whether the player can stand on the platform right now.
func (p *Platform) Solid() bool { return p.behavior.IsCurrentlySolid() }

func (p *Platform) Teardown() { p.behavior.Teardown() }
