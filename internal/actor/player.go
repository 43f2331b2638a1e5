package actor

import (
	"go.uber.org/zap"

	"github.com/threeworlds/loopshift/internal/core/ecs"
	"github.com/threeworlds/loopshift/internal/core/event"
	"github.com/threeworlds/loopshift/internal/core/sched"
)

// Player ties the player's health to the loop: dying resets the world to
// the last checkpoint and restores full health. The reset runs on the next
// scheduler advance so it never nests inside a world broadcast.
type Player struct {
	env    Env
	id     ecs.EntityID
	health *Health
	reset  sched.Handle
	subs   event.Subscriptions
}

// NewPlayer attaches health to id, marks it as the player and hands its
// body to the orchestrator.
func NewPlayer(env Env, id ecs.EntityID, health *Health) *Player {
	p := &Player{env: env, id: id, health: health}
	env.World.Attach(id, health)
	env.World.SetPlayer(id)
	env.Orch.SetPlayer(env.World.PlayerBody())
	event.Bind(&p.subs, &health.Died, func(struct{}) { p.die() })
	return p
}

func (p *Player) ID() ecs.EntityID { return p.id }
func (p *Player) Health() *Health  { return p.health }

func (p *Player) die() {
	if p.reset != 0 {
		return
	}
	p.env.Log.Info("player died, resetting loop", zap.String("player", p.env.World.Name(p.id)))
	p.reset = p.env.Sched.After(0, func() {
		p.reset = 0
		p.env.Orch.ResetWorld()
		p.health.SetHealth(p.health.Max())
	})
}

func (p *Player) Teardown() {
	if p.reset != 0 {
		p.env.Sched.Cancel(p.reset)
		p.reset = 0
	}
	p.subs.Cancel()
}
