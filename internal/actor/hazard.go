package actor

import (
	"slices"
	"time"

	"github.com/threeworlds/loopshift/internal/core/ecs"
	"github.com/threeworlds/loopshift/internal/core/event"
	"github.com/threeworlds/loopshift/internal/core/sched"
	"github.com/threeworlds/loopshift/internal/shift"
	"github.com/threeworlds/loopshift/internal/world"
)

const (
	DefaultHazardDamage = 20.0
	DefaultHazardTick   = time.Second
)

// HazardConfig tunes a hazard.
type HazardConfig struct {
	Name         string
	Damage       float64
	Continuous   bool
	TickInterval time.Duration
	ActiveSound  string
	ActiveEffect string
}

// DefaultHazardConfig deals 20 on contact.
func DefaultHazardConfig() HazardConfig {
	return HazardConfig{Damage: DefaultHazardDamage, TickInterval: DefaultHazardTick}
}

// Hazard damages Damageable actors touching it while its behavior state is
// Solid or TimedSolid. In continuous mode it damages every touching actor
// once per tick instead of once on contact.
type Hazard struct {
	cfg      HazardConfig
	env      Env
	id       ecs.EntityID
	behavior *shift.Behavior

	active      bool
	overlapping map[ecs.EntityID]struct{}
	tick        sched.Handle
	subs        event.Subscriptions
}

func NewHazard(env Env, id ecs.EntityID, cfg HazardConfig, behavior *shift.Behavior) *Hazard {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultHazardTick
	}
	h := &Hazard{
		cfg:         cfg,
		env:         env,
		id:          id,
		behavior:    behavior,
		overlapping: make(map[ecs.EntityID]struct{}, 4),
	}
	active := true
	if behavior != nil {
		event.Bind(&h.subs, &behavior.StateChanged, func(c shift.BehaviorChange) {
			h.setActive(c.State.SolidCapable())
		})
		active = behavior.IsCurrentlySolid() || behavior.CurrentState().SolidCapable()
	}
	env.World.Attach(id, h)
	h.setActive(active)
	return h
}

func (h *Hazard) ID() ecs.EntityID { return h.id }
func (h *Hazard) Active() bool     { return h.active }

// Tracked returns the actors queued for continuous damage.
func (h *Hazard) Tracked() []ecs.EntityID {
	out := make([]ecs.EntityID, 0, len(h.overlapping))
	for id := range h.overlapping {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (h *Hazard) setActive(active bool) {
	if active == h.active {
		return
	}
	h.active = active
	if !active {
		clear(h.overlapping)
		if h.tick != 0 {
			h.env.Sched.Cancel(h.tick)
			h.tick = 0
		}
		return
	}

	at := h.env.location(h.id)
	h.env.sound(h.cfg.ActiveSound, at)
	h.env.particle(h.cfg.ActiveEffect, at)
	if h.cfg.Continuous && h.tick == 0 {
		h.tick = h.env.Sched.Every(h.cfg.TickInterval, h.damageTracked)
	}
	for _, other := range h.env.World.Overlapping(h.id) {
		h.touch(other)
	}
}

func (h *Hazard) BeginOverlap(other ecs.EntityID) {
	if !h.active || other == h.id {
		return
	}
	h.touch(other)
}

func (h *Hazard) EndOverlap(other ecs.EntityID) {
	delete(h.overlapping, other)
}

func (h *Hazard) touch(other ecs.EntityID) {
	if h.cfg.Continuous {
		h.overlapping[other] = struct{}{}
		return
	}
	h.damage(other)
}

func (h *Hazard) damageTracked() {
	if !h.active {
		return
	}
	for _, id := range h.Tracked() {
		if !h.env.World.Alive(id) {
			delete(h.overlapping, id)
			continue
		}
		h.damage(id)
	}
}

func (h *Hazard) damage(target ecs.EntityID) {
	if target == h.id || h.cfg.Damage <= 0 {
		return
	}
	if d, ok := world.Find[Damageable](h.env.World, target); ok {
		d.ApplyDamage(h.cfg.Damage)
	}
}

func (h *Hazard) Teardown() {
	if h.tick != 0 {
		h.env.Sched.Cancel(h.tick)
		h.tick = 0
	}
	h.subs.Cancel()
}
