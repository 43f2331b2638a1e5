// Package actor holds the reactive consumers of world shifts: buttons,
// doors, hazards, pickups, hint triggers, the player's health and the
// shift feedback. Each one is attached to a world.State actor and reacts
// to its shift.Behavior or to the orchestrator.
package actor

import (
	"go.uber.org/zap"

	"github.com/threeworlds/loopshift/internal/core/ecs"
	"github.com/threeworlds/loopshift/internal/core/sched"
	"github.com/threeworlds/loopshift/internal/host"
	"github.com/threeworlds/loopshift/internal/shift"
	"github.com/threeworlds/loopshift/internal/world"
)

// Env is what every actor needs from the running simulation.
type Env struct {
	World *world.State
	Sched *sched.Scheduler
	Orch  *shift.Orchestrator
	FX    host.Effects
	Log   *zap.Logger
}

func (e Env) location(id ecs.EntityID) host.Vec3 {
	loc, _ := e.World.Location(id)
	return loc
}

func (e Env) sound(sound string, at host.Vec3) {
	if e.FX != nil && sound != "" {
		e.FX.PlaySoundAt(sound, at)
	}
}

func (e Env) particle(system string, at host.Vec3) {
	if e.FX != nil && system != "" {
		e.FX.SpawnParticleAt(system, at)
	}
}

// Damageable actors lose health.
type Damageable interface {
	ApplyDamage(amount float64) bool
}

// Healable actors regain health.
type Healable interface {
	Heal(amount float64) bool
}

// Interactable actors react to a linked button being pressed.
type Interactable interface {
	OnButtonActivated(b *Button)
}

// Teardowner releases timers and subscriptions.
type Teardowner interface {
	Teardown()
}

// SolidIn builds a behaviour map that is Solid in the listed worlds and
// Ghost everywhere else.
func SolidIn(worlds ...shift.WorldState) shift.BehaviorMap {
	m := make(shift.BehaviorMap, shift.WorldCount)
	for _, w := range shift.AllWorlds() {
		m[w] = shift.Ghost
	}
	for _, w := range worlds {
		if w.Valid() {
			m[w] = shift.Solid
		}
	}
	return m
}
