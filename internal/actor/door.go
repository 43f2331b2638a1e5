package actor

import (
	"time"

	"github.com/threeworlds/loopshift/internal/core/ecs"
	"github.com/threeworlds/loopshift/internal/core/event"
	"github.com/threeworlds/loopshift/internal/core/sched"
	"github.com/threeworlds/loopshift/internal/host"
	"github.com/threeworlds/loopshift/internal/shift"
)

// DoorConfig tunes a door.
type DoorConfig struct {
	Name     string
	Sound    string
	OpenTime time.Duration
}

// Door blocks while its behavior's material is solid. A linked button
// toggles a forced-open override on top of that.
type Door struct {
	cfg      DoorConfig
	env      Env
	id       ecs.EntityID
	behavior *shift.Behavior
	mesh     host.Mesh

	material    shift.MaterialState
	materialSet bool
	forcedOpen  bool
	opening     bool
	animTimer   sched.Handle
	blocking    bool
	subs        event.Subscriptions

	// Changed carries the new blocking state.
	Changed event.Signal[bool]
}

// NewDoor attaches a door to actor id. The door owns mesh; the behavior
// given here should drive no mesh of its own.
func NewDoor(env Env, id ecs.EntityID, cfg DoorConfig, behavior *shift.Behavior, mesh host.Mesh) *Door {
	d := &Door{
		cfg:      cfg,
		env:      env,
		id:       id,
		behavior: behavior,
		mesh:     mesh,
		blocking: true,
	}
	material := shift.MaterialSolid
	if behavior != nil {
		event.Bind(&d.subs, &behavior.MaterialChanged, d.onMaterial)
		material = behavior.MaterialState()
	}
	d.onMaterial(material)
	env.World.Attach(id, d)
	return d
}

func (d *Door) ID() ecs.EntityID { return d.id }
func (d *Door) Name() string     { return d.cfg.Name }

// IsBlocking reports whether the door currently stops the player.
func (d *Door) IsBlocking() bool { return d.blocking }

// ForcedOpen reports whether a button has opened the door.
func (d *Door) ForcedOpen() bool { return d.forcedOpen }

func (d *Door) onMaterial(m shift.MaterialState) {
	if d.materialSet && m != d.material {
		d.env.sound(d.cfg.Sound, d.env.location(d.id))
	}
	d.material, d.materialSet = m, true
	d.apply()
}

// OnButtonActivated toggles the forced-open override. With an OpenTime the
// change lands once the animation completes; a second press restarts it.
func (d *Door) OnButtonActivated(*Button) {
	d.forcedOpen = !d.forcedOpen
	if d.animTimer != 0 {
		d.env.Sched.Cancel(d.animTimer)
		d.animTimer = 0
	}
	if d.cfg.OpenTime <= 0 {
		d.opening = false
		d.apply()
		return
	}
	d.opening = true
	d.env.sound(d.cfg.Sound, d.env.location(d.id))
	d.animTimer = d.env.Sched.After(d.cfg.OpenTime, func() {
		d.animTimer = 0
		d.opening = false
		d.apply()
	})
}

// Animating reports whether a toggle is in progress.
func (d *Door) Animating() bool { return d.opening }

func (d *Door) apply() {
	if d.opening {
		return
	}
	blocking := d.material == shift.MaterialSolid && !d.forcedOpen
	if d.mesh != nil {
		d.mesh.SetVisible(blocking)
		d.mesh.SetCollisionEnabled(blocking)
	}
	if blocking != d.blocking {
		d.blocking = blocking
		d.Changed.Emit(blocking)
	}
}

func (d *Door) Teardown() {
	if d.animTimer != 0 {
		d.env.Sched.Cancel(d.animTimer)
		d.animTimer = 0
	}
	d.subs.Cancel()
}
