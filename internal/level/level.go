// Package level turns a decoded level file into live actors.
package level

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/threeworlds/loopshift/internal/actor"
	"github.com/threeworlds/loopshift/internal/core/ecs"
	"github.com/threeworlds/loopshift/internal/core/event"
	"github.com/threeworlds/loopshift/internal/data"
	"github.com/threeworlds/loopshift/internal/host"
	"github.com/threeworlds/loopshift/internal/loop"
	"github.com/threeworlds/loopshift/internal/shift"
	"github.com/threeworlds/loopshift/internal/world"
)

// Surface is a mesh that also takes color parameters.
type Surface interface {
	host.Mesh
	host.Tintable
}

// Deps are the collaborators a level is built against.
type Deps struct {
	Env     actor.Env
	Prefabs *shift.PrefabTable
	Hints   actor.HintSink
	Effects actor.ShiftEffectsConfig
	Cost    actor.CostFunc
	// Surfaces makes the mesh for a named object. Nil uses logging meshes.
	Surfaces func(name string) Surface
}

// Level owns everything one Build spawned.
type Level struct {
	name  string
	env   actor.Env
	spawn host.Vec3

	player  *actor.Player
	effects *actor.ShiftEffects

	ids         []ecs.EntityID
	owned       map[ecs.EntityID][]actor.Teardowner
	buttons     map[string]*actor.Button
	doors       map[string]*actor.Door
	platforms   map[string]*actor.Platform
	checkpoints map[string]*shift.Checkpoint
	subs        event.Subscriptions
	torn        bool
}

// StartWorld returns the level's start world, or fallback when unset.
func StartWorld(spec *data.Level, fallback shift.WorldState) (shift.WorldState, error) {
	if spec.StartWorld == "" {
		return fallback, nil
	}
	return shift.ParseWorld(spec.StartWorld)
}

// Build spawns spec into d.Env.World and wires every object to the
// orchestrator. On error everything spawned so far is torn down.
func Build(spec *data.Level, d Deps) (_ *Level, err error) {
	if d.Prefabs == nil {
		d.Prefabs = shift.DefaultPrefabs()
	}
	if d.Surfaces == nil {
		log := d.Env.Log.Named("mesh")
		d.Surfaces = func(name string) Surface { return host.NewLogMesh(name, log) }
	}
	l := &Level{
		name:        spec.Name,
		env:         d.Env,
		spawn:       spec.Spawn,
		owned:       make(map[ecs.EntityID][]actor.Teardowner),
		buttons:     make(map[string]*actor.Button),
		doors:       make(map[string]*actor.Door),
		platforms:   make(map[string]*actor.Platform),
		checkpoints: make(map[string]*shift.Checkpoint),
	}
	event.Bind(&l.subs, &d.Env.World.Despawned, l.reap)
	defer func() {
		if err != nil {
			l.Teardown()
		}
	}()

	b := builder{l: l, d: d}
	b.checkpoints(spec)
	b.player(spec)
	for _, p := range spec.Platforms {
		if err := b.platform(p); err != nil {
			return nil, err
		}
	}
	for _, s := range spec.Doors {
		if err := b.door(s); err != nil {
			return nil, err
		}
	}
	for _, s := range spec.Hazards {
		if err := b.hazard(s); err != nil {
			return nil, err
		}
	}
	for _, s := range spec.Pickups {
		if err := b.pickup(s); err != nil {
			return nil, err
		}
	}
	for _, s := range spec.Hints {
		if err := b.hint(s); err != nil {
			return nil, err
		}
	}
	for _, s := range spec.Buttons {
		if err := b.button(s); err != nil {
			return nil, err
		}
	}
	b.link(spec)

	d.Env.Log.Info("level built",
		zap.String("level", spec.Name),
		zap.Int("actors", len(l.ids)))
	return l, nil
}

func (l *Level) Name() string { return l.name }

// Actors returns the ids this level spawned that are still alive.
func (l *Level) Actors() []ecs.EntityID {
	out := make([]ecs.EntityID, 0, len(l.ids))
	for _, id := range l.ids {
		if l.env.World.Alive(id) {
			out = append(out, id)
		}
	}
	return out
}

func (l *Level) Player() *actor.Player                { return l.player }
func (l *Level) Effects() *actor.ShiftEffects         { return l.effects }
func (l *Level) Button(name string) *actor.Button     { return l.buttons[name] }
func (l *Level) Door(name string) *actor.Door         { return l.doors[name] }
func (l *Level) Platform(name string) *actor.Platform { return l.platforms[name] }

// ButtonNames lists buttons alphabetically.
func (l *Level) ButtonNames() []string {
	out := make([]string, 0, len(l.buttons))
	for name := range l.buttons {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Checkpoint returns a named checkpoint.
func (l *Level) Checkpoint(name string) (*shift.Checkpoint, bool) {
	cp, ok := l.checkpoints[name]
	return cp, ok
}

func (l *Level) own(id ecs.EntityID, t ...actor.Teardowner) {
	l.owned[id] = append(l.owned[id], t...)
}

// reap releases the actors attached to an id destroyed mid-level.
func (l *Level) reap(id ecs.EntityID) {
	for _, t := range l.owned[id] {
		t.Teardown()
	}
	delete(l.owned, id)
}

// Teardown releases every timer and subscription and despawns the level's
// actors. The caller flushes the destroy queue.
func (l *Level) Teardown() {
	if l.torn {
		return
	}
	l.torn = true
	l.subs.Cancel()
	if l.effects != nil {
		l.effects.Teardown()
	}
	for _, id := range l.ids {
		l.reap(id)
		l.env.World.Despawn(id)
	}
}

// checkpointTrigger makes its checkpoint the reset target when the player
// touches it.
type checkpointTrigger struct {
	env actor.Env
	cp  *shift.Checkpoint
}

func (c *checkpointTrigger) BeginOverlap(other ecs.EntityID) {
	if !c.env.World.IsPlayer(other) || c.env.Orch.ResetCheckpoint() == c.cp {
		return
	}
	if c.env.Orch.SetResetCheckpoint(c.cp) {
		c.env.Log.Info("checkpoint reached", zap.String("checkpoint", c.cp.Name))
	}
}

func (c *checkpointTrigger) EndOverlap(ecs.EntityID) {}

type builder struct {
	l *Level
	d Deps
}

func (b *builder) spawn(name string, kind world.Kind, loc host.Vec3, tags ...string) ecs.EntityID {
	id := b.d.Env.World.Spawn(name, kind, loc, tags...)
	b.l.ids = append(b.l.ids, id)
	return id
}

func (b *builder) checkpoints(spec *data.Level) {
	env := b.d.Env
	sim := env.Orch.Simulation()
	for _, c := range spec.Checkpoints {
		id := b.spawn(c.Name, world.KindCheckpoint, c.Location)
		cp := sim.NewCheckpoint(c.Name, c.Location)
		b.l.checkpoints[c.Name] = cp
		env.World.Attach(id, &checkpointTrigger{env: env, cp: cp})
	}
	if cp, ok := b.l.checkpoints[spec.DefaultCheckpoint]; ok {
		env.Orch.SetDefaultCheckpoint(cp)
	}
	env.Orch.SetSpawnPoint(spec.Spawn)
}

func (b *builder) player(spec *data.Level) {
	loc := spec.Player.Location
	if loc.IsZero() {
		loc = spec.Spawn
	}
	id := b.spawn(spec.Player.Name, world.KindPlayer, loc)
	health := actor.NewHealth(spec.Player.MaxHealth)
	b.l.player = actor.NewPlayer(b.d.Env, id, health)
	b.l.own(id, b.l.player)
	b.l.effects = actor.NewShiftEffects(b.d.Env, id, b.d.Effects, b.d.Cost)
}

// behavior builds the shift behavior for a shape. mesh may be nil.
func (b *builder) behavior(s data.ShapeSpec, fallback shift.BehaviorMap, mesh host.Mesh, withHint bool) (*shift.Behavior, error) {
	explicit, err := s.Behaviors.Behaviors()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name, err)
	}
	if len(explicit) == 0 && s.Prefab == "" {
		explicit = fallback
	}
	ghost, err := s.Materials.Ghost.Resolve()
	if err != nil {
		return nil, fmt.Errorf("%s ghost materials: %w", s.Name, err)
	}
	hint, err := s.Materials.Hint.Resolve()
	if err != nil {
		return nil, fmt.Errorf("%s hint materials: %w", s.Name, err)
	}
	var hintMesh host.Mesh
	if withHint {
		hintMesh = b.d.Surfaces(s.Name + ".hint")
	}
	return shift.NewBehavior(shift.BehaviorConfig{
		Name:      s.Name,
		Prefab:    shift.Prefab(s.Prefab),
		Behaviors: explicit,
		Materials: shift.Materials{
			Slot:       s.Materials.Slot,
			Solid:      s.Materials.Solid,
			PreWarning: s.Materials.PreWarning,
			Ghost:      ghost,
			Hint:       hint,
		},
	}, b.d.Prefabs, mesh, hintMesh), nil
}

func (b *builder) platform(s data.PlatformSpec) error {
	bh, err := b.behavior(s.ShapeSpec, nil, b.d.Surfaces(s.Name), true)
	if err != nil {
		return err
	}
	id := b.spawn(s.Name, world.KindPlatform, s.Location, s.Tags...)
	p := actor.NewPlatform(b.d.Env, id, bh)
	b.l.platforms[s.Name] = p
	b.l.own(id, p)
	return nil
}

func (b *builder) door(s data.DoorSpec) error {
	bh, err := b.behavior(s.ShapeSpec, actor.SolidIn(shift.AllWorlds()...), nil, false)
	if err != nil {
		return err
	}
	bh.Bind(b.d.Env.Orch)
	id := b.spawn(s.Name, world.KindDoor, s.Location, s.Tags...)
	door := actor.NewDoor(b.d.Env, id, actor.DoorConfig{Name: s.Name, Sound: s.Sound, OpenTime: s.OpenTime}, bh, b.d.Surfaces(s.Name))
	b.l.doors[s.Name] = door
	b.l.own(id, door, bh)
	return nil
}

func (b *builder) hazard(s data.HazardSpec) error {
	bh, err := b.behavior(s.ShapeSpec, actor.SolidIn(shift.AllWorlds()...), b.d.Surfaces(s.Name), false)
	if err != nil {
		return err
	}
	bh.Bind(b.d.Env.Orch)
	cfg := actor.DefaultHazardConfig()
	cfg.Name = s.Name
	if s.Damage != 0 {
		cfg.Damage = s.Damage
	}
	cfg.Continuous = s.Continuous
	if s.Tick > 0 {
		cfg.TickInterval = s.Tick
	}
	cfg.ActiveSound, cfg.ActiveEffect = s.ActiveSound, s.ActiveEffect
	id := b.spawn(s.Name, world.KindHazard, s.Location, s.Tags...)
	b.l.own(id, actor.NewHazard(b.d.Env, id, cfg, bh), bh)
	return nil
}

func (b *builder) pickup(s data.PickupSpec) error {
	bh, err := b.behavior(s.ShapeSpec, actor.SolidIn(shift.AllWorlds()...), b.d.Surfaces(s.Name), false)
	if err != nil {
		return err
	}
	bh.Bind(b.d.Env.Orch)
	id := b.spawn(s.Name, world.KindPickup, s.Location, s.Tags...)
	p := actor.NewHealthPickup(b.d.Env, id, actor.PickupConfig{Name: s.Name, Amount: s.Amount, Sound: s.Sound}, bh)
	b.l.own(id, p, bh)
	return nil
}

func (b *builder) hint(s data.HintSpec) error {
	cfg := actor.DefaultHintTriggerConfig()
	if s.State != "" {
		st, err := loop.ParseTemporalState(s.State)
		if err != nil {
			return fmt.Errorf("hint %s: %w", s.Name, err)
		}
		cfg.State = st
	}
	cfg.Name = s.Name
	cfg.HintID, cfg.Text = s.ID, s.Text
	cfg.Persistent = s.Persistent
	cfg.LoopToUnlock = s.LoopToUnlock
	cfg.TriggerSound = s.Sound
	cfg.AllowRetrigger = s.Retrigger
	for _, line := range s.Dialog {
		cfg.Dialog = append(cfg.Dialog, actor.DialogLine{Sound: line.Sound, Duration: line.Duration})
	}
	id := b.spawn(s.Name, world.KindHintTrigger, s.Location)
	b.l.own(id, actor.NewHintTrigger(b.d.Env, id, cfg, b.d.Hints))
	return nil
}

func (b *builder) button(s data.ButtonSpec) error {
	solid := []shift.WorldState{shift.Light}
	if len(s.SolidWorlds) > 0 {
		solid = solid[:0]
		for _, name := range s.SolidWorlds {
			w, err := shift.ParseWorld(name)
			if err != nil {
				return fmt.Errorf("button %s: %w", s.Name, err)
			}
			solid = append(solid, w)
		}
	}
	surface := b.d.Surfaces(s.Name)
	bh, err := b.behavior(s.ShapeSpec, actor.SolidIn(solid...), surface, false)
	if err != nil {
		return err
	}
	bh.Bind(b.d.Env.Orch)

	cfg := actor.DefaultButtonConfig()
	cfg.Name = s.Name
	cfg.AutoPressOnOverlap = s.AutoPress
	if s.AutoReset != nil {
		cfg.AutoReset = *s.AutoReset
	}
	if s.ResetDelay != 0 {
		cfg.ResetDelay = s.ResetDelay
	}
	cfg.CanBePressedOnce = s.Once
	cfg.DestroyAfterUse = s.DestroyAfterUse
	cfg.TargetTag = s.TargetTag
	cfg.FindNearestOnly = s.NearestOnly
	cfg.PressSound, cfg.PressEffect = s.PressSound, s.PressEffect

	id := b.spawn(s.Name, world.KindButton, s.Location, s.Tags...)
	btn := actor.NewButton(b.d.Env, id, cfg, bh, surface)
	b.l.buttons[s.Name] = btn
	b.l.own(id, btn, bh)
	return nil
}

// link resolves explicit links by name, then tag discovery for the rest.
func (b *builder) link(spec *data.Level) {
	w := b.d.Env.World
	for _, s := range spec.Buttons {
		btn := b.l.buttons[s.Name]
		for _, name := range s.Links {
			id, ok := w.ByName(name)
			if !ok {
				b.d.Env.Log.Warn("button link names unknown object",
					zap.String("button", s.Name),
					zap.String("target", name))
				continue
			}
			if !btn.RegisterLinkedTarget(id) {
				b.d.Env.Log.Warn("button link ignored",
					zap.String("button", s.Name),
					zap.String("target", name))
			}
		}
		btn.DiscoverLinkedTargets()
	}
}
