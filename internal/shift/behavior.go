package shift

import (
	"github.com/threeworlds/loopshift/internal/core/event"
	"github.com/threeworlds/loopshift/internal/host"
)

// Materials are the material refs a behavior swaps onto its meshes. Empty
// refs are skipped.
type Materials struct {
	Slot       int
	Solid      string
	PreWarning string
	Ghost      map[WorldState]string
	Hint       map[WorldState]string
}

// BehaviorConfig describes one object's world behaviour.
type BehaviorConfig struct {
	Name      string
	Prefab    Prefab
	Behaviors BehaviorMap
	Materials Materials
}

// BehaviorChange is emitted when the resolved state or world changes.
type BehaviorChange struct {
	State PlatformState
	World WorldState
}

// GhostHint is the preview state: visible and keyed to World, or hidden.
type GhostHint struct {
	Visible bool
	World   WorldState
}

// Behavior resolves one object's state for the current world and drives its
// mesh. A secondary hint mesh previews the nearest world in which the
// object would block.
type Behavior struct {
	name      string
	behaviors BehaviorMap
	mats      Materials
	mesh      host.Mesh
	hintMesh  host.Mesh

	orch     *Orchestrator
	subs     event.Subscriptions
	state    PlatformState
	world    WorldState
	applied  bool
	hint     GhostHint

	material    MaterialState
	materialSet bool

	StateChanged    event.Signal[BehaviorChange]
	MaterialChanged event.Signal[MaterialState]
	// PreWarned carries the upcoming phase while this object is TimedSolid.
	PreWarned event.Signal[bool]
}

// NewBehavior builds a behavior. An empty Behaviors map is filled from the
// prefab; prefabs may be nil to use the built-in table. Either mesh may be nil.
func NewBehavior(cfg BehaviorConfig, prefabs *PrefabTable, mesh, hintMesh host.Mesh) *Behavior {
	if prefabs == nil {
		prefabs = DefaultPrefabs()
	}
	return &Behavior{
		name:      cfg.Name,
		behaviors: prefabs.BuildBehaviorMap(cfg.Prefab, cfg.Behaviors),
		mats:      cfg.Materials,
		mesh:      mesh,
		hintMesh:  hintMesh,
	}
}

func (b *Behavior) Name() string                 { return b.name }
func (b *Behavior) Behaviors() BehaviorMap       { return b.behaviors.Clone() }
func (b *Behavior) CurrentState() PlatformState  { return b.state }
func (b *Behavior) CurrentWorld() WorldState     { return b.world }
func (b *Behavior) MaterialState() MaterialState { return b.material }
func (b *Behavior) Hint() GhostHint              { return b.hint }

// IsCurrentlySolid reports whether the object blocks right now.
func (b *Behavior) IsCurrentlySolid() bool { return b.materialSet && b.material == MaterialSolid }

// Bind subscribes to o and applies the current world immediately. Binding
// again first drops the previous subscriptions. A nil orchestrator leaves
// the object resolving on its own, with TimedSolid degraded to Solid.
func (b *Behavior) Bind(o *Orchestrator) {
	b.subs.Cancel()
	b.orch = o
	if o.ready() {
		event.Bind(&b.subs, &o.WorldShifted, b.onWorldShifted)
		event.Bind(&b.subs, &o.cycle.PhaseChanged, b.onPhaseChanged)
		event.Bind(&b.subs, &o.cycle.PreWarning, b.onPreWarning)
	}
	w := o.CurrentWorld()
	b.Apply(b.Resolve(w), w)
	b.UpdateGhostHint(w)
}

// Teardown drops every subscription. Safe to call more than once.
func (b *Behavior) Teardown() {
	b.subs.Cancel()
	b.orch = nil
}

// Bound reports whether the behavior holds live subscriptions.
func (b *Behavior) Bound() bool { return b.subs.Len() > 0 }

// Resolve looks the world up in the behaviour map (Solid when absent).
func (b *Behavior) Resolve(w WorldState) PlatformState {
	return b.behaviors.Resolve(w)
}

// Apply puts the object into state for world w.
func (b *Behavior) Apply(state PlatformState, w WorldState) {
	changed := !b.applied || state != b.state || w != b.world
	b.state, b.world, b.applied = state, w, true

	switch state {
	case Solid:
		b.applySolid()
	case Ghost:
		b.applyGhost(w)
	case Hidden:
		b.applyHidden()
	case TimedSolid:
		if b.orch.ready() && !b.orch.TimedSolidPhase() {
			b.applyGhost(w)
		} else {
			b.applySolid()
		}
	}
	if changed {
		b.StateChanged.Emit(BehaviorChange{State: state, World: w})
	}
}

// UpdateGhostHint shows the hint mesh keyed to the nearest world (walking
// forward from w) in which the object would block, or hides it when the
// object already blocks in w or blocks nowhere else.
func (b *Behavior) UpdateGhostHint(w WorldState) {
	if b.Resolve(w).SolidCapable() {
		b.setHint(GhostHint{})
		return
	}
	for i := 1; i < WorldCount; i++ {
		other := w.Step(i)
		if b.Resolve(other).SolidCapable() {
			b.setHint(GhostHint{Visible: true, World: other})
			return
		}
	}
	b.setHint(GhostHint{})
}

func (b *Behavior) setHint(h GhostHint) {
	b.hint = h
	if b.hintMesh == nil {
		return
	}
	b.hintMesh.SetCollisionEnabled(false)
	if h.Visible {
		b.paint(b.hintMesh, b.mats.Hint[h.World])
	}
	b.hintMesh.SetVisible(h.Visible)
}

func (b *Behavior) onWorldShifted(ws WorldShift) {
	b.Apply(b.Resolve(ws.To), ws.To)
	b.UpdateGhostHint(ws.To)
}

func (b *Behavior) onPhaseChanged(bool) {
	if b.state == TimedSolid {
		b.Apply(TimedSolid, b.world)
	}
}

func (b *Behavior) onPreWarning(next bool) {
	if b.state != TimedSolid {
		return
	}
	b.applyPreWarning()
	b.PreWarned.Emit(next)
}

func (b *Behavior) applySolid() {
	if b.mesh != nil {
		b.mesh.SetVisible(true)
		b.mesh.SetCollisionEnabled(true)
		b.paint(b.mesh, b.mats.Solid)
	}
	b.setMaterial(MaterialSolid)
}

func (b *Behavior) applyGhost(w WorldState) {
	if b.mesh != nil {
		b.mesh.SetVisible(true)
		b.mesh.SetCollisionEnabled(false)
		b.paint(b.mesh, b.mats.Ghost[w])
	}
	b.setMaterial(MaterialGhost)
}

func (b *Behavior) applyHidden() {
	if b.mesh != nil {
		b.mesh.SetVisible(false)
		b.mesh.SetCollisionEnabled(false)
	}
	b.setMaterial(MaterialHidden)
}

// applyPreWarning shows the warning material with collision already off.
func (b *Behavior) applyPreWarning() {
	if b.mesh != nil {
		b.mesh.SetVisible(true)
		b.mesh.SetCollisionEnabled(false)
		b.paint(b.mesh, b.mats.PreWarning)
	}
	b.setMaterial(MaterialGhost)
}

func (b *Behavior) setMaterial(m MaterialState) {
	if b.materialSet && m == b.material {
		return
	}
	b.material, b.materialSet = m, true
	b.MaterialChanged.Emit(m)
}

func (b *Behavior) paint(m host.Mesh, ref string) {
	if ref != "" {
		m.SetMaterial(b.mats.Slot, ref)
	}
}
