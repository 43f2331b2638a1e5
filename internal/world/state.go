// Package world holds the live simulation state: which actors exist, where
// they are, what they are tagged with, which capabilities they expose and
// who overlaps whom. Accessed only from the simulation goroutine, no locks.
package world

import (
	"math"
	"slices"

	"github.com/threeworlds/loopshift/internal/core/ecs"
	"github.com/threeworlds/loopshift/internal/core/event"
	"github.com/threeworlds/loopshift/internal/host"
)

// Kind classifies an actor for lookups and console output.
type Kind uint8

const (
	KindPlayer Kind = iota
	KindPlatform
	KindButton
	KindDoor
	KindHazard
	KindPickup
	KindHintTrigger
	KindCheckpoint
)

var kindNames = [...]string{"player", "platform", "button", "door", "hazard", "pickup", "hint", "checkpoint"}

func (k Kind) String() string {
	if int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Actor is the identity component every spawned entity carries.
type Actor struct {
	Name string
	Kind Kind
	Tags []string
}

// HasTag reports whether the actor carries tag.
func (a *Actor) HasTag(tag string) bool { return slices.Contains(a.Tags, tag) }

// Transform is an actor's location and velocity.
type Transform struct {
	Location host.Vec3
	Velocity host.Vec3
}

// OverlapHandler receives overlap begin/end reports for its actor.
type OverlapHandler interface {
	BeginOverlap(other ecs.EntityID)
	EndOverlap(other ecs.EntityID)
}

type capabilities struct {
	items []any
}

// State is the registry of live actors.
type State struct {
	ecs        *ecs.World
	actors     *ecs.Store[Actor]
	transforms *ecs.Store[Transform]
	caps       *ecs.Store[capabilities]
	byName     map[string]ecs.EntityID
	overlaps   map[ecs.EntityID]map[ecs.EntityID]struct{}
	grid       *Grid
	player     ecs.EntityID

	// Despawned fires while the actor is still alive, just before its
	// components are removed.
	Despawned event.Signal[ecs.EntityID]
}

func NewState(w *ecs.World) *State {
	s := &State{
		ecs:        w,
		actors:     ecs.NewStore[Actor](),
		transforms: ecs.NewStore[Transform](),
		caps:       ecs.NewStore[capabilities](),
		byName:     make(map[string]ecs.EntityID, 64),
		overlaps:   make(map[ecs.EntityID]map[ecs.EntityID]struct{}, 16),
		grid:       NewGrid(DefaultCellSize),
	}
	w.Register(s.actors)
	w.Register(s.transforms)
	w.Register(s.caps)
	w.OnDestroy(s.forget)
	return s
}

// ECS exposes the underlying entity world.
func (s *State) ECS() *ecs.World { return s.ecs }

// Spawn creates an actor. A later actor with the same name shadows the
// earlier one in ByName.
func (s *State) Spawn(name string, kind Kind, loc host.Vec3, tags ...string) ecs.EntityID {
	id := s.ecs.CreateEntity()
	s.actors.Set(id, &Actor{Name: name, Kind: kind, Tags: slices.Clone(tags)})
	s.transforms.Set(id, &Transform{Location: loc})
	s.grid.Add(id, loc)
	if name != "" {
		s.byName[name] = id
	}
	return id
}

// Despawn queues the actor for destruction at the end of the tick.
func (s *State) Despawn(id ecs.EntityID) {
	s.ecs.MarkForDestruction(id)
}

func (s *State) Alive(id ecs.EntityID) bool { return s.ecs.Alive(id) }

// Count returns the number of live actors.
func (s *State) Count() int { return s.actors.Len() }

func (s *State) Actor(id ecs.EntityID) (*Actor, bool) {
	if !s.ecs.Alive(id) {
		return nil, false
	}
	return s.actors.Get(id)
}

// Name returns the actor's name, or its id string when unknown.
func (s *State) Name(id ecs.EntityID) string {
	if a, ok := s.Actor(id); ok && a.Name != "" {
		return a.Name
	}
	return id.String()
}

func (s *State) ByName(name string) (ecs.EntityID, bool) {
	id, ok := s.byName[name]
	if !ok || !s.ecs.Alive(id) {
		return 0, false
	}
	return id, true
}

// Each visits live actors in id order.
func (s *State) Each(fn func(ecs.EntityID, *Actor)) {
	s.actors.Each(fn)
}

// Attach registers a capability (Damageable, Interactable, OverlapHandler,
// ...) on the actor. Find retrieves it by interface type.
func (s *State) Attach(id ecs.EntityID, c any) {
	if !s.ecs.Alive(id) || c == nil {
		return
	}
	set, ok := s.caps.Get(id)
	if !ok {
		set = &capabilities{}
		s.caps.Set(id, set)
	}
	set.items = append(set.items, c)
}

// Find returns the first capability attached to id that implements T.
func Find[T any](s *State, id ecs.EntityID) (T, bool) {
	var zero T
	if !s.ecs.Alive(id) {
		return zero, false
	}
	set, ok := s.caps.Get(id)
	if !ok {
		return zero, false
	}
	for _, c := range set.items {
		if v, ok := c.(T); ok {
			return v, true
		}
	}
	return zero, false
}

func (s *State) Location(id ecs.EntityID) (host.Vec3, bool) {
	if !s.ecs.Alive(id) {
		return host.Vec3{}, false
	}
	t, ok := s.transforms.Get(id)
	if !ok {
		return host.Vec3{}, false
	}
	return t.Location, true
}

func (s *State) SetLocation(id ecs.EntityID, loc host.Vec3) {
	if t, ok := s.transforms.Get(id); ok && s.ecs.Alive(id) {
		t.Location = loc
		s.grid.Move(id, loc)
	}
}

func (s *State) Velocity(id ecs.EntityID) host.Vec3 {
	if t, ok := s.transforms.Get(id); ok && s.ecs.Alive(id) {
		return t.Velocity
	}
	return host.Vec3{}
}

func (s *State) SetVelocity(id ecs.EntityID, v host.Vec3) {
	if t, ok := s.transforms.Get(id); ok && s.ecs.Alive(id) {
		t.Velocity = v
	}
}

// Integrate advances every moving actor by its velocity over dt seconds.
func (s *State) Integrate(dt float64) {
	s.transforms.Each(func(id ecs.EntityID, t *Transform) {
		if t.Velocity.IsZero() {
			return
		}
		t.Location.X += t.Velocity.X * dt
		t.Location.Y += t.Velocity.Y * dt
		t.Location.Z += t.Velocity.Z * dt
		s.grid.Move(id, t.Location)
	})
}

// Within returns live actors no further than radius from loc, in id order,
// skipping exclude.
func (s *State) Within(loc host.Vec3, radius float64, exclude ecs.EntityID) []ecs.EntityID {
	var out []ecs.EntityID
	for _, id := range s.grid.Nearby(loc, radius) {
		if id == exclude || !s.ecs.Alive(id) {
			continue
		}
		if t, ok := s.transforms.Get(id); ok && loc.Dist(t.Location) <= radius {
			out = append(out, id)
		}
	}
	return out
}

// WithTag returns live actors carrying tag, in id order.
func (s *State) WithTag(tag string) []ecs.EntityID {
	var out []ecs.EntityID
	s.actors.Each(func(id ecs.EntityID, a *Actor) {
		if a.HasTag(tag) {
			out = append(out, id)
		}
	})
	return out
}

// NearestWithTag returns the tagged actor closest to from, skipping exclude.
// Ties go to the lower id.
func (s *State) NearestWithTag(tag string, from host.Vec3, exclude ecs.EntityID) (ecs.EntityID, bool) {
	best := ecs.EntityID(0)
	bestDist := math.Inf(1)
	ecs.Each2(s.actors, s.transforms, func(id ecs.EntityID, a *Actor, t *Transform) {
		if id == exclude || !a.HasTag(tag) {
			return
		}
		if d := from.Dist(t.Location); d < bestDist {
			best, bestDist = id, d
		}
	})
	return best, !best.IsZero()
}

// SetPlayer marks id as the player-controlled actor.
func (s *State) SetPlayer(id ecs.EntityID) { s.player = id }

// Player returns the player actor, or zero when there is none alive.
func (s *State) Player() ecs.EntityID {
	if !s.ecs.Alive(s.player) {
		return 0
	}
	return s.player
}

func (s *State) IsPlayer(id ecs.EntityID) bool { return !id.IsZero() && id == s.Player() }

// PlayerBody adapts the player actor to host.Body.
func (s *State) PlayerBody() host.Body { return &playerBody{s: s} }

type playerBody struct{ s *State }

func (b *playerBody) Location() host.Vec3 {
	loc, _ := b.s.Location(b.s.Player())
	return loc
}

func (b *playerBody) SetLocation(loc host.Vec3) { b.s.SetLocation(b.s.Player(), loc) }

func (b *playerBody) StopMovement() { b.s.SetVelocity(b.s.Player(), host.Vec3{}) }

// BeginOverlap records that a and b touch and notifies both sides' handlers.
// Repeated reports for the same pair are ignored.
func (s *State) BeginOverlap(a, b ecs.EntityID) bool {
	if a == b || !s.ecs.Alive(a) || !s.ecs.Alive(b) {
		return false
	}
	if _, ok := s.overlaps[a][b]; ok {
		return false
	}
	s.link(a, b)
	s.link(b, a)
	if h, ok := Find[OverlapHandler](s, a); ok {
		h.BeginOverlap(b)
	}
	if h, ok := Find[OverlapHandler](s, b); ok && s.ecs.Alive(a) {
		h.BeginOverlap(a)
	}
	return true
}

// EndOverlap separates a and b and notifies both sides.
func (s *State) EndOverlap(a, b ecs.EntityID) bool {
	if _, ok := s.overlaps[a][b]; !ok {
		return false
	}
	s.unlink(a, b)
	s.unlink(b, a)
	if h, ok := Find[OverlapHandler](s, a); ok {
		h.EndOverlap(b)
	}
	if h, ok := Find[OverlapHandler](s, b); ok {
		h.EndOverlap(a)
	}
	return true
}

// Overlapping returns the live actors currently touching id, in id order.
func (s *State) Overlapping(id ecs.EntityID) []ecs.EntityID {
	out := make([]ecs.EntityID, 0, len(s.overlaps[id]))
	for other := range s.overlaps[id] {
		if s.ecs.Alive(other) {
			out = append(out, other)
		}
	}
	slices.Sort(out)
	return out
}

func (s *State) link(a, b ecs.EntityID) {
	set, ok := s.overlaps[a]
	if !ok {
		set = make(map[ecs.EntityID]struct{}, 4)
		s.overlaps[a] = set
	}
	set[b] = struct{}{}
}

func (s *State) unlink(a, b ecs.EntityID) {
	if set, ok := s.overlaps[a]; ok {
		delete(set, b)
		if len(set) == 0 {
			delete(s.overlaps, a)
		}
	}
}

// forget runs while id is still alive, just before its components go.
// Partners get an EndOverlap so their tracked sets stay clean.
func (s *State) forget(id ecs.EntityID) {
	for _, other := range s.Overlapping(id) {
		s.EndOverlap(id, other)
	}
	s.Despawned.Emit(id)
	s.grid.Remove(id)
	if a, ok := s.actors.Get(id); ok && s.byName[a.Name] == id {
		delete(s.byName, a.Name)
	}
}
