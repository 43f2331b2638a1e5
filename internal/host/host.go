// Package host declares the collaborators the simulation drives but does not
// implement: meshes (visibility, collision, materials), fire-and-forget
// effects, world ambience and the player body. A game client binds real
// engine objects behind these interfaces; the daemon binds the logging
// implementations in this package.
package host

import (
	"math"
	"time"
)

// Vec3 is a world-space location or velocity.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Dist returns the euclidean distance between v and o.
func (v Vec3) Dist(o Vec3) float64 {
	d := v.Sub(o)
	return math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
}

func (v Vec3) IsZero() bool { return v == Vec3{} }

// Color is a linear RGBA color.
type Color struct {
	R, G, B, A float64
}

// Mesh is the rendering and collision proxy of one object.
type Mesh interface {
	SetVisible(visible bool)
	SetCollisionEnabled(enabled bool)
	SetMaterial(slot int, ref string)
}

// Tintable meshes accept named color parameters (button idle/pressed colors).
type Tintable interface {
	SetColorParameter(name string, c Color)
}

// Effects are one-shot presentation cues. Missing assets are the host's
// problem; callers never check for failure.
type Effects interface {
	PlaySoundAt(sound string, at Vec3)
	SpawnParticleAt(system string, at Vec3)
	FlashScreen(c Color, d time.Duration)
}

// Ambience is the per-world post-process and sound mix feedback.
type Ambience interface {
	ApplyPostProcess(profile string, blend time.Duration)
	PushSoundMix(mix string)
}

// Body is an actor the simulation can relocate (the player on reset).
type Body interface {
	Location() Vec3
	SetLocation(loc Vec3)
	StopMovement()
}
