package host

import "time"

// Recorder is an in-memory Mesh, Effects and Ambience that keeps the latest
// mesh state and a log of cues. Tests and the console's status dump read it.
type Recorder struct {
	Visible    bool
	Collision  bool
	Materials  map[int]string
	Colors     map[string]Color
	MeshWrites int

	Sounds      []string
	Particles   []string
	Flashes     []Color
	PostProcess []string
	SoundMixes  []string
}

func NewRecorder() *Recorder {
	return &Recorder{
		Materials: make(map[int]string),
		Colors:    make(map[string]Color),
	}
}

func (r *Recorder) SetVisible(visible bool) {
	r.Visible = visible
	r.MeshWrites++
}

func (r *Recorder) SetCollisionEnabled(enabled bool) {
	r.Collision = enabled
	r.MeshWrites++
}

func (r *Recorder) SetMaterial(slot int, ref string) {
	if ref == "" {
		return
	}
	r.Materials[slot] = ref
	r.MeshWrites++
}

func (r *Recorder) SetColorParameter(name string, c Color) { r.Colors[name] = c }

func (r *Recorder) PlaySoundAt(sound string, _ Vec3) {
	if sound != "" {
		r.Sounds = append(r.Sounds, sound)
	}
}

func (r *Recorder) SpawnParticleAt(system string, _ Vec3) {
	if system != "" {
		r.Particles = append(r.Particles, system)
	}
}

func (r *Recorder) FlashScreen(c Color, _ time.Duration) { r.Flashes = append(r.Flashes, c) }

func (r *Recorder) ApplyPostProcess(profile string, _ time.Duration) {
	r.PostProcess = append(r.PostProcess, profile)
}

func (r *Recorder) PushSoundMix(mix string) { r.SoundMixes = append(r.SoundMixes, mix) }

// Solid reports whether the recorded mesh is both shown and blocking.
func (r *Recorder) Solid() bool { return r.Visible && r.Collision }

// Reset clears the cue logs but keeps mesh state.
func (r *Recorder) Reset() {
	r.Sounds, r.Particles, r.Flashes = nil, nil, nil
	r.PostProcess, r.SoundMixes = nil, nil
	r.MeshWrites = 0
}
