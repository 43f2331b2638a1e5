package host

import (
	"time"

	"go.uber.org/zap"
)

// LogMesh reports mesh changes to the debug log. The daemon has no renderer,
// so this is how object state becomes visible to an operator.
type LogMesh struct {
	Name string
	log  *zap.Logger

	visible   bool
	collision bool
	materials map[int]string
}

func NewLogMesh(name string, log *zap.Logger) *LogMesh {
	return &LogMesh{Name: name, log: log, materials: make(map[int]string, 2)}
}

func (m *LogMesh) SetVisible(visible bool) {
	if m.visible == visible {
		return
	}
	m.visible = visible
	m.log.Debug("mesh visibility", zap.String("mesh", m.Name), zap.Bool("visible", visible))
}

func (m *LogMesh) SetCollisionEnabled(enabled bool) {
	if m.collision == enabled {
		return
	}
	m.collision = enabled
	m.log.Debug("mesh collision", zap.String("mesh", m.Name), zap.Bool("enabled", enabled))
}

func (m *LogMesh) SetMaterial(slot int, ref string) {
	if ref == "" || m.materials[slot] == ref {
		return
	}
	m.materials[slot] = ref
	m.log.Debug("mesh material", zap.String("mesh", m.Name), zap.Int("slot", slot), zap.String("material", ref))
}

func (m *LogMesh) SetColorParameter(name string, c Color) {
	m.log.Debug("mesh color", zap.String("mesh", m.Name), zap.String("param", name),
		zap.Float64s("rgba", []float64{c.R, c.G, c.B, c.A}))
}

func (m *LogMesh) Visible() bool          { return m.visible }
func (m *LogMesh) CollisionEnabled() bool { return m.collision }

// LogFeedback implements Effects and Ambience on top of zap.
type LogFeedback struct {
	log *zap.Logger
}

func NewLogFeedback(log *zap.Logger) *LogFeedback {
	return &LogFeedback{log: log.Named("fx")}
}

func (f *LogFeedback) PlaySoundAt(sound string, at Vec3) {
	if sound == "" {
		return
	}
	f.log.Debug("sound", zap.String("asset", sound), zap.Float64s("at", []float64{at.X, at.Y, at.Z}))
}

func (f *LogFeedback) SpawnParticleAt(system string, at Vec3) {
	if system == "" {
		return
	}
	f.log.Debug("particle", zap.String("asset", system), zap.Float64s("at", []float64{at.X, at.Y, at.Z}))
}

func (f *LogFeedback) FlashScreen(c Color, d time.Duration) {
	f.log.Debug("flash", zap.Float64s("rgba", []float64{c.R, c.G, c.B, c.A}), zap.Duration("duration", d))
}

func (f *LogFeedback) ApplyPostProcess(profile string, blend time.Duration) {
	if profile == "" {
		return
	}
	f.log.Info("post process", zap.String("profile", profile), zap.Duration("blend", blend))
}

func (f *LogFeedback) PushSoundMix(mix string) {
	if mix == "" {
		return
	}
	f.log.Info("sound mix", zap.String("mix", mix))
}
