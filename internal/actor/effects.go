package actor

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/threeworlds/loopshift/internal/core/ecs"
	"github.com/threeworlds/loopshift/internal/core/event"
	"github.com/threeworlds/loopshift/internal/host"
	"github.com/threeworlds/loopshift/internal/shift"
	"github.com/threeworlds/loopshift/internal/world"
)

const DefaultShiftCost = 5.0

// CostFunc overrides the health cost of a manual shift. It receives the
// configured base cost.
type CostFunc func(ws shift.WorldShift, base float64) float64

// ShiftEffectsConfig tunes the player's shift feedback.
type ShiftEffectsConfig struct {
	HealthCost    float64
	Sounds        map[shift.WorldState]string
	Particles     map[shift.WorldState]string
	Colors        map[shift.WorldState]host.Color
	FlashDuration time.Duration
}

func DefaultShiftEffectsConfig() ShiftEffectsConfig {
	return ShiftEffectsConfig{HealthCost: DefaultShiftCost, FlashDuration: 350 * time.Millisecond}
}

// ShiftEffects plays the switch cues on the owner and charges its health
// for every manual shift.
type ShiftEffects struct {
	cfg   ShiftEffectsConfig
	env   Env
	owner ecs.EntityID
	cost  CostFunc
	subs  event.Subscriptions

	Triggered event.Signal[shift.WorldState]
	// Drained fires when the shift cost actually changed health.
	Drained event.Signal[float64]
}

// NewShiftEffects subscribes to env.Orch. cost may be nil.
func NewShiftEffects(env Env, owner ecs.EntityID, cfg ShiftEffectsConfig, cost CostFunc) *ShiftEffects {
	e := &ShiftEffects{cfg: cfg, env: env, owner: owner, cost: cost}
	if env.Orch != nil {
		event.Bind(&e.subs, &env.Orch.WorldShifted, e.onShift)
	}
	return e
}

func (e *ShiftEffects) onShift(ws shift.WorldShift) {
	if ws.Reason != shift.ReasonManual {
		return
	}
	e.Trigger(ws)
}

// Trigger plays the cues for ws.To and applies the health cost.
func (e *ShiftEffects) Trigger(ws shift.WorldShift) {
	e.Triggered.Emit(ws.To)
	at := e.env.location(e.owner)
	e.env.sound(e.cfg.Sounds[ws.To], at)
	e.env.particle(e.cfg.Particles[ws.To], at)
	if c, ok := e.cfg.Colors[ws.To]; ok && e.env.FX != nil {
		c.A = 1
		e.env.FX.FlashScreen(c, max(e.cfg.FlashDuration, time.Millisecond))
	}
	e.applyCost(ws)
}

// Cost returns the health cost for ws.
func (e *ShiftEffects) Cost(ws shift.WorldShift) float64 {
	c := e.cfg.HealthCost
	if e.cost != nil {
		c = e.cost(ws, c)
	}
	if math.IsNaN(c) {
		return 0
	}
	return math.Abs(c)
}

func (e *ShiftEffects) applyCost(ws shift.WorldShift) {
	if e.cfg.HealthCost <= 0 && e.cost == nil {
		return
	}
	amount := e.Cost(ws)
	if amount <= 0 {
		return
	}
	d, ok := world.Find[Damageable](e.env.World, e.owner)
	if !ok {
		return
	}
	if d.ApplyDamage(amount) {
		e.env.Log.Debug("shift cost applied",
			zap.Stringer("world", ws.To),
			zap.Float64("cost", amount))
		e.Drained.Emit(amount)
	}
}

func (e *ShiftEffects) Teardown() { e.subs.Cancel() }
