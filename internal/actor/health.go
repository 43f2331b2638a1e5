package actor

import "github.com/threeworlds/loopshift/internal/core/event"

const DefaultMaxHealth = 100.0

// HealthChange is emitted on every effective health change.
type HealthChange struct {
	Health float64
	Max    float64
	Delta  float64
}

// Health is a clamped pool in [0, max].
type Health struct {
	health float64
	max    float64
	dead   bool

	Changed event.Signal[HealthChange]
	// Died fires once each time health reaches zero.
	Died event.Signal[struct{}]
}

// NewHealth returns a full pool. max <= 0 selects DefaultMaxHealth.
func NewHealth(max float64) *Health {
	if max <= 0 {
		max = DefaultMaxHealth
	}
	return &Health{health: max, max: max}
}

func (h *Health) Health() float64 { return h.health }
func (h *Health) Max() float64    { return h.max }
func (h *Health) IsDead() bool    { return h.dead }

// Fraction returns health / max.
func (h *Health) Fraction() float64 { return h.health / h.max }

// ApplyHealthDelta adds delta and clamps. Returns false when the clamped
// value did not move.
func (h *Health) ApplyHealthDelta(delta float64) bool {
	next := min(max(h.health+delta, 0), h.max)
	if next == h.health {
		return false
	}
	applied := next - h.health
	h.health = next
	h.Changed.Emit(HealthChange{Health: next, Max: h.max, Delta: applied})
	switch {
	case next == 0 && !h.dead:
		h.dead = true
		h.Died.Emit(struct{}{})
	case next > 0:
		h.dead = false
	}
	return true
}

// ApplyDamage removes amount; non-positive amounts are ignored.
func (h *Health) ApplyDamage(amount float64) bool {
	if amount <= 0 {
		return false
	}
	return h.ApplyHealthDelta(-amount)
}

// Heal adds amount; non-positive amounts are ignored.
func (h *Health) Heal(amount float64) bool {
	if amount <= 0 {
		return false
	}
	return h.ApplyHealthDelta(amount)
}

// SetHealth moves health to v (clamped).
func (h *Health) SetHealth(v float64) bool {
	return h.ApplyHealthDelta(v - h.health)
}
