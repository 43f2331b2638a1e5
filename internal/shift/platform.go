package shift

import (
	"fmt"
	"sort"
	"strings"
)

// PlatformState is an object's locally resolved behaviour for one world.
type PlatformState uint8

const (
	Solid PlatformState = iota
	Ghost
	Hidden
	TimedSolid
)

var platformNames = [...]string{"Solid", "Ghost", "Hidden", "TimedSolid"}

func (s PlatformState) String() string {
	if int(s) >= len(platformNames) {
		return fmt.Sprintf("PlatformState(%d)", uint8(s))
	}
	return platformNames[s]
}

// SolidCapable reports whether the state can ever block (Solid or TimedSolid).
func (s PlatformState) SolidCapable() bool { return s == Solid || s == TimedSolid }

func ParsePlatformState(s string) (PlatformState, error) {
	key := foldString(strings.TrimSpace(s))
	for i, name := range platformNames {
		if foldString(name) == key {
			return PlatformState(i), nil
		}
	}
	return 0, fmt.Errorf("unknown platform state %q", s)
}

func (s PlatformState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *PlatformState) UnmarshalText(b []byte) error {
	v, err := ParsePlatformState(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MaterialState is the concrete presentation after TimedSolid has been
// collapsed by the global phase.
type MaterialState uint8

const (
	MaterialSolid MaterialState = iota
	MaterialGhost
	MaterialHidden
)

func (m MaterialState) String() string {
	switch m {
	case MaterialSolid:
		return "Solid"
	case MaterialGhost:
		return "Ghost"
	case MaterialHidden:
		return "Hidden"
	}
	return fmt.Sprintf("MaterialState(%d)", uint8(m))
}

// BehaviorMap maps each world to the object's behaviour there.
type BehaviorMap map[WorldState]PlatformState

// Resolve returns the behaviour for w. A missing entry resolves to Solid so
// a half-authored object stays walkable instead of vanishing.
func (m BehaviorMap) Resolve(w WorldState) PlatformState {
	if s, ok := m[w]; ok {
		return s
	}
	return Solid
}

// Clone returns a copy that is safe to mutate.
func (m BehaviorMap) Clone() BehaviorMap {
	out := make(BehaviorMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Prefab names a preset behaviour combination.
type Prefab string

const (
	PrefabCustom         Prefab = "Custom"
	PrefabLightBridge    Prefab = "LightBridge"
	PrefabLightToShadow  Prefab = "LightToShadow"
	PrefabShadowBridge   Prefab = "ShadowBridge"
	PrefabShadowIllusion Prefab = "ShadowIllusion"
	PrefabChaosFlicker   Prefab = "ChaosFlicker"
	PrefabChaosTrap      Prefab = "ChaosTrap"
	PrefabChaosBridge    Prefab = "ChaosBridge"
	PrefabShiftChain     Prefab = "ShiftChain"
	PrefabHiddenSurprise Prefab = "HiddenSurprise"
	PrefabDeception      Prefab = "Deception"
)

// PrefabTable resolves prefab names to behaviour maps.
type PrefabTable struct {
	entries map[Prefab]BehaviorMap
}

func preset(light, shadow, chaos PlatformState) BehaviorMap {
	return BehaviorMap{Light: light, Shadow: shadow, Chaos: chaos}
}

// DefaultPrefabs returns the built-in preset table.
func DefaultPrefabs() *PrefabTable {
	return &PrefabTable{entries: map[Prefab]BehaviorMap{
		PrefabLightBridge:    preset(Solid, Hidden, Hidden),
		PrefabLightToShadow:  preset(Solid, Ghost, Hidden),
		PrefabShadowBridge:   preset(Hidden, Solid, Hidden),
		PrefabShadowIllusion: preset(Solid, Ghost, Solid),
		PrefabChaosFlicker:   preset(Hidden, Hidden, TimedSolid),
		PrefabChaosTrap:      preset(Solid, Solid, Ghost),
		PrefabChaosBridge:    preset(Hidden, Hidden, Solid),
		PrefabShiftChain:     preset(Solid, Solid, TimedSolid),
		PrefabHiddenSurprise: preset(Hidden, Ghost, Solid),
		PrefabDeception:      preset(Solid, Ghost, TimedSolid),
	}}
}

// Register adds or replaces a preset. Custom cannot be redefined.
func (t *PrefabTable) Register(name Prefab, m BehaviorMap) error {
	if name == "" || name == PrefabCustom {
		return fmt.Errorf("prefab name %q is reserved", name)
	}
	t.entries[name] = m.Clone()
	return nil
}

// Lookup returns a copy of the preset for name. Unknown names and Custom fall
// back to Deception.
func (t *PrefabTable) Lookup(name Prefab) (BehaviorMap, bool) {
	if m, ok := t.entries[name]; ok {
		return m.Clone(), true
	}
	return t.entries[PrefabDeception].Clone(), false
}

func (t *PrefabTable) Count() int { return len(t.entries) }

// Names lists registered presets alphabetically.
func (t *PrefabTable) Names() []Prefab {
	out := make([]Prefab, 0, len(t.entries))
	for k := range t.entries {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// BuildBehaviorMap returns explicit when non-empty, otherwise the preset.
func (t *PrefabTable) BuildBehaviorMap(name Prefab, explicit BehaviorMap) BehaviorMap {
	if len(explicit) > 0 {
		return explicit.Clone()
	}
	m, _ := t.Lookup(name)
	return m
}
