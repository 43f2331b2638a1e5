// Package shift holds the multi-world core: the world enum, per-object
// behaviour maps, the global timed-solid cycle, the orchestrator that owns
// the current world, and the per-object WorldShiftBehavior.
package shift

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// WorldState is one of the three realities the level is reinterpreted in.
// The order is cyclic: Light -> Shadow -> Chaos -> Light.
type WorldState uint8

const (
	Light WorldState = iota
	Shadow
	Chaos
)

// WorldCount is the length of the world cycle.
const WorldCount = 3

var worldNames = [WorldCount]string{"Light", "Shadow", "Chaos"}

// foldString case-folds s. Casers carry state, so each call gets its own.
func foldString(s string) string { return cases.Fold().String(s) }

// AllWorlds returns the worlds in cycle order.
func AllWorlds() []WorldState { return []WorldState{Light, Shadow, Chaos} }

func (w WorldState) Valid() bool { return w < WorldCount }

func (w WorldState) Next() WorldState { return w.Step(1) }
func (w WorldState) Prev() WorldState { return w.Step(-1) }

// Step moves n positions around the cycle; negative n walks backwards.
func (w WorldState) Step(n int) WorldState {
	i := (int(w) + n) % WorldCount
	if i < 0 {
		i += WorldCount
	}
	return WorldState(i)
}

func (w WorldState) String() string {
	if !w.Valid() {
		return fmt.Sprintf("World(%d)", uint8(w))
	}
	return worldNames[w]
}

// ParseWorld matches a world name case-insensitively.
func ParseWorld(s string) (WorldState, error) {
	key := foldString(strings.TrimSpace(s))
	for i, name := range worldNames {
		if foldString(name) == key {
			return WorldState(i), nil
		}
	}
	return 0, fmt.Errorf("unknown world %q", s)
}

func (w WorldState) MarshalText() ([]byte, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("invalid world %d", uint8(w))
	}
	return []byte(worldNames[w]), nil
}

func (w *WorldState) UnmarshalText(b []byte) error {
	v, err := ParseWorld(string(b))
	if err != nil {
		return err
	}
	*w = v
	return nil
}
