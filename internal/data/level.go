package data

import (
	"fmt"
	"time"

	"github.com/threeworlds/loopshift/internal/host"
)

// Level is the decoded level.yaml.
type Level struct {
	Name              string           `yaml:"name"`
	StartWorld        string           `yaml:"start_world"`
	Spawn             host.Vec3        `yaml:"spawn"`
	DefaultCheckpoint string           `yaml:"default_checkpoint"`
	Checkpoints       []CheckpointSpec `yaml:"checkpoints"`
	Player            PlayerSpec       `yaml:"player"`
	Platforms         []PlatformSpec   `yaml:"platforms"`
	Buttons           []ButtonSpec     `yaml:"buttons"`
	Doors             []DoorSpec       `yaml:"doors"`
	Hazards           []HazardSpec     `yaml:"hazards"`
	Pickups           []PickupSpec     `yaml:"pickups"`
	Hints             []HintSpec       `yaml:"hints"`
}

type CheckpointSpec struct {
	Name     string    `yaml:"name"`
	Location host.Vec3 `yaml:"location"`
}

type PlayerSpec struct {
	Name      string    `yaml:"name"`
	Location  host.Vec3 `yaml:"location"`
	MaxHealth float64   `yaml:"max_health"`
}

// ShapeSpec is the part every world-shifting object shares.
type ShapeSpec struct {
	Name      string        `yaml:"name"`
	Location  host.Vec3     `yaml:"location"`
	Tags      []string      `yaml:"tags"`
	Prefab    string        `yaml:"prefab"`
	Behaviors WorldStates   `yaml:"behaviors"`
	Materials MaterialsSpec `yaml:"materials"`
}

type MaterialsSpec struct {
	Slot       int          `yaml:"slot"`
	Solid      string       `yaml:"solid"`
	PreWarning string       `yaml:"pre_warning"`
	Ghost      WorldStrings `yaml:"ghost"`
	Hint       WorldStrings `yaml:"hint"`
}

type PlatformSpec struct {
	ShapeSpec `yaml:",inline"`
}

type ButtonSpec struct {
	ShapeSpec       `yaml:",inline"`
	SolidWorlds     []string      `yaml:"solid_worlds"`
	AutoPress       bool          `yaml:"auto_press"`
	AutoReset       *bool         `yaml:"auto_reset"`
	ResetDelay      time.Duration `yaml:"reset_delay"`
	Once            bool          `yaml:"once"`
	DestroyAfterUse bool          `yaml:"destroy_after_use"`
	Links           []string      `yaml:"links"`
	TargetTag       string        `yaml:"target_tag"`
	NearestOnly     bool          `yaml:"nearest_only"`
	PressSound      string        `yaml:"press_sound"`
	PressEffect     string        `yaml:"press_effect"`
}

type DoorSpec struct {
	ShapeSpec `yaml:",inline"`
	Sound     string        `yaml:"sound"`
	OpenTime  time.Duration `yaml:"open_time"`
}

type HazardSpec struct {
	ShapeSpec    `yaml:",inline"`
	Damage       float64       `yaml:"damage"`
	Continuous   bool          `yaml:"continuous"`
	Tick         time.Duration `yaml:"tick"`
	ActiveSound  string        `yaml:"active_sound"`
	ActiveEffect string        `yaml:"active_effect"`
}

type PickupSpec struct {
	ShapeSpec `yaml:",inline"`
	Amount    float64 `yaml:"amount"`
	Sound     string  `yaml:"sound"`
}

type DialogSpec struct {
	Sound    string        `yaml:"sound"`
	Duration time.Duration `yaml:"duration"`
}

type HintSpec struct {
	Name         string       `yaml:"name"`
	Location     host.Vec3    `yaml:"location"`
	ID           string       `yaml:"id"`
	Text         string       `yaml:"text"`
	Persistent   bool         `yaml:"persistent"`
	State        string       `yaml:"state"`
	LoopToUnlock int          `yaml:"loop_to_unlock"`
	Sound        string       `yaml:"sound"`
	Retrigger    bool         `yaml:"retrigger"`
	Dialog       []DialogSpec `yaml:"dialog"`
}

// LoadLevel reads a level file and checks cross references.
func LoadLevel(path string) (*Level, error) {
	var lv Level
	if err := decodeFile(path, &lv); err != nil {
		return nil, fmt.Errorf("load level %s: %w", path, err)
	}
	if err := lv.validate(); err != nil {
		return nil, fmt.Errorf("level %s: %w", path, err)
	}
	return &lv, nil
}

// Count returns the number of objects the level spawns, player included.
func (lv *Level) Count() int {
	return 1 + len(lv.Checkpoints) + len(lv.Platforms) + len(lv.Buttons) +
		len(lv.Doors) + len(lv.Hazards) + len(lv.Pickups) + len(lv.Hints)
}

func (lv *Level) validate() error {
	names := make(map[string]struct{}, lv.Count())
	add := func(kind, name string) error {
		if name == "" {
			return fmt.Errorf("%s without a name", kind)
		}
		if _, dup := names[name]; dup {
			return fmt.Errorf("duplicate name %q", name)
		}
		names[name] = struct{}{}
		return nil
	}
	if lv.Player.Name == "" {
		lv.Player.Name = "player"
	}
	if err := add("player", lv.Player.Name); err != nil {
		return err
	}
	for _, c := range lv.Checkpoints {
		if err := add("checkpoint", c.Name); err != nil {
			return err
		}
	}
	for _, p := range lv.Platforms {
		if err := add("platform", p.Name); err != nil {
			return err
		}
	}
	for _, b := range lv.Buttons {
		if err := add("button", b.Name); err != nil {
			return err
		}
	}
	for _, d := range lv.Doors {
		if err := add("door", d.Name); err != nil {
			return err
		}
	}
	for _, h := range lv.Hazards {
		if err := add("hazard", h.Name); err != nil {
			return err
		}
	}
	for _, p := range lv.Pickups {
		if err := add("pickup", p.Name); err != nil {
			return err
		}
	}
	for _, h := range lv.Hints {
		if err := add("hint", h.Name); err != nil {
			return err
		}
		if h.ID == "" {
			return fmt.Errorf("hint %q has no id", h.Name)
		}
	}
	for _, b := range lv.Buttons {
		for _, l := range b.Links {
			if _, ok := names[l]; !ok {
				return fmt.Errorf("button %q links unknown object %q", b.Name, l)
			}
		}
	}
	if lv.DefaultCheckpoint != "" {
		found := false
		for _, c := range lv.Checkpoints {
			found = found || c.Name == lv.DefaultCheckpoint
		}
		if !found {
			return fmt.Errorf("default checkpoint %q not defined", lv.DefaultCheckpoint)
		}
	}
	return nil
}
