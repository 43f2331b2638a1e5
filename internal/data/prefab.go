package data

import (
	"fmt"

	"github.com/threeworlds/loopshift/internal/shift"
)

// PrefabEntry is one row of prefabs.yaml.
type PrefabEntry struct {
	Name   string `yaml:"name"`
	Light  string `yaml:"light"`
	Shadow string `yaml:"shadow"`
	Chaos  string `yaml:"chaos"`
}

// LoadPrefabTable loads prefabs.yaml on top of the built-in prefab table.
// Rows with a known name replace the built-in preset.
func LoadPrefabTable(path string) (*shift.PrefabTable, error) {
	var entries []PrefabEntry
	if err := decodeFile(path, &entries); err != nil {
		return nil, fmt.Errorf("load prefabs: %w", err)
	}
	t := shift.DefaultPrefabs()
	for i, e := range entries {
		m, err := WorldStates{"Light": e.Light, "Shadow": e.Shadow, "Chaos": e.Chaos}.Behaviors()
		if err != nil {
			return nil, fmt.Errorf("prefab %d (%s): %w", i, e.Name, err)
		}
		if err := t.Register(shift.Prefab(e.Name), m); err != nil {
			return nil, fmt.Errorf("prefab %d: %w", i, err)
		}
	}
	return t, nil
}
