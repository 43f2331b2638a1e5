package data

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/threeworlds/loopshift/internal/shift"
)

// decodeFile strictly decodes one yaml document. An empty file leaves out
// untouched.
func decodeFile(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// WorldStates is a yaml behaviour map: world name -> platform state name.
type WorldStates map[string]string

// Behaviors converts the map, skipping blank states. An empty map yields nil
// so prefabs apply.
func (w WorldStates) Behaviors() (shift.BehaviorMap, error) {
	if len(w) == 0 {
		return nil, nil
	}
	m := make(shift.BehaviorMap, len(w))
	for k, v := range w {
		if v == "" {
			continue
		}
		world, err := shift.ParseWorld(k)
		if err != nil {
			return nil, err
		}
		state, err := shift.ParsePlatformState(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		m[world] = state
	}
	return m, nil
}

// WorldStrings maps a world name to an asset ref.
type WorldStrings map[string]string

func (w WorldStrings) Resolve() (map[shift.WorldState]string, error) {
	if len(w) == 0 {
		return nil, nil
	}
	out := make(map[shift.WorldState]string, len(w))
	for k, v := range w {
		world, err := shift.ParseWorld(k)
		if err != nil {
			return nil, err
		}
		out[world] = v
	}
	return out, nil
}
