package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/threeworlds/loopshift/internal/shift"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const sampleLevel = `
name: test
start_world: shadow
spawn: {x: 1, y: 2, z: 3}
default_checkpoint: start
checkpoints:
  - name: start
    location: {x: 0}
player:
  max_health: 80
platforms:
  - name: bridge
    prefab: LightBridge
  - name: custom
    behaviors: {Light: Ghost, Chaos: TimedSolid}
buttons:
  - name: btn
    solid_worlds: [Light]
    reset_delay: 2s
    links: [gate]
doors:
  - name: gate
    open_time: 500ms
hints:
  - name: h1
    id: code
    text: remember
    dialog:
      - {sound: a, duration: 1.5s}
`

func TestLoadLevel(t *testing.T) {
	path := writeFile(t, t.TempDir(), "level.yaml", sampleLevel)
	lv, err := LoadLevel(path)
	if err != nil {
		t.Fatal(err)
	}
	if lv.Player.Name != "player" || lv.Player.MaxHealth != 80 {
		t.Fatalf("player %+v", lv.Player)
	}
	if lv.Spawn.Z != 3 || lv.Count() != 7 {
		t.Fatalf("spawn %v count %d", lv.Spawn, lv.Count())
	}
	if lv.Buttons[0].ResetDelay != 2*time.Second || lv.Doors[0].OpenTime != 500*time.Millisecond {
		t.Fatal("durations not decoded")
	}
	if lv.Hints[0].Dialog[0].Duration != 1500*time.Millisecond {
		t.Fatal("dialog duration not decoded")
	}
	m, err := lv.Platforms[1].Behaviors.Behaviors()
	if err != nil {
		t.Fatal(err)
	}
	if m[shift.Light] != shift.Ghost || m[shift.Chaos] != shift.TimedSolid || m.Resolve(shift.Shadow) != shift.Solid {
		t.Fatalf("behaviors %v", m)
	}
}

func TestLoadLevel_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown field":   "platforms:\n  - name: a\n    colour: red\n",
		"duplicate name":  "platforms:\n  - name: a\n  - name: a\n",
		"dangling link":   "buttons:\n  - name: b\n    links: [nowhere]\n",
		"missing hint id": "hints:\n  - name: h\n",
		"bad checkpoint":  "default_checkpoint: nope\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "level.yaml", body)
			if _, err := LoadLevel(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadPrefabTable(t *testing.T) {
	path := writeFile(t, t.TempDir(), "prefabs.yaml", `
- {name: LightBridge, light: Ghost, shadow: Solid, chaos: Hidden}
- {name: Stairway, light: Solid, shadow: TimedSolid}
`)
	table, err := LoadPrefabTable(path)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := table.Lookup(shift.PrefabLightBridge); got[shift.Light] != shift.Ghost {
		t.Fatalf("override not applied: %v", got)
	}
	stair, ok := table.Lookup("Stairway")
	if !ok || stair[shift.Shadow] != shift.TimedSolid || stair.Resolve(shift.Chaos) != shift.Solid {
		t.Fatalf("stairway %v %v", stair, ok)
	}

	bad := writeFile(t, t.TempDir(), "prefabs.yaml", "- {name: X, light: Wobbly}\n")
	if _, err := LoadPrefabTable(bad); err == nil {
		t.Fatal("bad state accepted")
	}
}

func TestWatcher_ReportsYamlAndLua(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	writeFile(t, dir, "notes.txt", "ignored")
	writeFile(t, dir, "level.yaml", "name: x\n")

	select {
	case got := <-w.Events:
		if filepath.Base(got) != "level.yaml" {
			t.Fatalf("event for %s", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event")
	}
	if !IsScriptFile("a/B.LUA") || IsDataFile("a.lua") {
		t.Fatal("extension filter")
	}
}
