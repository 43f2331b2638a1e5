package system

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/threeworlds/loopshift/internal/console"
	"github.com/threeworlds/loopshift/internal/core/ecs"
	"github.com/threeworlds/loopshift/internal/core/sched"
	coresys "github.com/threeworlds/loopshift/internal/core/system"
	"github.com/threeworlds/loopshift/internal/host"
	"github.com/threeworlds/loopshift/internal/loop"
	"github.com/threeworlds/loopshift/internal/shift"
	"github.com/threeworlds/loopshift/internal/world"
)

type flakyStore struct {
	failures int
	saves    int
	last     []byte
}

func (s *flakyStore) Load(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (s *flakyStore) Save(_ context.Context, _ string, blob []byte) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("store offline")
	}
	s.saves++
	s.last = blob
	return nil
}

func TestAutosave_RetriesDirtyMemory(t *testing.T) {
	store := &flakyStore{failures: 1}
	mem := loop.NewMemory(store, "", time.Second, zap.NewNop())
	mem.IncrementLoopCount()
	if !mem.Dirty() {
		t.Fatal("failed save should leave memory dirty")
	}

	sys := NewAutosaveSystem(mem, zap.NewNop(), 3, time.Second)
	sys.Update(0)
	sys.Update(0)
	if store.saves != 0 {
		t.Fatal("retried before the interval elapsed")
	}
	sys.Update(0)
	if store.saves != 1 || mem.Dirty() {
		t.Fatalf("saves=%d dirty=%v", store.saves, mem.Dirty())
	}

	for i := 0; i < 3; i++ {
		sys.Update(0)
	}
	if store.saves != 1 {
		t.Fatal("clean memory saved again")
	}
}

func TestAutosave_FlushReportsError(t *testing.T) {
	store := &flakyStore{failures: 2}
	mem := loop.NewMemory(store, "", time.Second, zap.NewNop())
	mem.IncrementLoopCount()
	sys := NewAutosaveSystem(mem, zap.NewNop(), 1, time.Second)
	if err := sys.Flush(); err == nil {
		t.Fatal("expected second failure to surface")
	}
	if err := sys.Flush(); err != nil {
		t.Fatal(err)
	}
}

type fakeReloader struct {
	levels, scripts int
	err             error
}

func (f *fakeReloader) ReloadLevel() error   { f.levels++; return f.err }
func (f *fakeReloader) ReloadScripts() error { f.scripts++; return f.err }

func TestReloadSystem_Coalesces(t *testing.T) {
	events := make(chan string, 8)
	r := &fakeReloader{}
	sys := NewReloadSystem(events, r, zap.NewNop())

	events <- "data/yaml/level.yaml"
	events <- "data/yaml/prefabs.yml"
	events <- "scripts/world/shift_cost.lua"
	events <- "notes.txt"
	sys.Update(0)
	if r.levels != 1 || r.scripts != 1 {
		t.Fatalf("levels=%d scripts=%d", r.levels, r.scripts)
	}

	sys.Update(0)
	if r.levels != 1 || r.scripts != 1 {
		t.Fatal("reloaded without events")
	}

	r.err = errors.New("bad yaml")
	events <- "level.yaml"
	close(events)
	sys.Update(0)
	sys.Update(0)
	if r.levels != 2 {
		t.Fatalf("levels=%d", r.levels)
	}
}

func TestSchedulerAndMovement(t *testing.T) {
	s := sched.New()
	fired := 0
	s.After(100*time.Millisecond, func() { fired++ })

	ws := world.NewState(ecs.NewWorld())
	id := ws.Spawn("ball", world.KindPickup, host.Vec3{})
	ws.SetVelocity(id, host.Vec3{X: 2})

	r := coresys.NewRunner()
	r.Register(NewMovementSystem(ws))
	ss := NewSchedulerSystem(s)
	r.Register(ss)
	r.Tick(50 * time.Millisecond)
	r.Tick(50 * time.Millisecond)

	if fired != 1 || ss.Fired() != 1 {
		t.Fatalf("fired=%d counted=%d", fired, ss.Fired())
	}
	if loc, _ := ws.Location(id); loc.X < 0.199 || loc.X > 0.201 {
		t.Fatalf("ball at %v", loc)
	}
}

func TestInputSystem_DrainsConsole(t *testing.T) {
	s := sched.New()
	orch, err := shift.NewOrchestrator(shift.NewSimulation(s), shift.DefaultOptions(), nil, nil, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	orch.Begin()
	lines := make(chan string, 4)
	lines <- "next"
	lines <- "bogus"
	lines <- "next"
	close(lines)

	sys := NewInputSystem(lines, &console.Deps{Orch: orch, World: world.NewState(ecs.NewWorld())}, 2, zap.NewNop())
	sys.Update(0)
	if orch.CurrentWorld() != shift.Shadow {
		t.Fatalf("after first tick %v", orch.CurrentWorld())
	}
	sys.Update(0)
	sys.Update(0)
	if orch.CurrentWorld() != shift.Chaos {
		t.Fatalf("after drain %v", orch.CurrentWorld())
	}
}

func TestCleanupSystem(t *testing.T) {
	w := ecs.NewWorld()
	ws := world.NewState(w)
	id := ws.Spawn("crate", world.KindPlatform, host.Vec3{})
	ws.Despawn(id)
	if !ws.Alive(id) {
		t.Fatal("despawn destroyed before cleanup")
	}
	sys := NewCleanupSystem(w)
	sys.Update(0)
	if ws.Alive(id) {
		t.Fatal("entity survived cleanup")
	}
	sys.Update(0)
	if sys.Reaped() != 1 {
		t.Fatalf("reaped %d, want 1", sys.Reaped())
	}
}

type overlapProbe struct{ begins, ends int }

func (p *overlapProbe) BeginOverlap(ecs.EntityID) { p.begins++ }
func (p *overlapProbe) EndOverlap(ecs.EntityID)   { p.ends++ }

func TestProximitySystem(t *testing.T) {
	ws := world.NewState(ecs.NewWorld())
	player := ws.Spawn("player", world.KindPlayer, host.Vec3{})
	ws.SetPlayer(player)
	pad := ws.Spawn("pad", world.KindButton, host.Vec3{X: 100})
	probe := &overlapProbe{}
	ws.Attach(pad, probe)

	r := coresys.NewRunner()
	r.Register(NewMovementSystem(ws))
	r.Register(NewProximitySystem(ws, 30))

	ws.SetVelocity(player, host.Vec3{X: 1000})
	r.Tick(50 * time.Millisecond) // x=50, 50 away
	if probe.begins != 0 {
		t.Fatal("overlap began out of range")
	}
	r.Tick(50 * time.Millisecond) // x=100
	r.Tick(0)
	if probe.begins != 1 || probe.ends != 0 {
		t.Fatalf("begins=%d ends=%d", probe.begins, probe.ends)
	}
	r.Tick(50 * time.Millisecond) // x=150
	if probe.ends != 1 {
		t.Fatalf("ends=%d", probe.ends)
	}
}
